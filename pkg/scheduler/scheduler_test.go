package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/warren/pkg/scheduler"
	"github.com/cuemby/warren/pkg/types"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mu          sync.Mutex
	calls       []scheduler.ScheduledFunctionId
	immediate   []string
	reschedule  map[uint64]*scheduler.Reschedule
	callSignal  chan struct{}
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		reschedule: make(map[uint64]*scheduler.Reschedule),
		callSignal: make(chan struct{}, 16),
	}
}

func (h *fakeHost) CallScheduledFunction(_ context.Context, id scheduler.ScheduledFunctionId) (*scheduler.Reschedule, error) {
	h.mu.Lock()
	h.calls = append(h.calls, id)
	r := h.reschedule[id.ScheduleId]
	h.mu.Unlock()
	h.callSignal <- struct{}{}
	return r, nil
}

func (h *fakeHost) CallImmediate(_ context.Context, reducerName string, _ []byte) error {
	h.mu.Lock()
	h.immediate = append(h.immediate, reducerName)
	h.mu.Unlock()
	h.callSignal <- struct{}{}
	return nil
}

func (h *fakeHost) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func waitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduled call")
	}
}

func TestScheduleFiresAtDeadline(t *testing.T) {
	host := newFakeHost()
	sched, act := scheduler.Open()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go act.Start(ctx, host)

	id := scheduler.ScheduledFunctionId{TableId: 1, ScheduleId: 42}
	require.NoError(t, sched.Schedule(id, scheduler.At(types.Now()), types.Now()))

	waitSignal(t, host.callSignal)
	require.Equal(t, 1, host.callCount())
	require.Equal(t, id, host.calls[0])
}

func TestIntervalScheduleReschedulesItself(t *testing.T) {
	host := newFakeHost()
	host.reschedule[7] = &scheduler.Reschedule{AtReal: time.Now().Add(20 * time.Millisecond)}

	sched, act := scheduler.Open()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go act.Start(ctx, host)

	id := scheduler.ScheduledFunctionId{TableId: 1, ScheduleId: 7}
	require.NoError(t, sched.Schedule(id, scheduler.At(types.Now()), types.Now()))

	waitSignal(t, host.callSignal)
	waitSignal(t, host.callSignal)
	require.GreaterOrEqual(t, host.callCount(), 2)
}

func TestScheduleImmediateCallsHostDirectly(t *testing.T) {
	host := newFakeHost()
	sched, act := scheduler.Open()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go act.Start(ctx, host)

	sched.ScheduleImmediate("my_reducer", []byte("args"))
	waitSignal(t, host.callSignal)

	host.mu.Lock()
	defer host.mu.Unlock()
	require.Equal(t, []string{"my_reducer"}, host.immediate)
}

func TestScheduleRejectsDelayTooLong(t *testing.T) {
	sched, _ := scheduler.Open()
	farFuture := types.Now().Add(types.TimeDurationFromDuration(scheduler.MaxScheduleDelay * 2))
	err := sched.Schedule(scheduler.ScheduledFunctionId{}, scheduler.At(farFuture), types.Now())
	require.ErrorIs(t, err, scheduler.ErrDelayTooLong)
}

func TestReplacingAScheduleDropsThePriorDeadline(t *testing.T) {
	host := newFakeHost()
	sched, act := scheduler.Open()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go act.Start(ctx, host)

	id := scheduler.ScheduledFunctionId{TableId: 1, ScheduleId: 9}
	far := types.Now().Add(types.TimeDurationFromDuration(time.Hour))
	require.NoError(t, sched.Schedule(id, scheduler.At(far), types.Now()))
	require.NoError(t, sched.Schedule(id, scheduler.At(types.Now()), types.Now()))

	waitSignal(t, host.callSignal)
	require.Equal(t, 1, host.callCount())
}
