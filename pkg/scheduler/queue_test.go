package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayQueueOrdersByDeadline(t *testing.T) {
	q := &delayQueue{}
	base := time.Now()

	q.insertAt(queueItem{id: ScheduledFunctionId{ScheduleId: 3}}, base.Add(3*time.Second))
	q.insertAt(queueItem{id: ScheduledFunctionId{ScheduleId: 1}}, base.Add(1*time.Second))
	q.insertAt(queueItem{id: ScheduledFunctionId{ScheduleId: 2}}, base.Add(2*time.Second))

	require.Equal(t, uint64(1), q.pop().item.id.ScheduleId)
	require.Equal(t, uint64(2), q.pop().item.id.ScheduleId)
	require.Equal(t, uint64(3), q.pop().item.id.ScheduleId)
	require.Equal(t, 0, q.Len())
}

func TestDelayQueueRemove(t *testing.T) {
	q := &delayQueue{}
	base := time.Now()

	e1 := q.insertAt(queueItem{id: ScheduledFunctionId{ScheduleId: 1}}, base.Add(1*time.Second))
	q.insertAt(queueItem{id: ScheduledFunctionId{ScheduleId: 2}}, base.Add(2*time.Second))

	q.remove(e1)
	require.Equal(t, 1, q.Len())

	top, ok := q.peek()
	require.True(t, ok)
	require.Equal(t, uint64(2), top.item.id.ScheduleId)
}

func TestDelayQueuePeekEmpty(t *testing.T) {
	q := &delayQueue{}
	_, ok := q.peek()
	require.False(t, ok)
}
