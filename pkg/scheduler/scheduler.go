package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/warren/pkg/catalog"
	"github.com/cuemby/warren/pkg/log"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxScheduleDelay is the largest delay a schedule may request,
// mirroring the representable range of the delay-queue implementation
// this package's queue.go stands in for: roughly 2.18 years.
const MaxScheduleDelay = time.Duration(1<<36-1) * time.Millisecond

// ErrDelayTooLong is returned by Schedule when the computed delay
// exceeds MaxScheduleDelay.
var ErrDelayTooLong = errors.New("scheduler: requested delay too long")

// ErrNoSuchModule is returned (conceptually) when the host has already
// exited; Host implementations signal this by returning it from
// CallScheduledFunction so the scheduler knows to leave the row in
// place for the next start to pick up.
var ErrNoSuchModule = errors.New("scheduler: no such module")

// Reschedule is returned by a successful interval call: the row is not
// deleted, and the scheduler re-arms it for the next deadline.
type Reschedule struct {
	AtTimestamp types.Timestamp
	AtReal      time.Time
}

// Host is the module-side hook the scheduler invokes when a schedule
// is due. Implementations look up the row named by id, invoke the
// reducer/procedure it names, and apply the deletion/rescheduling
// side effects described in the package doc within the same
// transaction as the call.
type Host interface {
	CallScheduledFunction(ctx context.Context, id ScheduledFunctionId) (*Reschedule, error)
	CallImmediate(ctx context.Context, reducerName string, args []byte) error
}

type message struct {
	schedule          *scheduleMsg
	scheduleImmediate *scheduleImmediateMsg
	exit              bool
}

type scheduleMsg struct {
	id          ScheduledFunctionId
	effectiveAt types.Timestamp
	realAt      time.Time
}

type scheduleImmediateMsg struct {
	reducerName string
	args        []byte
}

// Scheduler is a handle to the running scheduler actor: cheap to
// clone, safe to share across reducer invocations.
type Scheduler struct {
	msgCh chan message
}

// Open creates a Scheduler handle and its not-yet-started actor. Call
// Start on the returned actor once the host is ready to receive calls.
func Open() (*Scheduler, *actor) {
	msgCh := make(chan message, 64)
	return &Scheduler{msgCh: msgCh},
		&actor{
			msgCh:  msgCh,
			closed: make(chan struct{}),
			queue:  &delayQueue{},
			keyMap: make(map[ScheduledFunctionId]*queueEntry),
			logger: log.WithComponent("scheduler"),
		}
}

// Schedule enqueues id to fire at scheduleAt, computed relative to
// fnStart (the timestamp the calling reducer/procedure believed "now"
// to be, to tolerate non-monotonic clocks across long-running calls).
// Re-scheduling an id already in the queue replaces its prior entry.
func (s *Scheduler) Schedule(id ScheduledFunctionId, scheduleAt ScheduleAt, fnStart types.Timestamp) error {
	now := fnStart
	if wallNow := types.Now(); wallNow > now {
		now = wallNow
	}

	delay := scheduleAt.ToDurationFrom(now)
	if delay > MaxScheduleDelay {
		return fmt.Errorf("%w: %s", ErrDelayTooLong, delay)
	}

	msg := message{schedule: &scheduleMsg{
		id:          id,
		effectiveAt: scheduleAt.ToTimestampFrom(now),
		realAt:      time.Now().Add(delay),
	}}
	select {
	case s.msgCh <- msg:
	default:
		// The actor may have already exited; dropping the message is
		// fine, since the row it describes is durable and will be
		// re-enqueued the next time the scheduler starts.
	}
	return nil
}

// ScheduleImmediate enqueues an immediate, non-durable call: args are
// not persisted, so the call is lost if the process restarts before
// it fires.
func (s *Scheduler) ScheduleImmediate(reducerName string, args []byte) {
	select {
	case s.msgCh <- message{scheduleImmediate: &scheduleImmediateMsg{reducerName: reducerName, args: args}}:
	default:
	}
}

// Close asks the actor to exit. In-flight queued items are dropped
// without being called; they remain as durable rows for next start.
func (s *Scheduler) Close() {
	select {
	case s.msgCh <- message{exit: true}:
	default:
	}
}

// actor owns the delay queue and runs the single-threaded dispatch
// loop. It is not exported beyond the struct returned by Open, mirroring
// the split between a cheap cloneable handle and the loop that owns
// the actual queue state.
type actor struct {
	msgCh  chan message
	closed chan struct{}
	queue  *delayQueue
	keyMap map[ScheduledFunctionId]*queueEntry
	logger zerolog.Logger
	host   Host
}

// LoadFromCatalog scans every registered scheduled table and enqueues
// its current rows, computing each deadline against "now". Call this
// once, before Start, to recover pending schedules after a restart.
func (a *actor) LoadFromCatalog(cs *catalog.CommittedState) error {
	now := types.Now()
	nowInstant := time.Now()

	for _, entry := range cs.ScheduledTables() {
		t, ok := cs.GetTable(entry.TableId)
		if !ok {
			return fmt.Errorf("scheduler: scheduled table %d not found", entry.TableId)
		}
		var loadErr error
		t.Scan(cs.BlobStore, func(_ types.RowPointer, row sats.AlgebraicValue) bool {
			scheduleId, scheduleAt, err := readScheduleColumns(row, entry.IdColumn, entry.AtColumn)
			if err != nil {
				loadErr = err
				return false
			}
			id := ScheduledFunctionId{
				TableId:    uint32(entry.TableId),
				ScheduleId: scheduleId,
				IdColumn:   uint16(entry.IdColumn),
				AtColumn:   uint16(entry.AtColumn),
			}
			delay := scheduleAt.ToDurationFrom(now)
			deadline := nowInstant.Add(delay)
			a.insertOrReplace(id, entry.ReducerName, deadline)
			return true
		})
		if loadErr != nil {
			return loadErr
		}
	}
	return nil
}

// readScheduleColumns reads the schedule id and ScheduleAt value out
// of a row's id/at columns. The at-column is encoded as a two-field
// product (is_interval bool, value i64 microseconds) so it fits in a
// plain row without needing a sum type at the table-schema level.
func readScheduleColumns(row sats.AlgebraicValue, idCol, atCol types.ColId) (uint64, ScheduleAt, error) {
	elems := row.Prod.Elems
	if int(idCol) >= len(elems) || int(atCol) >= len(elems) {
		return 0, ScheduleAt{}, fmt.Errorf("scheduler: row has no column at id=%d/at=%d", idCol, atCol)
	}
	scheduleId := elems[idCol].U64
	atProd := elems[atCol].Prod
	if len(atProd.Elems) != 2 {
		return 0, ScheduleAt{}, fmt.Errorf("scheduler: at-column is not a (is_interval, value) pair")
	}
	isInterval := atProd.Elems[0].Bool
	value := atProd.Elems[1].I64
	if isInterval {
		return scheduleId, Every(types.TimeDuration(value)), nil
	}
	return scheduleId, At(types.Timestamp(value)), nil
}

func (a *actor) insertOrReplace(id ScheduledFunctionId, reducerName string, deadline time.Time) {
	if old, ok := a.keyMap[id]; ok {
		a.queue.remove(old)
	}
	entry := a.queue.insertAt(queueItem{id: id, reducerName: reducerName}, deadline)
	a.keyMap[id] = entry
}

// Start runs the dispatch loop until Close is sent, the message
// channel is closed, or ctx is done. It blocks, so callers run it in
// its own goroutine.
func (a *actor) Start(ctx context.Context, host Host) {
	a.host = host
	defer close(a.closed)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		a.armTimer(timer)
		select {
		case <-ctx.Done():
			return
		case msg := <-a.msgCh:
			if msg.exit {
				return
			}
			a.handleMessage(msg)
		case <-timer.C:
			a.fireDue(ctx)
		}
	}
}

// Wait blocks until the actor's dispatch loop has exited.
func (a *actor) Wait() {
	<-a.closed
}

func (a *actor) armTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	entry, ok := a.queue.peek()
	if !ok {
		timer.Reset(time.Hour)
		return
	}
	d := time.Until(entry.deadline)
	if d < 0 {
		d = 0
	}
	timer.Reset(d)
}

func (a *actor) handleMessage(msg message) {
	switch {
	case msg.schedule != nil:
		a.insertOrReplace(msg.schedule.id, "", msg.schedule.realAt)
	case msg.scheduleImmediate != nil:
		a.queue.insertAt(queueItem{
			isImmediate: true,
			reducerName: msg.scheduleImmediate.reducerName,
			args:        msg.scheduleImmediate.args,
		}, time.Now())
	}
}

func (a *actor) fireDue(ctx context.Context) {
	now := time.Now()
	for {
		entry, ok := a.queue.peek()
		if !ok || entry.deadline.After(now) {
			return
		}
		a.queue.pop()
		a.dispatch(ctx, entry.item)
	}
}

func (a *actor) dispatch(ctx context.Context, item queueItem) {
	correlationId := uuid.New().String()
	if !item.isImmediate {
		delete(a.keyMap, item.id)
	}

	logger := a.logger.With().Str("correlation_id", correlationId).Logger()

	if item.isImmediate {
		logger.Debug().Str("reducer_name", item.reducerName).Msg("dispatching immediate call")
		if err := a.host.CallImmediate(ctx, item.reducerName, item.args); err != nil && !errors.Is(err, ErrNoSuchModule) {
			logger.Error().Err(err).Msg("immediate call failed")
		}
		return
	}

	logger.Debug().Uint32("table_id", item.id.TableId).Uint64("schedule_id", item.id.ScheduleId).Msg("dispatching scheduled call")
	reschedule, err := a.host.CallScheduledFunction(ctx, item.id)
	if err != nil {
		if errors.Is(err, ErrNoSuchModule) {
			// Host already exited; the row is untouched in the table
			// and will be picked up again by LoadFromCatalog on restart.
			return
		}
		logger.Error().Err(err).Msg("scheduled call failed")
		return
	}
	if reschedule != nil {
		a.insertOrReplace(item.id, item.reducerName, reschedule.AtReal)
	}
}
