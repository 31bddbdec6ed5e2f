/*
Package scheduler arranges for reducers and procedures to run at a
Timestamp or on a recurring interval.

Every pending call is persisted as a row in a user-declared scheduled
table, not as scheduler-private state: the scheduler's queue is a
volatile index over those rows, rebuilt from the database on every
start. This makes the scheduler itself stateless across restarts —
losing the queue loses nothing, since LoadFromCatalog reconstructs it
from st_scheduled and the scheduled tables it names.

# Architecture

A single actor goroutine owns a deadline-ordered queue and a key_map
from ScheduledFunctionId to queue position. It blocks on whichever is
sooner: a new message (schedule, schedule-immediate, or exit) or the
next expiring deadline:

	┌────────────────────────────────────────────────────────────┐
	│                     actor.Start loop                        │
	└────────────────┬──────────────────────────────────────────┘
	                 │
	        ┌────────┴────────┐
	        │                 │
	        ▼                 ▼
	  message arrives    timer fires
	        │                 │
	        ▼                 ▼
	 insert/replace      pop all entries
	 queue entry         due <= now, call
	                     host.CallScheduledFunction
	                     for each

# Core Components

Scheduler: a cheap, cloneable handle used by reducers to enqueue new
schedules. actor: the loop that owns the queue and calls into the host.

	sched, act := scheduler.Open()
	go act.Start(ctx, host)
	defer sched.Close()

# Delay queue

Go's standard library has no equivalent of a timer-backed priority
queue, so queue.go implements one directly: a container/heap min-heap
of (item, deadline) pairs, with a single time.Timer re-armed to the
nearest deadline after every state change. MaxScheduleDelay bounds how
far into the future a schedule may be requested, matching the
representable range such delay queues typically support (~2.18 years);
requests beyond it are rejected rather than silently clamped.

# ScheduleAt semantics

A schedule is either a one-shot deadline (At) or a recurring interval
measured from the row's last successful call (Every). Scheduling uses
"now" as max(wall-clock now, the calling reducer's start time), so a
long-running procedure that schedules something relative to "now"
doesn't end up scheduling it in the past because the clock moved on
while the procedure ran.

# Row lifecycle on fire

Whether the fired row is deleted or kept is entirely the host's
decision, communicated back via the Reschedule return value:

  - At schedules: the host deletes the row in the same transaction as
    the call, and CallScheduledFunction returns a nil Reschedule.
  - Interval schedules: the row survives, and the host returns a
    Reschedule naming the next deadline (fn_start + interval); the
    actor re-arms the queue entry rather than dropping it.
  - If the host reports ErrNoSuchModule (the module already exited),
    the queue entry is dropped without touching the row; the row is
    durable, so the next LoadFromCatalog picks it back up.

# Immediate calls

ScheduleImmediate enqueues a zero-delay, non-durable call: its
arguments live only in the in-memory queue, so a crash between
enqueueing and dispatch loses the call entirely. This is intentional —
it exists for fire-and-forget notifications a reducer wants dispatched
after its own transaction commits, not for anything that needs
delivery guarantees.

# See Also

  - pkg/catalog - st_scheduled and the scheduled-table registry
  - pkg/datastore - the transaction a scheduled call runs inside
*/
package scheduler
