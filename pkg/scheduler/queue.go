package scheduler

import (
	"container/heap"
	"time"
)

// ScheduledFunctionId names one pending schedule: a row in a scheduled
// table, identified by that table's id and the row's own schedule id,
// plus the positions of its id/at columns so the row can be re-read
// without a second schema lookup.
type ScheduledFunctionId struct {
	TableId    uint32
	ScheduleId uint64
	IdColumn   uint16
	AtColumn   uint16
}

// queueItem is the payload carried by one entry in the delay queue.
type queueItem struct {
	id          ScheduledFunctionId
	isImmediate bool
	reducerName string
	args        []byte
}

type queueEntry struct {
	item     queueItem
	deadline time.Time
	index    int
}

// delayQueue is a min-heap of queueEntry ordered by deadline, standing
// in for tokio_util::time::DelayQueue: Go's standard library has no
// timer-backed priority queue, so container/heap over (item, deadline)
// pairs plays the same role, with a single time.Timer armed for
// whichever entry is nearest.
type delayQueue struct {
	entries []*queueEntry
}

func (q *delayQueue) Len() int { return len(q.entries) }
func (q *delayQueue) Less(i, j int) bool {
	return q.entries[i].deadline.Before(q.entries[j].deadline)
}
func (q *delayQueue) Swap(i, j int) {
	q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	q.entries[i].index = i
	q.entries[j].index = j
}
func (q *delayQueue) Push(x any) {
	e := x.(*queueEntry)
	e.index = len(q.entries)
	q.entries = append(q.entries, e)
}
func (q *delayQueue) Pop() any {
	old := q.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	q.entries = old[:n-1]
	return e
}

// insertAt pushes a new entry onto the queue and returns it, so the
// caller can index it in a key_map for later removal.
func (q *delayQueue) insertAt(item queueItem, deadline time.Time) *queueEntry {
	e := &queueEntry{item: item, deadline: deadline}
	heap.Push(q, e)
	return e
}

// remove drops e from the queue. e must currently be a member.
func (q *delayQueue) remove(e *queueEntry) {
	heap.Remove(q, e.index)
}

// peek returns the entry with the nearest deadline, without removing it.
func (q *delayQueue) peek() (*queueEntry, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	return q.entries[0], true
}

// pop removes and returns the entry with the nearest deadline.
func (q *delayQueue) pop() *queueEntry {
	return heap.Pop(q).(*queueEntry)
}
