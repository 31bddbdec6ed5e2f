// Package types holds the primitive identifiers and value types shared
// across the storage engine: row pointers, column/table/type ids, the
// scheduler's timestamp types, and blob hashes.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TableId identifies a table within a database.
type TableId uint32

// ColId identifies a single column within a table's row type.
type ColId uint32

// IndexId identifies a B-tree index.
type IndexId uint32

// ConstraintId identifies a constraint (unique, etc).
type ConstraintId uint32

// SequenceId identifies an auto-increment sequence.
type SequenceId uint32

// TypeId identifies a registered AlgebraicType within a typespace, for
// structural deduplication of recursive/shared types.
type TypeId uint32

// ScheduleId identifies a row in a scheduled table (the row's primary key).
type ScheduleId uint64

// SquashedOffset distinguishes whether a RowPointer refers to committed
// state or to a transaction's scratchpad insert table.
type SquashedOffset uint8

const (
	// SquashedCommitted marks a pointer into CommittedState.
	SquashedCommitted SquashedOffset = 0
	// SquashedTx marks a pointer into a transaction's insert table.
	SquashedTx SquashedOffset = 1
)

// PageIndex identifies a page within a table's page vector.
type PageIndex uint16

// PageOffset is a byte offset within a page, always a multiple of the
// relevant region's alignment.
type PageOffset uint16

// RowPointer is a stable handle to a row within a specific table. It
// remains valid from insert until the row is deleted.
type RowPointer struct {
	SquashedOffset SquashedOffset
	PageIndex      PageIndex
	PageOffset     PageOffset
}

// IsNull reports whether p is the zero-value null pointer.
func (p RowPointer) IsNull() bool {
	return p == RowPointer{}
}

func (p RowPointer) String() string {
	return fmt.Sprintf("RowPointer{so:%d,page:%d,off:%d}", p.SquashedOffset, p.PageIndex, p.PageOffset)
}

// RowHash is a stable hash of a row's BFLATN contents, used by the
// pointer map to enforce set semantics.
type RowHash uint64

// BlobHash is a content hash of a blob's BSATN bytes. 32 bytes to match
// the original BLAKE3 digest size; see pkg/blob/doc.go for the hash
// algorithm actually used in this port.
type BlobHash [32]byte

// Timestamp is microseconds since the Unix epoch, matching the
// resolution the scheduler reasons about.
type Timestamp int64

// Now returns the current time as a Timestamp.
func Now() Timestamp { return TimestampFromTime(time.Now()) }

// TimestampFromTime converts a time.Time to a Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMicro())
}

// Time converts a Timestamp back to a time.Time.
func (t Timestamp) Time() time.Time {
	return time.UnixMicro(int64(t))
}

// Add returns t advanced by d.
func (t Timestamp) Add(d TimeDuration) Timestamp {
	return t + Timestamp(d)
}

// Sub returns the duration from u to t (t - u).
func (t Timestamp) Sub(u Timestamp) TimeDuration {
	return TimeDuration(t - u)
}

// TimeDuration is a signed microsecond duration.
type TimeDuration int64

// TimeDurationFromDuration converts a time.Duration to a TimeDuration.
func TimeDurationFromDuration(d time.Duration) TimeDuration {
	return TimeDuration(d.Microseconds())
}

// Duration converts a TimeDuration to a time.Duration.
func (d TimeDuration) Duration() time.Duration {
	return time.Duration(d) * time.Microsecond
}

// ScheduleAtKind tags a ScheduleAt value as one-shot or recurring.
type ScheduleAtKind uint8

const (
	ScheduleAtTime ScheduleAtKind = iota
	ScheduleAtInterval
)

// ScheduleAt is either a fixed Timestamp (fire once) or a TimeDuration
// interval (fire repeatedly).
type ScheduleAt struct {
	Kind     ScheduleAtKind
	At       Timestamp
	Interval TimeDuration
}

// ScheduleAtTimestamp constructs a one-shot ScheduleAt.
func ScheduleAtTimestamp(ts Timestamp) ScheduleAt {
	return ScheduleAt{Kind: ScheduleAtTime, At: ts}
}

// ScheduleAtEvery constructs an interval ScheduleAt.
func ScheduleAtEvery(d TimeDuration) ScheduleAt {
	return ScheduleAt{Kind: ScheduleAtInterval, Interval: d}
}

// IsInterval reports whether s recurs rather than firing once.
func (s ScheduleAt) IsInterval() bool { return s.Kind == ScheduleAtInterval }

// ScheduledFunctionId identifies one scheduled invocation source: a row
// in a given table, the table's id/at columns, and the row's schedule id.
type ScheduledFunctionId struct {
	TableId    TableId
	ScheduleId ScheduleId
	IdColumn   ColId
	AtColumn   ColId
}

// DatabaseAddress identifies a single embedded database instance.
type DatabaseAddress [16]byte

// NewDatabaseAddress generates a fresh random DatabaseAddress.
func NewDatabaseAddress() DatabaseAddress {
	return DatabaseAddress(uuid.New())
}

func (a DatabaseAddress) String() string {
	return uuid.UUID(a).String()
}
