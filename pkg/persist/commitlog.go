package persist

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/cuemby/warren/pkg/datastore"
	"github.com/cuemby/warren/pkg/log"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketCommitLog = []byte("commit_log")

// op tags a row within a record as belonging to the insert or delete
// side of a TxData.
type op byte

const (
	opInsert op = 0
	opDelete op = 1
)

// RowTypes resolves the BSATN type a table's rows were encoded with,
// so CommitLog never needs to carry self-describing types in the log
// itself. *catalog.CommittedState satisfies this through its RowType
// method.
type RowTypes interface {
	RowType(tableId types.TableId) (sats.AlgebraicType, bool)
}

// CommitLog is an append-only, offset-keyed record of committed
// transaction deltas, backed by a single bbolt bucket.
type CommitLog struct {
	db *bolt.DB
}

// OpenCommitLog opens (creating if absent) a commit log database
// under dataDir.
func OpenCommitLog(dataDir string) (*CommitLog, error) {
	path := filepath.Join(dataDir, "commit_log.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("persist: open commit log: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCommitLog)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: init commit log bucket: %w", err)
	}
	return &CommitLog{db: db}, nil
}

// Close releases the underlying database file.
func (c *CommitLog) Close() error {
	return c.db.Close()
}

// Append encodes data's rows using rowTypes and writes them as a
// single record keyed by offset. data.TxOffset is not consulted: a
// record is written for any data passed in, including data that
// carries no TxOffset.
func (c *CommitLog) Append(offset uint64, data *datastore.TxData, rowTypes RowTypes) error {
	payload, err := encodeRecord(data, rowTypes)
	if err != nil {
		return fmt.Errorf("persist: encode tx record: %w", err)
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, offset)
	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCommitLog).Put(key, payload)
	}); err != nil {
		log.WithComponent("persist").Warn().Err(err).Uint64("tx_offset", offset).Msg("commit log append failed")
		return err
	}
	return nil
}

// RowEvent is one decoded row from a replayed record.
type RowEvent struct {
	TableId types.TableId
	Op      op
	Row     sats.AlgebraicValue
}

// Replay walks the log in offset order, decoding each record against
// rowTypes and invoking fn once per row. Replay stops and returns fn's
// error if it returns non-nil.
func (c *CommitLog) Replay(rowTypes RowTypes, fn func(offset uint64, ev RowEvent) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCommitLog)
		cur := b.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			offset := binary.BigEndian.Uint64(k)
			events, err := decodeRecord(v, rowTypes)
			if err != nil {
				return fmt.Errorf("persist: decode record at offset %d: %w", offset, err)
			}
			for _, ev := range events {
				if err := fn(offset, ev); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// LastOffset returns the highest offset present in the log, and false
// if the log is empty.
func (c *CommitLog) LastOffset() (uint64, bool, error) {
	var (
		last  uint64
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(bucketCommitLog).Cursor()
		k, _ := cur.Last()
		if k == nil {
			return nil
		}
		found = true
		last = binary.BigEndian.Uint64(k)
		return nil
	})
	return last, found, err
}

// encodeRecord lays out a TxData as a flat sequence of
// (table_id uint32, op byte, row_len uint32, row_bytes) entries,
// deletes then inserts, matching the order Datastore.Commit applies
// them in.
func encodeRecord(data *datastore.TxData, rowTypes RowTypes) ([]byte, error) {
	var buf []byte
	write := func(tableId types.TableId, tag op, rows []sats.AlgebraicValue) error {
		rowType, ok := rowTypes.RowType(tableId)
		if !ok {
			return fmt.Errorf("no row type registered for table %d", tableId)
		}
		for _, row := range rows {
			encoded, err := sats.Encode(row, rowType)
			if err != nil {
				return err
			}
			var hdr [9]byte
			binary.LittleEndian.PutUint32(hdr[0:4], uint32(tableId))
			hdr[4] = byte(tag)
			binary.LittleEndian.PutUint32(hdr[5:9], uint32(len(encoded)))
			buf = append(buf, hdr[:]...)
			buf = append(buf, encoded...)
		}
		return nil
	}
	for tableId, rows := range data.Deletes {
		if err := write(tableId, opDelete, rows); err != nil {
			return nil, err
		}
	}
	for tableId, rows := range data.Inserts {
		if err := write(tableId, opInsert, rows); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func decodeRecord(buf []byte, rowTypes RowTypes) ([]RowEvent, error) {
	var events []RowEvent
	for len(buf) > 0 {
		if len(buf) < 9 {
			return nil, fmt.Errorf("truncated record header")
		}
		tableId := types.TableId(binary.LittleEndian.Uint32(buf[0:4]))
		tag := op(buf[4])
		rowLen := binary.LittleEndian.Uint32(buf[5:9])
		buf = buf[9:]
		if uint32(len(buf)) < rowLen {
			return nil, fmt.Errorf("truncated row payload")
		}
		rowType, ok := rowTypes.RowType(tableId)
		if !ok {
			return nil, fmt.Errorf("no row type registered for table %d", tableId)
		}
		row, _, err := sats.Decode(buf[:rowLen], rowType)
		if err != nil {
			return nil, err
		}
		events = append(events, RowEvent{TableId: tableId, Op: tag, Row: row})
		buf = buf[rowLen:]
	}
	return events, nil
}
