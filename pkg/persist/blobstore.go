package persist

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketBlobData     = []byte("blobs")
	bucketBlobRefcount = []byte("blob_refcounts")
)

// BlobStore is a durable, content-addressed blob.Store backed by
// bbolt: one bucket holds bytes keyed by hash, a second holds the
// refcount, so Decr can free an entry in place without a sweep.
type BlobStore struct {
	db *bolt.DB
}

var _ blob.Store = (*BlobStore)(nil)

// OpenBlobStore opens (creating if absent) a blob store database under
// dataDir.
func OpenBlobStore(dataDir string) (*BlobStore, error) {
	path := filepath.Join(dataDir, "blobs.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("persist: open blob store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBlobData); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketBlobRefcount)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: init blob buckets: %w", err)
	}
	return &BlobStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BlobStore) Close() error {
	return s.db.Close()
}

func (s *BlobStore) Put(data []byte) (types.BlobHash, error) {
	hash := blob.Hash(data)
	err := s.db.Update(func(tx *bolt.Tx) error {
		rc := tx.Bucket(bucketBlobRefcount)
		count := readRefcount(rc, hash)
		if count == 0 {
			if err := tx.Bucket(bucketBlobData).Put(hash[:], data); err != nil {
				return err
			}
		}
		return putRefcount(rc, hash, count+1)
	})
	return hash, err
}

func (s *BlobStore) Get(hash types.BlobHash) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobData).Get(hash[:])
		if v == nil {
			return blob.ErrNotFound
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	return data, err
}

func (s *BlobStore) Incr(hash types.BlobHash) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rc := tx.Bucket(bucketBlobRefcount)
		count := readRefcount(rc, hash)
		if count == 0 {
			return blob.ErrNotFound
		}
		return putRefcount(rc, hash, count+1)
	})
}

func (s *BlobStore) Decr(hash types.BlobHash) (uint32, error) {
	var after uint32
	err := s.db.Update(func(tx *bolt.Tx) error {
		rc := tx.Bucket(bucketBlobRefcount)
		count := readRefcount(rc, hash)
		if count == 0 {
			return blob.ErrNotFound
		}
		count--
		if count == 0 {
			if err := rc.Delete(hash[:]); err != nil {
				return err
			}
			return tx.Bucket(bucketBlobData).Delete(hash[:])
		}
		after = count
		return putRefcount(rc, hash, count)
	})
	return after, err
}

func readRefcount(rc *bolt.Bucket, hash types.BlobHash) uint32 {
	v := rc.Get(hash[:])
	if v == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v)
}

func putRefcount(rc *bolt.Bucket, hash types.BlobHash, count uint32) error {
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], count)
	return rc.Put(hash[:], v[:])
}
