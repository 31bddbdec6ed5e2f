package blob

import (
	"crypto/sha256"
	"errors"
	"sync"

	"github.com/cuemby/warren/pkg/log"
	"github.com/cuemby/warren/pkg/types"
)

// ErrNotFound is returned when Get is called with a hash the store
// does not hold (refcount is zero or it was never put).
var ErrNotFound = errors.New("blob: not found")

// Store is the contract the table and page layers consume: content-
// addressed storage with refcounting. Put is idempotent by content: a
// second Put of identical bytes increments the same entry's refcount
// instead of storing a duplicate.
type Store interface {
	// Put stores data, returning its content hash. If data is already
	// present its refcount is incremented instead of storing again.
	Put(data []byte) (types.BlobHash, error)
	// Get returns the bytes for hash, or ErrNotFound.
	Get(hash types.BlobHash) ([]byte, error)
	// Incr increments the refcount of an entry already present, or
	// returns ErrNotFound.
	Incr(hash types.BlobHash) error
	// Decr decrements hash's refcount, freeing the entry once it
	// reaches zero. Returns the refcount after decrementing.
	Decr(hash types.BlobHash) (uint32, error)
}

// Hash returns the content hash of data using this store's hash
// algorithm (see package doc for why this is SHA-256 rather than
// BLAKE3).
func Hash(data []byte) types.BlobHash {
	return sha256.Sum256(data)
}

type entry struct {
	data     []byte
	refcount uint32
}

// InMemoryStore is a process-local blob store backed by a map, used
// for tests and for the default embedded engine configuration.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[types.BlobHash]*entry
}

// NewInMemoryStore returns an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[types.BlobHash]*entry)}
}

func (s *InMemoryStore) Put(data []byte) (types.BlobHash, error) {
	h := Hash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[h]; ok {
		e.refcount++
		return h, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.entries[h] = &entry{data: cp, refcount: 1}
	return h, nil
}

func (s *InMemoryStore) Get(hash types.BlobHash) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return e.data, nil
}

func (s *InMemoryStore) Incr(hash types.BlobHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return ErrNotFound
	}
	e.refcount++
	return nil
}

func (s *InMemoryStore) Decr(hash types.BlobHash) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return 0, ErrNotFound
	}
	if e.refcount == 0 {
		return 0, nil
	}
	e.refcount--
	if e.refcount == 0 {
		delete(s.entries, hash)
		log.WithBlobHash(hash).Debug().Msg("blob store: entry freed")
		return 0, nil
	}
	return e.refcount, nil
}

// Refcount reports the current refcount for hash, 0 if absent. Test-only helper.
func (s *InMemoryStore) Refcount(hash types.BlobHash) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[hash]; ok {
		return e.refcount
	}
	return 0
}

// NullStore rejects every blob write. It models a deployment that has
// declared no large-object support; any attempt to spill into the
// blob store surfaces as an error instead of silently succeeding.
type NullStore struct{}

func (NullStore) Put([]byte) (types.BlobHash, error) {
	return types.BlobHash{}, errors.New("blob: null store does not accept writes")
}
func (NullStore) Get(types.BlobHash) ([]byte, error)      { return nil, ErrNotFound }
func (NullStore) Incr(types.BlobHash) error               { return ErrNotFound }
func (NullStore) Decr(types.BlobHash) (uint32, error)     { return 0, ErrNotFound }
