package blob

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cuemby/warren/pkg/types"
)

// CachedStore fronts a slower Store (typically a persist-backed one)
// with a bounded in-process LRU cache of decoded blob bytes, so that
// hot large objects (e.g. repeatedly-read scheduled-call arguments)
// don't round-trip through the durable backend on every read.
type CachedStore struct {
	backend Store
	cache   *lru.Cache[types.BlobHash, []byte]
}

// NewCachedStore wraps backend with an LRU cache holding up to size
// decoded blobs.
func NewCachedStore(backend Store, size int) (*CachedStore, error) {
	cache, err := lru.New[types.BlobHash, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{backend: backend, cache: cache}, nil
}

func (c *CachedStore) Put(data []byte) (types.BlobHash, error) {
	h, err := c.backend.Put(data)
	if err != nil {
		return h, err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.cache.Add(h, cp)
	return h, nil
}

func (c *CachedStore) Get(hash types.BlobHash) ([]byte, error) {
	if data, ok := c.cache.Get(hash); ok {
		return data, nil
	}
	data, err := c.backend.Get(hash)
	if err != nil {
		return nil, err
	}
	c.cache.Add(hash, data)
	return data, nil
}

func (c *CachedStore) Incr(hash types.BlobHash) error {
	return c.backend.Incr(hash)
}

func (c *CachedStore) Decr(hash types.BlobHash) (uint32, error) {
	refcount, err := c.backend.Decr(hash)
	if err != nil {
		return refcount, err
	}
	if refcount == 0 {
		c.cache.Remove(hash)
	}
	return refcount, nil
}
