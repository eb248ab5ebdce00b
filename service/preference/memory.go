package preference

import (
	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps preferences for the lifetime of the process only.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.(string), nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.c.Set(key, value, cache.NoExpiration)
	return nil
}
