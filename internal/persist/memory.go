package persist

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemorySlot keeps the slot in process memory. Nothing survives a restart;
// it backs tests and throwaway sessions.
type MemorySlot struct {
	c    *cache.Cache
	name string
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot(name string) *MemorySlot {
	return &MemorySlot{c: cache.New(cache.NoExpiration, 0), name: name}
}

func (s *MemorySlot) Name() string { return s.name }

func (s *MemorySlot) Read(ctx context.Context) ([]byte, error) {
	v, ok := s.c.Get(s.name)
	if !ok {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), v.([]byte)...), nil
}

func (s *MemorySlot) Write(ctx context.Context, data []byte) error {
	s.c.Set(s.name, append([]byte(nil), data...), cache.NoExpiration)
	return nil
}

func (s *MemorySlot) Close() error {
	s.c.Flush()
	return nil
}
