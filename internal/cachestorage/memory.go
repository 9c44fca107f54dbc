package cachestorage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStorage is an in-memory implementation of Storage.
// Partitions live only for the lifetime of the process.
//
// Match returns clones and Put stores clones, so no caller can mutate a
// stored response after the fact.
type MemoryStorage struct {
	mu         sync.RWMutex
	names      []string
	partitions map[string]*memoryPartition
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		partitions: make(map[string]*memoryPartition),
	}
}

func (s *MemoryStorage) Open(ctx context.Context, name string) (Partition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, &StorageError{
			Message: "partition name is required",
			Cause:   ErrCauseInvalidRequest,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, exists := s.partitions[name]; exists {
		return p, nil
	}
	p := &memoryPartition{
		name:    name,
		entries: make(map[RequestKey]Response),
	}
	s.partitions[name] = p
	s.names = append(s.names, name)
	return p, nil
}

func (s *MemoryStorage) Has(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.partitions[name]
	return exists, nil
}

func (s *MemoryStorage) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.names))
	copy(names, s.names)
	return names, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.partitions[name]; !exists {
		return false, nil
	}
	delete(s.partitions, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

type memoryPartition struct {
	name    string
	mu      sync.RWMutex
	keys    []RequestKey
	entries map[RequestKey]Response
}

func (p *memoryPartition) Name() string {
	return p.name
}

func (p *memoryPartition) Match(ctx context.Context, key RequestKey) (Response, bool, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	resp, found := p.entries[key]
	if !found {
		return Response{}, false, nil
	}
	return resp.Clone(), true, nil
}

func (p *memoryPartition) Put(ctx context.Context, key RequestKey, resp Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.put(key, resp)
	return nil
}

func (p *memoryPartition) PutAll(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range entries {
		p.put(e.Key, e.Response)
	}
	return nil
}

// put requires p.mu held for writing.
func (p *memoryPartition) put(key RequestKey, resp Response) {
	if _, exists := p.entries[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.entries[key] = resp.Clone()
}

func (p *memoryPartition) Keys(ctx context.Context) ([]RequestKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]RequestKey, len(p.keys))
	copy(keys, p.keys)
	return keys, nil
}

// Size returns the number of entries in the partition.
// This method is primarily useful for testing and diagnostics.
func (p *memoryPartition) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.entries)
}
