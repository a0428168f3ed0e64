package store

import (
	"context"
	"errors"
	"sync"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
)

var ErrNotFound = errors.New("result not found")

// Store keeps the latest committed result per position.
type Store interface {
	Save(ctx context.Context, result domain.Result) error
	Get(ctx context.Context, fen string) (domain.Result, error)
	Close(ctx context.Context) error
}

type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]domain.Result),
	}
}

func (s *MemoryStore) Save(ctx context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.FEN] = result
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, fen string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result, ok = s.results[fen]
	if !ok {
		return domain.Result{}, ErrNotFound
	}
	return result, nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
