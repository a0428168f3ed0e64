package server

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/metrics"
)

// SessionFactory builds a fresh controller with its own engine session.
type SessionFactory func(id string) *analysis.Controller

// Registry holds the analysis sessions of the server keyed by id.
type Registry struct {
	factory SessionFactory
	limit   int
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*analysis.Controller
}

func NewRegistry(factory SessionFactory, limit int, logger *zap.SugaredLogger, m *metrics.Metrics) *Registry {
	return &Registry{
		factory:  factory,
		limit:    limit,
		logger:   logger,
		metrics:  m,
		sessions: make(map[string]*analysis.Controller),
	}
}

func (r *Registry) Create() (string, *analysis.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.sessions) >= r.limit {
		return "", nil, ErrTooManySessions
	}
	var id = uuid.NewString()
	var ctrl = r.factory(id)
	r.sessions[id] = ctrl
	r.metrics.SessionOpened()
	r.logger.Infow("session created", "id", id)
	return id, ctrl, nil
}

func (r *Registry) Get(id string) (*analysis.Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ctrl, ok = r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// Delete disconnects the session engine and forgets the session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	var ctrl, ok = r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	r.metrics.SessionClosed()
	r.logger.Infow("session deleted", "id", id)
	return ctrl.Disconnect()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll disconnects every session. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var sessions = r.sessions
	r.sessions = make(map[string]*analysis.Controller)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for id, ctrl := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ctrl.Disconnect(); err != nil {
				r.logger.Warnw("session disconnect failed", "id", id, "error", err)
			}
			r.metrics.SessionClosed()
		}()
	}
	wg.Wait()
}
