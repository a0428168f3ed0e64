package analysis

import (
	"sync"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/internal/engine"
)

type NotificationKind string

const (
	KindStatus NotificationKind = "status"
	KindStats  NotificationKind = "stats"
	KindResult NotificationKind = "result"
)

type Notification struct {
	Kind     NotificationKind `json:"type"`
	Snapshot *Snapshot        `json:"snapshot,omitempty"`
	Stats    *domain.Stats    `json:"stats,omitempty"`
	Result   *domain.Result   `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Snapshot is the observable state of a controller.
type Snapshot struct {
	FEN         string                 `json:"fen"`
	Connected   bool                   `json:"connected"`
	Analyzing   bool                   `json:"analyzing"`
	EngineState string                 `json:"engine_state"`
	Stats       domain.Stats           `json:"stats"`
	Complexity  float64                `json:"complexity"`
	Dimension   float64                `json:"dimension"`
	Plan        *domain.SearchPlan     `json:"plan,omitempty"`
	Lines       []domain.CandidateLine `json:"lines,omitempty"`
	LastResult  *domain.Result         `json:"last_result,omitempty"`
	Autoplay    bool                   `json:"autoplay"`
	GameOver    string                 `json:"game_over,omitempty"`
}

const subscriberBuffer = 64

type hub struct {
	mu          sync.Mutex
	subscribers map[chan Notification]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[chan Notification]struct{})}
}

func (h *hub) subscribe() (<-chan Notification, func()) {
	var ch = make(chan Notification, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// publish never blocks; a slow subscriber misses notifications.
func (h *hub) publish(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribe returns a stream of status and result notifications and a function
// that ends the subscription.
func (c *Controller) Subscribe() (<-chan Notification, func()) {
	return c.hub.subscribe()
}

// PublishStats sends the current engine statistics to subscribers.
func (c *Controller) PublishStats() {
	var stats = c.engine.Stats()
	c.hub.publish(Notification{Kind: KindStats, Stats: &stats})
}

func (c *Controller) publishStatus(err error) {
	var snapshot = c.Snapshot()
	var n = Notification{Kind: KindStatus, Snapshot: &snapshot}
	if err != nil {
		n.Error = err.Error()
	}
	c.hub.publish(n)
}

func (c *Controller) Snapshot() Snapshot {
	var state = c.engine.State()
	var stats = c.engine.Stats()

	c.mu.Lock()
	defer c.mu.Unlock()
	var result = Snapshot{
		FEN:         c.fen,
		Connected:   state == engine.Ready || state == engine.Analyzing,
		Analyzing:   c.current != nil,
		EngineState: state.String(),
		Stats:       stats,
		Dimension:   c.estimator.Dimension(),
		Autoplay:    c.autoplay,
		GameOver:    c.gameOver,
	}
	if c.fen != "" {
		result.Complexity = c.estimator.Complexity(c.fen)
	}
	if c.plan != nil {
		var plan = *c.plan
		result.Plan = &plan
	}
	if len(c.lines) != 0 {
		result.Lines = c.linesLocked()
	}
	if c.lastResult != nil {
		var last = *c.lastResult
		result.LastResult = &last
	}
	return result
}
