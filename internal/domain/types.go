package domain

import (
	"time"
)

type Mode string

const (
	ModeSeekBalance     Mode = "seek_balance"
	ModeSeekImprovement Mode = "seek_improvement"
	ModeMaintainBalance Mode = "maintain_balance"
)

type Strategy string

const (
	StrategyComplexity Strategy = "complexity"
	StrategyTrend      Strategy = "trend"
	StrategyMode       Strategy = "mode"
)

func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyComplexity, StrategyTrend, StrategyMode:
		return Strategy(s), true
	}
	return "", false
}

// Range is a closed evaluation interval in centipawns.
type Range struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

func (r Range) Contains(v int) bool {
	return r.Low <= v && v <= r.High
}

// Distance is zero inside the range, otherwise the gap to the nearest bound.
func (r Range) Distance(v int) int {
	if v < r.Low {
		return r.Low - v
	}
	if v > r.High {
		return v - r.High
	}
	return 0
}

type SearchPlan struct {
	Strategy Strategy      `json:"strategy"`
	Depth    int           `json:"depth"`
	MultiPV  int           `json:"multipv"`
	Mode     Mode          `json:"mode"`
	Target   Range         `json:"target"`
	Budget   time.Duration `json:"budget"`
}

// CandidateLine is one multipv slot of the current search. Rank is 0-based.
type CandidateLine struct {
	Rank   int      `json:"rank"`
	Moves  []string `json:"moves"`
	Eval   int      `json:"eval"`
	Scored bool     `json:"scored"`
	Depth  int      `json:"depth"`
}

type Stats struct {
	NPS      int64    `json:"nps"`
	Depth    int      `json:"depth"`
	Eval     int      `json:"eval"`
	HasEval  bool     `json:"has_eval"`
	Mate     int      `json:"mate,omitempty"`
	PV       []string `json:"pv,omitempty"`
	BestMove string   `json:"best_move,omitempty"`
}

type Result struct {
	ID         string        `json:"id"`
	FEN        string        `json:"fen"`
	Move       string        `json:"move"`
	SAN        string        `json:"san,omitempty"`
	Eval       int           `json:"eval"`
	Depth      int           `json:"depth"`
	PV         []string      `json:"pv,omitempty"`
	Plan       SearchPlan    `json:"plan"`
	Complexity float64       `json:"complexity"`
	TimedOut   bool          `json:"timed_out"`
	Fallback   bool          `json:"fallback"`
	Elapsed    time.Duration `json:"elapsed"`
	CreatedAt  time.Time     `json:"created_at"`
}
