package planner

import (
	"math"
	"time"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
	"github.com/ChizhovVadim/FractalAnalyzer/pkg/common"
)

type Config struct {
	MinDepth             int           `mapstructure:"min_depth" validate:"gte=1"`
	MaxDepth             int           `mapstructure:"max_depth" validate:"gtefield=MinDepth"`
	BaseDepth            int           `mapstructure:"base_depth"`
	DepthGain            float64       `mapstructure:"depth_gain"`
	TrendIncrease        int           `mapstructure:"trend_increase"`
	TrendDecrease        int           `mapstructure:"trend_decrease"`
	Threshold            int           `mapstructure:"threshold"`
	BaseMultiPV          int           `mapstructure:"base_multipv"`
	MaxMultiPV           int           `mapstructure:"max_multipv"`
	NominalNodesPerDepth float64       `mapstructure:"nominal_nodes_per_depth"`
	TimePerDepth         time.Duration `mapstructure:"time_per_depth"`
	MinBudget            time.Duration `mapstructure:"min_budget"`
	MaxBudget            time.Duration `mapstructure:"max_budget"`
}

func DefaultConfig() Config {
	return Config{
		MinDepth:             8,
		MaxDepth:             22,
		BaseDepth:            8,
		DepthGain:            4,
		TrendIncrease:        2,
		TrendDecrease:        1,
		Threshold:            50,
		BaseMultiPV:          4,
		MaxMultiPV:           10,
		NominalNodesPerDepth: 1_000_000,
		TimePerDepth:         time.Second,
		MinBudget:            500 * time.Millisecond,
		MaxBudget:            60 * time.Second,
	}
}

// Input is what the planner knows about the position. Evaluations are oldest
// first and seen from the side to move.
type Input struct {
	Complexity   float64
	Dimension    float64
	Evaluations  []int
	NPS          []float64
	CurrentDepth int
}

type Planner struct {
	cfg Config
}

func New(cfg Config) *Planner {
	return &Planner{cfg: sanitize(cfg)}
}

func (p *Planner) Config() Config {
	return p.cfg
}

func sanitize(cfg Config) Config {
	var def = DefaultConfig()
	if cfg.MinDepth < 1 {
		cfg.MinDepth = 1
	}
	if cfg.MaxDepth < cfg.MinDepth {
		cfg.MaxDepth = cfg.MinDepth
	}
	if cfg.BaseDepth < 1 {
		cfg.BaseDepth = cfg.MinDepth
	}
	if !isFinite(cfg.DepthGain) || cfg.DepthGain < 0 {
		cfg.DepthGain = def.DepthGain
	}
	if cfg.TrendIncrease < 0 {
		cfg.TrendIncrease = 0
	}
	if cfg.TrendDecrease < 0 {
		cfg.TrendDecrease = 0
	}
	if cfg.Threshold < 0 {
		cfg.Threshold = -cfg.Threshold
	}
	if cfg.BaseMultiPV < 1 {
		cfg.BaseMultiPV = 1
	}
	if cfg.MaxMultiPV < 1 {
		cfg.MaxMultiPV = 1
	}
	if !isFinite(cfg.NominalNodesPerDepth) || cfg.NominalNodesPerDepth <= 0 {
		cfg.NominalNodesPerDepth = def.NominalNodesPerDepth
	}
	if cfg.TimePerDepth <= 0 {
		cfg.TimePerDepth = def.TimePerDepth
	}
	if cfg.MinBudget <= 0 {
		cfg.MinBudget = def.MinBudget
	}
	if cfg.MaxBudget < cfg.MinBudget {
		cfg.MaxBudget = cfg.MinBudget
	}
	return cfg
}

func (p *Planner) Plan(strategy domain.Strategy, in Input) domain.SearchPlan {
	var eval = 0
	if len(in.Evaluations) != 0 {
		eval = in.Evaluations[len(in.Evaluations)-1]
	}
	var mode, target = p.Classify(eval)
	var plan = domain.SearchPlan{
		Strategy: strategy,
		Mode:     mode,
		Target:   target,
	}
	switch strategy {
	case domain.StrategyTrend:
		plan.Depth = p.trendDepth(in)
		_, plan.MultiPV = p.modeDepthWidth(mode)
	case domain.StrategyMode:
		plan.Depth, plan.MultiPV = p.modeDepthWidth(mode)
	default:
		plan.Strategy = domain.StrategyComplexity
		plan.Depth = p.ComplexityDepth(in.Complexity, in.Dimension)
		plan.MultiPV = 1
	}
	plan.Depth = p.clampDepth(plan.Depth)
	plan.MultiPV = clampInt(plan.MultiPV, 1, p.cfg.MaxMultiPV)
	plan.Budget = p.Budget(plan.Depth, in.NPS)
	return plan
}

// ComplexityDepth is round(base + (complexity/10)^(1/d) * gain) within the depth bounds.
func (p *Planner) ComplexityDepth(complexity, d float64) int {
	if !isFinite(complexity) || complexity < 0 {
		complexity = 10
	}
	if !isFinite(d) || d <= 0 {
		d = 1
	}
	var depth = float64(p.cfg.BaseDepth) + math.Pow(complexity/10, 1/d)*p.cfg.DepthGain
	if !isFinite(depth) {
		return p.cfg.MaxDepth
	}
	depth = math.Max(float64(p.cfg.MinDepth), math.Min(float64(p.cfg.MaxDepth), math.Round(depth)))
	return int(depth)
}

func (p *Planner) trendDepth(in Input) int {
	var depth = in.CurrentDepth
	if depth <= 0 {
		depth = p.cfg.BaseDepth
	}
	depth = p.clampDepth(depth)
	var n = len(in.Evaluations)
	if n < 2 {
		return depth
	}
	if in.Evaluations[n-1] < in.Evaluations[n-2] {
		return common.Min(depth+p.cfg.TrendIncrease, p.cfg.MaxDepth)
	}
	return common.Max(depth-p.cfg.TrendDecrease, p.cfg.MinDepth)
}

// Classify maps an evaluation onto a mode. Every mode aims at [-T, T].
func (p *Planner) Classify(eval int) (domain.Mode, domain.Range) {
	var t = p.cfg.Threshold
	var target = domain.Range{Low: -t, High: t}
	switch {
	case eval > t:
		return domain.ModeSeekBalance, target
	case eval < -t:
		return domain.ModeSeekImprovement, target
	default:
		return domain.ModeMaintainBalance, target
	}
}

func (p *Planner) modeDepthWidth(mode domain.Mode) (depth, multiPV int) {
	switch mode {
	case domain.ModeSeekBalance:
		return p.cfg.BaseDepth, p.cfg.BaseMultiPV
	case domain.ModeSeekImprovement:
		return p.cfg.BaseDepth + 5, p.cfg.BaseMultiPV + 2
	default:
		return p.cfg.BaseDepth, 3
	}
}

// Budget predicts search time as depth * nominal nodes / average nps.
func (p *Planner) Budget(depth int, nps []float64) time.Duration {
	var sum, count = 0.0, 0
	for _, v := range nps {
		if isFinite(v) && v > 0 {
			sum += v
			count++
		}
	}
	var budget time.Duration
	if count == 0 || sum <= 0 {
		budget = time.Duration(depth) * p.cfg.TimePerDepth
	} else {
		var avg = sum / float64(count)
		var seconds = float64(depth) * p.cfg.NominalNodesPerDepth / avg
		if !isFinite(seconds) || seconds > p.cfg.MaxBudget.Seconds() {
			return p.cfg.MaxBudget
		}
		budget = time.Duration(seconds * float64(time.Second))
	}
	return limitDuration(budget, p.cfg.MinBudget, p.cfg.MaxBudget)
}

func (p *Planner) clampDepth(depth int) int {
	return clampInt(depth, p.cfg.MinDepth, p.cfg.MaxDepth)
}

func limitDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
