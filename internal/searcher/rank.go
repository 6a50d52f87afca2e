package searcher

import (
	"fmt"
	"math"
	"time"

	"github.com/dshills/gitscout-mcp/internal/vecindex"
)

// Strategy names accepted by NewStrategy.
const (
	StrategyStep     = "step"
	StrategyExpDecay = "expdecay"
	StrategyNone     = "none"
)

// StepRecency defaults.
const (
	DefaultAgeCutoff       = 90 * 24 * time.Hour
	DefaultStaleMultiplier = 0.75
	DefaultHalfLife        = 180 * 24 * time.Hour
)

// RankStrategy turns a retrieved candidate into a boosted score. The
// returned score must be a monotonically non-increasing function of entry
// age for a fixed similarity, so boosting can demote stale content but
// never promote it past fresher content of equal similarity.
type RankStrategy interface {
	// Name returns the configuration name of the strategy.
	Name() string

	// Score computes the boosted score for one candidate at query time now.
	Score(c vecindex.Candidate, now time.Time) float64
}

// NewStrategy constructs a ranking strategy by configuration name. The
// empty name selects the default StepRecency.
func NewStrategy(name string) (RankStrategy, error) {
	switch name {
	case "", StrategyStep:
		return NewStepRecency(DefaultAgeCutoff, DefaultStaleMultiplier), nil
	case StrategyExpDecay:
		return NewExpDecay(DefaultHalfLife), nil
	case StrategyNone:
		return NopRank{}, nil
	default:
		return nil, fmt.Errorf("unknown ranking strategy %q", name)
	}
}

// StepRecency multiplies similarity by a flat factor once an entry's last
// modification is older than the cutoff. Entries under the cutoff keep
// their similarity unchanged.
type StepRecency struct {
	AgeCutoff       time.Duration
	StaleMultiplier float64
}

// NewStepRecency creates a step-recency strategy.
func NewStepRecency(cutoff time.Duration, multiplier float64) StepRecency {
	if cutoff <= 0 {
		cutoff = DefaultAgeCutoff
	}
	if multiplier <= 0 || multiplier > 1 {
		multiplier = DefaultStaleMultiplier
	}
	return StepRecency{AgeCutoff: cutoff, StaleMultiplier: multiplier}
}

func (s StepRecency) Name() string {
	return StrategyStep
}

func (s StepRecency) Score(c vecindex.Candidate, now time.Time) float64 {
	if now.Sub(c.Entry.LastModified) > s.AgeCutoff {
		return c.Similarity * s.StaleMultiplier
	}
	return c.Similarity
}

// ExpDecay multiplies similarity by a smooth exponential decay of entry
// age, halving the factor every HalfLife. The factor never drops below the
// floor so very old but highly similar entries remain findable.
type ExpDecay struct {
	HalfLife time.Duration
	Floor    float64
}

// NewExpDecay creates a smooth-decay strategy.
func NewExpDecay(halfLife time.Duration) ExpDecay {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return ExpDecay{HalfLife: halfLife, Floor: 0.5}
}

func (e ExpDecay) Name() string {
	return StrategyExpDecay
}

func (e ExpDecay) Score(c vecindex.Candidate, now time.Time) float64 {
	age := now.Sub(c.Entry.LastModified)
	if age <= 0 {
		return c.Similarity
	}
	factor := math.Exp2(-age.Hours() / e.HalfLife.Hours())
	if factor < e.Floor {
		factor = e.Floor
	}
	return c.Similarity * factor
}

// NopRank passes similarity through untouched.
type NopRank struct{}

func (NopRank) Name() string {
	return StrategyNone
}

func (NopRank) Score(c vecindex.Candidate, _ time.Time) float64 {
	return c.Similarity
}
