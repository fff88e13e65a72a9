package services

import (
	"fmt"

	"pixelponies/domain/interfaces"
)

// Prize policy names accepted by NewPrizePoolPolicy
const (
	PrizePolicyFlat   = "flat"
	PrizePolicyLinear = "linear"
	PrizePolicyTiered = "tiered"
)

// PrizePolicyConfig holds the knobs for every prize pool policy
type PrizePolicyConfig struct {
	Name       string
	Base       int64
	PerMember  int64
	CohortSize int64
	TierRates  []int64
}

// NewPrizePoolPolicy builds the policy selected by cfg.Name
func NewPrizePoolPolicy(cfg PrizePolicyConfig) (interfaces.PrizePoolPolicy, error) {
	if cfg.Base < 0 {
		return nil, fmt.Errorf("prize pool base must not be negative")
	}

	switch cfg.Name {
	case PrizePolicyFlat, "":
		return &flatPrizePolicy{amount: cfg.Base}, nil
	case PrizePolicyLinear:
		if cfg.PerMember < 0 {
			return nil, fmt.Errorf("per-member prize must not be negative")
		}
		return &linearPrizePolicy{base: cfg.Base, perMember: cfg.PerMember}, nil
	case PrizePolicyTiered:
		if cfg.CohortSize <= 0 {
			return nil, fmt.Errorf("tier cohort size must be positive")
		}
		if len(cfg.TierRates) == 0 {
			return nil, fmt.Errorf("tiered prize policy needs at least one rate")
		}
		for i, rate := range cfg.TierRates {
			if rate < 0 {
				return nil, fmt.Errorf("tier rate %d must not be negative", i)
			}
		}
		rates := make([]int64, len(cfg.TierRates))
		copy(rates, cfg.TierRates)
		return &tieredPrizePolicy{base: cfg.Base, cohortSize: cfg.CohortSize, rates: rates}, nil
	default:
		return nil, fmt.Errorf("unknown prize policy: %s", cfg.Name)
	}
}

// flatPrizePolicy pays the same pool regardless of community size
type flatPrizePolicy struct {
	amount int64
}

func (p *flatPrizePolicy) Name() string { return PrizePolicyFlat }

func (p *flatPrizePolicy) PrizePool(memberCount int64) int64 {
	return p.amount
}

// linearPrizePolicy grows the pool by a fixed amount per community member
type linearPrizePolicy struct {
	base      int64
	perMember int64
}

func (p *linearPrizePolicy) Name() string { return PrizePolicyLinear }

func (p *linearPrizePolicy) PrizePool(memberCount int64) int64 {
	if memberCount < 0 {
		memberCount = 0
	}
	return p.base + memberCount*p.perMember
}

// tieredPrizePolicy buckets members into fixed-size cohorts. Each cohort contributes
// at its own per-member rate; members past the last listed cohort use the final rate.
type tieredPrizePolicy struct {
	base       int64
	cohortSize int64
	rates      []int64
}

func (p *tieredPrizePolicy) Name() string { return PrizePolicyTiered }

func (p *tieredPrizePolicy) PrizePool(memberCount int64) int64 {
	total := p.base
	remaining := memberCount
	for tier := 0; remaining > 0; tier++ {
		rate := p.rates[len(p.rates)-1]
		if tier < len(p.rates) {
			rate = p.rates[tier]
		}

		inCohort := min(remaining, p.cohortSize)
		total += inCohort * rate
		remaining -= inCohort
	}
	return total
}
