// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tiers converts raw per-component soldier counts into relative
// representation tiers using percentile cutoffs.
// Implements: prd001-thresholds (R1-R3).
package tiers

import (
	"fmt"
	"sort"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

// sparseGuardRatio: a component counting at least this fraction of the
// median is never assigned sparse, even below p25. Prevents small-N
// quantile pathologies from minting exactly one sparse component per run.
const sparseGuardRatio = 0.75

// Thresholds holds the percentile cutoffs computed over the count
// distribution.
type Thresholds struct {
	P25    float64 `json:"p25" yaml:"p25"`
	Median float64 `json:"median" yaml:"median"`
	P75    float64 `json:"p75" yaml:"p75"`
}

// Assign computes p25/median/p75 over the per-component counts and
// assigns each component a tier and generation mode (R1.1-R1.4). Output
// is sorted by component name for stable iteration.
func Assign(counts map[string]int) ([]types.TierAssignment, Thresholds, error) {
	if len(counts) == 0 {
		return nil, Thresholds{}, fmt.Errorf("no component counts supplied")
	}

	values := make([]float64, 0, len(counts))
	for _, c := range counts {
		values = append(values, float64(c))
	}
	sort.Float64s(values)

	th := Thresholds{
		P25:    percentile(values, 0.25),
		Median: percentile(values, 0.50),
		P75:    percentile(values, 0.75),
	}

	components := make([]string, 0, len(counts))
	for name := range counts {
		components = append(components, name)
	}
	sort.Strings(components)

	assignments := make([]types.TierAssignment, 0, len(components))
	for _, name := range components {
		count := counts[name]
		tier := classify(float64(count), th)

		pct := 0.0
		if th.Median > 0 {
			pct = float64(count) / th.Median * 100
		}

		assignments = append(assignments, types.TierAssignment{
			Component:   name,
			Count:       count,
			Tier:        tier,
			Mode:        modeFor(tier),
			PctOfMedian: pct,
		})
	}

	return assignments, th, nil
}

// classify maps a count onto a tier. The sparse guard (R2.1): a count at
// or above 75% of the median is promoted to under-represented.
func classify(count float64, th Thresholds) types.ComponentTier {
	switch {
	case count >= th.P75:
		return types.TierWellRepresented
	case count >= th.Median:
		return types.TierAdequatelyRepresented
	case count >= th.P25:
		return types.TierUnderRepresented
	case count >= sparseGuardRatio*th.Median:
		return types.TierUnderRepresented
	default:
		return types.TierSparse
	}
}

// modeFor gates generation by tier (R3.1).
func modeFor(tier types.ComponentTier) types.GenerationMode {
	switch tier {
	case types.TierSparse:
		return types.ModeHierarchyOnly
	case types.TierUnderRepresented:
		return types.ModeLimited
	default:
		return types.ModeFull
	}
}

// percentile returns the p-th percentile of sorted values using linear
// interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
