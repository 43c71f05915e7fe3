// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sampling builds difficulty-stratified collision samples.
// It restricts each side's pool to soldiers who are actually ambiguous
// with respect to the rival, then allocates the per-side target across
// difficulty tiers with proportional shortfall redistribution.
// Implements: prd002-sampling (R1-R4).
package sampling

import (
	"fmt"
	"io"
	"math/rand"
	"sort"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

// DefaultTierWeights is the default per-tier allocation of the per-side
// target (R2.1). Hard and extreme soldiers dominate because easy cases
// teach the extraction backend little about the collision.
var DefaultTierWeights = map[types.DifficultyTier]float64{
	types.TierExtreme:  0.35,
	types.TierHard:     0.35,
	types.TierModerate: 0.20,
	types.TierEasy:     0.10,
}

// Input carries everything Sample needs. All fields are read-only.
type Input struct {
	Component string
	Rival     string

	// Levels are the colliding (level, value) pairs for this rival.
	Levels []types.CollisionLevel

	// SideA and SideB are the full soldier pools for each side.
	SideA []types.Soldier
	SideB []types.Soldier

	// TargetPerSide is the number of soldiers to sample per side.
	TargetPerSide int

	// TierWeights overrides DefaultTierWeights per tier when set.
	TierWeights map[types.DifficultyTier]float64

	// Seed makes sampling deterministic: identical input and seed
	// produce an identical CollisionSample (R4.1).
	Seed int64
}

// Sample produces the immutable CollisionSample for one rival
// relationship. Progress and degradations are logged to w.
func Sample(in Input, w io.Writer) (types.CollisionSample, error) {
	if in.Component == "" || in.Rival == "" {
		return types.CollisionSample{}, fmt.Errorf("sample requires component and rival names")
	}
	if in.TargetPerSide <= 0 {
		return types.CollisionSample{}, fmt.Errorf("target per side must be positive, got %d", in.TargetPerSide)
	}
	if len(in.Levels) == 0 {
		return types.CollisionSample{}, fmt.Errorf("%s vs %s: no collision levels supplied", in.Component, in.Rival)
	}

	weights := mergedWeights(in.TierWeights)
	rng := rand.New(rand.NewSource(in.Seed))

	sideA := sampleSide(in.SideA, in, weights, rng, w, in.Component)
	sideB := sampleSide(in.SideB, in, weights, rng, w, in.Rival)

	return types.CollisionSample{
		Component: in.Component,
		Rival:     in.Rival,
		Levels:    in.Levels,
		SideA:     sideA,
		SideB:     sideB,
	}, nil
}

// sampleSide filters one side's pool to collision scope and draws the
// stratified sample.
func sampleSide(pool []types.Soldier, in Input, weights map[types.DifficultyTier]float64, rng *rand.Rand, w io.Writer, label string) types.SampleSide {
	scoped := filterCollisionScope(pool, in.Levels)

	side := types.SampleSide{}
	if len(scoped) == 0 && len(pool) > 0 {
		// Degrade, never raise: fall back to the unfiltered pool (R1.3).
		fmt.Fprintf(w, "warning: %s vs %s: no soldiers in collision scope for %s, falling back to unfiltered pool\n",
			in.Component, in.Rival, label)
		scoped = pool
		side.FallbackUnfiltered = true
	}

	byTier := groupByTier(scoped)
	avail := make(map[types.DifficultyTier]int, len(byTier))
	for tier, soldiers := range byTier {
		avail[tier] = len(soldiers)
	}

	quotas, undersampled := allocate(avail, in.TargetPerSide, weights)
	side.Undersampled = undersampled
	if undersampled {
		fmt.Fprintf(w, "warning: %s vs %s: pool exhausted for %s (%d available, target %d)\n",
			in.Component, in.Rival, label, len(scoped), in.TargetPerSide)
	}

	for _, tier := range types.DifficultyTiers {
		take := quotas[tier]
		if take == 0 {
			continue
		}
		tierPool := byTier[tier]
		rng.Shuffle(len(tierPool), func(i, j int) {
			tierPool[i], tierPool[j] = tierPool[j], tierPool[i]
		})
		for _, s := range tierPool[:take] {
			side.SoldierIDs = append(side.SoldierIDs, s.ID)
		}
	}

	return side
}

// filterCollisionScope keeps soldiers with at least one record inside a
// colliding (level, value) pair (R1.1, R1.2).
func filterCollisionScope(pool []types.Soldier, levels []types.CollisionLevel) []types.Soldier {
	var scoped []types.Soldier
	for _, s := range pool {
		if inCollisionScope(s, levels) {
			scoped = append(scoped, s)
		}
	}
	return scoped
}

func inCollisionScope(s types.Soldier, levels []types.CollisionLevel) bool {
	for _, rec := range s.Records {
		for _, lv := range levels {
			if rec.Designators[lv.Level] == lv.Value {
				return true
			}
		}
	}
	return false
}

// groupByTier buckets soldiers by difficulty tier, sorted by ID within
// each bucket so the seeded shuffle sees a canonical order.
func groupByTier(pool []types.Soldier) map[types.DifficultyTier][]types.Soldier {
	byTier := make(map[types.DifficultyTier][]types.Soldier)
	for _, s := range pool {
		byTier[s.Assessment.Tier] = append(byTier[s.Assessment.Tier], s)
	}
	for _, soldiers := range byTier {
		sort.Slice(soldiers, func(i, j int) bool { return soldiers[i].ID < soldiers[j].ID })
	}
	return byTier
}

// allocate computes per-tier quotas for target soldiers. Tiers whose
// pools cannot fill their quota surrender the shortfall, which is
// redistributed proportionally to the remaining tiers' weights until the
// target is met or every pool is exhausted (R2.2, R2.3).
func allocate(avail map[types.DifficultyTier]int, target int, weights map[types.DifficultyTier]float64) (map[types.DifficultyTier]int, bool) {
	quotas := apportion(target, weights, types.DifficultyTiers)

	for {
		shortfall := 0
		for _, tier := range types.DifficultyTiers {
			if quotas[tier] > avail[tier] {
				shortfall += quotas[tier] - avail[tier]
				quotas[tier] = avail[tier]
			}
		}
		if shortfall == 0 {
			return quotas, false
		}

		// Redistribute to tiers with spare capacity.
		spare := make(map[types.DifficultyTier]float64)
		var spareTiers []types.DifficultyTier
		allZero := true
		for _, tier := range types.DifficultyTiers {
			if avail[tier] > quotas[tier] {
				spare[tier] = weights[tier]
				if weights[tier] > 0 {
					allZero = false
				}
				spareTiers = append(spareTiers, tier)
			}
		}
		if len(spareTiers) == 0 {
			return quotas, true
		}
		if allZero {
			// Zero-weight tiers still absorb shortfall, split evenly.
			for _, tier := range spareTiers {
				spare[tier] = 1
			}
		}

		added := 0
		for tier, n := range apportion(shortfall, spare, spareTiers) {
			quotas[tier] += n
			added += n
		}
		if added == 0 {
			return quotas, true
		}
	}
}

// apportion splits total across tiers proportionally to weights using the
// largest-remainder method, iterating tiers in the given order so ties
// break deterministically.
func apportion(total int, weights map[types.DifficultyTier]float64, order []types.DifficultyTier) map[types.DifficultyTier]int {
	sum := 0.0
	for _, tier := range order {
		sum += weights[tier]
	}
	shares := make(map[types.DifficultyTier]int, len(order))
	if sum == 0 || total <= 0 {
		return shares
	}

	type frac struct {
		tier types.DifficultyTier
		rem  float64
	}
	var fracs []frac
	assigned := 0
	for _, tier := range order {
		exact := float64(total) * weights[tier] / sum
		whole := int(exact)
		shares[tier] = whole
		assigned += whole
		fracs = append(fracs, frac{tier, exact - float64(whole)})
	}

	sort.SliceStable(fracs, func(i, j int) bool { return fracs[i].rem > fracs[j].rem })
	for i := 0; assigned < total && i < len(fracs); i++ {
		shares[fracs[i].tier]++
		assigned++
	}
	return shares
}

// mergedWeights overlays overrides on the defaults.
func mergedWeights(overrides map[types.DifficultyTier]float64) map[types.DifficultyTier]float64 {
	merged := make(map[types.DifficultyTier]float64, len(DefaultTierWeights))
	for tier, weight := range DefaultTierWeights {
		merged[tier] = weight
	}
	for tier, weight := range overrides {
		merged[tier] = weight
	}
	return merged
}
