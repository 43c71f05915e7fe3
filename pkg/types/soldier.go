// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the shared data model for the resolver generation
// pipeline: soldiers and their records, collision samples, batches,
// extraction candidates, and resolver artifacts.
package types

import "fmt"

// DifficultyTier classifies how hard a soldier is to disambiguate.
// Computed upstream from collision position, record complementarity, and
// structural resolvability; this module only consumes it.
type DifficultyTier string

const (
	TierEasy     DifficultyTier = "easy"
	TierModerate DifficultyTier = "moderate"
	TierHard     DifficultyTier = "hard"
	TierExtreme  DifficultyTier = "extreme"
)

// DifficultyTiers lists all tiers from hardest to easiest. Allocation and
// iteration order throughout the pipeline follows this slice so results
// are stable across runs.
var DifficultyTiers = []DifficultyTier{TierExtreme, TierHard, TierModerate, TierEasy}

// validDifficultyTiers is the accepted set for input validation.
var validDifficultyTiers = map[DifficultyTier]bool{
	TierEasy:     true,
	TierModerate: true,
	TierHard:     true,
	TierExtreme:  true,
}

// DifficultyAssessment is the precomputed per-soldier difficulty input.
// ComplementarityScore uses the max complementarity across candidate
// branches when a soldier's records are ambiguous across branches; that
// choice belongs to the upstream assessor and is part of its contract.
type DifficultyAssessment struct {
	// CollisionPosition reports whether the soldier's records sit at a
	// colliding hierarchy position.
	CollisionPosition bool `json:"collision_position" yaml:"collision_position"`

	// ComplementarityScore is in [0,1].
	ComplementarityScore float64 `json:"complementarity_score" yaml:"complementarity_score"`

	// StructuralResolvability reports whether hierarchy structure alone
	// can disambiguate the soldier.
	StructuralResolvability bool `json:"structural_resolvability" yaml:"structural_resolvability"`

	// Tier is the overall difficulty classification.
	Tier DifficultyTier `json:"difficulty_tier" yaml:"difficulty_tier"`
}

// Record is one raw training record belonging to a soldier.
type Record struct {
	// ID identifies the record within the corpus.
	ID string `json:"id" yaml:"id"`

	// Text is the raw record content.
	Text string `json:"text" yaml:"text"`

	// Designators maps hierarchy level names to the designator value the
	// record carries at that level (e.g. "regiment" -> "101"). Used by the
	// collision-scope filter.
	Designators map[string]string `json:"designators,omitempty" yaml:"designators,omitempty"`
}

// Soldier is an identity whose records feed resolver generation. Identity
// is always known; soldiers are immutable for the duration of a cycle.
type Soldier struct {
	ID         string               `json:"id" yaml:"id"`
	Records    []Record             `json:"records" yaml:"records"`
	Assessment DifficultyAssessment `json:"assessment" yaml:"assessment"`
}

// Validate checks the soldier is usable as pipeline input.
func (s Soldier) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("soldier has empty id")
	}
	if len(s.Records) == 0 {
		return fmt.Errorf("soldier %s has no records", s.ID)
	}
	if !validDifficultyTiers[s.Assessment.Tier] {
		return fmt.Errorf("soldier %s: invalid difficulty tier %q", s.ID, s.Assessment.Tier)
	}
	if s.Assessment.ComplementarityScore < 0 || s.Assessment.ComplementarityScore > 1 {
		return fmt.Errorf("soldier %s: complementarity score %f out of range [0,1]",
			s.ID, s.Assessment.ComplementarityScore)
	}
	return nil
}
