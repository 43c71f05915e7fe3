// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// ComponentTier is the relative representation tier of a component within
// the training corpus.
type ComponentTier string

const (
	TierWellRepresented       ComponentTier = "well_represented"
	TierAdequatelyRepresented ComponentTier = "adequately_represented"
	TierUnderRepresented      ComponentTier = "under_represented"
	TierSparse                ComponentTier = "sparse"
)

// GenerationMode gates how much of the resolver gets generated.
type GenerationMode string

const (
	// ModeFull generates all sections.
	ModeFull GenerationMode = "full"

	// ModeLimited generates limited patterns/vocabulary with no
	// value-based content.
	ModeLimited GenerationMode = "limited"

	// ModeHierarchyOnly emits structure and deterministic exclusions only.
	ModeHierarchyOnly GenerationMode = "hierarchy_only"
)

// TierAssignment is the threshold calculator's output for one component.
type TierAssignment struct {
	Component   string         `json:"component" yaml:"component"`
	Count       int            `json:"count" yaml:"count"`
	Tier        ComponentTier  `json:"tier" yaml:"tier"`
	Mode        GenerationMode `json:"generation_mode" yaml:"generation_mode"`
	PctOfMedian float64        `json:"pct_of_median" yaml:"pct_of_median"`
}

// CollisionEntry records one rival relationship in a component's
// collision index.
type CollisionEntry struct {
	Rival  string           `json:"rival" yaml:"rival"`
	Levels []CollisionLevel `json:"levels" yaml:"levels"`
}

// Hierarchy is the externally parsed branch structure for a component.
// Consumed as input; never derived here.
type Hierarchy struct {
	Branch                   string              `json:"branch" yaml:"branch"`
	Depth                    int                 `json:"depth" yaml:"depth"`
	LevelNames               []string            `json:"level_names" yaml:"level_names"`
	ValidDesignators         map[string][]string `json:"valid_designators" yaml:"valid_designators"`
	StructuralDiscriminators []string            `json:"structural_discriminators" yaml:"structural_discriminators"`
	CollisionIndex           []CollisionEntry    `json:"collision_index" yaml:"collision_index"`
}

// Validate checks the hierarchy carries the fields assembly requires.
func (h Hierarchy) Validate() error {
	if h.Branch == "" {
		return fmt.Errorf("hierarchy has empty branch")
	}
	if h.Depth <= 0 {
		return fmt.Errorf("hierarchy %s: depth must be positive, got %d", h.Branch, h.Depth)
	}
	if len(h.LevelNames) != h.Depth {
		return fmt.Errorf("hierarchy %s: %d level names for depth %d",
			h.Branch, len(h.LevelNames), h.Depth)
	}
	return nil
}

// ExclusionRule is a deterministic, hierarchy-derived rule excluding a
// component when a trigger is present. Rules are presence-triggered only:
// the schema has no way to express "if a term is absent".
type ExclusionRule struct {
	RuleID string `json:"rule_id" yaml:"rule_id"`

	// IfContains triggers the rule when any listed term appears in a
	// record.
	IfContains []string `json:"if_contains,omitempty" yaml:"if_contains,omitempty"`

	// IfDepth triggers the rule when a record carries a designator at
	// this hierarchy depth (1-based; 0 means unset).
	IfDepth int `json:"if_depth,omitempty" yaml:"if_depth,omitempty"`

	// Excludes names the component ruled out when the trigger fires.
	Excludes string `json:"excludes" yaml:"excludes"`
}

// Validate rejects rules without a presence trigger or a target.
func (r ExclusionRule) Validate() error {
	if len(r.IfContains) == 0 && r.IfDepth == 0 {
		return fmt.Errorf("exclusion %s: no presence trigger (if_contains or if_depth required)", r.RuleID)
	}
	if r.Excludes == "" {
		return fmt.Errorf("exclusion %s: empty excludes target", r.RuleID)
	}
	return nil
}

// Robustness is a reconciled candidate's cross-run confidence class.
type Robustness string

const (
	// RobustnessRobust: present in both runs at equal confidence.
	RobustnessRobust Robustness = "robust"

	// RobustnessValidated: present in both runs at differing confidence.
	RobustnessValidated Robustness = "validated"

	// RobustnessOrderDependent: present in exactly one run.
	RobustnessOrderDependent Robustness = "order_dependent"
)

// ReconciledCandidate is a candidate that survived reconciliation,
// tagged with its cross-run robustness class.
type ReconciledCandidate struct {
	Candidate  `yaml:",inline"`
	Robustness Robustness `json:"robustness" yaml:"robustness"`
}

// AgreementClass reports which runs flagged a hard case.
type AgreementClass string

const (
	AgreementBoth         AgreementClass = "both"
	AgreementForwardOnly  AgreementClass = "run_forward_only"
	AgreementInvertedOnly AgreementClass = "run_inverted_only"
)

// HardCaseAgreement is the cross-run classification of one flagged
// soldier, with a best-effort note naming the candidate from the other
// run that plausibly resolved it.
type HardCaseAgreement struct {
	SoldierID string         `json:"soldier_id" yaml:"soldier_id"`
	Layer     HardCaseLayer  `json:"layer" yaml:"layer"`
	Agreement AgreementClass `json:"agreement" yaml:"agreement"`

	// ResolvedBy names the candidate key, present only in the other run,
	// whose trigger matches this soldier's records. Empty when
	// inconclusive; identification is never blocking.
	ResolvedBy string `json:"resolved_by,omitempty" yaml:"resolved_by,omitempty"`

	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// ReconciledArtifact is the reconciler's output for one component/rival
// pair. Rejected candidates are dropped, not retained.
type ReconciledArtifact struct {
	Component string `json:"component" yaml:"component"`
	Rival     string `json:"rival" yaml:"rival"`

	Patterns        []ReconciledCandidate `json:"patterns" yaml:"patterns"`
	Vocabulary      []ReconciledCandidate `json:"vocabulary" yaml:"vocabulary"`
	Differentiators []ReconciledCandidate `json:"differentiators" yaml:"differentiators"`

	// HardCasesByLayer groups the union of both runs' hard cases.
	HardCasesByLayer map[HardCaseLayer][]HardCase `json:"hard_cases_by_layer" yaml:"hard_cases_by_layer"`

	Agreements []HardCaseAgreement `json:"agreements" yaml:"agreements"`

	// FailedBatches maps run ID to the indexes of batches that exhausted
	// their retries in that run.
	FailedBatches map[string][]int `json:"failed_batches,omitempty" yaml:"failed_batches,omitempty"`
}

// SectionStatus reports how completely a resolver section was generated.
type SectionStatus string

const (
	StatusComplete     SectionStatus = "complete"
	StatusLimited      SectionStatus = "limited"
	StatusNotGenerated SectionStatus = "not_generated"
)

// Signal is one presence-based trigger inside a differentiator.
type Signal struct {
	IfContains []string `json:"if_contains" yaml:"if_contains"`
	Note       string   `json:"note,omitempty" yaml:"note,omitempty"`
}

// Differentiator is a structured rule distinguishing the component from a
// specific rival. All signals are presence-triggered.
type Differentiator struct {
	Key   string `json:"key" yaml:"key"`
	Rival string `json:"rival" yaml:"rival"`

	// PositiveSignals raise confidence toward the component when present.
	PositiveSignals []Signal `json:"positive_signals" yaml:"positive_signals"`

	// ConflictSignals lower confidence or signal a mismatch when present.
	ConflictSignals []Signal `json:"conflict_signals" yaml:"conflict_signals"`

	// StructuralRules are hierarchy-derived identifications.
	StructuralRules []string `json:"structural_rules" yaml:"structural_rules"`

	// AmbiguousWhen describes conditions that should yield "cannot
	// determine" instead of a forced classification.
	AmbiguousWhen string `json:"ambiguous_when,omitempty" yaml:"ambiguous_when,omitempty"`
}

// StructureSection is the hierarchy-derived portion of a resolver.
type StructureSection struct {
	Status           SectionStatus       `json:"status" yaml:"status"`
	Branch           string              `json:"branch" yaml:"branch"`
	Depth            int                 `json:"depth" yaml:"depth"`
	LevelNames       []string            `json:"level_names" yaml:"level_names"`
	ValidDesignators map[string][]string `json:"valid_designators" yaml:"valid_designators"`
}

// CandidateSection holds reconciled pattern or vocabulary entries.
type CandidateSection struct {
	Status SectionStatus         `json:"status" yaml:"status"`
	Items  []ReconciledCandidate `json:"items" yaml:"items"`
}

// ExclusionSection holds the deterministic exclusion rules.
type ExclusionSection struct {
	Status SectionStatus   `json:"status" yaml:"status"`
	Rules  []ExclusionRule `json:"rules" yaml:"rules"`
}

// DifferentiatorSection holds the assembled differentiators.
type DifferentiatorSection struct {
	Status SectionStatus    `json:"status" yaml:"status"`
	Items  []Differentiator `json:"items" yaml:"items"`
}

// ArtifactMeta is the component-level metadata block.
type ArtifactMeta struct {
	Tier           ComponentTier         `json:"tier" yaml:"tier"`
	GenerationMode GenerationMode        `json:"generation_mode" yaml:"generation_mode"`
	PctOfMedian    float64               `json:"pct_of_median" yaml:"pct_of_median"`
	HardCaseCounts map[HardCaseLayer]int `json:"hard_case_counts" yaml:"hard_case_counts"`

	// FailedBatches maps run ID to the count of batches that exhausted
	// their retries.
	FailedBatches map[string]int `json:"failed_batches,omitempty" yaml:"failed_batches,omitempty"`
}

// ResolverArtifact is the persisted per-component disambiguation
// artifact. Superseded wholesale on regeneration, never patched in place.
type ResolverArtifact struct {
	Component   string    `json:"component" yaml:"component"`
	CycleID     string    `json:"cycle_id" yaml:"cycle_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	Structure       StructureSection      `json:"structure" yaml:"structure"`
	Patterns        CandidateSection      `json:"patterns" yaml:"patterns"`
	Vocabulary      CandidateSection      `json:"vocabulary" yaml:"vocabulary"`
	Exclusions      ExclusionSection      `json:"exclusions" yaml:"exclusions"`
	Differentiators DifferentiatorSection `json:"differentiators" yaml:"differentiators"`

	Meta ArtifactMeta `json:"meta" yaml:"meta"`
}
