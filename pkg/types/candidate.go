// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// CandidateKind categorizes what a candidate contributes to the resolver.
type CandidateKind string

const (
	KindPattern        CandidateKind = "pattern"
	KindVocabulary     CandidateKind = "vocabulary"
	KindDifferentiator CandidateKind = "differentiator"
)

// validCandidateKinds is the accepted set for response validation.
var validCandidateKinds = map[CandidateKind]bool{
	KindPattern:        true,
	KindVocabulary:     true,
	KindDifferentiator: true,
}

// Provenance records whether a candidate claim is grounded in cited
// example records or drawn from general knowledge.
type Provenance string

const (
	// ProvenanceObserved means the claim cites records that contain it.
	ProvenanceObserved Provenance = "observed"

	// ProvenanceInferred means the claim comes from general knowledge and
	// carries no record citations.
	ProvenanceInferred Provenance = "inferred"
)

// Confidence is the extraction backend's certainty in a candidate.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// confidenceRank orders confidence levels for comparison and demotion.
var confidenceRank = map[Confidence]int{
	ConfidenceLow:    0,
	ConfidenceMedium: 1,
	ConfidenceHigh:   2,
}

// Valid reports whether c is a known confidence level.
func (c Confidence) Valid() bool {
	_, ok := confidenceRank[c]
	return ok
}

// Rank returns the numeric order of c (low=0, medium=1, high=2).
// Unknown values rank below low.
func (c Confidence) Rank() int {
	r, ok := confidenceRank[c]
	if !ok {
		return -1
	}
	return r
}

// Demote returns the confidence one level down. Low stays low.
func (c Confidence) Demote() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceLow
	default:
		return ConfidenceLow
	}
}

// AverageConfidence returns the midpoint of two confidence levels,
// rounding down when they are two levels apart.
func AverageConfidence(a, b Confidence) Confidence {
	ranks := []Confidence{ConfidenceLow, ConfidenceMedium, ConfidenceHigh}
	mid := (a.Rank() + b.Rank()) / 2
	if mid < 0 {
		mid = 0
	}
	return ranks[mid]
}

// RecordCitation points at the exact record text grounding an observed
// candidate.
type RecordCitation struct {
	SoldierID string `json:"soldier_id" yaml:"soldier_id"`
	RecordID  string `json:"record_id" yaml:"record_id"`

	// Quote is the claimed text as it appears in the cited record.
	Quote string `json:"quote" yaml:"quote"`
}

// Candidate is one pattern, vocabulary, or differentiator claim produced
// by an extraction run. Candidates merge by Key within a run, keeping the
// higher-confidence instance.
type Candidate struct {
	Key        string           `json:"key" yaml:"key"`
	Kind       CandidateKind    `json:"kind" yaml:"kind"`
	Meaning    string           `json:"meaning" yaml:"meaning"`
	Provenance Provenance       `json:"provenance" yaml:"provenance"`
	Confidence Confidence       `json:"confidence" yaml:"confidence"`
	Citations  []RecordCitation `json:"citations,omitempty" yaml:"citations,omitempty"`

	// Note carries reconciliation annotations, e.g. a grounding demotion.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Validate checks a candidate against the response schema. Observed
// candidates must cite at least one record; only presence-based evidence
// is representable, so there is nothing further to forbid here.
func (c Candidate) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("candidate has empty key")
	}
	if !validCandidateKinds[c.Kind] {
		return fmt.Errorf("candidate %s: invalid kind %q", c.Key, c.Kind)
	}
	switch c.Provenance {
	case ProvenanceObserved:
		if len(c.Citations) == 0 {
			return fmt.Errorf("candidate %s: observed without citations", c.Key)
		}
	case ProvenanceInferred:
	default:
		return fmt.Errorf("candidate %s: invalid provenance %q", c.Key, c.Provenance)
	}
	if !c.Confidence.Valid() {
		return fmt.Errorf("candidate %s: invalid confidence %q", c.Key, c.Confidence)
	}
	return nil
}

// HardCaseLayer names the difficulty layer responsible for a hard case.
type HardCaseLayer string

const (
	LayerCollisionPosition   HardCaseLayer = "collision_position"
	LayerComplementarity     HardCaseLayer = "complementarity"
	LayerStructuralAmbiguity HardCaseLayer = "structural_ambiguity"
)

// HardCaseLayers lists all layers in reporting order.
var HardCaseLayers = []HardCaseLayer{
	LayerCollisionPosition,
	LayerComplementarity,
	LayerStructuralAmbiguity,
}

// validHardCaseLayers is the accepted set for response validation.
var validHardCaseLayers = map[HardCaseLayer]bool{
	LayerCollisionPosition:   true,
	LayerComplementarity:     true,
	LayerStructuralAmbiguity: true,
}

// HardCase is a soldier the extraction backend flagged as difficult to
// disambiguate. Created during batch processing; persists into
// reconciliation.
type HardCase struct {
	SoldierID string        `json:"soldier_id" yaml:"soldier_id"`
	Layer     HardCaseLayer `json:"layer" yaml:"layer"`
	Reason    string        `json:"reason" yaml:"reason"`
	Notes     string        `json:"notes,omitempty" yaml:"notes,omitempty"`

	// FlaggedIn is the run that produced the flag ("forward" or "inverted").
	FlaggedIn string `json:"flagged_in" yaml:"flagged_in"`
}

// Validate checks a hard case against the response schema.
func (h HardCase) Validate() error {
	if h.SoldierID == "" {
		return fmt.Errorf("hard case has empty soldier_id")
	}
	if !validHardCaseLayers[h.Layer] {
		return fmt.Errorf("hard case %s: invalid layer %q", h.SoldierID, h.Layer)
	}
	if h.Reason == "" {
		return fmt.Errorf("hard case %s: empty reason", h.SoldierID)
	}
	return nil
}
