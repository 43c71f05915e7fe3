// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CollisionLevel is one colliding (level, value) pair shared between a
// component and a rival.
type CollisionLevel struct {
	Level string `json:"level" yaml:"level"`
	Value string `json:"value" yaml:"value"`
}

// SampleSide holds the sampled soldier IDs for one side of a rival pair.
type SampleSide struct {
	// SoldierIDs is the sampled set, in selection order.
	SoldierIDs []string `json:"soldier_ids" yaml:"soldier_ids"`

	// Undersampled reports that the pool was exhausted before the
	// per-side target was met.
	Undersampled bool `json:"undersampled" yaml:"undersampled"`

	// FallbackUnfiltered reports that the collision-scope filter produced
	// an empty pool and sampling fell back to the full component pool.
	FallbackUnfiltered bool `json:"fallback_unfiltered,omitempty" yaml:"fallback_unfiltered,omitempty"`
}

// CollisionSample is the stratified sample for one (component, rival)
// collision. Created once per rival relationship and never mutated after.
type CollisionSample struct {
	Component string           `json:"component" yaml:"component"`
	Rival     string           `json:"rival" yaml:"rival"`
	Levels    []CollisionLevel `json:"levels" yaml:"levels"`
	SideA     SampleSide       `json:"side_a" yaml:"side_a"`
	SideB     SampleSide       `json:"side_b" yaml:"side_b"`
}

// BatchOrder selects the direction a run walks the batch sequence.
type BatchOrder string

const (
	// OrderForward processes batches in sampling order.
	OrderForward BatchOrder = "forward"

	// OrderInverted processes the exact reverse of the forward batch
	// sequence. Not an independent shuffle: reversal isolates
	// ordering-induced drift.
	OrderInverted BatchOrder = "inverted"
)

// BatchGroup is one soldier's full record set inside a batch. A soldier's
// records are never split across batches.
type BatchGroup struct {
	SoldierID string   `json:"soldier_id" yaml:"soldier_id"`
	Records   []Record `json:"records" yaml:"records"`

	// Component names the collision side the soldier belongs to, so the
	// extraction backend can contrast the two sides of a sample. Empty
	// when a batch sequence covers a single side.
	Component string `json:"component,omitempty" yaml:"component,omitempty"`
}

// Batch is a token-bounded group of soldiers processed by one extraction
// call. Batches are ephemeral: they exist only for the duration of a run.
type Batch struct {
	Index int `json:"index" yaml:"index"`

	Groups []BatchGroup `json:"groups" yaml:"groups"`

	// TokenEstimate is the estimated token footprint of the batch.
	TokenEstimate int `json:"token_estimate" yaml:"token_estimate"`

	// Oversized marks a single-soldier batch whose records alone exceed
	// the budget. Oversized soldiers are sent whole, never truncated.
	Oversized bool `json:"oversized,omitempty" yaml:"oversized,omitempty"`
}

// SoldierIDs returns the soldiers in this batch, in group order.
func (b Batch) SoldierIDs() []string {
	ids := make([]string, len(b.Groups))
	for i, g := range b.Groups {
		ids[i] = g.SoldierID
	}
	return ids
}
