// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batching packs sampled soldiers into token-bounded batches.
// A soldier's record set is never split across batches; the inverted
// order is the exact reverse of the forward batch sequence, so the two
// runs see identical partitions in opposite order.
// Implements: prd003-batching (R1-R3).
package batching

import (
	"fmt"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

// charsPerToken is the conventional estimate for English prose. The
// budget only needs a stable monotone estimate, not an exact count.
const charsPerToken = 4

// recordOverheadTokens covers per-record framing (id, separators) in the
// prompt.
const recordOverheadTokens = 8

// DefaultMaxTokens is the per-batch budget when none is configured.
const DefaultMaxTokens = 8000

// EstimateTokens returns the estimated token footprint of one soldier's
// record set.
func EstimateTokens(records []types.Record) int {
	total := 0
	for _, rec := range records {
		total += len(rec.Text)/charsPerToken + recordOverheadTokens
	}
	return total
}

// Pack greedily bins soldiers, in the given order, into batches that
// respect maxTokens. A soldier whose records alone exceed the budget
// becomes an oversized single-soldier batch rather than being truncated
// or dropped (R2.2).
func Pack(soldiers []types.Soldier, maxTokens int, order types.BatchOrder) ([]types.Batch, error) {
	return orient(pack(soldiers, "", maxTokens), order)
}

// PackPair packs both sides of a collision sample into one forward
// sequence: the component's batches first, then the rival's, indexed
// contiguously. Every group carries its side label so the extraction
// backend sees which component each soldier's records belong to. The
// partition property holds over the union of both sides (R1.3).
func PackPair(component string, sideA []types.Soldier, rival string, sideB []types.Soldier, maxTokens int, order types.BatchOrder) ([]types.Batch, error) {
	batches := append(pack(sideA, component, maxTokens), pack(sideB, rival, maxTokens)...)
	for i := range batches {
		batches[i].Index = i
	}
	return orient(batches, order)
}

func orient(batches []types.Batch, order types.BatchOrder) ([]types.Batch, error) {
	switch order {
	case types.OrderForward, "":
		return batches, nil
	case types.OrderInverted:
		return invert(batches), nil
	default:
		return nil, fmt.Errorf("unknown batch order %q", order)
	}
}

// pack is the greedy binning pass for one side, labeling every group
// with component when set.
func pack(soldiers []types.Soldier, component string, maxTokens int) []types.Batch {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var batches []types.Batch
	current := types.Batch{}

	flush := func() {
		if len(current.Groups) > 0 {
			current.Index = len(batches)
			batches = append(batches, current)
			current = types.Batch{}
		}
	}

	for _, s := range soldiers {
		cost := EstimateTokens(s.Records)
		group := types.BatchGroup{SoldierID: s.ID, Records: s.Records, Component: component}

		if cost > maxTokens {
			// Oversized soldier: ship whole in its own batch.
			flush()
			batches = append(batches, types.Batch{
				Index:         len(batches),
				Groups:        []types.BatchGroup{group},
				TokenEstimate: cost,
				Oversized:     true,
			})
			continue
		}

		if current.TokenEstimate+cost > maxTokens {
			flush()
		}
		current.Groups = append(current.Groups, group)
		current.TokenEstimate += cost
	}
	flush()
	return batches
}

// Invert returns the exact reverse of a forward batch sequence,
// reindexed for the inverted run. Group order within each batch is
// preserved.
func Invert(forward []types.Batch) []types.Batch {
	return invert(forward)
}

func invert(batches []types.Batch) []types.Batch {
	inverted := make([]types.Batch, len(batches))
	for i, b := range batches {
		b.Index = len(batches) - 1 - i
		inverted[len(batches)-1-i] = b
	}
	return inverted
}
