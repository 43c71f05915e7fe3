// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batching

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

// soldierWithText builds a soldier with nRecords records of textLen
// characters each.
func soldierWithText(id string, nRecords, textLen int) types.Soldier {
	var records []types.Record
	for i := 0; i < nRecords; i++ {
		records = append(records, types.Record{
			ID:   fmt.Sprintf("%s-r%d", id, i),
			Text: strings.Repeat("a", textLen),
		})
	}
	return types.Soldier{ID: id, Records: records}
}

func soldiers(n int) []types.Soldier {
	var out []types.Soldier
	for i := 0; i < n; i++ {
		// 2 records at (100/4 + 8) = 66 tokens each.
		out = append(out, soldierWithText(fmt.Sprintf("s%02d", i), 2, 100))
	}
	return out
}

func allIDs(batches []types.Batch) []string {
	var ids []string
	for _, b := range batches {
		ids = append(ids, b.SoldierIDs()...)
	}
	return ids
}

func TestPack_PartitionsWithoutSplitting(t *testing.T) {
	in := soldiers(10) // 66 tokens each, budget 200, so 3 per batch
	batches, err := Pack(in, 200, types.OrderForward)
	require.NoError(t, err)
	require.Len(t, batches, 4)

	// Union of batch soldier IDs equals the full set, no duplicates.
	seen := make(map[string]int)
	for _, id := range allIDs(batches) {
		seen[id]++
	}
	assert.Len(t, seen, 10)
	for id, n := range seen {
		assert.Equal(t, 1, n, "soldier %s appears in more than one batch", id)
	}

	for i, b := range batches {
		assert.Equal(t, i, b.Index)
		assert.LessOrEqual(t, b.TokenEstimate, 200)
	}
}

func TestPack_OversizedSoldier(t *testing.T) {
	in := []types.Soldier{
		soldierWithText("small-1", 1, 100),
		soldierWithText("huge", 10, 2000), // 10 records of 508 tokens
		soldierWithText("small-2", 1, 100),
	}

	batches, err := Pack(in, 300, types.OrderForward)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, []string{"huge"}, batches[1].SoldierIDs())
	assert.True(t, batches[1].Oversized)
	assert.Greater(t, batches[1].TokenEstimate, 300, "oversized soldier is never truncated")
	assert.False(t, batches[0].Oversized)
}

func TestPack_InvertedIsExactReverse(t *testing.T) {
	in := soldiers(10)

	forward, err := Pack(in, 200, types.OrderForward)
	require.NoError(t, err)
	inverted, err := Pack(in, 200, types.OrderInverted)
	require.NoError(t, err)
	require.Len(t, inverted, len(forward))

	for i := range forward {
		mirror := inverted[len(inverted)-1-i]
		assert.Equal(t, forward[i].SoldierIDs(), mirror.SoldierIDs(),
			"inverted batch %d must mirror forward batch %d", len(inverted)-1-i, i)
	}
	for i, b := range inverted {
		assert.Equal(t, i, b.Index)
	}
}

func TestPackPair_CoversBothSidesWithLabels(t *testing.T) {
	sideA := soldiers(4) // 66 tokens each, budget 200, so 3 per batch
	var sideB []types.Soldier
	for i := 0; i < 3; i++ {
		sideB = append(sideB, soldierWithText(fmt.Sprintf("r%02d", i), 2, 100))
	}

	batches, err := PackPair("infantry-101", sideA, "airborne-101", sideB, 200, types.OrderForward)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	// Union of batch soldier IDs equals both sides, no duplicates.
	seen := make(map[string]int)
	for _, id := range allIDs(batches) {
		seen[id]++
	}
	assert.Len(t, seen, 7)
	for id, n := range seen {
		assert.Equal(t, 1, n, "soldier %s appears in more than one batch", id)
	}

	// Component batches precede rival batches, indexed contiguously, and
	// every group names its side.
	for i, b := range batches {
		assert.Equal(t, i, b.Index)
		for _, g := range b.Groups {
			if strings.HasPrefix(g.SoldierID, "s") {
				assert.Equal(t, "infantry-101", g.Component)
			} else {
				assert.Equal(t, "airborne-101", g.Component)
			}
		}
	}
	assert.Equal(t, []string{"s00", "s01", "s02"}, batches[0].SoldierIDs())
	assert.Equal(t, []string{"s03"}, batches[1].SoldierIDs())
	assert.Equal(t, []string{"r00", "r01", "r02"}, batches[2].SoldierIDs())

	// A side never shares a batch with the other side even when the last
	// component batch has budget left.
	for _, b := range batches {
		first := b.Groups[0].Component
		for _, g := range b.Groups {
			assert.Equal(t, first, g.Component)
		}
	}
}

func TestPackPair_InvertedStartsWithRivalSide(t *testing.T) {
	sideA := soldiers(4)
	sideB := []types.Soldier{soldierWithText("r00", 2, 100)}

	forward, err := PackPair("infantry-101", sideA, "airborne-101", sideB, 200, types.OrderForward)
	require.NoError(t, err)
	inverted, err := PackPair("infantry-101", sideA, "airborne-101", sideB, 200, types.OrderInverted)
	require.NoError(t, err)
	require.Len(t, inverted, len(forward))

	assert.Equal(t, []string{"r00"}, inverted[0].SoldierIDs())
	for i := range forward {
		mirror := inverted[len(inverted)-1-i]
		assert.Equal(t, forward[i].SoldierIDs(), mirror.SoldierIDs())
	}
	for i, b := range inverted {
		assert.Equal(t, i, b.Index)
	}
}

func TestPack_UnknownOrder(t *testing.T) {
	_, err := Pack(soldiers(2), 200, types.BatchOrder("sideways"))
	assert.Error(t, err)
}

func TestEstimateTokens(t *testing.T) {
	records := []types.Record{
		{Text: strings.Repeat("a", 400)}, // 100 + 8
		{Text: "abcd"},                   // 1 + 8
	}
	assert.Equal(t, 117, EstimateTokens(records))
}
