// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tiers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

func tierOf(t *testing.T, assignments []types.TierAssignment, component string) types.TierAssignment {
	t.Helper()
	for _, a := range assignments {
		if a.Component == component {
			return a
		}
	}
	t.Fatalf("component %s not in assignments", component)
	return types.TierAssignment{}
}

func TestAssign_SpreadDistribution(t *testing.T) {
	counts := map[string]int{
		"infantry-101":  100,
		"infantry-102":  80,
		"artillery-7":   60,
		"engineers-3rd": 40,
	}

	assignments, th, err := Assign(counts)
	require.NoError(t, err)
	require.Len(t, assignments, 4)

	assert.InDelta(t, 55.0, th.P25, 1e-9)
	assert.InDelta(t, 70.0, th.Median, 1e-9)
	assert.InDelta(t, 85.0, th.P75, 1e-9)

	assert.Equal(t, types.TierWellRepresented, tierOf(t, assignments, "infantry-101").Tier)
	assert.Equal(t, types.TierAdequatelyRepresented, tierOf(t, assignments, "infantry-102").Tier)
	assert.Equal(t, types.TierUnderRepresented, tierOf(t, assignments, "artillery-7").Tier)

	// 40 is below p25 and below 75% of the median (52.5).
	sparse := tierOf(t, assignments, "engineers-3rd")
	assert.Equal(t, types.TierSparse, sparse.Tier)
	assert.Equal(t, types.ModeHierarchyOnly, sparse.Mode)
	assert.InDelta(t, 57.14, sparse.PctOfMedian, 0.01)
}

func TestAssign_SparseGuard(t *testing.T) {
	// Tight distribution: the lowest count falls below p25 (83.75) but
	// sits well above 75% of the median (65.625), so the guard keeps it
	// out of sparse.
	counts := map[string]int{
		"a": 100,
		"b": 90,
		"c": 85,
		"d": 80,
	}

	assignments, _, err := Assign(counts)
	require.NoError(t, err)

	d := tierOf(t, assignments, "d")
	assert.Equal(t, types.TierUnderRepresented, d.Tier)
	assert.Equal(t, types.ModeLimited, d.Mode)
}

func TestAssign_SingleComponent(t *testing.T) {
	assignments, th, err := Assign(map[string]int{"only": 5})
	require.NoError(t, err)
	require.Len(t, assignments, 1)

	assert.Equal(t, types.TierWellRepresented, assignments[0].Tier)
	assert.InDelta(t, 5.0, th.Median, 1e-9)
	assert.InDelta(t, 100.0, assignments[0].PctOfMedian, 1e-9)
}

func TestAssign_Empty(t *testing.T) {
	_, _, err := Assign(nil)
	assert.Error(t, err)
}

func TestAssign_StableOrder(t *testing.T) {
	counts := map[string]int{"z": 1, "a": 2, "m": 3}
	assignments, _, err := Assign(counts)
	require.NoError(t, err)

	var names []string
	for _, a := range assignments {
		names = append(names, a.Component)
	}
	assert.Equal(t, []string{"a", "m", "z"}, names)
}
