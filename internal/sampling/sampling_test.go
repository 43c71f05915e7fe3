// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sampling

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

var collisionLevels = []types.CollisionLevel{{Level: "regiment", Value: "101"}}

// mkSoldier builds a test soldier whose ID encodes its tier prefix so
// per-tier sample counts can be read back from the output.
func mkSoldier(prefix string, n int, tier types.DifficultyTier, inScope bool) types.Soldier {
	value := "101"
	if !inScope {
		value = "999"
	}
	return types.Soldier{
		ID: fmt.Sprintf("%s%02d", prefix, n),
		Records: []types.Record{
			{
				ID:          fmt.Sprintf("%s%02d-r1", prefix, n),
				Text:        "served with the 101st",
				Designators: map[string]string{"regiment": value},
			},
		},
		Assessment: types.DifficultyAssessment{Tier: tier},
	}
}

func mkPool(extreme, hard, moderate, easy int) []types.Soldier {
	var pool []types.Soldier
	for i := 0; i < extreme; i++ {
		pool = append(pool, mkSoldier("x", i, types.TierExtreme, true))
	}
	for i := 0; i < hard; i++ {
		pool = append(pool, mkSoldier("h", i, types.TierHard, true))
	}
	for i := 0; i < moderate; i++ {
		pool = append(pool, mkSoldier("m", i, types.TierModerate, true))
	}
	for i := 0; i < easy; i++ {
		pool = append(pool, mkSoldier("e", i, types.TierEasy, true))
	}
	return pool
}

func countByPrefix(ids []string) map[string]int {
	counts := make(map[string]int)
	for _, id := range ids {
		counts[id[:1]]++
	}
	return counts
}

func baseInput(sideA []types.Soldier) Input {
	return Input{
		Component:     "infantry-101",
		Rival:         "airborne-101",
		Levels:        collisionLevels,
		SideA:         sideA,
		SideB:         mkPool(8, 8, 8, 8),
		TargetPerSide: 20,
		Seed:          42,
	}
}

func TestSample_StratifiedAllocation(t *testing.T) {
	// Full quotas available in scope, plus 10 irrelevant soldiers outside
	// the collision that must never be picked.
	pool := mkPool(8, 9, 4, 2)
	for i := 0; i < 10; i++ {
		pool = append(pool, mkSoldier("z", i, types.TierHard, false))
	}

	sample, err := Sample(baseInput(pool), io.Discard)
	require.NoError(t, err)

	side := sample.SideA
	assert.False(t, side.Undersampled)
	assert.False(t, side.FallbackUnfiltered)
	require.Len(t, side.SoldierIDs, 20)

	counts := countByPrefix(side.SoldierIDs)
	assert.Equal(t, 7, counts["x"], "extreme quota")
	assert.Equal(t, 7, counts["h"], "hard quota")
	assert.Equal(t, 4, counts["m"], "moderate quota")
	assert.Equal(t, 2, counts["e"], "easy quota")
	assert.Zero(t, counts["z"], "out-of-scope soldiers must not be sampled")
}

func TestSample_ShortfallRedistribution(t *testing.T) {
	// Only 3 extreme against a quota of 7: the shortfall of 4 goes to
	// hard/moderate/easy proportionally to their weights (.35/.20/.10).
	sample, err := Sample(baseInput(mkPool(3, 12, 6, 4)), io.Discard)
	require.NoError(t, err)

	side := sample.SideA
	assert.False(t, side.Undersampled)
	require.Len(t, side.SoldierIDs, 20)

	counts := countByPrefix(side.SoldierIDs)
	assert.Equal(t, 3, counts["x"])
	assert.Equal(t, 9, counts["h"])
	assert.Equal(t, 5, counts["m"])
	assert.Equal(t, 3, counts["e"])
}

func TestSample_PoolExhausted(t *testing.T) {
	var log strings.Builder
	sample, err := Sample(baseInput(mkPool(2, 1, 1, 1)), &log)
	require.NoError(t, err)

	side := sample.SideA
	assert.True(t, side.Undersampled)
	assert.Len(t, side.SoldierIDs, 5, "every available soldier is taken")
	assert.Contains(t, log.String(), "pool exhausted")
}

func TestSample_FallbackUnfiltered(t *testing.T) {
	// Nobody in collision scope: degrade to the unfiltered pool.
	var pool []types.Soldier
	for i := 0; i < 25; i++ {
		pool = append(pool, mkSoldier("z", i, types.TierHard, false))
	}

	var log strings.Builder
	sample, err := Sample(baseInput(pool), &log)
	require.NoError(t, err)

	side := sample.SideA
	assert.True(t, side.FallbackUnfiltered)
	assert.NotEmpty(t, side.SoldierIDs)
	assert.Contains(t, log.String(), "falling back to unfiltered pool")
}

func TestSample_Deterministic(t *testing.T) {
	in := baseInput(mkPool(10, 10, 10, 10))

	first, err := Sample(in, io.Discard)
	require.NoError(t, err)
	second, err := Sample(in, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSample_InvalidInput(t *testing.T) {
	in := baseInput(mkPool(1, 1, 1, 1))
	in.TargetPerSide = 0
	_, err := Sample(in, io.Discard)
	assert.Error(t, err)

	in = baseInput(mkPool(1, 1, 1, 1))
	in.Levels = nil
	_, err = Sample(in, io.Discard)
	assert.Error(t, err)
}
