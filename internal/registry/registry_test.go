// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

func testArtifact(component, cycleID string) types.ResolverArtifact {
	return types.ResolverArtifact{
		Component:   component,
		CycleID:     cycleID,
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Structure: types.StructureSection{
			Status: types.StatusComplete,
			Branch: "army",
			Depth:  3,
			LevelNames: []string{
				"division", "regiment", "battalion",
			},
		},
		Meta: types.ArtifactMeta{
			Tier:           types.TierWellRepresented,
			GenerationMode: types.ModeFull,
		},
	}
}

func openTestRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	reg, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegistry_RecordAndGet(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	artifact := testArtifact("infantry-101", "cycle-1")
	require.NoError(t, reg.Record(ctx, artifact))

	loaded, ok, err := reg.Get(ctx, "infantry-101")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, artifact.Component, loaded.Component)
	assert.Equal(t, artifact.CycleID, loaded.CycleID)
	assert.Equal(t, artifact.Structure.LevelNames, loaded.Structure.LevelNames)
}

func TestRegistry_GetMissing(t *testing.T) {
	reg := openTestRegistry(t)

	_, ok, err := reg.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_RecordSupersedes(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Record(ctx, testArtifact("infantry-101", "cycle-1")))
	require.NoError(t, reg.Record(ctx, testArtifact("infantry-101", "cycle-2")))

	loaded, ok, err := reg.Get(ctx, "infantry-101")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cycle-2", loaded.CycleID)

	entries, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "supersession replaces, never accumulates")
}

func TestRegistry_ListOrdered(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Record(ctx, testArtifact("infantry-101", "cycle-1")))
	require.NoError(t, reg.Record(ctx, testArtifact("airborne-101", "cycle-1")))

	entries, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "airborne-101", entries[0].Component)
	assert.Equal(t, "infantry-101", entries[1].Component)
	assert.Equal(t, types.TierWellRepresented, entries[0].Tier)
	assert.Equal(t, types.ModeFull, entries[0].Mode)
}

func TestRegistry_RebuildRequestLifecycle(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.RequestRebuild(ctx, "infantry-101", "misclassification reported"))
	require.NoError(t, reg.RequestRebuild(ctx, "airborne-101", "hierarchy updated"))

	pending, err := reg.PendingRebuilds(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "airborne-101", pending[0].Component)
	assert.Equal(t, "hierarchy updated", pending[0].Reason)

	// Publishing a resolver clears the component's request.
	require.NoError(t, reg.Record(ctx, testArtifact("infantry-101", "cycle-2")))

	pending, err = reg.PendingRebuilds(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "airborne-101", pending[0].Component)
}

func TestRegistry_RepeatedRequestRefreshes(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.RequestRebuild(ctx, "infantry-101", "first"))
	require.NoError(t, reg.RequestRebuild(ctx, "infantry-101", "second"))

	pending, err := reg.PendingRebuilds(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "second", pending[0].Reason)
}

func TestRegistry_EmptyComponentRejected(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	assert.Error(t, reg.Record(ctx, types.ResolverArtifact{}))
	assert.Error(t, reg.RequestRebuild(ctx, "", "reason"))
}
