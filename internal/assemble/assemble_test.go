// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

func reconciledCand(key string, robustness types.Robustness) types.ReconciledCandidate {
	return types.ReconciledCandidate{
		Candidate: types.Candidate{
			Key:        key,
			Kind:       types.KindVocabulary,
			Meaning:    "meaning of " + key,
			Provenance: types.ProvenanceInferred,
			Confidence: types.ConfidenceMedium,
		},
		Robustness: robustness,
	}
}

func fullInput() Input {
	return Input{
		Assignment: types.TierAssignment{
			Component:   "infantry-101",
			Count:       120,
			Tier:        types.TierWellRepresented,
			Mode:        types.ModeFull,
			PctOfMedian: 140,
		},
		Hierarchy: types.Hierarchy{
			Branch:     "army",
			Depth:      3,
			LevelNames: []string{"division", "regiment", "battalion"},
			ValidDesignators: map[string][]string{
				"division": {"101"},
			},
			StructuralDiscriminators: []string{
				"airborne divisions have no organic armor battalion",
			},
		},
		Exclusions: []types.ExclusionRule{{
			RuleID:     "x-glider",
			IfContains: []string{"glider"},
			Excludes:   "infantry-101",
		}},
		Reconciled: types.ReconciledArtifact{
			Component: "infantry-101",
			Rival:     "airborne-101",
			Patterns: []types.ReconciledCandidate{
				reconciledCand("numbered-regiment", types.RobustnessRobust),
				reconciledCand("validated-pattern", types.RobustnessValidated),
			},
			Vocabulary: []types.ReconciledCandidate{
				reconciledCand("inf-div", types.RobustnessRobust),
			},
			Differentiators: []types.ReconciledCandidate{
				reconciledCand("abn-marker", types.RobustnessRobust),
			},
		},
		CycleID: "cycle-1",
	}
}

func TestAssemble_FullMode(t *testing.T) {
	artifact, err := Assemble(fullInput(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "infantry-101", artifact.Component)
	assert.Equal(t, "cycle-1", artifact.CycleID)

	assert.Equal(t, types.StatusComplete, artifact.Structure.Status)
	assert.Equal(t, "army", artifact.Structure.Branch)
	assert.Equal(t, types.StatusComplete, artifact.Patterns.Status)
	assert.Len(t, artifact.Patterns.Items, 2)
	assert.Equal(t, types.StatusComplete, artifact.Vocabulary.Status)
	assert.Equal(t, types.StatusComplete, artifact.Exclusions.Status)
	assert.Len(t, artifact.Exclusions.Rules, 1)

	require.Len(t, artifact.Differentiators.Items, 1)
	diff := artifact.Differentiators.Items[0]
	assert.Equal(t, "airborne-101", diff.Rival)
	assert.NotEmpty(t, diff.PositiveSignals)
	assert.NotEmpty(t, diff.ConflictSignals, "own exclusions become rival conflict signals")
	assert.Equal(t, []string{"airborne divisions have no organic armor battalion"}, diff.StructuralRules)

	assert.Equal(t, types.TierWellRepresented, artifact.Meta.Tier)
	assert.Equal(t, types.ModeFull, artifact.Meta.GenerationMode)
}

func TestAssemble_HierarchyOnlyMode(t *testing.T) {
	in := fullInput()
	in.Assignment.Tier = types.TierSparse
	in.Assignment.Mode = types.ModeHierarchyOnly

	var log strings.Builder
	artifact, err := Assemble(in, &log)
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, artifact.Structure.Status)
	assert.Equal(t, types.StatusComplete, artifact.Exclusions.Status)
	assert.Equal(t, types.StatusNotGenerated, artifact.Patterns.Status)
	assert.Empty(t, artifact.Patterns.Items)
	assert.Equal(t, types.StatusNotGenerated, artifact.Vocabulary.Status)
	assert.Equal(t, types.StatusNotGenerated, artifact.Differentiators.Status)
	assert.Contains(t, log.String(), "structure and exclusions only")
}

func TestAssemble_LimitedModeKeepsOnlyRobust(t *testing.T) {
	in := fullInput()
	in.Assignment.Tier = types.TierUnderRepresented
	in.Assignment.Mode = types.ModeLimited

	artifact, err := Assemble(in, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StatusLimited, artifact.Patterns.Status)
	require.Len(t, artifact.Patterns.Items, 1, "validated and order_dependent are dropped")
	assert.Equal(t, "numbered-regiment", artifact.Patterns.Items[0].Key)

	// Limited differentiators keep structural rules but no value signals.
	require.Len(t, artifact.Differentiators.Items, 1)
	diff := artifact.Differentiators.Items[0]
	assert.Empty(t, diff.PositiveSignals)
	assert.Empty(t, diff.ConflictSignals)
	assert.NotEmpty(t, diff.StructuralRules)
}

func TestAssemble_SelfConsistencyFilter(t *testing.T) {
	// A vocabulary candidate colliding with the component's own exclusion
	// trigger must be removed and the removal logged.
	in := fullInput()
	in.Reconciled.Vocabulary = append(in.Reconciled.Vocabulary,
		reconciledCand("glider-infantry", types.RobustnessRobust))

	var log strings.Builder
	artifact, err := Assemble(in, &log)
	require.NoError(t, err)

	require.Len(t, artifact.Vocabulary.Items, 1)
	assert.Equal(t, "inf-div", artifact.Vocabulary.Items[0].Key)
	assert.Contains(t, log.String(),
		"removed vocabulary candidate glider-infantry: conflicts with exclusion x-glider")
}

func TestAssemble_SelfConsistencyChecksCitations(t *testing.T) {
	in := fullInput()
	tainted := reconciledCand("towed-landing", types.RobustnessRobust)
	tainted.Citations = []types.RecordCitation{
		{SoldierID: "s01", RecordID: "s01-r1", Quote: "Glider Regt"},
	}
	in.Reconciled.Patterns = append(in.Reconciled.Patterns, tainted)

	var log strings.Builder
	artifact, err := Assemble(in, &log)
	require.NoError(t, err)

	assert.Len(t, artifact.Patterns.Items, 2)
	assert.Contains(t, log.String(), "removed pattern candidate towed-landing")
}

func TestAssemble_OrderDependentDifferentiatorGetsAmbiguityEscape(t *testing.T) {
	in := fullInput()
	in.Reconciled.Differentiators = []types.ReconciledCandidate{
		reconciledCand("shaky", types.RobustnessOrderDependent),
	}

	artifact, err := Assemble(in, io.Discard)
	require.NoError(t, err)

	require.Len(t, artifact.Differentiators.Items, 1)
	assert.Contains(t, artifact.Differentiators.Items[0].AmbiguousWhen, "only one extraction order")
}

func TestAssemble_InvalidHierarchyFails(t *testing.T) {
	in := fullInput()
	in.Hierarchy.LevelNames = []string{"division"} // depth 3

	_, err := Assemble(in, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating hierarchy")
}

func TestAssemble_InvalidExclusionFails(t *testing.T) {
	in := fullInput()
	in.Exclusions = append(in.Exclusions, types.ExclusionRule{
		RuleID:   "x-bad",
		Excludes: "infantry-101", // no presence trigger
	})

	_, err := Assemble(in, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating exclusions")
}

func TestAssemble_ComponentMismatchFails(t *testing.T) {
	in := fullInput()
	in.Reconciled.Component = "someone-else"

	_, err := Assemble(in, io.Discard)
	require.Error(t, err)
}

func TestAssemble_MetaCountsRunHealth(t *testing.T) {
	in := fullInput()
	in.Reconciled.HardCasesByLayer = map[types.HardCaseLayer][]types.HardCase{
		types.LayerComplementarity: {
			{SoldierID: "s01", Layer: types.LayerComplementarity, Reason: "thin", FlaggedIn: "forward"},
			{SoldierID: "s02", Layer: types.LayerComplementarity, Reason: "thin", FlaggedIn: "inverted"},
		},
	}
	in.Reconciled.FailedBatches = map[string][]int{"forward": {3, 7}}

	artifact, err := Assemble(in, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, 2, artifact.Meta.HardCaseCounts[types.LayerComplementarity])
	assert.Equal(t, map[string]int{"forward": 2}, artifact.Meta.FailedBatches)
}

func TestWriteArtifact_RoundTrip(t *testing.T) {
	artifact, err := Assemble(fullInput(), io.Discard)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "artifacts")
	path, err := WriteArtifact(artifact, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "infantry-101-resolver.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded types.ResolverArtifact
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, artifact.Component, loaded.Component)
	assert.Equal(t, artifact.Patterns.Status, loaded.Patterns.Status)
	assert.Len(t, loaded.Patterns.Items, len(artifact.Patterns.Items))
}
