// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/resolver-engine/internal/corpus"
	"github.com/pdiddy/resolver-engine/internal/sampling"
	"github.com/pdiddy/resolver-engine/pkg/types"
)

var sampleCmd = &cobra.Command{
	Use:   "sample [component] [rival]",
	Short: "Draw a difficulty-stratified collision sample for a rival pair",
	Long: `Sample restricts both components' soldier pools to the collision scope
(records carrying the colliding designators), then draws the per-side target
stratified by difficulty tier, redistributing quota from exhausted tiers.
Sampling is deterministic for a given seed.

The sample is written to work/samples/ for the generate stage.`,
	Args: cobra.ExactArgs(2),
	RunE: runSample,
}

func runSample(cmd *cobra.Command, args []string) error {
	component, rival := args[0], args[1]
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")
	workDir, _ := cmd.Flags().GetString("work-dir")
	target, _ := cmd.Flags().GetInt("target")
	seed, _ := cmd.Flags().GetInt64("seed")

	sideA, err := corpus.LoadSoldiers(corpusDir, component)
	if err != nil {
		return err
	}
	sideB, err := corpus.LoadSoldiers(corpusDir, rival)
	if err != nil {
		return err
	}

	levels, err := collisionLevels(corpusDir, component, rival)
	if err != nil {
		return err
	}

	sample, err := sampling.Sample(sampling.Input{
		Component:     component,
		Rival:         rival,
		Levels:        levels,
		SideA:         sideA,
		SideB:         sideB,
		TargetPerSide: target,
		Seed:          seed,
	}, os.Stdout)
	if err != nil {
		return err
	}

	path := samplePath(workDir, component, rival)
	if err := writeYAML(path, sampleFile{Sample: sample}); err != nil {
		return err
	}

	fmt.Printf("sampled %d + %d soldiers for %s vs %s -> %s\n",
		len(sample.SideA.SoldierIDs), len(sample.SideB.SoldierIDs), component, rival, path)
	return nil
}

// collisionLevels finds the colliding (level, value) pairs for rival in
// the component's collision index.
func collisionLevels(corpusDir, component, rival string) ([]types.CollisionLevel, error) {
	hierarchy, _, err := corpus.LoadHierarchy(corpusDir, component)
	if err != nil {
		return nil, err
	}
	for _, entry := range hierarchy.CollisionIndex {
		if entry.Rival == rival {
			return entry.Levels, nil
		}
	}
	return nil, fmt.Errorf("%s has no collision index entry for %s", component, rival)
}

func init() {
	sampleCmd.Flags().String("corpus-dir", "corpus", "base directory for the training corpus")
	sampleCmd.Flags().String("work-dir", "work", "directory for run state (samples/, checkpoints.db)")
	sampleCmd.Flags().Int("target", 20, "soldiers to sample per side")
	sampleCmd.Flags().Int64("seed", 0, "sampling seed; identical seed and corpus reproduce the sample")

	rootCmd.AddCommand(sampleCmd)
}
