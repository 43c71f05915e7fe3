// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/resolver-engine/internal/assemble"
	"github.com/pdiddy/resolver-engine/internal/corpus"
	"github.com/pdiddy/resolver-engine/internal/registry"
	"github.com/pdiddy/resolver-engine/internal/tiers"
	"github.com/pdiddy/resolver-engine/pkg/types"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble [component] [rival]",
	Short: "Assemble the tier-gated resolver artifact for a component",
	Long: `Assemble merges the reconciled extraction output with the component's
hierarchy structure and deterministic exclusion rules, gated by the
component's generation mode: sparse components get structure and exclusions
only, under-represented components get robust candidates without value
signals, and the rest get the full resolver.

The artifact is written to artifacts/[component]-resolver.json and recorded
in the registry, superseding any previous generation.`,
	Args: cobra.ExactArgs(2),
	RunE: runAssemble,
}

func runAssemble(cmd *cobra.Command, args []string) error {
	component, rival := args[0], args[1]
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")
	workDir, _ := cmd.Flags().GetString("work-dir")
	artifactsDir, _ := cmd.Flags().GetString("artifacts-dir")
	registryPath, _ := cmd.Flags().GetString("registry")

	var rf reconciledFile
	if err := readYAML(reconciledPath(workDir, component, rival), &rf); err != nil {
		return fmt.Errorf("no reconciled output for %s vs %s (run generate first): %w", component, rival, err)
	}

	assignment, err := assignmentFor(corpusDir, component)
	if err != nil {
		return err
	}

	hierarchy, exclusions, err := corpus.LoadHierarchy(corpusDir, component)
	if err != nil {
		return err
	}

	artifact, err := assemble.Assemble(assemble.Input{
		Assignment: assignment,
		Hierarchy:  hierarchy,
		Exclusions: exclusions,
		Reconciled: rf.Artifact,
		CycleID:    rf.CycleID,
	}, os.Stdout)
	if err != nil {
		return err
	}

	path, err := assemble.WriteArtifact(artifact, artifactsDir)
	if err != nil {
		return err
	}

	reg, err := registry.Open(registryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.Record(context.Background(), artifact); err != nil {
		return err
	}

	fmt.Printf("assembled %s (%s, %s) -> %s\n",
		component, artifact.Meta.Tier, artifact.Meta.GenerationMode, path)
	return nil
}

// assignmentFor recomputes the tier thresholds over the whole corpus and
// returns the one component's assignment.
func assignmentFor(corpusDir, component string) (types.TierAssignment, error) {
	counts, err := corpus.Counts(corpusDir)
	if err != nil {
		return types.TierAssignment{}, err
	}
	assignments, _, err := tiers.Assign(counts)
	if err != nil {
		return types.TierAssignment{}, err
	}
	for _, a := range assignments {
		if a.Component == component {
			return a, nil
		}
	}
	return types.TierAssignment{}, fmt.Errorf("component %s has no soldiers in the corpus", component)
}

func init() {
	assembleCmd.Flags().String("corpus-dir", "corpus", "base directory for the training corpus")
	assembleCmd.Flags().String("work-dir", "work", "directory holding reconciled/ from generate")
	assembleCmd.Flags().String("artifacts-dir", "artifacts", "directory resolver artifacts are written to")
	assembleCmd.Flags().String("registry", "work/registry.db", "SQLite registry database path")

	rootCmd.AddCommand(assembleCmd)
}
