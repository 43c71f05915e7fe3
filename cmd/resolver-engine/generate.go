// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/resolver-engine/internal/batching"
	"github.com/pdiddy/resolver-engine/internal/corpus"
	"github.com/pdiddy/resolver-engine/internal/generation"
	"github.com/pdiddy/resolver-engine/internal/reconcile"
	"github.com/pdiddy/resolver-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate [component] [rival]",
	Short: "Run dual-ordered extraction and reconciliation for a rival pair",
	Long: `Generate batches the sampled soldiers under the token budget, runs two
independent stateful extraction passes (forward and inverted batch order)
against the Claude API, and reconciles them: robustness classification,
ground-truth validation over the hard cases, and grounding enforcement.

Each cycle gets a UUID. Run state is checkpointed after every batch; use
--resume with a cycle ID to continue an interrupted cycle without
reprocessing committed batches. The reconciled artifact is written to
work/reconciled/ for the assemble stage.`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	component, rival := args[0], args[1]
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")
	workDir, _ := cmd.Flags().GetString("work-dir")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	resume, _ := cmd.Flags().GetString("resume")

	cfg := generationConfig(cmd)
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: set --api-key, generation.api_key, or .secrets/anthropic-api-key")
	}

	soldiers, err := corpus.LoadSoldiers(corpusDir, component)
	if err != nil {
		return err
	}
	rivalSoldiers, err := corpus.LoadSoldiers(corpusDir, rival)
	if err != nil {
		return err
	}

	var sf sampleFile
	if err := readYAML(samplePath(workDir, component, rival), &sf); err != nil {
		return fmt.Errorf("no sample for %s vs %s (run sample first): %w", component, rival, err)
	}

	sideA, err := resolveSample(sf.Sample.SideA.SoldierIDs, corpus.SoldiersByID(soldiers))
	if err != nil {
		return err
	}
	sideB, err := resolveSample(sf.Sample.SideB.SoldierIDs, corpus.SoldiersByID(rivalSoldiers))
	if err != nil {
		return err
	}

	// Both sides go into one batch sequence so extraction sees the rival's
	// records too. Rival-side soldiers can then surface as hard cases, and
	// their records back the citation and validation lookups below.
	batches, err := batching.PackPair(component, sideA, rival, sideB, maxTokens, types.OrderForward)
	if err != nil {
		return err
	}

	cycleID := resume
	if cycleID == "" {
		cycleID = uuid.NewString()
		fmt.Printf("starting cycle %s: %d soldiers (%d + %d rival) in %d batches\n",
			cycleID, len(sideA)+len(sideB), len(sideA), len(sideB), len(batches))
	} else {
		fmt.Printf("resuming cycle %s\n", cycleID)
	}

	checkpoints, err := generation.OpenCheckpoints(workDir)
	if err != nil {
		return err
	}
	defer checkpoints.Close()

	runner := &generation.Runner{
		Backend: &generation.ClaudeBackend{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			CallTimeout: cfg.CallTimeout,
		},
		Checkpoints: checkpoints,
		Policy:      generation.RetryPolicy{MaxRetries: cfg.MaxRetries},
	}

	meta := generation.RunMeta{CycleID: cycleID, Component: component, Rival: rival}
	result, err := runner.DualRun(context.Background(), meta, batches, os.Stdout)
	if err != nil {
		return err
	}

	groundTruth, err := corpus.LoadGroundTruth(corpusDir)
	if err != nil {
		return err
	}

	records := corpus.RecordsByID(soldiers)
	for id, recs := range corpus.RecordsByID(rivalSoldiers) {
		records[id] = recs
	}

	artifact, err := reconcile.Reconcile(reconcile.Input{
		Component:   component,
		Rival:       rival,
		Forward:     result.Forward,
		Inverted:    result.Inverted,
		GroundTruth: groundTruth,
		Records:     records,
	}, os.Stdout)
	if err != nil {
		return err
	}

	path := reconciledPath(workDir, component, rival)
	if err := writeYAML(path, reconciledFile{CycleID: cycleID, Artifact: artifact}); err != nil {
		return err
	}

	fmt.Printf("cycle %s reconciled: %d patterns, %d vocabulary, %d differentiators -> %s\n",
		cycleID, len(artifact.Patterns), len(artifact.Vocabulary), len(artifact.Differentiators), path)
	for run, failed := range artifact.FailedBatches {
		fmt.Fprintf(os.Stderr, "warning: %s run has %d failed batch(es): %v\n", run, len(failed), failed)
	}
	return nil
}

// resolveSample maps sampled soldier IDs back to full soldiers.
func resolveSample(ids []string, index map[string]types.Soldier) ([]types.Soldier, error) {
	soldiers := make([]types.Soldier, 0, len(ids))
	for _, id := range ids {
		s, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("sampled soldier %s not in corpus; corpus changed since sampling", id)
		}
		soldiers = append(soldiers, s)
	}
	return soldiers, nil
}

// generationConfig merges flags, config file, and secrets for the
// extraction backend.
func generationConfig(cmd *cobra.Command) types.AIConfig {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("generation.model")
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = viper.GetString("generation.api_key")
	}
	apiKey = secretDefault("anthropic-api-key", apiKey)

	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	timeout, _ := cmd.Flags().GetDuration("call-timeout")

	return types.AIConfig{
		Model:       model,
		APIKey:      apiKey,
		MaxRetries:  maxRetries,
		CallTimeout: timeout,
	}
}

func init() {
	generateCmd.Flags().String("corpus-dir", "corpus", "base directory for the training corpus")
	generateCmd.Flags().String("work-dir", "work", "directory for run state (samples/, checkpoints.db, reconciled/)")
	generateCmd.Flags().String("model", "", "AI model identifier for extraction")
	generateCmd.Flags().String("api-key", "", "Anthropic API key (default: .secrets/anthropic-api-key)")
	generateCmd.Flags().Int("max-tokens", batching.DefaultMaxTokens, "per-batch token budget")
	generateCmd.Flags().Int("max-retries", 3, "retries per failed batch call")
	generateCmd.Flags().Duration("call-timeout", 120*time.Second, "timeout for a single extraction call")
	generateCmd.Flags().String("resume", "", "cycle ID to resume from checkpoints")

	rootCmd.AddCommand(generateCmd)
}
