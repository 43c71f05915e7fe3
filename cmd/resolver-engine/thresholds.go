// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/resolver-engine/internal/corpus"
	"github.com/pdiddy/resolver-engine/internal/tiers"
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Compute representation tiers from per-component soldier counts",
	Long: `Thresholds counts soldiers per component in the corpus, computes the
p25/median/p75 cutoffs over the distribution, and assigns each component a
representation tier and generation mode. Components at or above 75% of the
median are never assigned sparse, regardless of p25.`,
	RunE: runThresholds,
}

func runThresholds(cmd *cobra.Command, args []string) error {
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")

	counts, err := corpus.Counts(corpusDir)
	if err != nil {
		return err
	}

	assignments, th, err := tiers.Assign(counts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Thresholds  tiers.Thresholds `json:"thresholds"`
			Assignments any              `json:"assignments"`
		}{th, assignments})
	}

	fmt.Printf("p25=%.1f median=%.1f p75=%.1f\n\n", th.P25, th.Median, th.P75)
	fmt.Printf("%-24s  %6s  %-24s  %-14s  %s\n", "Component", "Count", "Tier", "Mode", "% of median")
	for _, a := range assignments {
		fmt.Printf("%-24s  %6d  %-24s  %-14s  %.0f%%\n",
			a.Component, a.Count, a.Tier, a.Mode, a.PctOfMedian)
	}
	return nil
}

func init() {
	thresholdsCmd.Flags().String("corpus-dir", "corpus", "base directory for the training corpus (contains soldiers/)")
	thresholdsCmd.Flags().Bool("json", false, "output assignments as JSON")

	rootCmd.AddCommand(thresholdsCmd)
}
