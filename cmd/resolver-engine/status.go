// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/resolver-engine/internal/registry"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List published resolvers and pending rebuild requests",
	Long: `Status lists every component's current resolver from the registry
(tier, generation mode, cycle, section statuses, failed batches) along with
any rebuild requests downstream consumers have filed.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	registryPath, _ := cmd.Flags().GetString("registry")

	reg, err := registry.Open(registryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	ctx := context.Background()
	entries, err := reg.List(ctx)
	if err != nil {
		return err
	}
	pending, err := reg.PendingRebuilds(ctx)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Resolvers       []registry.Entry          `json:"resolvers"`
			PendingRebuilds []registry.RebuildRequest `json:"pending_rebuilds"`
		}{entries, pending})
	}

	if len(entries) == 0 {
		fmt.Println("No resolvers published.")
	} else {
		fmt.Printf("%-24s  %-24s  %-14s  %-36s  %s\n", "Component", "Tier", "Mode", "Cycle", "Generated")
		for _, e := range entries {
			fmt.Printf("%-24s  %-24s  %-14s  %-36s  %s\n",
				e.Component, e.Tier, e.Mode, e.CycleID, e.GeneratedAt.Format("2006-01-02 15:04"))
		}
	}

	if len(pending) > 0 {
		fmt.Printf("\n%d pending rebuild request(s):\n", len(pending))
		for _, req := range pending {
			fmt.Printf("  %s: %s (%s)\n", req.Component, req.Reason, req.RequestedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [component]",
	Short: "Flag a component's resolver for regeneration",
	Long: `Rebuild files a rebuild request for a component. The request stays
pending until a new resolver is recorded for the component, which clears it.`,
	Args: cobra.ExactArgs(1),
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	registryPath, _ := cmd.Flags().GetString("registry")
	reason, _ := cmd.Flags().GetString("reason")

	reg, err := registry.Open(registryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.RequestRebuild(context.Background(), args[0], reason); err != nil {
		return err
	}
	fmt.Printf("rebuild requested for %s\n", args[0])
	return nil
}

func init() {
	statusCmd.Flags().String("registry", "work/registry.db", "SQLite registry database path")
	statusCmd.Flags().Bool("json", false, "output as JSON")

	rebuildCmd.Flags().String("registry", "work/registry.db", "SQLite registry database path")
	rebuildCmd.Flags().String("reason", "", "why the resolver needs regeneration")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rebuildCmd)
}
