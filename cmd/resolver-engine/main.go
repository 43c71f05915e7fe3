// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the resolver-engine CLI.
// Implements: prd001-thresholds, prd002-sampling, prd003-batching,
//             prd004-generation, prd005-reconciliation, prd006-assembly,
//             prd007-registry (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/resolver-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the resolver-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "resolver-engine",
	Short: "Generate component resolvers from ambiguous military records",
	Long: `resolver-engine orchestrates resolver generation for colliding military
components. It tiers components by corpus representation, samples the hardest
collision cases, runs dual-ordered stateful extraction against the Claude API,
reconciles the two runs, and assembles tier-gated resolver artifacts.

Each pipeline stage is a subcommand: thresholds, sample, generate, and
assemble. Use status to inspect the registry and rebuild to flag a component
for regeneration.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./resolver-engine.yaml or ~/.config/resolver-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("resolver-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "resolver-engine"))
		}
	}

	viper.SetEnvPrefix("RESOLVER_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
