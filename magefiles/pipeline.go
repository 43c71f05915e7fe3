//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// runCLI invokes the built resolver-engine binary, building it first if
// needed.
func runCLI(args ...string) error {
	bin := filepath.Join(binDir, binName)
	if _, err := os.Stat(bin); err != nil {
		if err := Build(); err != nil {
			return err
		}
	}
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Thresholds computes representation tiers for every component in the corpus.
// See prd001-thresholds for full requirements.
func Thresholds() error {
	fmt.Println("[thresholds] Tier components by corpus representation.")
	return runCLI("thresholds")
}

// Sample draws the stratified collision sample for one rival pair.
// See prd002-sampling for full requirements.
func Sample(component, rival string) error {
	fmt.Printf("[sample] Stratified collision sample for %s vs %s.\n", component, rival)
	return runCLI("sample", component, rival)
}

// Generate runs dual-ordered extraction and reconciliation for one rival pair.
// See prd004-generation and prd005-reconciliation for full requirements.
func Generate(component, rival string) error {
	fmt.Printf("[generate] Dual-run extraction for %s vs %s.\n", component, rival)
	return runCLI("generate", component, rival)
}

// Assemble builds and registers the resolver artifact for one rival pair.
// See prd006-assembly for full requirements.
func Assemble(component, rival string) error {
	fmt.Printf("[assemble] Resolver artifact for %s.\n", component)
	return runCLI("assemble", component, rival)
}

// Status lists published resolvers and pending rebuild requests.
func Status() error {
	return runCLI("status")
}
