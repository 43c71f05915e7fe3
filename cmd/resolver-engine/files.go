// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

const (
	samplesDir    = "samples"
	reconciledDir = "reconciled"
)

// sampleFile is the on-disk shape of work/samples/[pair].yaml.
type sampleFile struct {
	Sample types.CollisionSample `yaml:"sample"`
}

// reconciledFile is the on-disk shape of work/reconciled/[pair].yaml. The
// cycle ID travels with the artifact so assembly can stamp it.
type reconciledFile struct {
	CycleID  string                   `yaml:"cycle_id"`
	Artifact types.ReconciledArtifact `yaml:"artifact"`
}

func pairName(component, rival string) string {
	return component + "-vs-" + rival + ".yaml"
}

func samplePath(workDir, component, rival string) string {
	return filepath.Join(workDir, samplesDir, pairName(component, rival))
}

func reconciledPath(workDir, component, rival string) string {
	return filepath.Join(workDir, reconciledDir, pairName(component, rival))
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
