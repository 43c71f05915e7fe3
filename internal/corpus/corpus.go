// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus loads the YAML training corpus: per-component soldier
// files, hierarchy files with exclusion rules, and the ground-truth map.
// Everything here is consumed as-is; the corpus is produced upstream.
// Implements: prd008-corpus (R1-R3).
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

const (
	soldiersDir     = "soldiers"
	hierarchyDir    = "hierarchy"
	groundTruthFile = "ground-truth.yaml"
)

// SoldierFile is the on-disk shape of corpus/soldiers/[component].yaml.
type SoldierFile struct {
	Component string          `yaml:"component"`
	Soldiers  []types.Soldier `yaml:"soldiers"`
}

// HierarchyFile is the on-disk shape of corpus/hierarchy/[component].yaml.
// Exclusion rules are derived upstream and ride along with the structure.
type HierarchyFile struct {
	Component  string                `yaml:"component"`
	Hierarchy  types.Hierarchy       `yaml:"hierarchy"`
	Exclusions []types.ExclusionRule `yaml:"exclusions"`
}

// groundTruthFileShape is the on-disk shape of corpus/ground-truth.yaml.
type groundTruthFileShape struct {
	GroundTruth map[string]string `yaml:"ground_truth"`
}

// LoadSoldiers reads one component's soldier file and validates every
// soldier. Errors name the file and the offending soldier.
func LoadSoldiers(corpusDir, component string) ([]types.Soldier, error) {
	path := filepath.Join(corpusDir, soldiersDir, component+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading soldier file %s: %w", path, err)
	}

	var file SoldierFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if file.Component != "" && file.Component != component {
		return nil, fmt.Errorf("%s: component field is %q, expected %q", path, file.Component, component)
	}
	if len(file.Soldiers) == 0 {
		return nil, fmt.Errorf("%s: no soldiers", path)
	}

	seen := make(map[string]bool, len(file.Soldiers))
	for _, s := range file.Soldiers {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%s: duplicate soldier id %s", path, s.ID)
		}
		seen[s.ID] = true
	}
	return file.Soldiers, nil
}

// Components lists the components that have soldier files, sorted.
func Components(corpusDir string) ([]string, error) {
	dir := filepath.Join(corpusDir, soldiersDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading soldiers directory %s: %w", dir, err)
	}

	var components []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		components = append(components, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(components)
	return components, nil
}

// Counts returns per-component soldier counts for threshold calculation.
func Counts(corpusDir string) (map[string]int, error) {
	components, err := Components(corpusDir)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(components))
	for _, component := range components {
		soldiers, err := LoadSoldiers(corpusDir, component)
		if err != nil {
			return nil, err
		}
		counts[component] = len(soldiers)
	}
	return counts, nil
}

// LoadHierarchy reads one component's hierarchy file, validating the
// structure and its exclusion rules.
func LoadHierarchy(corpusDir, component string) (types.Hierarchy, []types.ExclusionRule, error) {
	path := filepath.Join(corpusDir, hierarchyDir, component+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Hierarchy{}, nil, fmt.Errorf("reading hierarchy file %s: %w", path, err)
	}

	var file HierarchyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return types.Hierarchy{}, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if file.Component != "" && file.Component != component {
		return types.Hierarchy{}, nil, fmt.Errorf("%s: component field is %q, expected %q",
			path, file.Component, component)
	}
	if err := file.Hierarchy.Validate(); err != nil {
		return types.Hierarchy{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, rule := range file.Exclusions {
		if err := rule.Validate(); err != nil {
			return types.Hierarchy{}, nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return file.Hierarchy, file.Exclusions, nil
}

// LoadGroundTruth reads corpus/ground-truth.yaml. A missing file is not
// an error: ground truth is training-only and optional.
func LoadGroundTruth(corpusDir string) (map[string]string, error) {
	path := filepath.Join(corpusDir, groundTruthFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ground truth %s: %w", path, err)
	}

	var file groundTruthFileShape
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for soldierID, component := range file.GroundTruth {
		if component == "" {
			return nil, fmt.Errorf("%s: empty component for soldier %s", path, soldierID)
		}
	}
	if file.GroundTruth == nil {
		file.GroundTruth = map[string]string{}
	}
	return file.GroundTruth, nil
}

// RecordsByID indexes soldiers' records by soldier ID for reconciliation
// lookups.
func RecordsByID(soldiers []types.Soldier) map[string][]types.Record {
	index := make(map[string][]types.Record, len(soldiers))
	for _, s := range soldiers {
		index[s.ID] = s.Records
	}
	return index
}

// SoldiersByID indexes soldiers by ID for sample resolution.
func SoldiersByID(soldiers []types.Soldier) map[string]types.Soldier {
	index := make(map[string]types.Soldier, len(soldiers))
	for _, s := range soldiers {
		index[s.ID] = s
	}
	return index
}
