// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble builds the per-component resolver artifact from the
// reconciled extraction output, the parsed hierarchy, and the
// deterministic exclusion rules, gated by the component's tier mode.
// Implements: prd006-assembly (R1-R5);
//
//	docs/ARCHITECTURE § Assembly.
package assemble

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

// Input gathers everything assembly reads for one component.
type Input struct {
	Assignment types.TierAssignment
	Hierarchy  types.Hierarchy
	Exclusions []types.ExclusionRule
	Reconciled types.ReconciledArtifact
	CycleID    string
}

// Assemble produces the resolver artifact. Structural inputs are
// validated up front: a malformed hierarchy or exclusion rule fails the
// whole component rather than producing a partial resolver.
func Assemble(in Input, w io.Writer) (types.ResolverArtifact, error) {
	if in.Assignment.Component == "" {
		return types.ResolverArtifact{}, fmt.Errorf("assembly requires a tier assignment")
	}
	if in.Reconciled.Component != "" && in.Reconciled.Component != in.Assignment.Component {
		return types.ResolverArtifact{}, fmt.Errorf("reconciled artifact is for %s, not %s",
			in.Reconciled.Component, in.Assignment.Component)
	}
	if err := in.Hierarchy.Validate(); err != nil {
		return types.ResolverArtifact{}, fmt.Errorf("validating hierarchy: %w", err)
	}
	for _, rule := range in.Exclusions {
		if err := rule.Validate(); err != nil {
			return types.ResolverArtifact{}, fmt.Errorf("validating exclusions: %w", err)
		}
	}

	artifact := types.ResolverArtifact{
		Component:   in.Assignment.Component,
		CycleID:     in.CycleID,
		GeneratedAt: time.Now().UTC(),
		Structure: types.StructureSection{
			Status:           types.StatusComplete,
			Branch:           in.Hierarchy.Branch,
			Depth:            in.Hierarchy.Depth,
			LevelNames:       in.Hierarchy.LevelNames,
			ValidDesignators: in.Hierarchy.ValidDesignators,
		},
		Exclusions: types.ExclusionSection{
			Status: types.StatusComplete,
			Rules:  in.Exclusions,
		},
		Meta: buildMeta(in),
	}

	switch in.Assignment.Mode {
	case types.ModeHierarchyOnly:
		artifact.Patterns = types.CandidateSection{Status: types.StatusNotGenerated}
		artifact.Vocabulary = types.CandidateSection{Status: types.StatusNotGenerated}
		artifact.Differentiators = types.DifferentiatorSection{Status: types.StatusNotGenerated}
		fmt.Fprintf(w, "%s: sparse tier, structure and exclusions only\n", artifact.Component)

	case types.ModeLimited:
		patterns := robustOnly(in.Reconciled.Patterns)
		vocabulary := robustOnly(in.Reconciled.Vocabulary)
		artifact.Patterns = candidateSection(
			selfConsistencyFilter(patterns, in, "pattern", w), types.StatusLimited)
		artifact.Vocabulary = candidateSection(
			selfConsistencyFilter(vocabulary, in, "vocabulary", w), types.StatusLimited)
		artifact.Differentiators = types.DifferentiatorSection{
			Status: types.StatusLimited,
			Items:  buildDifferentiators(in, robustOnly(in.Reconciled.Differentiators), true),
		}

	case types.ModeFull:
		artifact.Patterns = candidateSection(
			selfConsistencyFilter(in.Reconciled.Patterns, in, "pattern", w), types.StatusComplete)
		artifact.Vocabulary = candidateSection(
			selfConsistencyFilter(in.Reconciled.Vocabulary, in, "vocabulary", w), types.StatusComplete)
		artifact.Differentiators = types.DifferentiatorSection{
			Status: types.StatusComplete,
			Items:  buildDifferentiators(in, in.Reconciled.Differentiators, false),
		}

	default:
		return types.ResolverArtifact{}, fmt.Errorf("unknown generation mode %q", in.Assignment.Mode)
	}

	return artifact, nil
}

func candidateSection(items []types.ReconciledCandidate, status types.SectionStatus) types.CandidateSection {
	return types.CandidateSection{Status: status, Items: items}
}

// robustOnly keeps candidates present in both runs at equal confidence.
// Limited mode carries nothing weaker.
func robustOnly(candidates []types.ReconciledCandidate) []types.ReconciledCandidate {
	var out []types.ReconciledCandidate
	for _, rc := range candidates {
		if rc.Robustness == types.RobustnessRobust {
			out = append(out, rc)
		}
	}
	return out
}

// selfConsistencyFilter removes candidates whose trigger terms collide
// with the component's own exclusion rules. A resolver must never assert
// a term its exclusions would fire on.
func selfConsistencyFilter(candidates []types.ReconciledCandidate, in Input, kind string, w io.Writer) []types.ReconciledCandidate {
	var out []types.ReconciledCandidate
	for _, rc := range candidates {
		if rule, term, conflict := exclusionConflict(rc, in); conflict {
			fmt.Fprintf(w, "%s: removed %s candidate %s: conflicts with exclusion %s (term %q)\n",
				in.Assignment.Component, kind, rc.Key, rule, term)
			continue
		}
		out = append(out, rc)
	}
	return out
}

// exclusionConflict reports whether a candidate's key or cited quotes
// overlap any if_contains term of a rule excluding this component.
func exclusionConflict(rc types.ReconciledCandidate, in Input) (ruleID, term string, conflict bool) {
	triggers := []string{rc.Key}
	for _, cit := range rc.Citations {
		if cit.Quote != "" {
			triggers = append(triggers, cit.Quote)
		}
	}

	for _, rule := range in.Exclusions {
		if rule.Excludes != in.Assignment.Component {
			continue
		}
		for _, excl := range rule.IfContains {
			for _, trig := range triggers {
				if termsOverlap(trig, excl) {
					return rule.RuleID, excl, true
				}
			}
		}
	}
	return "", "", false
}

// termsOverlap is a case-insensitive containment check in either
// direction.
func termsOverlap(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// buildDifferentiators turns reconciled differentiator candidates into
// structured rules against the collision rival. Limited mode drops the
// value-based signals and keeps only the hierarchy-derived structural
// rules and the ambiguity escape.
func buildDifferentiators(in Input, candidates []types.ReconciledCandidate, limited bool) []types.Differentiator {
	conflicts := rivalConflictSignals(in)

	var out []types.Differentiator
	for _, rc := range candidates {
		d := types.Differentiator{
			Key:             rc.Key,
			Rival:           in.Reconciled.Rival,
			StructuralRules: in.Hierarchy.StructuralDiscriminators,
			AmbiguousWhen:   ambiguityFor(rc, in),
		}
		if !limited {
			d.PositiveSignals = []types.Signal{{
				IfContains: triggerTerms(rc),
				Note:       rc.Meaning,
			}}
			d.ConflictSignals = conflicts
		}
		out = append(out, d)
	}
	return out
}

// rivalConflictSignals derives conflict triggers from rules that exclude
// this component: a term that rules the component out is positive
// evidence for the rival.
func rivalConflictSignals(in Input) []types.Signal {
	var signals []types.Signal
	for _, rule := range in.Exclusions {
		if rule.Excludes != in.Assignment.Component || len(rule.IfContains) == 0 {
			continue
		}
		signals = append(signals, types.Signal{
			IfContains: rule.IfContains,
			Note:       fmt.Sprintf("exclusion %s fires on these terms", rule.RuleID),
		})
	}
	return signals
}

// triggerTerms collects the candidate's key and cited quotes as
// presence triggers.
func triggerTerms(rc types.ReconciledCandidate) []string {
	terms := []string{rc.Key}
	for _, cit := range rc.Citations {
		if cit.Quote != "" && !strings.EqualFold(cit.Quote, rc.Key) {
			terms = append(terms, cit.Quote)
		}
	}
	return terms
}

// ambiguityFor instructs the resolver to refuse a determination when the
// reconciler left hard cases at the structural layer unresolved, or when
// the candidate itself carries only order-dependent support.
func ambiguityFor(rc types.ReconciledCandidate, in Input) string {
	if rc.Robustness == types.RobustnessOrderDependent {
		return "signal appeared in only one extraction order; do not classify on this signal alone"
	}
	if len(in.Reconciled.HardCasesByLayer[types.LayerStructuralAmbiguity]) > 0 {
		return "designators valid in both branches; classify only with corroborating vocabulary"
	}
	return ""
}

// buildMeta summarizes tiering and run health for the artifact header.
func buildMeta(in Input) types.ArtifactMeta {
	meta := types.ArtifactMeta{
		Tier:           in.Assignment.Tier,
		GenerationMode: in.Assignment.Mode,
		PctOfMedian:    in.Assignment.PctOfMedian,
		HardCaseCounts: map[types.HardCaseLayer]int{},
	}
	for layer, cases := range in.Reconciled.HardCasesByLayer {
		meta.HardCaseCounts[layer] = len(cases)
	}
	if len(in.Reconciled.FailedBatches) > 0 {
		meta.FailedBatches = map[string]int{}
		for run, batches := range in.Reconciled.FailedBatches {
			meta.FailedBatches[run] = len(batches)
		}
	}
	return meta
}

// WriteArtifact persists the artifact as pretty-printed JSON under dir,
// replacing any previous generation wholesale.
func WriteArtifact(artifact types.ResolverArtifact, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifacts directory: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling resolver artifact: %w", err)
	}

	path := filepath.Join(dir, artifact.Component+"-resolver.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing resolver artifact: %w", err)
	}
	return path, nil
}
