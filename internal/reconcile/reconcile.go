// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile compares the two extraction runs, classifies
// candidate robustness, validates survivors against hard cases with
// known ground truth, and enforces grounding claims.
// Implements: prd005-reconciliation (R1-R4);
//
//	docs/ARCHITECTURE § Reconciliation.
package reconcile

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdiddy/resolver-engine/internal/generation"
	"github.com/pdiddy/resolver-engine/pkg/types"
)

// Input gathers everything reconciliation reads. Both run states must be
// final: reconciliation never streams partial runs.
type Input struct {
	Component string
	Rival     string

	Forward  generation.RunState
	Inverted generation.RunState

	// GroundTruth maps hard-cased soldier IDs to their true component.
	// Training-only data; soldiers without an entry are not validated
	// against.
	GroundTruth map[string]string

	// Records maps soldier IDs to their raw records, used for hard-case
	// validation and citation verification.
	Records map[string][]types.Record
}

// Reconcile produces the cross-run artifact. Rejected candidates are
// dropped entirely, never retained (R2.4).
func Reconcile(in Input, w io.Writer) (types.ReconciledArtifact, error) {
	if in.Component == "" {
		return types.ReconciledArtifact{}, fmt.Errorf("reconcile requires a component name")
	}

	agreements := classifyHardCases(in)
	survivors := classifyRobustness(in.Forward, in.Inverted)
	survivors = validateAgainstHardCases(in, survivors, w)
	survivors = enforceGrounding(in, survivors, w)

	artifact := types.ReconciledArtifact{
		Component:        in.Component,
		Rival:            in.Rival,
		HardCasesByLayer: groupHardCases(in.Forward.HardCases, in.Inverted.HardCases),
		Agreements:       agreements,
	}

	for _, rc := range survivors {
		switch rc.Kind {
		case types.KindPattern:
			artifact.Patterns = append(artifact.Patterns, rc)
		case types.KindVocabulary:
			artifact.Vocabulary = append(artifact.Vocabulary, rc)
		case types.KindDifferentiator:
			artifact.Differentiators = append(artifact.Differentiators, rc)
		}
	}

	if len(in.Forward.FailedBatches) > 0 || len(in.Inverted.FailedBatches) > 0 {
		artifact.FailedBatches = map[string][]int{}
		if len(in.Forward.FailedBatches) > 0 {
			artifact.FailedBatches[string(generation.RunForward)] = in.Forward.FailedBatches
		}
		if len(in.Inverted.FailedBatches) > 0 {
			artifact.FailedBatches[string(generation.RunInverted)] = in.Inverted.FailedBatches
		}
	}

	return artifact, nil
}

// classifyRobustness assigns each candidate key its cross-run class
// (R2.1-R2.3): both runs at equal confidence -> robust; both at
// differing confidence -> validated with averaged confidence; exactly
// one run -> order_dependent with confidence demoted one level.
func classifyRobustness(forward, inverted generation.RunState) []types.ReconciledCandidate {
	keys := make(map[string]bool)
	for k := range forward.Candidates {
		keys[k] = true
	}
	for k := range inverted.Candidates {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var out []types.ReconciledCandidate
	for _, key := range sorted {
		fwd, inFwd := forward.Candidates[key]
		inv, inInv := inverted.Candidates[key]

		switch {
		case inFwd && inInv && fwd.Confidence == inv.Confidence:
			out = append(out, types.ReconciledCandidate{
				Candidate:  fwd,
				Robustness: types.RobustnessRobust,
			})
		case inFwd && inInv:
			merged := fwd
			merged.Confidence = types.AverageConfidence(fwd.Confidence, inv.Confidence)
			out = append(out, types.ReconciledCandidate{
				Candidate:  merged,
				Robustness: types.RobustnessValidated,
			})
		default:
			only := fwd
			if !inFwd {
				only = inv
			}
			only.Confidence = only.Confidence.Demote()
			out = append(out, types.ReconciledCandidate{
				Candidate:  only,
				Robustness: types.RobustnessOrderDependent,
			})
		}
	}
	return out
}

// hardCaseKey dedupes flags across runs.
type hardCaseKey struct {
	soldierID string
	layer     types.HardCaseLayer
}

// classifyHardCases labels each flagged (soldier, layer) as both /
// run_forward_only / run_inverted_only, and for exclusive flags makes a
// best-effort identification of the other run's candidate that plausibly
// resolved it (R1.1, R1.2). Identification is non-blocking: an
// inconclusive search leaves ResolvedBy empty.
func classifyHardCases(in Input) []types.HardCaseAgreement {
	fwdFlags := flagSet(in.Forward.HardCases)
	invFlags := flagSet(in.Inverted.HardCases)

	all := make(map[hardCaseKey]bool)
	for k := range fwdFlags {
		all[k] = true
	}
	for k := range invFlags {
		all[k] = true
	}

	sorted := make([]hardCaseKey, 0, len(all))
	for k := range all {
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].soldierID != sorted[j].soldierID {
			return sorted[i].soldierID < sorted[j].soldierID
		}
		return sorted[i].layer < sorted[j].layer
	})

	var agreements []types.HardCaseAgreement
	for _, k := range sorted {
		agreement := types.HardCaseAgreement{
			SoldierID: k.soldierID,
			Layer:     k.layer,
		}

		switch {
		case fwdFlags[k] && invFlags[k]:
			agreement.Agreement = types.AgreementBoth
		case fwdFlags[k]:
			agreement.Agreement = types.AgreementForwardOnly
			agreement.ResolvedBy, agreement.Note = findResolver(
				k.soldierID, in.Records, in.Inverted, in.Forward, string(generation.RunInverted))
		default:
			agreement.Agreement = types.AgreementInvertedOnly
			agreement.ResolvedBy, agreement.Note = findResolver(
				k.soldierID, in.Records, in.Forward, in.Inverted, string(generation.RunForward))
		}

		agreements = append(agreements, agreement)
	}
	return agreements
}

func flagSet(cases []types.HardCase) map[hardCaseKey]bool {
	set := make(map[hardCaseKey]bool, len(cases))
	for _, hc := range cases {
		set[hardCaseKey{hc.SoldierID, hc.Layer}] = true
	}
	return set
}

// findResolver looks for a candidate present only in the resolving run
// whose trigger matches the soldier's records.
func findResolver(soldierID string, records map[string][]types.Record, resolving, flagging generation.RunState, runName string) (string, string) {
	recs, ok := records[soldierID]
	if !ok {
		return "", ""
	}

	keys := make([]string, 0, len(resolving.Candidates))
	for k := range resolving.Candidates {
		if _, shared := flagging.Candidates[k]; !shared {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		if candidateMatches(resolving.Candidates[key], recs) {
			note := fmt.Sprintf("candidate %s, present only in the %s run, matches this soldier's records", key, runName)
			return key, note
		}
	}
	return "", ""
}

// validateAgainstHardCases drops any candidate that yields a wrong or
// absent determination on a hard case with known ground truth,
// regardless of its robustness class (R3.1). A record lookup miss
// excludes that soldier from validation; it never counts as validated.
func validateAgainstHardCases(in Input, candidates []types.ReconciledCandidate, w io.Writer) []types.ReconciledCandidate {
	soldierIDs := hardCaseSoldiers(in.Forward.HardCases, in.Inverted.HardCases)

	var kept []types.ReconciledCandidate
	for _, rc := range candidates {
		rejected := false
		for _, soldierID := range soldierIDs {
			truth, haveTruth := in.GroundTruth[soldierID]
			if !haveTruth {
				continue
			}
			recs, ok := in.Records[soldierID]
			if !ok {
				fmt.Fprintf(w, "warning: hard case %s: record lookup miss, excluded from validation\n", soldierID)
				continue
			}

			matched := candidateMatches(rc.Candidate, recs)
			wrong := matched && truth != in.Component
			absent := !matched && truth == in.Component
			if wrong || absent {
				verdict := "absent"
				if wrong {
					verdict = "wrong"
				}
				fmt.Fprintf(w, "rejected %s candidate %s: %s determination on hard case %s (truth %s)\n",
					rc.Kind, rc.Key, verdict, soldierID, truth)
				rejected = true
				break
			}
		}
		if !rejected {
			kept = append(kept, rc)
		}
	}
	return kept
}

// enforceGrounding verifies observed candidates' citations against the
// raw records. A claim whose cited records do not contain the quoted
// text is demoted to inferred with a note, never silently retained as
// observed (R4.1, R4.2). Only presence is ever checked: there is no
// absence-based evidence.
func enforceGrounding(in Input, candidates []types.ReconciledCandidate, w io.Writer) []types.ReconciledCandidate {
	out := make([]types.ReconciledCandidate, len(candidates))
	for i, rc := range candidates {
		if rc.Provenance != types.ProvenanceObserved {
			out[i] = rc
			continue
		}

		var failure string
		for _, cit := range rc.Citations {
			rec, ok := findRecord(in.Records[cit.SoldierID], cit.RecordID)
			if !ok {
				failure = fmt.Sprintf("cited record %s/%s not found", cit.SoldierID, cit.RecordID)
				break
			}
			if !strings.Contains(strings.ToLower(rec.Text), strings.ToLower(cit.Quote)) {
				failure = fmt.Sprintf("cited record %s/%s does not contain %q", cit.SoldierID, cit.RecordID, cit.Quote)
				break
			}
		}

		if failure != "" {
			fmt.Fprintf(w, "demoted candidate %s to inferred: %s\n", rc.Key, failure)
			rc.Provenance = types.ProvenanceInferred
			if rc.Note != "" {
				rc.Note += "; "
			}
			rc.Note += "grounding check failed: " + failure
		}
		out[i] = rc
	}
	return out
}

// candidateMatches reports whether the candidate's presence triggers
// fire on the records: its key or any cited quote appears in the text.
func candidateMatches(c types.Candidate, records []types.Record) bool {
	terms := []string{c.Key}
	for _, cit := range c.Citations {
		if cit.Quote != "" {
			terms = append(terms, cit.Quote)
		}
	}

	for _, rec := range records {
		text := strings.ToLower(rec.Text)
		for _, term := range terms {
			if term != "" && strings.Contains(text, strings.ToLower(term)) {
				return true
			}
		}
	}
	return false
}

func findRecord(records []types.Record, recordID string) (types.Record, bool) {
	for _, rec := range records {
		if rec.ID == recordID {
			return rec, true
		}
	}
	return types.Record{}, false
}

// hardCaseSoldiers returns the union of flagged soldier IDs, sorted.
func hardCaseSoldiers(forward, inverted []types.HardCase) []string {
	set := make(map[string]bool)
	for _, hc := range forward {
		set[hc.SoldierID] = true
	}
	for _, hc := range inverted {
		set[hc.SoldierID] = true
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// groupHardCases merges both runs' flags by layer, preserving which run
// flagged each.
func groupHardCases(forward, inverted []types.HardCase) map[types.HardCaseLayer][]types.HardCase {
	grouped := make(map[types.HardCaseLayer][]types.HardCase)
	for _, hc := range append(append([]types.HardCase{}, forward...), inverted...) {
		grouped[hc.Layer] = append(grouped[hc.Layer], hc)
	}
	for _, cases := range grouped {
		sort.Slice(cases, func(i, j int) bool {
			if cases[i].SoldierID != cases[j].SoldierID {
				return cases[i].SoldierID < cases[j].SoldierID
			}
			return cases[i].FlaggedIn < cases[j].FlaggedIn
		})
	}
	return grouped
}
