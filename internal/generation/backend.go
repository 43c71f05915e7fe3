// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generation runs the dual-ordered stateful extraction passes
// that discover candidate patterns, vocabulary, and differentiators.
// Implements: prd004-generation (R1-R6);
//
//	docs/ARCHITECTURE § Dual-Run Orchestration.
package generation

import (
	"context"
	"fmt"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

// Request is one extraction call: the current batch plus the prior
// accumulated state, phase instructions, and grounding constraints.
type Request struct {
	Component string
	Rival     string

	// StateSummary is the carried summary from the previous batches of
	// this run. Empty on the first batch.
	StateSummary string

	// Known lists the candidates accumulated so far, sorted by key.
	Known []types.Candidate

	// Batch carries the soldiers to analyze in this call.
	Batch types.Batch

	// PhaseInstructions names what to discover: patterns, vocabulary,
	// and differentiators between Component and Rival.
	PhaseInstructions string

	// GroundingConstraints are the epistemic rules the backend must obey.
	GroundingConstraints []string
}

// Response is the structured extraction result for one batch.
type Response struct {
	Candidates []types.Candidate `json:"candidates"`
	HardCases  []types.HardCase  `json:"hard_cases"`

	// Summary is the updated carried state summary.
	Summary string `json:"summary"`
}

// Backend abstracts the extraction capability so tests can supply a mock.
type Backend interface {
	Extract(ctx context.Context, req Request) (Response, error)
}

// DefaultGroundingConstraints are sent with every extraction call.
// Presence-only evidence is the core epistemic rule: the absence of a
// term is never citable.
var DefaultGroundingConstraints = []string{
	"Mark a candidate observed only when you can cite the exact record text; otherwise mark it inferred.",
	"Cite soldier_id, record_id, and the verbatim quote for every observed candidate.",
	"Never use the absence of a term as evidence for any claim.",
	"Flag a soldier as a hard case only with the difficulty layer responsible and a concrete reason.",
}

// validateResponse is the schema gate applied before a response is
// accepted. A violation is a retryable failure of the whole call, never
// a partial best-effort parse (R3.2).
func validateResponse(resp Response, batch types.Batch) error {
	for _, c := range resp.Candidates {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("non-conforming response: %w", err)
		}
	}

	inBatch := make(map[string]bool, len(batch.Groups))
	for _, g := range batch.Groups {
		inBatch[g.SoldierID] = true
	}
	for _, hc := range resp.HardCases {
		if err := hc.Validate(); err != nil {
			return fmt.Errorf("non-conforming response: %w", err)
		}
		if !inBatch[hc.SoldierID] {
			return fmt.Errorf("non-conforming response: hard case for soldier %s outside batch %d",
				hc.SoldierID, batch.Index)
		}
	}
	return nil
}
