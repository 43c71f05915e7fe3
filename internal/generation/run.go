// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generation

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/resolver-engine/internal/batching"
	"github.com/pdiddy/resolver-engine/pkg/types"
)

// RunID identifies one of the two extraction passes.
type RunID string

const (
	RunForward  RunID = "forward"
	RunInverted RunID = "inverted"
)

// RunState is the accumulator one run folds over its batch sequence.
// Each run exclusively owns its state; the two runs share nothing
// mutable.
type RunState struct {
	RunID RunID `json:"run_id"`

	// Candidates accumulates discovered candidates by key.
	Candidates map[string]types.Candidate `json:"candidates"`

	// HardCases accumulates flags from every batch, tagged with this run.
	HardCases []types.HardCase `json:"hard_cases"`

	// Summary is the carried cross-batch context.
	Summary string `json:"summary"`

	// LastBatch is the index of the last committed batch (-1 before any).
	// A resumed run never reprocesses a batch at or below this index.
	LastBatch int `json:"last_batch"`

	// FailedBatches are indexes that exhausted their retries. Permanent,
	// logged gaps; never revived within the same cycle.
	FailedBatches []int `json:"failed_batches,omitempty"`
}

// NewRunState returns the empty accumulator for a run.
func NewRunState(id RunID) RunState {
	return RunState{
		RunID:      id,
		Candidates: make(map[string]types.Candidate),
		LastBatch:  -1,
	}
}

// clone deep-copies the state so each transition is an explicit
// immutable fold step.
func (s RunState) clone() RunState {
	out := s
	out.Candidates = make(map[string]types.Candidate, len(s.Candidates))
	for k, v := range s.Candidates {
		out.Candidates[k] = v
	}
	out.HardCases = append([]types.HardCase(nil), s.HardCases...)
	out.FailedBatches = append([]int(nil), s.FailedBatches...)
	return out
}

// KnownCandidates returns the accumulated candidates sorted by key.
func (s RunState) KnownCandidates() []types.Candidate {
	keys := make([]string, 0, len(s.Candidates))
	for k := range s.Candidates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Candidates[k])
	}
	return out
}

// RetryPolicy is the explicit per-batch retry configuration (R2.1).
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffBase is the base duration for exponential backoff.
	BackoffBase time.Duration
}

// DefaultRetryPolicy retries a failed batch call 3 times with 1s base
// backoff.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BackoffBase: time.Second}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = DefaultRetryPolicy.BackoffBase
	}
	return p
}

// RunMeta identifies the generation cycle a run belongs to.
type RunMeta struct {
	CycleID   string
	Component string
	Rival     string
}

// Runner executes extraction runs against a backend with checkpointing.
type Runner struct {
	Backend     Backend
	Checkpoints CheckpointStore
	Policy      RetryPolicy
}

// Run executes one sequential stateful pass over batches:
// state_i = transition(state_{i-1}, batch_i). A batch that exhausts its
// retries is a logged gap: the run proceeds to the next batch from the
// last committed state, never aborts (R2.3). After every batch the state
// is checkpointed so a resumed run skips committed batches (R4.1).
func (r *Runner) Run(ctx context.Context, meta RunMeta, runID RunID, batches []types.Batch, w io.Writer) (RunState, error) {
	state := NewRunState(runID)

	if r.Checkpoints != nil {
		saved, ok, err := r.Checkpoints.Load(ctx, meta.CycleID, runID)
		if err != nil {
			return state, fmt.Errorf("loading checkpoint for %s run: %w", runID, err)
		}
		if ok {
			state = saved
			fmt.Fprintf(w, "%s: resuming after committed batch %d\n", runID, state.LastBatch)
		}
	}

	for _, batch := range batches {
		if batch.Index <= state.LastBatch {
			continue
		}

		next, err := r.transition(ctx, meta, state, batch)
		if err != nil {
			if ctx.Err() != nil {
				return state, ctx.Err()
			}
			fmt.Fprintf(w, "%s: batch %d failed after retries, continuing with batch-%d state: %v\n",
				runID, batch.Index, state.LastBatch, err)
			state = state.clone()
			state.FailedBatches = append(state.FailedBatches, batch.Index)
			state.LastBatch = batch.Index
		} else {
			state = next
			fmt.Fprintf(w, "%s: batch %d committed (%d candidates, %d hard cases)\n",
				runID, batch.Index, len(state.Candidates), len(state.HardCases))
		}

		if r.Checkpoints != nil {
			if err := r.Checkpoints.Save(ctx, meta.CycleID, state); err != nil {
				return state, fmt.Errorf("checkpointing %s batch %d: %w", runID, batch.Index, err)
			}
		}
	}

	return state, nil
}

// transition is one fold step: call the backend with the prior state and
// the batch, validate the response, and merge it into a fresh state.
func (r *Runner) transition(ctx context.Context, meta RunMeta, state RunState, batch types.Batch) (RunState, error) {
	req := Request{
		Component:            meta.Component,
		Rival:                meta.Rival,
		StateSummary:         state.Summary,
		Known:                state.KnownCandidates(),
		Batch:                batch,
		PhaseInstructions:    phaseInstructions(meta.Component, meta.Rival),
		GroundingConstraints: DefaultGroundingConstraints,
	}

	resp, err := r.callWithRetry(ctx, req, batch)
	if err != nil {
		return RunState{}, err
	}

	next := state.clone()
	for _, c := range resp.Candidates {
		existing, ok := next.Candidates[c.Key]
		// Duplicate keys keep the higher-confidence instance (R1.4).
		if !ok || c.Confidence.Rank() > existing.Confidence.Rank() {
			next.Candidates[c.Key] = c
		}
	}
	for _, hc := range resp.HardCases {
		hc.FlaggedIn = string(state.RunID)
		next.HardCases = append(next.HardCases, hc)
	}
	next.Summary = resp.Summary
	next.LastBatch = batch.Index
	return next, nil
}

// callWithRetry invokes the backend with exponential backoff. Transient
// failures and non-conforming responses both count as retryable (R2.2).
func (r *Runner) callWithRetry(ctx context.Context, req Request, batch types.Batch) (Response, error) {
	policy := r.Policy.normalized()

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * policy.BackoffBase
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := r.Backend.Extract(ctx, req)
		if err == nil {
			err = validateResponse(resp, batch)
			if err == nil {
				return resp, nil
			}
		}
		lastErr = err
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
	}
	return Response{}, fmt.Errorf("after %d retries: %w", policy.MaxRetries, lastErr)
}

// DualRunResult holds both completed run states. The reconciler is the
// sole consumer and reads them only after both runs finish.
type DualRunResult struct {
	Forward  RunState
	Inverted RunState
}

// DualRun executes the forward and inverted passes concurrently. The
// inverted batch sequence is the exact reverse of the forward one.
// Sequencing is guaranteed only within a run, never between runs.
func (r *Runner) DualRun(ctx context.Context, meta RunMeta, forward []types.Batch, w io.Writer) (DualRunResult, error) {
	lw := &lockedWriter{w: w}
	inverted := batching.Invert(forward)

	var wg sync.WaitGroup
	var result DualRunResult
	var fwdErr, invErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Forward, fwdErr = r.Run(ctx, meta, RunForward, forward, lw)
	}()
	go func() {
		defer wg.Done()
		result.Inverted, invErr = r.Run(ctx, meta, RunInverted, inverted, lw)
	}()
	wg.Wait()

	if fwdErr != nil {
		return result, fmt.Errorf("forward run: %w", fwdErr)
	}
	if invErr != nil {
		return result, fmt.Errorf("inverted run: %w", invErr)
	}
	return result, nil
}

// lockedWriter serializes progress lines from the two concurrent runs.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
