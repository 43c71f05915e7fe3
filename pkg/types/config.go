// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AIConfig holds shared settings for stages that call the extraction API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for a failed extraction
	// call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CallTimeout bounds a single extraction call (default 120s).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`
}

// SamplingConfig holds settings for collision sampling.
type SamplingConfig struct {
	// TargetPerSide is the number of soldiers to sample per collision
	// side (default 20).
	TargetPerSide int `json:"target_per_side" yaml:"target_per_side"`

	// TierWeights overrides the default per-tier allocation weights.
	// Missing entries fall back to the defaults.
	TierWeights map[DifficultyTier]float64 `json:"tier_weights,omitempty" yaml:"tier_weights,omitempty"`

	// Seed drives deterministic sampling. Same seed and inputs produce
	// an identical sample.
	Seed int64 `json:"seed" yaml:"seed"`
}

// BatchingConfig holds settings for token-budget batching.
type BatchingConfig struct {
	// MaxTokens is the per-batch token budget (default 8000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// GenerationConfig holds settings for the dual-run generation stage.
type GenerationConfig struct {
	AIConfig `yaml:",inline"`

	// CorpusDir is the base directory for training input (contains
	// soldiers/, hierarchy/, ground-truth.yaml).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`

	// WorkDir holds run state (contains checkpoints.db, samples/).
	WorkDir string `json:"work_dir" yaml:"work_dir"`
}

// AssemblyConfig holds settings for resolver assembly.
type AssemblyConfig struct {
	// ArtifactsDir is the directory resolver artifacts are written to.
	ArtifactsDir string `json:"artifacts_dir" yaml:"artifacts_dir"`

	// RegistryPath is the SQLite registry database path.
	RegistryPath string `json:"registry_path" yaml:"registry_path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Sampling   SamplingConfig   `json:"sampling" yaml:"sampling"`
	Batching   BatchingConfig   `json:"batching" yaml:"batching"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Assembly   AssemblyConfig   `json:"assembly" yaml:"assembly"`
}
