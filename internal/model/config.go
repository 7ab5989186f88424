package model

import "time"

// Config holds the complete engine configuration.
//
// Configuration is re-read on every pass (the engine holds a loader, not
// a cached copy), so provider lists, weights and thresholds take effect
// on the next run without a restart.
type Config struct {
	Providers   []ProviderConfig  `yaml:"providers" mapstructure:"providers"`
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	Verify      VerifyConfig      `yaml:"verify" mapstructure:"verify"`
	Similarity  SimilarityConfig  `yaml:"similarity" mapstructure:"similarity"`
	Correlation CorrelationConfig `yaml:"correlation" mapstructure:"correlation"`
	Ledger      LedgerConfig      `yaml:"ledger" mapstructure:"ledger"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Proxy       ProxyConfig       `yaml:"proxy" mapstructure:"proxy"`
}

// ProviderConfig configures one verification provider
type ProviderConfig struct {
	Name    string  `yaml:"name" mapstructure:"name"`
	Type    string  `yaml:"type" mapstructure:"type"` // openai, anthropic, ollama, static
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	Weight  float64 `yaml:"weight" mapstructure:"weight"` // Static reliability weight for the vote

	Model   string        `yaml:"model,omitempty" mapstructure:"model"`
	APIKey  string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per-call bound

	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
}

// ExtractionConfig controls claim extraction
type ExtractionConfig struct {
	MaxClaims   int    `yaml:"max_claims" mapstructure:"max_claims"`
	MinSentence int    `yaml:"min_sentence" mapstructure:"min_sentence"` // Minimum sentence length in characters
	MaxSentence int    `yaml:"max_sentence" mapstructure:"max_sentence"`
	UseLLM      bool   `yaml:"use_llm" mapstructure:"use_llm"`
	LLMModel    string `yaml:"llm_model,omitempty" mapstructure:"llm_model"`
	LLMAPIKey   string `yaml:"llm_api_key,omitempty" mapstructure:"llm_api_key"`
	LLMBaseURL  string `yaml:"llm_base_url,omitempty" mapstructure:"llm_base_url"`
}

// VerifyConfig controls the verification orchestrator
type VerifyConfig struct {
	RetryBackoff    time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"` // Backoff before the single timeout retry
	ReviewThreshold float64       `yaml:"review_threshold" mapstructure:"review_threshold"`

	// Circuit breaker, per provider
	BreakerWindow     time.Duration `yaml:"breaker_window" mapstructure:"breaker_window"`
	BreakerErrorRate  float64       `yaml:"breaker_error_rate" mapstructure:"breaker_error_rate"`
	BreakerMinSamples int           `yaml:"breaker_min_samples" mapstructure:"breaker_min_samples"`
	Cooldown          time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
}

// SimilarityConfig controls fingerprint comparison
type SimilarityConfig struct {
	DuplicateThreshold float64       `yaml:"duplicate_threshold" mapstructure:"duplicate_threshold"`
	HashWeight         float64       `yaml:"hash_weight" mapstructure:"hash_weight"`
	KeywordWeight      float64       `yaml:"keyword_weight" mapstructure:"keyword_weight"`
	CandidateWindow    time.Duration `yaml:"candidate_window" mapstructure:"candidate_window"`
	KeywordCount       int           `yaml:"keyword_count" mapstructure:"keyword_count"`
}

// CorrelationConfig controls story clustering
type CorrelationConfig struct {
	JoinThreshold float64       `yaml:"join_threshold" mapstructure:"join_threshold"`
	StaleAfter    time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
}

// LedgerConfig controls source credibility tracking
type LedgerConfig struct {
	Decay        float64 `yaml:"decay" mapstructure:"decay"`                 // EWMA decay factor
	DefaultScore float64 `yaml:"default_score" mapstructure:"default_score"` // Neutral prior for unknown sources

	// Optional tier priors seed well-known source classes above or
	// below the neutral default.
	PrimarySources   []string `yaml:"primary_sources,omitempty" mapstructure:"primary_sources"`
	SecondarySources []string `yaml:"secondary_sources,omitempty" mapstructure:"secondary_sources"`
	PrimaryPrior     float64  `yaml:"primary_prior" mapstructure:"primary_prior"`
	SecondaryPrior   float64  `yaml:"secondary_prior" mapstructure:"secondary_prior"`
}

// StorageConfig controls persistence
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite database path; empty disables persistence
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	VerifyWorkers int `yaml:"verify_workers" mapstructure:"verify_workers"` // Concurrent article verifications
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
}

// ProxyConfig holds outbound proxy settings for provider HTTP clients
type ProxyConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{},
		Extraction: ExtractionConfig{
			MaxClaims:   10,
			MinSentence: 30,
			MaxSentence: 500,
		},
		Verify: VerifyConfig{
			RetryBackoff:      500 * time.Millisecond,
			ReviewThreshold:   0.4,
			BreakerWindow:     time.Minute,
			BreakerErrorRate:  0.5,
			BreakerMinSamples: 5,
			Cooldown:          30 * time.Second,
		},
		Similarity: SimilarityConfig{
			DuplicateThreshold: 0.9,
			HashWeight:         0.4,
			KeywordWeight:      0.6,
			CandidateWindow:    72 * time.Hour,
			KeywordCount:       24,
		},
		Correlation: CorrelationConfig{
			JoinThreshold: 0.7,
			StaleAfter:    72 * time.Hour,
		},
		Ledger: LedgerConfig{
			Decay:          0.95,
			DefaultScore:   0.5,
			PrimaryPrior:   0.65,
			SecondaryPrior: 0.55,
		},
		Storage: StorageConfig{
			Path: "",
		},
		Concurrency: ConcurrencyConfig{
			VerifyWorkers: 8,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
