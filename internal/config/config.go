// Package config loads and validates the YAML configuration for the DJ.
// Every tunable the engine exposes lives here; components receive their
// validated sub-configs at construction and never read files themselves.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/localfm/airdj/infrastructure/intro"
	"github.com/localfm/airdj/infrastructure/referee"
	"github.com/localfm/airdj/infrastructure/selection"
)

var validate = validator.New()

// Duration wraps time.Duration so YAML can carry values like "30s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LLMConfig describes one model endpoint.
type LLMConfig struct {
	// Provider selects the backend implementation.
	Provider string `yaml:"provider" validate:"required,oneof=ollama openai anthropic google"`

	// Model overrides the provider's default model when set.
	Model string `yaml:"model"`

	// APIKey authenticates hosted providers. Ignored for ollama.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider endpoint, e.g. a remote Ollama host.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// Timeout bounds a single request.
	Timeout Duration `yaml:"timeout"`
}

// ModelsConfig assigns an endpoint to each engine role. The two passes
// should differ in model or temperature for the duel to be worth running;
// the referee defaults to the first pass's endpoint when left empty.
type ModelsConfig struct {
	PassA   LLMConfig  `yaml:"pass_a" validate:"required"`
	PassB   LLMConfig  `yaml:"pass_b" validate:"required"`
	Referee *LLMConfig `yaml:"referee"`
}

// RateLimitConfig paces outbound model requests.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"required,gt=0"`
	Burst             int     `yaml:"burst" validate:"required,min=1"`
}

// RetryConfig controls the retry middleware.
type RetryConfig struct {
	MaxRetries int      `yaml:"max_retries" validate:"min=0,max=10"`
	BaseDelay  Duration `yaml:"base_delay"`
	MaxDelay   Duration `yaml:"max_delay"`
}

// LibraryConfig points at the music collection.
type LibraryConfig struct {
	// Dir is the root of the recursive scan.
	Dir string `yaml:"dir" validate:"required"`

	// SampleSize is how many candidates each selection round sees.
	SampleSize int `yaml:"sample_size" validate:"required,min=2,max=50"`

	// ExcludeSameArtist keeps the fallback pick away from the current
	// artist.
	ExcludeSameArtist bool `yaml:"exclude_same_artist"`

	// Watch enables the fsnotify watcher so new files join the pool
	// without a restart.
	Watch bool `yaml:"watch"`
}

// SessionConfig controls the play loop.
type SessionConfig struct {
	// HistoryPath is the append-only SONG/INTRO log. Empty disables it.
	HistoryPath string `yaml:"history_path"`

	// MaxTracks stops the session after that many tracks; zero runs until
	// cancelled.
	MaxTracks int `yaml:"max_tracks" validate:"min=0"`

	// UseMetadata enables Wikipedia/AllMusic enrichment of intro prompts.
	UseMetadata bool `yaml:"use_metadata"`
}

// Config is the full configuration tree.
type Config struct {
	Models    ModelsConfig          `yaml:"models"`
	RateLimit RateLimitConfig       `yaml:"rate_limit"`
	Retry     RetryConfig           `yaml:"retry"`
	Selection selection.Config      `yaml:"selection"`
	Referee   referee.Config        `yaml:"referee"`
	Validator intro.ValidatorConfig `yaml:"validator"`
	Duel      intro.DuelConfig      `yaml:"duel"`
	Library   LibraryConfig         `yaml:"library"`
	Session   SessionConfig         `yaml:"session"`
}

// Default returns a complete configuration aimed at a local Ollama server.
func Default() Config {
	ollama := LLMConfig{
		Provider: "ollama",
		Timeout:  Duration(120 * time.Second),
	}
	return Config{
		Models: ModelsConfig{
			PassA: ollama,
			PassB: ollama,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 2, Burst: 4},
		Retry: RetryConfig{
			MaxRetries: 2,
			BaseDelay:  Duration(500 * time.Millisecond),
			MaxDelay:   Duration(8 * time.Second),
		},
		Selection: selection.DefaultConfig(),
		Referee:   referee.DefaultConfig(),
		Validator: intro.DefaultValidatorConfig(),
		Duel:      intro.DefaultDuelConfig(),
		Library: LibraryConfig{
			Dir:        "./music",
			SampleSize: 8,
		},
		Session: SessionConfig{
			HistoryPath: "history.log",
			UseMetadata: true,
		},
	}
}

// Load reads path over the defaults and validates the result. A missing
// path returns validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
