// Package config loads the analysis configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/proposal-mcp/internal/chunker"
	"github.com/dshills/proposal-mcp/internal/coverage"
	"github.com/dshills/proposal-mcp/internal/merge"
	"github.com/dshills/proposal-mcp/internal/oracle"
	"github.com/dshills/proposal-mcp/internal/router"
	"github.com/dshills/proposal-mcp/internal/terms"
)

// ErrInvalidConfig is returned by Validate. It is fatal for a run.
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables read by ApplyEnv
const (
	EnvDBPath         = "PROPOSAL_DB_PATH"
	EnvOracleProvider = "PROPOSAL_ORACLE_PROVIDER"
	EnvOracleModel    = "PROPOSAL_ORACLE_MODEL"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvAnthropicKey   = "ANTHROPIC_API_KEY"
	EnvGeminiKey      = "GEMINI_API_KEY"
)

// Config is the complete run configuration
type Config struct {
	DBPath    string         `yaml:"db_path"`
	OutputDir string         `yaml:"output_dir"`
	Logging   LoggingConfig  `yaml:"logging"`
	Oracle    OracleConfig   `yaml:"oracle"`
	Chunking  ChunkingConfig `yaml:"chunking"`
	Analysis  AnalysisConfig `yaml:"analysis"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// OracleConfig selects and tunes the language-model provider
type OracleConfig struct {
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	MaxRetries   int     `yaml:"max_retries"`
	CacheSize    int     `yaml:"cache_size"`
	ReplyStore   string  `yaml:"reply_store"`
	AnthropicKey string  `yaml:"-"`
	OpenAIKey    string  `yaml:"-"`
	GeminiKey    string  `yaml:"-"`
}

// ChunkingConfig sizes the paragraph and window chunkers
type ChunkingConfig struct {
	ParagraphSize int `yaml:"paragraph_size"`
	WindowSize    int `yaml:"window_size"`
	WindowOverlap int `yaml:"window_overlap"`
}

// AnalysisConfig holds thresholds and pipeline switches
type AnalysisConfig struct {
	Workers           int      `yaml:"workers"`
	CoverageThreshold float64  `yaml:"coverage_threshold"`
	CoverageSignals   []string `yaml:"coverage_signals"`
	CriteriaThreshold float64  `yaml:"criteria_threshold"`
	ThemeThreshold    float64  `yaml:"theme_threshold"`
	TopTerms          int      `yaml:"top_terms"`
	TermBatchChars    int      `yaml:"term_batch_chars"`
	UnnamedPolicy     string   `yaml:"unnamed_policy"`
	MatchPastPerf     bool     `yaml:"match_past_performance"`
	Compliance        bool     `yaml:"compliance"`
	FragmentLimit     int      `yaml:"fragment_limit"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DBPath:    filepath.Join(home, ".proposal-mcp", "proposal.db"),
		OutputDir: "",
		Logging:   LoggingConfig{Level: "info"},
		Oracle: OracleConfig{
			Provider:    "",
			MaxTokens:   1024,
			Temperature: 0,
			MaxRetries:  0,
			CacheSize:   oracle.DefaultCacheSize,
		},
		Chunking: ChunkingConfig{
			ParagraphSize: chunker.DefaultParagraphSize,
			WindowSize:    chunker.DefaultWindowSize,
			WindowOverlap: chunker.DefaultWindowOverlap,
		},
		Analysis: AnalysisConfig{
			Workers:           router.DefaultWorkers,
			CoverageThreshold: coverage.DefaultThreshold,
			CoverageSignals:   append([]string(nil), coverage.DefaultSignals...),
			CriteriaThreshold: 0.7,
			ThemeThreshold:    merge.DefaultThemeThreshold,
			TopTerms:          terms.DefaultTopN,
			TermBatchChars:    terms.DefaultBatchChars,
			UnnamedPolicy:     string(merge.UnnamedMerge),
			MatchPastPerf:     true,
			Compliance:        true,
		},
	}
}

// Load reads path over the defaults and then applies the environment. An
// empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment; getenv is usually os.Getenv
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := getenv(EnvOracleProvider); v != "" {
		c.Oracle.Provider = v
	}
	if v := getenv(EnvOracleModel); v != "" {
		c.Oracle.Model = v
	}
	c.Oracle.OpenAIKey = getenv(EnvOpenAIKey)
	c.Oracle.AnthropicKey = getenv(EnvAnthropicKey)
	c.Oracle.GeminiKey = getenv(EnvGeminiKey)
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	a := c.Analysis
	check(a.Workers > 0, "analysis.workers must be positive")
	check(a.CoverageThreshold > 0 && a.CoverageThreshold <= 1, "analysis.coverage_threshold must be within (0,1]")
	check(a.CriteriaThreshold >= 0 && a.CriteriaThreshold <= 1, "analysis.criteria_threshold must be within [0,1]")
	check(a.ThemeThreshold > 0 && a.ThemeThreshold <= 1, "analysis.theme_threshold must be within (0,1]")
	check(a.TopTerms > 0, "analysis.top_terms must be positive")
	check(a.TermBatchChars > 0, "analysis.term_batch_chars must be positive")
	check(a.FragmentLimit >= 0, "analysis.fragment_limit must not be negative")
	check(merge.UnnamedPolicy(a.UnnamedPolicy).Valid(), fmt.Sprintf("analysis.unnamed_policy %q is not merge or drop", a.UnnamedPolicy))

	ch := c.Chunking
	check(ch.ParagraphSize > 0, "chunking.paragraph_size must be positive")
	check(ch.WindowSize > 0, "chunking.window_size must be positive")
	check(ch.WindowOverlap >= 0 && ch.WindowOverlap < ch.WindowSize, "chunking.window_overlap must be within [0,window_size)")

	o := c.Oracle
	switch o.Provider {
	case "", oracle.ProviderAnthropic, oracle.ProviderOpenAI, oracle.ProviderGemini, oracle.ProviderMock:
	default:
		problems = append(problems, fmt.Sprintf("oracle.provider %q is unknown", o.Provider))
	}
	check(o.MaxRetries >= 0, "oracle.max_retries must not be negative")
	check(o.CacheSize >= 0, "oracle.cache_size must not be negative")
	check(o.Temperature >= 0 && o.Temperature <= 2, "oracle.temperature must be within [0,2]")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// OracleFactoryConfig maps the oracle section onto the provider factory. An
// empty provider is resolved from the available API keys.
func (c *Config) OracleFactoryConfig() oracle.Config {
	oc := oracle.Config{
		Provider:     c.Oracle.Provider,
		Model:        c.Oracle.Model,
		BaseURL:      c.Oracle.BaseURL,
		MaxTokens:    c.Oracle.MaxTokens,
		Temperature:  c.Oracle.Temperature,
		AnthropicKey: c.Oracle.AnthropicKey,
		OpenAIKey:    c.Oracle.OpenAIKey,
		GeminiKey:    c.Oracle.GeminiKey,
		MaxRetries:   c.Oracle.MaxRetries,

		ReplyStorePath: c.Oracle.ReplyStore,
	}
	oc.Provider = oracle.DetectProvider(oc)
	return oc
}
