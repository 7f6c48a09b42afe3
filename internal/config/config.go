// Package config loads runtime configuration from defaults, an
// optional JSON config file and AUTHORSCAN_-prefixed environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool          `mapstructure:"send"`
	APIKey        string        `mapstructure:"api_key"`
	OrgID         string        `mapstructure:"org_id"`
	Dataset       string        `mapstructure:"dataset"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// InferenceConfig defines the model endpoints and call behavior.
type InferenceConfig struct {
	Model        string        `mapstructure:"model"`
	Host         string        `mapstructure:"host"`
	BasePort     int           `mapstructure:"base_port"`
	MaxPort      int           `mapstructure:"max_port"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FallbackURL  string        `mapstructure:"fallback_url"`
}

// PagesConfig controls which pages are analyzed and how they are
// rendered.
type PagesConfig struct {
	Mode               string  `mapstructure:"mode"` // all | range | first_n
	FirstN             int     `mapstructure:"first_n"`
	RangeStart         int     `mapstructure:"range_start"`
	RangeEnd           int     `mapstructure:"range_end"`
	AlwaysIncludeFirst bool    `mapstructure:"always_include_first"`
	SupportPages       int     `mapstructure:"support_pages"`
	Scale              float64 `mapstructure:"scale"`
	JPEGQuality        int     `mapstructure:"jpeg_quality"`
}

// FeaturesConfig toggles optional pipeline stages.
type FeaturesConfig struct {
	DetectDocType      bool `mapstructure:"detect_doc_type"`
	DetectInstitution  bool `mapstructure:"detect_institution"`
	PrioritizeFirst    bool `mapstructure:"prioritize_first_page"`
	CorrectEmailDomain bool `mapstructure:"correct_email_domain"`
	TextFallback       bool `mapstructure:"text_fallback"`
}

// MetadataConfig controls the metadata skip filter.
type MetadataConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	CSVPath   string   `mapstructure:"csv_path"`
	IDPattern string   `mapstructure:"id_pattern"`
	SkipTerms []string `mapstructure:"skip_terms"`
}

// ExecutionConfig controls batch behavior.
type ExecutionConfig struct {
	InputPath     string `mapstructure:"input_path"`
	MaxWorkers    int    `mapstructure:"max_workers"`
	MaxFiles      int    `mapstructure:"max_files"`
	SkipProcessed bool   `mapstructure:"skip_processed"`
	TempDir       string `mapstructure:"temp_dir"`
}

// OutputConfig locates the result table.
type OutputConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

// StatusConfig configures the optional Redis status store.
type StatusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	RedisURL string `mapstructure:"redis_url"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// PromptsConfig overrides the built-in prompt templates. Empty
// fields keep the defaults.
type PromptsConfig struct {
	StandardReport      string `mapstructure:"standard_report"`
	CompilationReport   string `mapstructure:"compilation_report"`
	CreditSuisse        string `mapstructure:"credit_suisse_specific"`
	FirstPageEmphasis   string `mapstructure:"first_page_emphasis"`
	TerminationSpecific string `mapstructure:"termination_specific"`
}

// Config is the top-level configuration.
type Config struct {
	Inference InferenceConfig `mapstructure:"inference"`
	Pages     PagesConfig     `mapstructure:"pages"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Output    OutputConfig    `mapstructure:"output"`
	Status    StatusConfig    `mapstructure:"status"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Axiom     AxiomConfig     `mapstructure:"axiom"`
	Debug     bool            `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("inference.model", "llama3.2-vision")
	v.SetDefault("inference.host", "127.0.0.1")
	v.SetDefault("inference.base_port", 11434)
	v.SetDefault("inference.max_port", 11465)
	v.SetDefault("inference.probe_timeout", 100*time.Millisecond)
	v.SetDefault("inference.timeout", 180*time.Second)
	v.SetDefault("inference.fallback_url", "http://127.0.0.1:11434/api/generate")

	v.SetDefault("pages.mode", "all")
	v.SetDefault("pages.first_n", 3)
	v.SetDefault("pages.range_start", 1)
	v.SetDefault("pages.range_end", 3)
	v.SetDefault("pages.always_include_first", true)
	v.SetDefault("pages.support_pages", 3)
	v.SetDefault("pages.scale", 2.0)
	v.SetDefault("pages.jpeg_quality", 85)

	v.SetDefault("features.detect_doc_type", true)
	v.SetDefault("features.detect_institution", true)
	v.SetDefault("features.prioritize_first_page", true)
	v.SetDefault("features.correct_email_domain", true)
	v.SetDefault("features.text_fallback", true)

	v.SetDefault("metadata.enabled", false)
	v.SetDefault("metadata.csv_path", "metadata.csv")
	v.SetDefault("metadata.id_pattern", `key_\d+`)
	v.SetDefault("metadata.skip_terms", []string{})

	v.SetDefault("execution.input_path", "pdfs")
	v.SetDefault("execution.max_workers", 8)
	v.SetDefault("execution.max_files", 0)
	v.SetDefault("execution.skip_processed", true)
	v.SetDefault("execution.temp_dir", "")

	v.SetDefault("output.csv_path", "results/authors.csv")

	v.SetDefault("status.enabled", false)
	v.SetDefault("status.redis_url", "redis://localhost:6379/0")
	v.SetDefault("status.ttl_hours", 24)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
	v.SetDefault("logging.file", "logs/authorscan.log")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 14)
	v.SetDefault("logging.compress", true)

	v.SetDefault("axiom.send", false)
	v.SetDefault("axiom.flush_interval", 3*time.Second)

	v.SetDefault("debug", false)
}

// Load builds the configuration. cfgFile may be empty, in which case
// config.json is looked up in the working directory; a missing file
// is not an error, an unreadable or invalid one is.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AUTHORSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist and parse; the default
		// lookup is allowed to find nothing.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Pages.Mode {
	case "all", "range", "first_n":
	default:
		return fmt.Errorf("invalid pages.mode %q: want all, range or first_n", c.Pages.Mode)
	}
	if c.Inference.MaxPort < c.Inference.BasePort {
		return fmt.Errorf("inference.max_port %d below base_port %d", c.Inference.MaxPort, c.Inference.BasePort)
	}
	if c.Execution.MaxWorkers < 1 {
		c.Execution.MaxWorkers = 1
	}
	return nil
}
