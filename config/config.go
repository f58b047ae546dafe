// Package config provides configuration management for the tlr command-line tool.
// It supports loading configuration from YAML files, environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/matching"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// IsValid returns true if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// Default configuration values.
const (
	DefaultOutputFormat = OutputFormatText
	DefaultLogLevel     = logging.LevelInfo
	DefaultConfigDir    = ".tlr"
	DefaultConfigFile   = "config.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TLR_"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level logging.Level `yaml:"level"`
	JSON  bool          `yaml:"json"`
}

// AbbreviationsConfig locates the abbreviation dictionary. The file and the
// Redis hash are merged when both are set.
type AbbreviationsConfig struct {
	File          string `yaml:"file,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisKey      string `yaml:"redis_key,omitempty"`
}

// ExportConfig holds the link export target.
type ExportConfig struct {
	// DatabaseURL is a PostgreSQL connection string. Empty disables export.
	DatabaseURL string `yaml:"database_url,omitempty"`
}

// MetricsConfig holds metrics output settings.
type MetricsConfig struct {
	// TextfilePath receives the metrics in Prometheus text format after a run.
	TextfilePath string `yaml:"textfile_path,omitempty"`
}

// Config holds the tlr configuration settings.
type Config struct {
	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	Log           LogConfig           `yaml:"log"`
	Similarity    similarity.Config   `yaml:"similarity"`
	Matching      matching.Config     `yaml:"matching"`
	Abbreviations AbbreviationsConfig `yaml:"abbreviations"`
	Export        ExportConfig        `yaml:"export"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		OutputFormat: DefaultOutputFormat,
		Log:          LogConfig{Level: DefaultLogLevel},
		Similarity:   similarity.DefaultConfig(),
		Matching:     matching.DefaultConfig(),
	}
}

// Validate checks every section. Similarity and matching sections get their
// zero values replaced by defaults.
func (c *Config) Validate() error {
	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("%w: invalid output_format %q: must be text, json, or yaml",
			tlerrors.ErrInvalidConfig, c.OutputFormat)
	}
	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	case "":
		c.Log.Level = DefaultLogLevel
	default:
		return fmt.Errorf("%w: invalid log.level %q", tlerrors.ErrInvalidConfig, c.Log.Level)
	}
	if err := c.Similarity.Validate(); err != nil {
		return fmt.Errorf("similarity: %w", err)
	}
	return c.Matching.Validate()
}

// LoggingConfig returns the logger settings implied by c.
func (c *Config) LoggingConfig() *logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Log.Level
	lc.JSONFormat = c.Log.JSON
	if c.Debug {
		lc.Level = logging.LevelDebug
	}
	return lc
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ConfigDir returns the configuration directory path.
// Uses $TLR_CONFIG_DIR if set, otherwise ~/.tlr
func ConfigDir() (string, error) {
	if dir := os.Getenv("TLR_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the default file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.tlr/config.yaml or $TLR_CONFIG_DIR/config.yaml), if present
// 3. Environment variables (TLR_ followed by the upper-cased flat key)
func LoadConfig() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}
	return load(configPath)
}

// LoadConfigFrom loads the configuration from an explicit file. Unlike
// LoadConfig, a missing file is an error.
func LoadConfigFrom(path string) (*Config, error) {
	return load(expandPath(path))
}

func load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.Abbreviations.File = expandPath(cfg.Abbreviations.File)
	cfg.Metrics.TextfilePath = expandPath(cfg.Metrics.TextfilePath)
	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg. Keys absent from the file keep
// their current values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parsing config file: %v", tlerrors.ErrInvalidConfig, err)
	}
	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) error {
	values := make(map[string]string)
	for _, key := range Keys() {
		if v, ok := os.LookupEnv(EnvName(key)); ok && v != "" {
			values[key] = v
		}
	}
	return cfg.ApplyFlat(values)
}

// EnvName returns the environment variable overriding a flat key, e.g.
// "similarity.jarowinkler.threshold" -> "TLR_SIMILARITY_JAROWINKLER_THRESHOLD".
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}

// field binds a flat key to a Config field.
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func boolField(p func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*p(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*p(c) = b
			return nil
		},
	}
}

func intField(p func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*p(c) = n
			return nil
		},
	}
}

func floatField(p func(c *Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*p(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*p(c) = f
			return nil
		},
	}
}

var fields = map[string]field{
	"output_format": {
		get: func(c *Config) string { return string(c.OutputFormat) },
		set: func(c *Config, v string) error { c.OutputFormat = OutputFormat(v); return nil },
	},
	"debug": boolField(func(c *Config) *bool { return &c.Debug }),
	"log.level": {
		get: func(c *Config) string { return string(c.Log.Level) },
		set: func(c *Config, v string) error { c.Log.Level = logging.Level(strings.ToLower(v)); return nil },
	},
	"log.json": boolField(func(c *Config) *bool { return &c.Log.JSON }),

	"similarity.measures": {
		get: func(c *Config) string { return strings.Join(c.Similarity.Measures, ",") },
		set: func(c *Config, v string) error {
			var measures []string
			for _, m := range strings.Split(v, ",") {
				if m = strings.TrimSpace(m); m != "" {
					measures = append(measures, m)
				}
			}
			c.Similarity.Measures = measures
			return nil
		},
	},
	"similarity.strategy": {
		get: func(c *Config) string { return string(c.Similarity.Strategy) },
		set: func(c *Config, v string) error {
			c.Similarity.Strategy = similarity.ComparisonStrategy(v)
			return nil
		},
	},
	"similarity.scoring": {
		get: func(c *Config) string { return string(c.Similarity.Scoring) },
		set: func(c *Config, v string) error { c.Similarity.Scoring = similarity.Aggregation(v); return nil },
	},
	"similarity.char_match": {
		get: func(c *Config) string { return string(c.Similarity.CharMatch) },
		set: func(c *Config, v string) error { c.Similarity.CharMatch = similarity.CharMatch(v); return nil },
	},
	"similarity.consider_abbreviations": boolField(func(c *Config) *bool { return &c.Similarity.ConsiderAbbreviations }),
	"similarity.levenshtein.min_length": intField(func(c *Config) *int { return &c.Similarity.Levenshtein.MinLength }),
	"similarity.levenshtein.max_distance": intField(func(c *Config) *int {
		return &c.Similarity.Levenshtein.MaxDistance
	}),
	"similarity.levenshtein.threshold": floatField(func(c *Config) *float64 {
		return &c.Similarity.Levenshtein.Threshold
	}),
	"similarity.jarowinkler.threshold": floatField(func(c *Config) *float64 {
		return &c.Similarity.JaroWinkler.Threshold
	}),
	"similarity.ngram.length":    intField(func(c *Config) *int { return &c.Similarity.NGram.Length }),
	"similarity.ngram.threshold": floatField(func(c *Config) *float64 { return &c.Similarity.NGram.Threshold }),

	"matching.selection_proportion": floatField(func(c *Config) *float64 { return &c.Matching.SelectionProportion }),
	"matching.min_proportion":       floatField(func(c *Config) *float64 { return &c.Matching.MinProportion }),
	"matching.proportion_increase":  floatField(func(c *Config) *float64 { return &c.Matching.ProportionIncrease }),
	"matching.instance_probability": floatField(func(c *Config) *float64 { return &c.Matching.InstanceProbability }),
	"matching.instance_probability_without_type": floatField(func(c *Config) *float64 {
		return &c.Matching.InstanceProbabilityWithoutType
	}),
	"matching.relation_probability": floatField(func(c *Config) *float64 { return &c.Matching.RelationProbability }),

	"abbreviations.file":           stringField(func(c *Config) *string { return &c.Abbreviations.File }),
	"abbreviations.redis_addr":     stringField(func(c *Config) *string { return &c.Abbreviations.RedisAddr }),
	"abbreviations.redis_password": stringField(func(c *Config) *string { return &c.Abbreviations.RedisPassword }),
	"abbreviations.redis_key":      stringField(func(c *Config) *string { return &c.Abbreviations.RedisKey }),
	"export.database_url":          stringField(func(c *Config) *string { return &c.Export.DatabaseURL }),
	"metrics.textfile_path":        stringField(func(c *Config) *string { return &c.Metrics.TextfilePath }),
}

// secretKeys are masked by Flatten.
var secretKeys = map[string]bool{
	"abbreviations.redis_password": true,
	"export.database_url":          true,
}

// Keys returns every flat key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyFlat sets fields from flat keys such as "matching.min_proportion".
// Keys are applied in sorted order; the first bad key or value aborts.
func (c *Config) ApplyFlat(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := fields[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			return fmt.Errorf("%w: unknown key %q", tlerrors.ErrInvalidConfig, k)
		}
		if err := f.set(c, strings.TrimSpace(values[k])); err != nil {
			return fmt.Errorf("%w: %s: %v", tlerrors.ErrInvalidConfig, k, err)
		}
	}
	return nil
}

// ParseAssignments turns "key=value" strings into a flat map.
func ParseAssignments(assignments []string) (map[string]string, error) {
	values := make(map[string]string, len(assignments))
	for _, a := range assignments {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", tlerrors.ErrInvalidConfig, a)
		}
		values[strings.TrimSpace(k)] = v
	}
	return values, nil
}

// Flatten returns every flat key with its current value. Secrets are masked.
func (c *Config) Flatten() map[string]string {
	out := make(map[string]string, len(fields))
	for k, f := range fields {
		v := f.get(c)
		if secretKeys[k] && v != "" {
			v = "********"
		}
		out[k] = v
	}
	return out
}
