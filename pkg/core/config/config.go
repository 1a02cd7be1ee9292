// Package config holds the engine's tunable thresholds and keyword tables and
// the per-issuer override registry.
//
// Layering, lowest to highest precedence:
//
//	built-in defaults → YAML config file → environment → issuer override
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"holdings_extract/pkg/core/facts"
	"holdings_extract/pkg/core/fields"
	"holdings_extract/pkg/core/match"
	"holdings_extract/pkg/core/schedule"
	"holdings_extract/pkg/core/synthesis"
)

// DefaultWorkers bounds the batch pool when nothing else is configured.
const DefaultWorkers = 4

// CoverageConfig mirrors synthesis.CoverageOptions with field names as strings.
type CoverageConfig struct {
	OverallThreshold  float64  `yaml:"overall_threshold"`
	CriticalThreshold float64  `yaml:"critical_threshold"`
	CriticalFields    []string `yaml:"critical_fields"`
}

// EDGARConfig configures the remote filing source.
type EDGARConfig struct {
	UserAgent         string  `yaml:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	CacheDir          string  `yaml:"cache_dir"`
}

// Config is the engine configuration.
type Config struct {
	HeaderThreshold      int                           `yaml:"header_threshold"`
	FuzzyLengthThreshold int                           `yaml:"fuzzy_length_threshold"`
	Coverage             CoverageConfig                `yaml:"coverage"`
	// Keywords are added to the built-in header keyword table.
	Keywords             map[string][]schedule.Keyword `yaml:"keywords"`
	IndustryKeywords     []string                      `yaml:"industry_keywords"`
	SkipLabels           []string                      `yaml:"skip_labels"`
	Workers              int                           `yaml:"workers"`
	OverridesPath        string                        `yaml:"overrides_path"`
	EDGAR                EDGARConfig                   `yaml:"edgar"`
}

// Default returns the built-in configuration.
func Default() *Config {
	critical := make([]string, len(synthesis.DefaultCriticalFields))
	for i, f := range synthesis.DefaultCriticalFields {
		critical[i] = string(f)
	}
	return &Config{
		HeaderThreshold:      schedule.DefaultHeaderThreshold,
		FuzzyLengthThreshold: match.DefaultFuzzyLengthThreshold,
		Coverage: CoverageConfig{
			OverallThreshold:  synthesis.DefaultOverallThreshold,
			CriticalThreshold: synthesis.DefaultCriticalThreshold,
			CriticalFields:    critical,
		},
		Workers: DefaultWorkers,
		EDGAR:   EDGARConfig{RequestsPerSecond: 8},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("EXTRACT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("EXTRACT_WORKERS=%q: want a positive integer", v)
		}
		c.Workers = n
	}
	if v := os.Getenv("EXTRACT_COVERAGE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("EXTRACT_COVERAGE_THRESHOLD=%q: want a fraction in [0,1]", v)
		}
		c.Coverage.OverallThreshold = f
	}
	if v := os.Getenv("EXTRACT_OVERRIDES"); v != "" {
		c.OverridesPath = v
	}
	if v := os.Getenv("EDGAR_USER_AGENT"); v != "" {
		c.EDGAR.UserAgent = v
	}
	if v := os.Getenv("EDGAR_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("EDGAR_RPS=%q: want a positive number", v)
		}
		c.EDGAR.RequestsPerSecond = f
	}
	return nil
}

// Validate checks field names and threshold ranges.
func (c *Config) Validate() error {
	if _, err := parseKeywords(c.Keywords); err != nil {
		return err
	}
	if _, err := parseFields(c.Coverage.CriticalFields); err != nil {
		return fmt.Errorf("coverage.critical_fields: %w", err)
	}
	for name, v := range map[string]float64{
		"coverage.overall_threshold":  c.Coverage.OverallThreshold,
		"coverage.critical_threshold": c.Coverage.CriticalThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s = %v: want a fraction in [0,1]", name, v)
		}
	}
	return nil
}

// =============================================================================
// ENGINE OPTIONS
// =============================================================================

// ScheduleOptions builds the table parser options, applying ov when non-nil.
func (c *Config) ScheduleOptions(ov *IssuerOverride) (schedule.Options, error) {
	extra, err := parseKeywords(c.Keywords)
	if err != nil {
		return schedule.Options{}, err
	}
	opts := schedule.Options{
		HeaderThreshold: c.HeaderThreshold,
		Keywords:        schedule.DefaultKeywords.Merge(extra),
		SkipLabels:      append([]string(nil), c.SkipLabels...),
	}
	industry := c.IndustryKeywords
	if len(industry) == 0 {
		industry = schedule.DefaultIndustryKeywords
	}
	opts.IndustryKeywords = append([]string(nil), industry...)

	if ov == nil {
		return opts, nil
	}
	ovKeywords, err := parseKeywords(ov.Keywords)
	if err != nil {
		return schedule.Options{}, fmt.Errorf("override %s: %w", ov.CIK, err)
	}
	opts.Keywords = opts.Keywords.Merge(ovKeywords)
	opts.IndustryKeywords = append(opts.IndustryKeywords, ov.IndustryKeywords...)
	opts.SkipLabels = append(opts.SkipLabels, ov.SkipLabels...)
	if ov.HeaderThreshold > 0 {
		opts.HeaderThreshold = ov.HeaderThreshold
	}
	if opts.ExtraFragments, err = facts.CompileFragmentRules(ov.Fragments); err != nil {
		return schedule.Options{}, fmt.Errorf("override %s: %w", ov.CIK, err)
	}
	return opts, nil
}

// FactOptions builds the structured-fact extractor options.
func (c *Config) FactOptions(ov *IssuerOverride, periodEnd string) (facts.Options, error) {
	opts := facts.Options{PeriodEnd: periodEnd}
	if ov == nil {
		return opts, nil
	}
	rules, err := facts.CompileFragmentRules(ov.Fragments)
	if err != nil {
		return facts.Options{}, fmt.Errorf("override %s: %w", ov.CIK, err)
	}
	opts.ExtraFragments = rules
	return opts, nil
}

// MatchOptions builds the matcher options.
func (c *Config) MatchOptions() match.Options {
	return match.Options{FuzzyLengthThreshold: c.FuzzyLengthThreshold}
}

// CoverageOptions builds the coverage scorer options.
func (c *Config) CoverageOptions() (synthesis.CoverageOptions, error) {
	critical, err := parseFields(c.Coverage.CriticalFields)
	if err != nil {
		return synthesis.CoverageOptions{}, err
	}
	return synthesis.CoverageOptions{
		OverallThreshold:  c.Coverage.OverallThreshold,
		CriticalThreshold: c.Coverage.CriticalThreshold,
		CriticalFields:    critical,
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseFields(names []string) ([]fields.Field, error) {
	out := make([]fields.Field, 0, len(names))
	for _, n := range names {
		f, ok := fields.Lookup(strings.TrimSpace(n))
		if !ok {
			return nil, fmt.Errorf("unknown field %q", n)
		}
		out = append(out, f)
	}
	return out, nil
}

func parseKeywords(in map[string][]schedule.Keyword) (schedule.KeywordTable, error) {
	out := make(schedule.KeywordTable, len(in))
	for name, kws := range in {
		f, ok := fields.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("keywords: unknown field %q", name)
		}
		for _, kw := range kws {
			if strings.TrimSpace(kw.Phrase) == "" || kw.Weight <= 0 {
				return nil, fmt.Errorf("keywords.%s: phrase %q needs text and a positive weight", name, kw.Phrase)
			}
		}
		out[f] = append(out[f], kws...)
	}
	return out, nil
}
