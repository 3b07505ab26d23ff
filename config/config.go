package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaselineURL is the directions view from Brookhaven to Downtown
// Atlanta, departing 08:00. It is both the initial page and the recovery
// target after a failed probe.
const DefaultBaselineURL = "https://www.google.com/maps/dir/Brookhaven,+GA/Downtown+Atlanta,+Atlanta,+GA/@33.8104311,-84.3980103,13z/data=!3m1!4b1!4m18!4m17!1m5!1m1!1s0x88f5089505f9f565:0x851a6587d0c37ec1!2m2!1d-84.3371266!2d33.8650186!1m5!1m1!1s0x88f5038740415b5d:0xa005d8181c4268d8!2m2!1d-84.3883717!2d33.755711!2m3!6e0!7e2!8j1639728000!3e3"

// Selectors locate the search box, result grid and itinerary panel.
type Selectors struct {
	SearchInput    string `yaml:"search_input"`
	FirstResult    string `yaml:"first_result"`
	ItineraryPanel string `yaml:"itinerary_panel"`
}

// Config holds measurement run configuration.
type Config struct {
	BaselineURL string `yaml:"baseline_url"`
	Mode        string `yaml:"mode"` // time or distance
	QuerySuffix string `yaml:"query_suffix"`

	InputFile   string `yaml:"input_file"` // path or http(s) URL
	InputColumn string `yaml:"input_column"`

	OutputFile   string `yaml:"output_file"`   // optional
	OutputFormat string `yaml:"output_format"` // csv, json, or dual
	BatchSize    int    `yaml:"batch_size"`

	Driver         string    `yaml:"driver"` // rod or snapshot
	SnapshotDir    string    `yaml:"snapshot_dir"`
	RemoteURL      string    `yaml:"remote_url"`
	Headless       bool      `yaml:"headless"`
	Stealth        bool      `yaml:"stealth"`
	UserAgent      string    `yaml:"user_agent"`
	WindowWidth    int       `yaml:"window_width"`
	WindowHeight   int       `yaml:"window_height"`
	BlockResources []string  `yaml:"block_resources"`
	Selectors      Selectors `yaml:"selectors"`

	StepDelay    time.Duration `yaml:"step_delay"`
	RandomDelay  time.Duration `yaml:"random_delay"`
	OpTimeout    time.Duration `yaml:"op_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	CacheSize   int    `yaml:"cache_size"`
	MetricsAddr string `yaml:"metrics_addr"`
	Verbose     bool   `yaml:"verbose"`
}

// DefaultConfig returns defaults for the Atlanta commute survey.
func DefaultConfig() *Config {
	return &Config{
		BaselineURL:  DefaultBaselineURL,
		Mode:         "time",
		QuerySuffix:  "Atlanta, GA",
		InputFile:    "City_of_Atlanta_Neighborhood_Statistical_Areas.csv",
		InputColumn:  "NEIGHBORHO",
		OutputFile:   "",
		OutputFormat: "csv",
		BatchSize:    1,
		Driver:       "rod",
		Headless:     false,
		Stealth:      true,
		UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		WindowWidth:  1920,
		WindowHeight: 1080,
		Selectors: Selectors{
			SearchInput:    "input.tactile-searchbox-input",
			FirstResult:    "div[role='gridcell']",
			ItineraryPanel: "#section-directions-trip-0",
		},
		StepDelay:    500 * time.Millisecond,
		RandomDelay:  3 * time.Second,
		OpTimeout:    15 * time.Second,
		PollInterval: 250 * time.Millisecond,
		FetchTimeout: 30 * time.Second,
		CacheSize:    256,
	}
}

// LoadFile overlays the YAML document at path on top of DefaultConfig.
// Durations are written as Go duration strings, e.g. "3s".
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaselineURL == "" {
		return fmt.Errorf("baseline URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.BaselineURL)
	if err != nil {
		return fmt.Errorf("invalid baseline URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("baseline URL must include a host")
	}

	switch strings.ToLower(c.Mode) {
	case "time", "minutes", "distance", "miles":
	default:
		return fmt.Errorf("mode must be time or distance")
	}
	if c.InputFile == "" {
		return fmt.Errorf("input file cannot be empty")
	}
	if c.InputColumn == "" {
		return fmt.Errorf("input column cannot be empty")
	}
	if c.OutputFile != "" && c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	switch c.Driver {
	case "rod":
		if c.UserAgent == "" {
			return fmt.Errorf("user agent cannot be empty")
		}
		if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
			return fmt.Errorf("window size must be positive")
		}
	case "snapshot":
		if c.SnapshotDir == "" {
			return fmt.Errorf("snapshot driver requires a snapshot dir")
		}
	default:
		return fmt.Errorf("driver must be rod or snapshot")
	}

	if c.Selectors.SearchInput == "" || c.Selectors.FirstResult == "" || c.Selectors.ItineraryPanel == "" {
		return fmt.Errorf("selectors cannot be empty")
	}
	if c.StepDelay < 0 {
		return fmt.Errorf("step delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.OpTimeout <= 0 {
		return fmt.Errorf("op timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.PollInterval > c.OpTimeout {
		return fmt.Errorf("poll interval (%s) cannot exceed op timeout (%s)", c.PollInterval, c.OpTimeout)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}

	return nil
}

// EnvString returns the value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer when it is set.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvDuration parses key as a Go duration when it is set.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}
