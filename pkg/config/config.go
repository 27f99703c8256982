// Package config loads and resolves the unifile merge configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the user's home directory
// when no --config path is given.
const DefaultFileName = ".unifile.yaml"

// Line-ending modes accepted by Output.LineEnding.
const (
	LineEndingAuto = "auto"
	LineEndingLF   = "lf"
	LineEndingCRLF = "crlf"
)

// OutputFormat controls how the merge document is rendered.
type OutputFormat struct {
	// AddLineNumbers prefixes every content line with a right-aligned number.
	AddLineNumbers bool `yaml:"add_line_numbers"`

	// ShowFileCount enables the per-file METADATA block.
	ShowFileCount bool `yaml:"show_file_count"`

	// ShowSummary appends the SUMMARY footer.
	ShowSummary bool `yaml:"show_summary"`

	// SeparatorLine is the character repeated to build separator lines.
	SeparatorLine string `yaml:"separator_line"`

	// SeparatorLength is the number of repetitions per separator line.
	SeparatorLength int `yaml:"separator_length"`
}

// ExcludePatterns holds the three rule sets applied against final path
// components. Directories and system files match by exact name; files match
// as globs.
type ExcludePatterns struct {
	Directories []string `yaml:"directories"`
	Files       []string `yaml:"files"`
	SystemFiles []string `yaml:"system_files"`
}

// Encoding names the default decoding and the ordered fallbacks tried after it.
type Encoding struct {
	Default  string   `yaml:"default"`
	Fallback []string `yaml:"fallback"`
}

// Output holds run-level output behavior.
type Output struct {
	// AddTimestamp includes timestamps in the document header and footer.
	AddTimestamp bool `yaml:"add_timestamp"`

	// TimestampFormat is a strftime pattern, e.g. "%Y-%m-%d %H:%M:%S".
	TimestampFormat string `yaml:"timestamp_format"`

	// LineEnding is one of "auto", "lf", "crlf".
	LineEnding string `yaml:"line_ending"`

	// MaxTotalSizeKB caps the total content bytes accepted in one run.
	MaxTotalSizeKB int `yaml:"max_total_size_kb"`
}

// Config is the fully resolved merge configuration. Load returns it with every
// field populated; callers treat it as read-only.
type Config struct {
	OutputFormat    OutputFormat    `yaml:"output_format"`
	ExcludePatterns ExcludePatterns `yaml:"exclude_patterns"`
	Encoding        Encoding        `yaml:"encoding"`
	Output          Output          `yaml:"output"`
}

// Default returns the built-in configuration used when a key (or the whole
// file) is absent. All defaults live here rather than at call sites.
func Default() *Config {
	return &Config{
		OutputFormat: OutputFormat{
			AddLineNumbers:  true,
			ShowFileCount:   true,
			ShowSummary:     true,
			SeparatorLine:   "=",
			SeparatorLength: 80,
		},
		ExcludePatterns: ExcludePatterns{
			Directories: []string{"node_modules", "__pycache__", ".git"},
			Files:       []string{"*.pyc", "*.pyo", "*.exe"},
			SystemFiles: []string{".DS_Store", "Thumbs.db"},
		},
		Encoding: Encoding{
			Default:  "utf-8",
			Fallback: []string{"cp932", "shift-jis", "euc-jp"},
		},
		Output: Output{
			AddTimestamp:    true,
			TimestampFormat: "%Y-%m-%d %H:%M:%S",
			LineEnding:      LineEndingAuto,
			MaxTotalSizeKB:  300,
		},
	}
}

// DefaultPath returns the default config file location in the user's home
// directory.
func DefaultPath() string {
	return filepath.Join(xdg.Home, DefaultFileName)
}

// Load reads the YAML config at path and merges it over the built-in defaults.
// A missing file is not an error: the defaults are returned as-is. Malformed
// YAML or an invalid resolved configuration is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Unmarshalling over the populated defaults keeps values for absent keys.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the resolved configuration for values the merge core cannot
// work with.
func (c *Config) Validate() error {
	switch c.Output.LineEnding {
	case LineEndingAuto, LineEndingLF, LineEndingCRLF:
	default:
		return fmt.Errorf("line_ending must be one of auto, lf, crlf; got %q", c.Output.LineEnding)
	}
	if c.OutputFormat.SeparatorLength <= 0 {
		return fmt.Errorf("separator_length must be positive; got %d", c.OutputFormat.SeparatorLength)
	}
	if c.OutputFormat.SeparatorLine == "" {
		return fmt.Errorf("separator_line must not be empty")
	}
	if c.Output.MaxTotalSizeKB < 0 {
		return fmt.Errorf("max_total_size_kb must not be negative; got %d", c.Output.MaxTotalSizeKB)
	}
	if c.Encoding.Default == "" {
		return fmt.Errorf("encoding default must not be empty")
	}
	return nil
}
