// Package config loads redline's YAML configuration. Values may reference environment variables as ${VAR}; a .env file is loaded first, and a few environment
// variables override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/codalotl/redline/internal/document"
	"github.com/codalotl/redline/internal/llmcomplete"
	"github.com/codalotl/redline/internal/memdoc"
	"github.com/codalotl/redline/internal/redline"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFiles are tried, in order, by LoadDotEnv when no paths are given.
var DefaultEnvFiles = []string{".env", ".env.local"}

type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Redline RedlineConfig `yaml:"redline"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type ModelConfig struct {
	Name             string `yaml:"name"`
	APIKey           string `yaml:"api_key,omitempty"`
	BaseURL          string `yaml:"base_url,omitempty"`
	ReasoningEffort  string `yaml:"reasoning_effort,omitempty"`
	MaxContextTokens int    `yaml:"max_context_tokens"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

type RedlineConfig struct {
	Author       string `yaml:"author"`
	EqualSearch  string `yaml:"equal_search"`  // strict, lenient, strict-nocase, lenient-nocase
	DeleteSearch string `yaml:"delete_search"` // same names as EqualSearch
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	AllowOrigin string `yaml:"allow_origin"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

// Load reads the config at path (or the defaults if path is empty), applies environment overrides, and validates the result. It does not load .env files; call
// LoadDotEnv first.
func Load(path string) (*Config, error) {
	if path == "" {
		c := Default()
		applyEnv(c)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML from r, expanding ${VAR} references first. Unknown keys are an error.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))

	c := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(c)
	applyEnv(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without overriding variables that are already set. Missing files are skipped. It returns the
// files that were loaded.
func LoadDotEnv(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("load %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

func applyDefaults(c *Config) {
	if c.Model.Name == "" {
		c.Model.Name = llmcomplete.DefaultModel
	}
	if c.Model.MaxContextTokens == 0 {
		c.Model.MaxContextTokens = 8000
	}
	if c.Model.TimeoutSeconds == 0 {
		c.Model.TimeoutSeconds = 120
	}
	if c.Redline.Author == "" {
		c.Redline.Author = memdoc.DefaultAuthor
	}
	if c.Redline.EqualSearch == "" {
		c.Redline.EqualSearch = "lenient"
	}
	if c.Redline.DeleteSearch == "" {
		c.Redline.DeleteSearch = "strict"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.AllowOrigin == "" {
		c.Server.AllowOrigin = "*"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// envOverrides maps environment variables onto config fields. They win over the file.
var envOverrides = []struct {
	name string
	set  func(c *Config, v string)
}{
	{"REDLINE_MODEL", func(c *Config, v string) { c.Model.Name = v }},
	{"REDLINE_API_KEY", func(c *Config, v string) { c.Model.APIKey = v }},
	{"REDLINE_BASE_URL", func(c *Config, v string) { c.Model.BaseURL = v }},
	{"REDLINE_AUTHOR", func(c *Config, v string) { c.Redline.Author = v }},
	{"REDLINE_ADDR", func(c *Config, v string) { c.Server.Addr = v }},
	{"REDLINE_LOG_LEVEL", func(c *Config, v string) { c.Log.Level = v }},
}

func applyEnv(c *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.set(c, v)
		}
	}
	if c.Model.APIKey == "" {
		c.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, ok := redline.SearchMode(c.Redline.EqualSearch); !ok {
		return fmt.Errorf("redline.equal_search: unknown search mode %q", c.Redline.EqualSearch)
	}
	if _, ok := redline.SearchMode(c.Redline.DeleteSearch); !ok {
		return fmt.Errorf("redline.delete_search: unknown search mode %q", c.Redline.DeleteSearch)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Model.MaxContextTokens < 0 {
		return fmt.Errorf("model.max_context_tokens: must not be negative")
	}
	if c.Model.TimeoutSeconds < 0 {
		return fmt.Errorf("model.timeout_seconds: must not be negative")
	}
	if strings.TrimSpace(c.Redline.Author) == "" {
		return fmt.Errorf("redline.author: must not be blank")
	}
	return nil
}

// LLM returns the completion settings.
func (c *Config) LLM() llmcomplete.Config {
	return llmcomplete.Config{
		Model:           c.Model.Name,
		APIKey:          c.Model.APIKey,
		BaseURL:         c.Model.BaseURL,
		ReasoningEffort: c.Model.ReasoningEffort,
	}
}

// Timeout bounds a single model request.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}

// RedlineOptions returns the search settings as redline.Options. Logger and Metrics are left for the caller. c must be valid.
func (c *Config) RedlineOptions() redline.Options {
	eq, _ := redline.SearchMode(c.Redline.EqualSearch)
	del, _ := redline.SearchMode(c.Redline.DeleteSearch)
	return redline.Options{EqualSearch: ptr(eq), DeleteSearch: ptr(del)}
}

// LogLevel returns the configured slog level. c must be valid.
func (c *Config) LogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

// YAML renders c with the API key redacted.
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	if redacted.Model.APIKey != "" {
		redacted.Model.APIKey = "REDACTED"
	}
	return yaml.Marshal(&redacted)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

func ptr(o document.SearchOptions) *document.SearchOptions { return &o }
