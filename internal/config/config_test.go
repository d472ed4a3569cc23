package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codalotl/redline/internal/document"
	"github.com/codalotl/redline/internal/llmcomplete"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, o := range envOverrides {
		t.Setenv(o.name, "")
	}
	t.Setenv("OPENAI_API_KEY", "")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, llmcomplete.DefaultModel, c.Model.Name)
	assert.Equal(t, "lenient", c.Redline.EqualSearch)
	assert.Equal(t, "strict", c.Redline.DeleteSearch)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, slog.LevelInfo, c.LogLevel())
	assert.Equal(t, 120*time.Second, c.Timeout())

	opts := c.RedlineOptions()
	require.NotNil(t, opts.EqualSearch)
	assert.Equal(t, document.Lenient, *opts.EqualSearch)
	assert.Equal(t, document.Strict, *opts.DeleteSearch)
}

func TestLoad_FileWithExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_REDLINE_KEY", "sk-from-env")
	p := writeFile(t, "redline.yaml", `
model:
  name: gpt-4o-mini
  api_key: ${TEST_REDLINE_KEY}
  max_context_tokens: 500
redline:
  author: Legal Team
  equal_search: strict-nocase
log:
  level: debug
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.Model.Name)
	assert.Equal(t, "sk-from-env", c.Model.APIKey)
	assert.Equal(t, 500, c.Model.MaxContextTokens)
	assert.Equal(t, "Legal Team", c.Redline.Author)
	assert.Equal(t, "strict", c.Redline.DeleteSearch)
	assert.Equal(t, slog.LevelDebug, c.LogLevel())
	assert.Equal(t, document.SearchOptions{}, *c.RedlineOptions().EqualSearch)

	llm := c.LLM()
	assert.Equal(t, "gpt-4o-mini", llm.Model)
	assert.Equal(t, "sk-from-env", llm.APIKey)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDLINE_MODEL", "gpt-env")
	t.Setenv("REDLINE_ADDR", "127.0.0.1:9999")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	p := writeFile(t, "redline.yaml", "model:\n  name: gpt-file\n")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "gpt-env", c.Model.Name)
	assert.Equal(t, "127.0.0.1:9999", c.Server.Addr)
	assert.Equal(t, "sk-openai", c.Model.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "unknown key", content: "model:\n  nme: x\n", wantErr: "nme"},
		{name: "bad search mode", content: "redline:\n  equal_search: fuzzy\n", wantErr: "equal_search"},
		{name: "bad log level", content: "log:\n  level: loud\n", wantErr: "log.level"},
		{name: "negative tokens", content: "model:\n  max_context_tokens: -1\n", wantErr: "max_context_tokens"},
		{name: "not yaml", content: "model: [\n", wantErr: "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestParse_Empty(t *testing.T) {
	clearEnv(t)
	c, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, c.Server)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TEST_REDLINE_A=from-file\nTEST_REDLINE_B=\"quoted\"\n"), 0o644))

	t.Setenv("TEST_REDLINE_A", "already-set")
	t.Setenv("TEST_REDLINE_B", "")
	require.NoError(t, os.Unsetenv("TEST_REDLINE_B"))

	loaded, err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, []string{envPath}, loaded)
	assert.Equal(t, "already-set", os.Getenv("TEST_REDLINE_A"))
	assert.Equal(t, "quoted", os.Getenv("TEST_REDLINE_B"))
}

func TestYAML_RedactsKey(t *testing.T) {
	clearEnv(t)
	c := Default()
	c.Model.APIKey = "sk-secret"
	out, err := c.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sk-secret")
	assert.Contains(t, string(out), "REDACTED")
	assert.Equal(t, "sk-secret", c.Model.APIKey)

	reparsed, err := Parse(strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, c.Redline, reparsed.Redline)
}
