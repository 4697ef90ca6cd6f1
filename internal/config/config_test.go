package config

import (
	"os"
	"path/filepath"
	"testing"

	"tigdiff/internal/diff"
	"tigdiff/internal/errors"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, diff.DefaultContextLines, cfg.Diff.ContextLines)
	assert.Equal(t, "a", cfg.Diff.OldPrefix)
	assert.Equal(t, "b", cfg.Diff.NewPrefix)
	assert.Equal(t, int64(diff.DefaultMaxSize), cfg.Diff.MaxSize)
	assert.Equal(t, "auto", cfg.Diff.Color)
	assert.False(t, cfg.Diff.IncludeUntracked)
}

func TestLoad_Sources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".tig"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tig", "tig.yaml"), []byte(
		"log_level: debug\n"+
			"server:\n  port: 9000\n"+
			"diff:\n  context_lines: 7\n  patience: true\n  old_prefix: before\n"), 0644))

	t.Run("file", func(t *testing.T) {
		cfg, err := Load("", dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 7, cfg.Diff.ContextLines)
		assert.True(t, cfg.Diff.Patience)
		assert.Equal(t, "before", cfg.Diff.OldPrefix)
	})

	t.Run("environment beats file", func(t *testing.T) {
		t.Setenv("TIG_DIFF_CONTEXT_LINES", "1")
		t.Setenv("TIG_SERVER_PORT", "9100")
		cfg, err := Load("", dir, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Diff.ContextLines)
		assert.Equal(t, 9100, cfg.Server.Port)
	})

	t.Run("flags beat environment", func(t *testing.T) {
		t.Setenv("TIG_DIFF_CONTEXT_LINES", "1")
		flags := pflag.NewFlagSet("diff", pflag.ContinueOnError)
		flags.IntP("unified", "U", diff.DefaultContextLines, "")
		flags.Bool("patience", false, "")
		require.NoError(t, flags.Parse([]string{"-U", "12"}))

		cfg, err := Load("", dir, flags)
		require.NoError(t, err)
		assert.Equal(t, 12, cfg.Diff.ContextLines)
		assert.True(t, cfg.Diff.Patience, "unchanged flags do not override the file")
	})

	t.Run("explicit json file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "custom.json")
		require.NoError(t, os.WriteFile(file, []byte(`{"diff": {"color": "never", "ignore_whitespace": true}}`), 0644))
		cfg, err := Load(file, dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "never", cfg.Diff.Color)
		assert.True(t, cfg.Diff.IgnoreWhitespace)
		assert.Equal(t, diff.DefaultContextLines, cfg.Diff.ContextLines, "the lookup directory is not read")
	})
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "", nil)
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tig.yaml"), []byte("diff:\n  color: sometimes\n"), 0644))
	_, err = Load("", dir, nil)
	require.Error(t, err)
	assert.Equal(t, 400, errors.StatusCode(err))
}

func TestDiffOptions(t *testing.T) {
	cfg, err := Load("", t.TempDir(), nil)
	require.NoError(t, err)
	cfg.Diff.Patience = true
	cfg.Diff.IgnoreWhitespaceEOL = true
	cfg.Diff.IncludeUntracked = false
	cfg.Diff.InterhunkLines = 2

	o := cfg.DiffOptions()
	assert.Equal(t, diff.Patience|diff.IgnoreWhitespaceEOL, o.Flags)
	assert.Equal(t, 3, o.ContextLines)
	assert.Equal(t, 2, o.InterhunkLines)
	assert.Equal(t, "a", o.OldPrefix)
}

func TestNewLogger(t *testing.T) {
	cfg, err := Load("", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)

	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			c := *cfg
			c.Environment = env
			logger, err := c.NewLogger()
			require.NoError(t, err)
			assert.NotNil(t, logger.Logger)
		})
	}

	t.Setenv("TIG_ENVIRONMENT", "staging")
	_, err = Load("", t.TempDir(), nil)
	assert.Equal(t, 400, errors.StatusCode(err))
}
