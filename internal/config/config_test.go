package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peekknuf/dqsweep/internal/results"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "folders:\n  data: in\n  results: out\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "in", cfg.Folders.Data)
	assert.Equal(t, 1, cfg.Run.Workers)
	assert.Len(t, cfg.Run.Fractions, 19)
	assert.InDelta(t, 0.05, cfg.Run.Fractions[0], 1e-12)
	assert.InDelta(t, 0.95, cfg.Run.Fractions[18], 1e-12)
	assert.Equal(t, results.PolicyGlobal, cfg.Policy())
	assert.Equal(t, filepath.Join("out", "result.csv"), cfg.ResultsPath())
	assert.Equal(t, ',', cfg.LoadOptions().Delimiter)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
folders:
  data: in
  results: out
run:
  workers: 4
  seed: 7
  resume_policy: combination
  fractions: [0.1, 0.5]
  metrics: [mean, std]
load:
  delimiter: auto
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Run.Workers)
	assert.Equal(t, uint64(7), cfg.Run.Seed)
	assert.Equal(t, []float64{0.1, 0.5}, cfg.Run.Fractions)
	assert.Equal(t, []string{"mean", "std"}, cfg.Run.Metrics)
	assert.Equal(t, results.PolicyCombination, cfg.Policy())
	assert.Equal(t, rune(0), cfg.LoadOptions().Delimiter)
}

func TestValidateReportsMissingFolders(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folders.data must be set")
	assert.Contains(t, err.Error(), "folders.results must be set")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := map[string]func(*Config){
		"policy":    func(c *Config) { c.Run.ResumePolicy = "sometimes" },
		"fraction":  func(c *Config) { c.Run.Fractions = []float64{1.5} },
		"no-fracs":  func(c *Config) { c.Run.Fractions = nil },
		"workers":   func(c *Config) { c.Run.Workers = 0 },
		"delimiter": func(c *Config) { c.Load.Delimiter = "x" },
		"level":     func(c *Config) { c.Log.Level = "loud" },
		"alpha":     func(c *Config) { c.Analysis.Alpha = 1 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Folders = Folders{Data: "in", Results: "out"}
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "folders: [\n"))
	assert.Error(t, err)
}

func TestPrepareCreatesFolders(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Folders = Folders{Data: filepath.Join(dir, "data"), Results: filepath.Join(dir, "results")}

	require.NoError(t, cfg.Prepare())
	assert.DirExists(t, cfg.Folders.Data)
	assert.DirExists(t, cfg.Folders.Results)
}

func TestLoadingSection(t *testing.T) {
	path := writeConfig(t, `
folders:
  data: in
  results: out
load:
  delimiter: ";"
  na_tokens: ["", "missing"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Loading{Delimiter: ";", NATokens: []string{"", "missing"}}, cfg.Load)
	opts := cfg.LoadOptions()
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, []string{"", "missing"}, opts.NATokens)
	assert.Equal(t, "in", opts.Root)
}

func TestDelimiterValidationRegistered(t *testing.T) {
	for _, d := range []string{",", ";", "|", "tab", "auto"} {
		assert.NoError(t, validate.Var(d, "delimiter"), d)
	}
	assert.Error(t, validate.Var("x", "delimiter"))
}
