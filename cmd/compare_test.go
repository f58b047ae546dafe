package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/penf-tracelink/config"
	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
)

func createCompareTestDeps(cfg *config.Config) *CompareCommandDeps {
	return &CompareCommandDeps{
		Config: cfg,
		LoadConfig: func() (*config.Config, error) {
			return cfg, nil
		},
		Logger: logging.NewNopLogger(),
	}
}

func equalityConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Similarity.Measures = []string{"equality"}
	return cfg
}

func compareJSON(t *testing.T, deps *CompareCommandDeps, opts *compareOptions, a, b string) CompareReport {
	t.Helper()
	opts.output = "json"
	var out bytes.Buffer
	require.NoError(t, runCompare(context.Background(), deps, opts, a, b, &out))

	var report CompareReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	return report
}

func TestNewCompareCommand(t *testing.T) {
	cmd := NewCompareCommand(createCompareTestDeps(config.DefaultConfig()))
	assert.Equal(t, "compare <first> <second>", cmd.Use)
	assert.Error(t, cmd.Args(cmd, []string{"one"}))
	assert.NoError(t, cmd.Args(cmd, []string{"one", "two"}))
	for _, flag := range []string{"output", "char-match", "aggregation"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q", flag)
	}
	assert.NotNil(t, NewCompareCommand(nil))
}

func TestRunCompare_DefaultMeasures(t *testing.T) {
	report := compareJSON(t, createCompareTestDeps(config.DefaultConfig()), &compareOptions{}, "Payment", "payment")

	assert.True(t, report.Similar)
	assert.Equal(t, 1.0, report.Score)
	assert.Equal(t, "at_least_one", report.Strategy)
	require.Len(t, report.Measures, 3)
	assert.Equal(t, "equality", report.Measures[0].Measure)
	assert.True(t, report.Measures[0].Similar)
}

func TestRunCompare_CharMatchOverride(t *testing.T) {
	deps := createCompareTestDeps(equalityConfig())
	// First two letters are Cyrillic ER and A.
	spoofed := "Раyment"

	exact := compareJSON(t, deps, &compareOptions{}, spoofed, "payment")
	assert.False(t, exact.Similar)

	homoglyph := compareJSON(t, deps, &compareOptions{charMatch: "homoglyph"}, spoofed, "payment")
	assert.True(t, homoglyph.Similar)
	assert.Equal(t, "homoglyph", homoglyph.CharMatch)
	assert.Equal(t, "casefold", string(deps.Config.Similarity.CharMatch), "config is not modified")
}

func TestRunCompare_Abbreviations(t *testing.T) {
	file := filepath.Join(t.TempDir(), "abbreviations.yaml")
	require.NoError(t, os.WriteFile(file, []byte("DB: [database]\n"), 0o644))
	cfg := equalityConfig()
	cfg.Abbreviations.File = file

	report := compareJSON(t, createCompareTestDeps(cfg), &compareOptions{}, "Order Database", "Order DB")
	assert.True(t, report.Similar)
	assert.Equal(t, []string{"Order DB", "Order DB"}, report.Normalized)
}

func TestRunCompare_Text(t *testing.T) {
	var out bytes.Buffer
	err := runCompare(context.Background(), createCompareTestDeps(config.DefaultConfig()), &compareOptions{}, "cart", "user", &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), `"cart" vs "user": not similar`)
	assert.Contains(t, out.String(), "jarowinkler")
}

func TestRunCompare_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts *compareOptions
	}{
		{name: "char match", opts: &compareOptions{charMatch: "fuzzy"}},
		{name: "aggregation", opts: &compareOptions{aggregation: "median"}},
		{name: "output", opts: &compareOptions{output: "csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCompare(context.Background(), createCompareTestDeps(config.DefaultConfig()), tt.opts, "a", "b", &bytes.Buffer{})
			require.Error(t, err)
			assert.True(t, tlerrors.IsInvalidConfig(err))
		})
	}
}
