package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mc-integrator/config"
	"mc-integrator/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	readme := filepath.Join(dir, "README.md")
	plot := filepath.Join(dir, "integral_plot.png")
	jsonPath := filepath.Join(dir, "run.json")
	chartPath := filepath.Join(dir, "chart.html")
	metricsPath := filepath.Join(dir, "mcint.prom")
	exportPath := filepath.Join(dir, "metrics.json")

	out, err := execute(t,
		"-n", "20000", "--seed", "7",
		"--readme", readme, "--plot", plot,
		"--json", jsonPath, "--chart", chartPath, "--metrics-file", metricsPath,
		"--export", exportPath, "--verbose",
		"--log-level", "error",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Monte Carlo: ")
	assert.Contains(t, out, "Quad:        2.666667 ± ")
	assert.Contains(t, out, "Rel. error:  ")
	assert.Contains(t, out, "Plot saved:  "+plot)
	assert.Contains(t, out, "README saved: "+readme)

	md, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Contains(t, string(md), "![](integral_plot.png)")
	assert.Contains(t, string(md), "**20000**")

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var r domain.Report
	require.NoError(t, json.Unmarshal(raw, &r))
	assert.Equal(t, uint64(7), r.Seed)
	assert.InDelta(t, 8.0/3.0, r.Estimate, 0.1)

	for _, p := range []string{plot, chartPath} {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "mcint_runs_total")

	exported, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(exported, &m))
	assert.Contains(t, out, "Metrics exported to: "+exportPath)
}

func TestRootFailureLeavesFilesUntouched(t *testing.T) {
	dir := t.TempDir()
	readme := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("previous"), 0o644))

	_, err := execute(t, "--a", "2", "--b", "0", "--readme", readme, "--plot", filepath.Join(dir, "p.png"))
	require.Error(t, err)
	assert.Equal(t, "InvalidIntervalError", domain.Kind(err))

	got, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
	_, err = os.Stat(filepath.Join(dir, "p.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRootRejectsBadSampleCount(t *testing.T) {
	_, err := execute(t, "-n", "0", "--readme", "", "--plot", "")
	assert.ErrorIs(t, err, domain.ErrInvalidSampleCount)
}

func TestRootBudgetExceeded(t *testing.T) {
	_, err := execute(t, "-n", "1000", "--max-evals", "10", "--readme", "", "--plot", "", "--log-level", "error")
	assert.Equal(t, "BudgetExceededError", domain.Kind(err))
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mcint.yaml")
	jsonPath := filepath.Join(dir, "run.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
run:
  function: cube
  a: 0
  b: 1
  samples: 5000
  seed: 3
output:
  readme: ""
  plot: ""
log:
  level: error
`), 0o644))

	_, err := execute(t, "--config", cfgPath, "--samples", "8000", "--json", jsonPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var r domain.Report
	require.NoError(t, json.Unmarshal(raw, &r))
	assert.Equal(t, "cube", r.Integrand)
	assert.Equal(t, 8000, r.Samples, "flag overrides the file")
	assert.Equal(t, uint64(3), r.Seed)
	assert.InDelta(t, 0.25, r.Reference, 1e-12)
}

func TestHistoryAndShow(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	jsonPath := filepath.Join(dir, "run.json")

	_, err := execute(t, "-n", "1000", "--seed", "1", "--history", db,
		"--readme", "", "--plot", "", "--json", jsonPath, "--log-level", "error")
	require.NoError(t, err)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var r domain.Report
	require.NoError(t, json.Unmarshal(raw, &r))

	out, err := execute(t, "history", "--history", db)
	require.NoError(t, err)
	assert.Contains(t, out, r.RunID)
	assert.Contains(t, out, "square")

	out, err = execute(t, "show", r.RunID, "--history", db)
	require.NoError(t, err)
	assert.Contains(t, out, `"run_id": "`+r.RunID+`"`)

	_, err = execute(t, "show", "missing", "--history", db)
	assert.Error(t, err)
}

func TestHistoryRequiresDatabase(t *testing.T) {
	_, err := execute(t, "history")
	assert.Error(t, err)
}

func TestFunctions(t *testing.T) {
	out, err := execute(t, "functions")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Greater(t, len(lines), 5)
	assert.Contains(t, out, "square")
	assert.Contains(t, out, "poly:c0,c1,...")
}

func TestPlotLink(t *testing.T) {
	assert.Equal(t, "integral_plot.png", plotLink("README.md", "integral_plot.png"))
	assert.Equal(t, filepath.Join("img", "p.png"), plotLink("docs/../README.md", "img/p.png"))
	assert.Empty(t, plotLink("README.md", ""))
}

func TestEveryFlagOverridesConfig(t *testing.T) {
	root := newRootCmd()
	defined := map[string]bool{}
	collect := func(fl *pflag.Flag) {
		if fl.Name != "config" && fl.Name != "help" {
			defined[fl.Name] = true
		}
	}
	root.Flags().VisitAll(collect)
	root.PersistentFlags().VisitAll(collect)

	for name := range defined {
		assert.Contains(t, overrides, name, "flag --%s is not applied to the config", name)
	}
	for name := range overrides {
		assert.True(t, defined[name], "override for undefined flag --%s", name)
	}
}

func TestFlagOverrideTable(t *testing.T) {
	o := &cliOptions{flags: config.Default()}
	root := newRootCmd()
	o.flags.Run.Samples = 123
	o.flags.Quadrature.Limit = 7
	o.flags.Output.Summary = true
	o.bound = map[*pflag.Flag]bool{}
	for _, name := range []string{"samples", "limit", "verbose"} {
		fl := root.Flags().Lookup(name)
		require.NotNil(t, fl)
		require.NoError(t, root.Flags().Set(name, fl.DefValue))
		o.bound[fl] = true
	}

	cfg, err := o.resolve(root.Flags())
	require.NoError(t, err)
	assert.Equal(t, 123, cfg.Run.Samples)
	assert.Equal(t, 7, cfg.Quadrature.Limit)
	assert.True(t, cfg.Output.Summary)
	assert.Equal(t, config.Default().Run.B, cfg.Run.B, "unset flags keep the config value")
}
