package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/florasat/go-phenology"
	"github.com/florasat/go-phenology/baseline"
	"github.com/florasat/go-phenology/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTasks(t *testing.T, dir string) string {
	t.Helper()
	ts := timedataset.GenerateGrid(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 46, 8)
	y := timedataset.GenerateConstY(len(ts), 0.2).
		Add(timedataset.GenerateBump(ts, 0.3, ts[21], 20))

	tasks := []phenology.Task{
		{Region: "valencia", Species: "citrus", Year: 2024, Raw: y.Observations(ts)},
		{Region: "valencia", Species: "almond", Year: 2024, Raw: y.Observations(ts)[:2]},
	}
	bytes, err := json.Marshal(tasks)
	require.Nil(t, err)

	path := filepath.Join(dir, "tasks.json")
	require.Nil(t, os.WriteFile(path, bytes, 0o644))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "baseline.db")
	ctx := context.Background()

	store, err := baseline.Open(ctx, "sqlite", dsn)
	require.Nil(t, err)
	for year, doy := range map[int]int{2019: 179, 2020: 183, 2021: 181, 2022: 180, 2023: 182} {
		require.Nil(t, store.RecordPeak(ctx, "valencia", "citrus", year, doy))
	}
	require.Nil(t, store.Close())

	optionsPath := filepath.Join(dir, "options.yaml")
	require.Nil(t, os.WriteFile(optionsPath, []byte("peaks:\n  min_prominence: 0.05\n"), 0o644))

	cfg := config{
		in:             writeTasks(t, dir),
		out:            filepath.Join(dir, "results.json"),
		optionsFile:    optionsPath,
		workers:        2,
		baselineDSN:    dsn,
		baselineDriver: "sqlite",
		record:         true,
		plotDir:        filepath.Join(dir, "plots"),
	}
	require.Nil(t, run(ctx, cfg))

	bytes, err := os.ReadFile(cfg.out)
	require.Nil(t, err)
	var results []phenology.TaskResult
	require.Nil(t, json.Unmarshal(bytes, &results))
	require.Len(t, results, 2)

	require.Len(t, results[0].Events, 1)
	require.NotNil(t, results[0].Events[0].AnomalyDays)
	assert.InDelta(t, -12.0, *results[0].Events[0].AnomalyDays, 0.01)
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)

	_, err = os.Stat(filepath.Join(cfg.plotDir, "valencia_citrus_2024.html"))
	assert.Nil(t, err)
	_, err = os.Stat(filepath.Join(cfg.plotDir, "valencia_almond_2024.html"))
	assert.True(t, os.IsNotExist(err))

	store, err = baseline.Open(ctx, "sqlite", dsn)
	require.Nil(t, err)
	defer store.Close()
	history, err := store.PeakDays(ctx, "valencia", "citrus")
	require.Nil(t, err)
	assert.Equal(t, 169, history[2024])
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	tasks := writeTasks(t, dir)

	testData := map[string]config{
		"missing tasks file": {in: filepath.Join(dir, "missing.json"), out: "-"},
		"missing options":    {in: tasks, out: "-", optionsFile: filepath.Join(dir, "missing.yaml")},
		"record without db":  {in: tasks, out: "-", record: true},
		"unknown driver":     {in: tasks, out: "-", baselineDSN: "x", baselineDriver: "mysql"},
	}

	for name, cfg := range testData {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, run(context.Background(), cfg))
		})
	}
}

func TestPlotName(t *testing.T) {
	testData := map[string]struct {
		region   string
		species  string
		expected string
	}{
		"plain":           {region: "valencia", species: "citrus", expected: "valencia_citrus_2024.html"},
		"parent region":   {region: "../x", species: "citrus", expected: ".._x_citrus_2024.html"},
		"nested species":  {region: "valencia", species: "a/b/c", expected: "valencia_a_b_c_2024.html"},
		"backslash":       {region: `..\..\x`, species: "citrus", expected: ".._.._x_citrus_2024.html"},
		"absolute region": {region: "/etc", species: "citrus", expected: "_etc_citrus_2024.html"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, plotName(phenology.TaskResult{Region: td.region, Species: td.species, Year: 2024}))
		})
	}
}

func TestPlotResultsStayInDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "plots")

	ts := timedataset.GenerateGrid(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 46, 8)
	y := timedataset.GenerateConstY(len(ts), 0.2).
		Add(timedataset.GenerateBump(ts, 0.3, ts[21], 20))
	a, err := phenology.NewAnalyzer(nil)
	require.Nil(t, err)
	res, err := a.Run(y.Observations(ts), 2024, nil)
	require.Nil(t, err)

	results := []phenology.TaskResult{{Region: "../escape", Species: "citrus", Year: 2024, Analysis: res}}
	require.Nil(t, plotResults(dir, results))

	_, err = os.Stat(filepath.Join(dir, ".._escape_citrus_2024.html"))
	assert.Nil(t, err)
	_, err = os.Stat(filepath.Join(root, "escape_citrus_2024.html"))
	assert.True(t, os.IsNotExist(err))
}
