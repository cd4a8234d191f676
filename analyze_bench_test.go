package phenology

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/florasat/go-phenology/bloom"
	"github.com/florasat/go-phenology/timedataset"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var benchEvents []bloom.Event

func benchSeason() []timedataset.Observation {
	ts := season(92)
	return timedataset.GenerateConstY(len(ts), 0.25).
		Add(timedataset.GenerateBump(ts, 0.3, ts[20], 24)).
		Add(timedataset.GenerateBump(ts, 0.25, ts[66], 18)).
		Add(timedataset.GenerateNoise(len(ts), 0.03, 3)).
		MaskIndices(40, 42).
		Observations(ts)
}

func BenchmarkAnalyze(b *testing.B) {
	raw := benchSeason()
	history := bloom.HistoricalBaseline{2021: 150, 2022: 155, 2023: 160}

	var err error
	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(b.TempDir())).Stop()
	for b.Loop() {
		benchEvents, err = Analyze(raw, 2024, nil, history)
		if err != nil {
			panic(err)
		}
	}

	bytes, err := json.MarshalIndent(benchEvents, "", "  ")
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile(filepath.Join(b.TempDir(), "benchmark_events.json"), bytes, 0o644); err != nil {
		panic(err)
	}
}

func BenchmarkAnalyzeBatch(b *testing.B) {
	raw := benchSeason()
	tasks := make([]Task, 64)
	for i := range tasks {
		tasks[i] = Task{Region: "bench", Species: "citrus", Year: 2024, Raw: raw}
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := AnalyzeBatch(context.Background(), tasks, nil, 8); err != nil {
			panic(err)
		}
	}
}
