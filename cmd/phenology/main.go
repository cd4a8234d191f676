// Command phenology runs bloom event extraction over a batch of seasons read from a JSON file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/florasat/go-phenology"
	"github.com/florasat/go-phenology/baseline"
	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/pkg/profile"
	_ "modernc.org/sqlite"
)

type config struct {
	in             string
	out            string
	optionsFile    string
	workers        int
	baselineDSN    string
	baselineDriver string
	record         bool
	plotDir        string
	cpuProfileDir  string
	logFormat      string
}

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code once every deferred cleanup has run
func realMain() int {
	var cfg config
	flag.StringVar(&cfg.in, "in", "-", "JSON file with the tasks to analyze, - for stdin")
	flag.StringVar(&cfg.out, "out", "-", "file to write the JSON results to, - for stdout")
	flag.StringVar(&cfg.optionsFile, "config", "", "YAML or JSON options file, defaults are used when empty")
	flag.IntVar(&cfg.workers, "workers", 0, "number of concurrent analyses, 0 uses every CPU")
	flag.StringVar(&cfg.baselineDSN, "baseline-db", "", "connection string of the historical baseline database")
	flag.StringVar(&cfg.baselineDriver, "baseline-driver", "sqlite", "baseline database driver (sqlite, postgres)")
	flag.BoolVar(&cfg.record, "record", false, "record the peak day of each analyzed season in the baseline database")
	flag.StringVar(&cfg.plotDir, "plot", "", "directory to write one html plot per successful task")
	flag.StringVar(&cfg.cpuProfileDir, "cpuprofile", "", "directory to write a CPU profile to")
	flag.StringVar(&cfg.logFormat, "log-format", "text", "log format (text, json)")
	flag.Parse()

	slog.SetDefault(slog.New(newLogHandler(cfg.logFormat)))

	if cfg.cpuProfileDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.cpuProfileDir), profile.Quiet).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("phenology run failed", "error", err.Error())
		return 1
	}
	return 0
}

func newLogHandler(format string) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(os.Stderr, nil)
	}
	return slog.NewTextHandler(os.Stderr, nil)
}

func run(ctx context.Context, cfg config) error {
	opt, err := loadOptions(cfg.optionsFile)
	if err != nil {
		return err
	}

	tasks, err := readTasks(cfg.in)
	if err != nil {
		return err
	}

	var store *baseline.SQLStore
	if cfg.baselineDSN != "" {
		store, err = baseline.Open(ctx, cfg.baselineDriver, cfg.baselineDSN)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := fillHistory(ctx, store, tasks); err != nil {
			return err
		}
	} else if cfg.record {
		return errors.New("-record requires -baseline-db")
	}

	results, err := phenology.AnalyzeBatch(ctx, tasks, opt, cfg.workers)
	if err != nil {
		return err
	}

	if cfg.record {
		if err := recordPeaks(ctx, store, results); err != nil {
			return err
		}
	}
	if cfg.plotDir != "" {
		if err := plotResults(cfg.plotDir, results); err != nil {
			return err
		}
	}
	return writeResults(cfg.out, results)
}

func loadOptions(path string) (*phenology.Options, error) {
	if path == "" {
		return phenology.NewDefaultOptions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read options file, %w", err)
	}
	return phenology.ParseOptions(data)
}

func readTasks(path string) ([]phenology.Task, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open tasks file, %w", err)
		}
		defer f.Close()
		r = f
	}

	var tasks []phenology.Task
	if err := json.NewDecoder(r).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("unable to decode tasks, %w", err)
	}
	return tasks, nil
}

// fillHistory loads the stored baseline of every task that did not bring its own
func fillHistory(ctx context.Context, store baseline.Store, tasks []phenology.Task) error {
	for i := range tasks {
		if len(tasks[i].History) > 0 {
			continue
		}
		history, err := store.PeakDays(ctx, tasks[i].Region, tasks[i].Species)
		if err != nil {
			return err
		}
		tasks[i].History = history
	}
	return nil
}

// recordPeaks stores the peak day of the most reliable event of every successful task
func recordPeaks(ctx context.Context, store baseline.Store, results []phenology.TaskResult) error {
	for _, r := range results {
		if r.Err != nil || len(r.Events) == 0 {
			continue
		}
		best := r.Events[0]
		for _, ev := range r.Events[1:] {
			if ev.Reliability > best.Reliability {
				best = ev
			}
		}
		if err := store.RecordPeak(ctx, r.Region, r.Species, r.Year, best.PeakDOY); err != nil {
			return err
		}
	}
	return nil
}

func plotResults(dir string, results []phenology.TaskResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create plot directory, %w", err)
	}
	for _, r := range results {
		if r.Analysis == nil {
			continue
		}
		name := plotName(r)
		if err := r.Analysis.Plot(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("unable to plot %s, %w", name, err)
		}
	}
	return nil
}

// plotName names the plot of a task, keeping it inside the plot directory whatever the
// region and species hold
func plotName(r phenology.TaskResult) string {
	clean := strings.NewReplacer("/", "_", `\`, "_")
	return filepath.Base(fmt.Sprintf("%s_%s_%d.html", clean.Replace(r.Region), clean.Replace(r.Species), r.Year))
}

func writeResults(path string, results []phenology.TaskResult) error {
	bytes, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode results, %w", err)
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(bytes, '\n'))
		return err
	}
	return os.WriteFile(path, bytes, 0o644)
}
