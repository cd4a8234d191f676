package phenology

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/florasat/go-phenology/alerts"
	"github.com/florasat/go-phenology/bloom"
	"github.com/florasat/go-phenology/timedataset"
	"golang.org/x/sync/errgroup"
)

// Task is one independent season to analyze
type Task struct {
	Region  string                    `json:"region"`
	Species string                    `json:"species"`
	Year    int                       `json:"year"`
	Raw     []timedataset.Observation `json:"observations"`

	// History is optional, tasks without it report no anomaly
	History bloom.HistoricalBaseline `json:"history,omitempty"`

	// Weather is optional, tasks without it carry no weather summary
	Weather []WeatherSample `json:"weather,omitempty"`
}

// TaskResult holds the outcome of a single task. Err is set when the task failed, in which case
// Events is empty.
type TaskResult struct {
	Region  string         `json:"region"`
	Species string         `json:"species"`
	Year    int            `json:"year"`
	Events  []bloom.Event  `json:"events"`
	Alerts  []alerts.Alert `json:"alerts"`
	Err     error          `json:"-"`
	Error   string         `json:"error,omitempty"`

	// Analysis keeps the intermediate products of a successful task
	Analysis *Analysis `json:"-"`
}

func (r *TaskResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
	r.Events = []bloom.Event{}
	r.Alerts = []alerts.Alert{}
}

// AnalyzeBatch analyzes every task on a pool of at most workers goroutines, using the number of
// CPUs when workers is below one. Results are returned in task order. A failing task never
// affects the others. Once ctx is cancelled tasks that have not started fail with the context
// error. The returned error is only set for invalid options.
func AnalyzeBatch(ctx context.Context, tasks []Task, opt *Options, workers int) ([]TaskResult, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	results := make([]TaskResult, len(tasks))
	for i, task := range tasks {
		results[i] = TaskResult{
			Region:  task.Region,
			Species: task.Species,
			Year:    task.Year,
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			results[i].fail(err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].fail(err)
				return nil
			}
			res, err := runTask(tasks[i], opt)
			if err != nil {
				slog.Warn("unable to analyze task",
					"region", tasks[i].Region,
					"species", tasks[i].Species,
					"year", tasks[i].Year,
					"error", err.Error(),
				)
				results[i].fail(err)
				return nil
			}
			results[i].Events = res.Events
			results[i].Alerts = res.Alerts
			results[i].Analysis = res
			return nil
		})
	}
	// tasks never return an error to the group
	_ = g.Wait()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("batch analysis complete", "tasks", len(tasks), "failed", failed, "workers", workers)
	return results, nil
}

func runTask(task Task, opt *Options) (*Analysis, error) {
	a := &Analyzer{opt: opt}
	res, err := a.Run(task.Raw, task.Year, task.History)
	if err != nil {
		return nil, err
	}
	if _, err := a.DetectAlerts(task.Species); err != nil {
		return nil, fmt.Errorf("unable to detect alerts, %w", err)
	}
	if len(task.Weather) == 0 {
		return res, nil
	}
	if _, err := a.Enrich(task.Weather); err != nil {
		return nil, fmt.Errorf("unable to enrich with weather, %w", err)
	}
	return res, nil
}
