// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package batch runs one analysis over a set of inputs, skipping inputs
// already analysed on an earlier run, and fans the report out to sinks.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcem/commanalysis/internal/models"
	"github.com/bcem/commanalysis/internal/pipeline"
)

// ErrNothingNew is returned when every input was skipped as already seen.
var ErrNothingNew = errors.New("all inputs already analysed")

// Analyzer turns inputs into a report.
type Analyzer interface {
	Run(ctx context.Context, inputs ...pipeline.Input) (*models.AnalysisReport, error)
}

// SeenFilter remembers analysed input content. Implemented by
// *dedup.Filter.
type SeenFilter interface {
	SeenContent(ctx context.Context, text string) (bool, error)
	MarkContent(ctx context.Context, text string) error
}

// Sink receives finished reports.
type Sink interface {
	Publish(ctx context.Context, r *models.AnalysisReport) error
	Name() string
}

// Request defines the scope of one run.
type Request struct {
	Inputs []pipeline.Input
	// SkipSeen drops inputs whose content the filter has seen before.
	SkipSeen bool
}

// Result summarises a completed run.
type Result struct {
	Report       *models.AnalysisReport
	InputResults []InputResult
	Analysed     int
	Skipped      int
	SinkErrors   int
	Elapsed      time.Duration
}

// InputResult tracks what happened to one input.
type InputResult struct {
	Source  string
	Skipped bool
}

// Runner performs batch analysis.
type Runner struct {
	analyzer Analyzer
	seen     SeenFilter
	sinks    []Sink
}

// RunnerConfig holds dependencies for the runner. Seen may be nil.
type RunnerConfig struct {
	Analyzer Analyzer
	Seen     SeenFilter
	Sinks    []Sink
}

// NewRunner creates a batch runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		analyzer: cfg.Analyzer,
		seen:     cfg.Seen,
		sinks:    cfg.Sinks,
	}
}

// Run analyses the request's inputs as one batch and publishes the report
// to every sink. A failing sink is logged and counted; it does not fail
// the run.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result := &Result{}

	slog.Info("starting analysis run",
		"inputs", len(req.Inputs),
		"skip_seen", req.SkipSeen,
		"sinks", len(r.sinks),
	)

	inputs := make([]pipeline.Input, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		ir := InputResult{Source: in.Hints.Source}
		if req.SkipSeen && r.seen != nil {
			seen, err := r.seen.SeenContent(ctx, in.Text)
			if err != nil {
				// Unknown state: analyse it.
				slog.Warn("dedup check failed", "source", in.Hints.Source, "error", err)
			} else if seen {
				slog.Debug("skipping seen input", "source", in.Hints.Source)
				ir.Skipped = true
				result.Skipped++
				result.InputResults = append(result.InputResults, ir)
				continue
			}
		}
		inputs = append(inputs, in)
		result.InputResults = append(result.InputResults, ir)
	}
	result.Analysed = len(inputs)

	if len(inputs) == 0 && len(req.Inputs) > 0 {
		result.Elapsed = time.Since(start)
		return result, ErrNothingNew
	}

	rep, err := r.analyzer.Run(ctx, inputs...)
	if err != nil {
		return result, fmt.Errorf("analyse batch: %w", err)
	}
	result.Report = rep

	// Inputs count as seen only once their report exists.
	if r.seen != nil {
		for _, in := range inputs {
			if err := r.seen.MarkContent(ctx, in.Text); err != nil {
				slog.Warn("dedup mark failed", "source", in.Hints.Source, "error", err)
			}
		}
	}

	for _, s := range r.sinks {
		if err := s.Publish(ctx, rep); err != nil {
			slog.Error("sink failed",
				"sink", s.Name(),
				"report_id", rep.ID,
				"error", err,
			)
			result.SinkErrors++
			continue
		}
		slog.Debug("report delivered", "sink", s.Name(), "report_id", rep.ID)
	}

	result.Elapsed = time.Since(start)

	slog.Info("analysis run complete",
		"report_id", rep.ID,
		"analysed", result.Analysed,
		"skipped", result.Skipped,
		"sink_errors", result.SinkErrors,
		"elapsed", result.Elapsed,
	)
	return result, nil
}
