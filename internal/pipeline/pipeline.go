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

// Package pipeline runs one analysis: detect, parse, score every message,
// aggregate the batch and assemble the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bcem/commanalysis/internal/config"
	"github.com/bcem/commanalysis/internal/detect"
	"github.com/bcem/commanalysis/internal/metrics"
	"github.com/bcem/commanalysis/internal/models"
	"github.com/bcem/commanalysis/internal/parser"
	"github.com/bcem/commanalysis/internal/report"
	"github.com/bcem/commanalysis/internal/sentiment"
	"github.com/bcem/commanalysis/internal/spam"
	"github.com/bcem/commanalysis/internal/style"
)

var (
	// ErrEmptyBatch is returned when the inputs yield no messages.
	ErrEmptyBatch = metrics.ErrEmptyBatch

	// ErrScorerUnavailable is returned when no spam scorer is configured.
	ErrScorerUnavailable = errors.New("spam scorer unavailable")
)

// Input is one piece of raw text to analyse.
type Input struct {
	Text string
	// Format forces a parser; empty means detect.
	Format models.Format
	Hints  parser.Hints
}

// Config holds the pipeline dependencies.
type Config struct {
	Grammar       *detect.Grammar
	Spam          spam.Scorer
	Sentiment     *sentiment.Scorer
	Style         *style.Scorer
	Aggregator    *metrics.Aggregator
	Workers       int
	PreviewLength int
	Title         string

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// Pipeline is safe for concurrent use; each Run works on its own batch.
type Pipeline struct {
	detector      *detect.Detector
	parsers       *parser.Registry
	spam          spam.Scorer
	sentiment     *sentiment.Scorer
	style         *style.Scorer
	aggregator    *metrics.Aggregator
	workers       int
	previewLength int
	title         string
	now           func() time.Time
	newID         func() string
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Spam == nil {
		return nil, ErrScorerUnavailable
	}
	if cfg.Sentiment == nil || cfg.Style == nil {
		return nil, errors.New("pipeline: sentiment and style scorers are required")
	}

	g := cfg.Grammar
	if g == nil {
		g = detect.DefaultGrammar()
	}
	agg := cfg.Aggregator
	if agg == nil {
		agg = metrics.NewAggregator(metrics.DefaultTopSenders, metrics.DefaultRules())
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Pipeline{
		detector:      detect.NewDetector(g),
		parsers:       parser.NewRegistry(g),
		spam:          cfg.Spam,
		sentiment:     cfg.Sentiment,
		style:         cfg.Style,
		aggregator:    agg,
		workers:       workers,
		previewLength: cfg.PreviewLength,
		title:         cfg.Title,
		now:           now,
		newID:         newID,
	}, nil
}

// FromConfig wires a pipeline from loaded configuration and a spam scorer.
func FromConfig(c *config.Config, scorer spam.Scorer) (*Pipeline, error) {
	g, err := detect.NewGrammar(c.BoundaryMarker, c.WhatsAppPattern)
	if err != nil {
		return nil, err
	}
	sent, err := sentiment.NewScorer(sentiment.Lexicon{
		Positive: c.Sentiment.Positive,
		Negative: c.Sentiment.Negative,
	})
	if err != nil {
		return nil, err
	}
	st := style.NewScorer(style.Config{
		FormalKeywords: c.Style.FormalKeywords,
		Slang:          c.Style.Slang,
		Contractions:   c.Style.Contractions,
		Weights: style.Weights{
			FormalKeywords: c.Style.Weights.FormalKeywords,
			Slang:          c.Style.Weights.Slang,
			Contractions:   c.Style.Weights.Contractions,
			SentenceLength: c.Style.Weights.SentenceLength,
			Punctuation:    c.Style.Weights.Punctuation,
			Shouting:       c.Style.Weights.Shouting,
		},
		FormalThreshold:   c.Style.FormalThreshold,
		InformalThreshold: c.Style.InformalThreshold,
		ScoreFloor:        c.Style.ScoreFloor,
		ScoreCeiling:      c.Style.ScoreCeiling,
	})
	agg := metrics.NewAggregator(c.TopSenders, metrics.SuggestionRules{
		SpamRatio:     c.Suggestions.SpamRatio,
		NegativeShare: c.Suggestions.NegativeShare,
		SlowResponse:  c.Suggestions.SlowResponse,
		LowStyleScore: c.Suggestions.LowStyleScore,
		InformalRatio: c.Suggestions.InformalRatio,
	})

	return New(Config{
		Grammar:       g,
		Spam:          scorer,
		Sentiment:     sent,
		Style:         st,
		Aggregator:    agg,
		Workers:       c.Workers,
		PreviewLength: c.PreviewLength,
	})
}

// Run analyses inputs as one batch.
func (p *Pipeline) Run(ctx context.Context, inputs ...Input) (*models.AnalysisReport, error) {
	msgs := p.Ingest(inputs...)
	if len(msgs) == 0 {
		return nil, ErrEmptyBatch
	}

	if err := p.Score(ctx, msgs); err != nil {
		return nil, fmt.Errorf("score messages: %w", err)
	}

	summary, insights, err := p.aggregator.Aggregate(msgs)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	r, err := report.Assemble(report.Meta{
		ID:            p.newID(),
		Title:         p.title,
		GeneratedAt:   p.now(),
		PreviewLength: p.previewLength,
	}, msgs, summary, insights)
	if err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}

	slog.Info("analysis complete",
		"report_id", r.ID,
		"messages", r.Summary.TotalMessages,
		"spam", r.Summary.SpamCount,
		"avg_style", r.Summary.AverageStyleScore,
	)
	return &r, nil
}

// Ingest parses inputs into one ordered batch with unique message IDs.
func (p *Pipeline) Ingest(inputs ...Input) []models.Message {
	var batch []models.Message
	for _, in := range inputs {
		batch = append(batch, p.parse(in)...)
	}
	models.EnsureUniqueIDs(batch)
	models.OrderConversations(batch)
	return batch
}

func (p *Pipeline) parse(in Input) []models.Message {
	format := p.detector.Resolve(in.Text, in.Format)
	if in.Format == "" {
		slog.Info("detected format", "source", in.Hints.Source, "format", format)
	}

	msgs, err := p.parsers.Parse(format, in.Text, in.Hints)
	if err != nil {
		slog.Warn("no parser for format, treating as freeform",
			"source", in.Hints.Source,
			"format", format,
			"error", err,
		)
		msgs, _ = p.parsers.Parse(models.FormatFreeform, in.Text, in.Hints)
		return msgs
	}

	// Typed text forced through a structured parser that found nothing is
	// still analysed as a single message.
	if len(msgs) == 0 && in.Format != "" && in.Format != models.FormatFreeform {
		slog.Debug("explicit format yielded no messages, falling back to freeform",
			"source", in.Hints.Source,
			"format", in.Format,
		)
		msgs, _ = p.parsers.Parse(models.FormatFreeform, in.Text, in.Hints)
	}
	return msgs
}

// Score attaches analysis to every message. Work is spread over the
// configured number of workers; each worker writes only its own element.
func (p *Pipeline) Score(ctx context.Context, msgs []models.Message) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range msgs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return msgs[i].Attach(p.analyze(msgs[i].Body))
		})
	}
	return g.Wait()
}

func (p *Pipeline) analyze(body string) models.Analysis {
	verdict := p.spam.Score(body)
	score, formality := p.style.Score(body)
	return models.Analysis{
		IsSpam:         verdict.IsSpam,
		SpamConfidence: verdict.Confidence,
		Sentiment:      p.sentiment.Score(body),
		StyleScore:     score,
		Formality:      formality,
	}
}
