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

// Communication Analysis: batch CLI
//
// Analyses sample text files, a single file, or one typed message from
// stdin, prints a summary and writes the full report to the reports
// directory. With -publish the report is also sent to every configured
// downstream sink (Redis, AMQP, Postgres).
//
// Usage:
//
//	go run ./cmd/analyze/ [-dir samples] [-list] [-index 2] [-file chat.txt] [-stdin -type sms -sender bob] [-skip-seen] [-publish]
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
	"strings"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/commanalysis/internal/batch"
	"github.com/bcem/commanalysis/internal/config"
	"github.com/bcem/commanalysis/internal/dedup"
	"github.com/bcem/commanalysis/internal/models"
	"github.com/bcem/commanalysis/internal/parser"
	"github.com/bcem/commanalysis/internal/pipeline"
	"github.com/bcem/commanalysis/internal/queue"
	"github.com/bcem/commanalysis/internal/report"
	"github.com/bcem/commanalysis/internal/source"
	"github.com/bcem/commanalysis/internal/spam"
	"github.com/bcem/commanalysis/internal/store"
)

func main() {
	// --- CLI Flags ---
	dirFlag := flag.String("dir", "", "Directory of .txt samples to analyse (default: configured sample_dir)")
	fileFlag := flag.String("file", "", "Single file to analyse")
	indexFlag := flag.Int("index", 0, "Analyse only the Nth sample (1-based, as shown by -list)")
	listFlag := flag.Bool("list", false, "List the numbered samples and exit")
	stdinFlag := flag.Bool("stdin", false, "Read one typed message from stdin")
	typeFlag := flag.String("type", "text", "Message type for -stdin: email, whatsapp, sms, text, other")
	senderFlag := flag.String("sender", "", "Sender for -stdin input")
	convFlag := flag.String("conversation", "", "Conversation ID for -stdin input")
	tsFlag := flag.String("timestamp", "", "RFC 3339 timestamp for -stdin input")
	configFlag := flag.String("config", "", "Path to a YAML or TOML config file")
	outFlag := flag.String("out", "", "Reports directory (default: configured reports_dir)")
	skipSeenFlag := flag.Bool("skip-seen", false, "Skip inputs analysed on earlier runs (requires Redis)")
	publishFlag := flag.Bool("publish", false, "Publish the report to configured Redis, AMQP and Postgres sinks")
	flag.Parse()

	// --- Load Configuration ---
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	if *listFlag {
		dir := firstNonEmpty(*dirFlag, cfg.SampleDir)
		files, err := source.ListDir(dir)
		if err != nil {
			slog.Error("failed to list samples", "error", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Printf("No sample files found in %s\n", dir)
		}
		for i, f := range files {
			fmt.Printf("%2d. %s\n", i+1, f.Name)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Spam Model ---
	model, err := spam.LoadModel(cfg.SpamModelPath)
	if err != nil {
		slog.Error("spam model unavailable; train one with cmd/trainer",
			"path", cfg.SpamModelPath,
			"error", err,
		)
		os.Exit(1)
	}
	model = model.WithThreshold(cfg.SpamThreshold)
	ham, spamDocs := model.Documents()
	slog.Debug("spam model loaded", "ham_docs", ham, "spam_docs", spamDocs, "vocabulary", model.VocabularySize())

	p, err := pipeline.FromConfig(cfg, model)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	// --- Resolve inputs ---
	inputs, err := collectInputs(inputOptions{
		dir:          firstNonEmpty(*dirFlag, cfg.SampleDir),
		file:         *fileFlag,
		index:        *indexFlag,
		stdin:        *stdinFlag,
		typ:          *typeFlag,
		sender:       *senderFlag,
		conversation: *convFlag,
		timestamp:    *tsFlag,
	}, os.Stdin)
	if err != nil {
		slog.Error("failed to read input", "error", err)
		os.Exit(1)
	}

	// --- Sinks ---
	fileSink := report.NewFileSink(firstNonEmpty(*outFlag, cfg.ReportsDir))
	sinks := []batch.Sink{fileSink}

	var rdb *redis.Client
	if cfg.RedisURL != "" && (*publishFlag || *skipSeenFlag) {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
	}

	if *publishFlag {
		if rdb != nil {
			publisher := queue.NewPublisher(rdb, cfg.ReportsQueue)
			if err := publisher.Ping(ctx); err != nil {
				slog.Error("failed to connect to Redis", "error", err)
				os.Exit(1)
			}
			sinks = append(sinks, publisher)
		}
		if cfg.AMQPURL != "" {
			amqpPub, err := queue.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
			if err != nil {
				slog.Error("failed to connect to AMQP broker", "error", err)
				os.Exit(1)
			}
			defer amqpPub.Close()
			sinks = append(sinks, amqpPub)
		}
		if cfg.DatabaseURL != "" {
			pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				slog.Error("failed to create Postgres pool", "error", err)
				os.Exit(1)
			}
			defer pgPool.Close()
			reports, err := store.NewReportStore(ctx, pgPool)
			if err != nil {
				slog.Error("failed to initialise report store", "error", err)
				os.Exit(1)
			}
			sinks = append(sinks, reports)
		}
		if len(sinks) == 1 {
			slog.Warn("-publish set but no REDIS_URL, AMQP_URL or DATABASE_URL configured")
		}
	}

	runnerCfg := batch.RunnerConfig{Analyzer: p, Sinks: sinks}
	if *skipSeenFlag {
		if rdb == nil {
			slog.Warn("-skip-seen requires REDIS_URL; analysing every input")
		} else {
			runnerCfg.Seen = dedup.NewFilter(rdb, cfg.DedupTTL)
		}
	}

	// --- Run ---
	result, err := batch.NewRunner(runnerCfg).Run(ctx, batch.Request{
		Inputs:   inputs,
		SkipSeen: *skipSeenFlag,
	})
	switch {
	case errors.Is(err, batch.ErrNothingNew):
		slog.Info("nothing new to analyse", "skipped", result.Skipped)
		return
	case errors.Is(err, pipeline.ErrEmptyBatch):
		slog.Error("no messages found in input")
		os.Exit(1)
	case err != nil:
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	// --- Summary ---
	if err := report.WriteSummary(os.Stdout, *result.Report); err != nil {
		slog.Error("failed to print summary", "error", err)
	}
	fmt.Printf("\nFull report: %s\n", fileSink.Path(result.Report))

	if result.SinkErrors > 0 {
		slog.Warn("some sinks failed", "failed", result.SinkErrors, "sinks", len(sinks))
		os.Exit(2)
	}
}

// inputOptions selects where the batch comes from. Precedence is stdin,
// then file, then one indexed sample, then the whole directory.
type inputOptions struct {
	dir          string
	file         string
	index        int
	stdin        bool
	typ          string
	sender       string
	conversation string
	timestamp    string
}

func collectInputs(o inputOptions, stdin io.Reader) ([]pipeline.Input, error) {
	switch {
	case o.stdin:
		format, err := models.ParseFormat(o.typ)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		hints := parser.Hints{
			Source:         "stdin_" + strings.ToLower(strings.TrimSpace(o.typ)),
			Sender:         o.sender,
			ConversationID: o.conversation,
		}
		if o.timestamp != "" {
			ts, err := time.Parse(time.RFC3339, o.timestamp)
			if err != nil {
				return nil, fmt.Errorf("invalid -timestamp %q: %w", o.timestamp, err)
			}
			hints.Timestamp = &ts
		}
		return []pipeline.Input{{Text: string(data), Format: format, Hints: hints}}, nil

	case o.file != "":
		f, err := source.ReadFile(o.file)
		if err != nil {
			return nil, err
		}
		return []pipeline.Input{{Text: f.Text, Hints: parser.Hints{Source: f.Name}}}, nil

	case o.index != 0:
		files, err := source.ListDir(o.dir)
		if err != nil {
			return nil, err
		}
		if o.index < 1 || o.index > len(files) {
			return nil, fmt.Errorf("sample index %d out of range (1-%d)", o.index, len(files))
		}
		f := files[o.index-1]
		return []pipeline.Input{{Text: f.Text, Hints: parser.Hints{Source: f.Name}}}, nil

	case o.dir != "":
		files, err := source.ListDir(o.dir)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded sample files", "dir", o.dir, "files", len(files))
		inputs := make([]pipeline.Input, 0, len(files))
		for _, f := range files {
			inputs = append(inputs, pipeline.Input{Text: f.Text, Hints: parser.Hints{Source: f.Name}})
		}
		return inputs, nil
	}
	return nil, errors.New("no input: pass -dir, -file or -stdin")
}

// setupLogging installs a human-readable slog handler on stderr.
func setupLogging(level string) {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	slog.SetDefault(slog.New(handler))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
