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

// Communication Analysis: HTTP service
//
// Entry point for the analysis API. It:
//  1. Loads configuration (embedded defaults, optional file, environment)
//  2. Loads the trained spam model
//  3. Connects to the optional Redis, AMQP and Postgres sinks
//  4. Serves POST /api/v1/analyze and GET /health
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/commanalysis/internal/api"
	"github.com/bcem/commanalysis/internal/batch"
	"github.com/bcem/commanalysis/internal/config"
	"github.com/bcem/commanalysis/internal/pipeline"
	"github.com/bcem/commanalysis/internal/queue"
	"github.com/bcem/commanalysis/internal/spam"
	"github.com/bcem/commanalysis/internal/store"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("starting communication analysis service",
		"workers", cfg.Workers,
		"rate_limit", cfg.RateLimit,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Spam Model ---
	model, err := spam.LoadModel(cfg.SpamModelPath)
	if err != nil {
		slog.Error("spam model unavailable", "path", cfg.SpamModelPath, "error", err)
		os.Exit(1)
	}
	p, err := pipeline.FromConfig(cfg, model.WithThreshold(cfg.SpamThreshold))
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	var (
		sinks  []batch.Sink
		checks = make(map[string]api.Pinger)
	)

	// --- Connect to Redis ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)

		publisher := queue.NewPublisher(rdb, cfg.ReportsQueue)
		if err := publisher.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to Redis")
		sinks = append(sinks, publisher)
		checks["redis"] = publisher
	}

	// --- Connect to AMQP ---
	var amqpPub *queue.AMQPPublisher
	if cfg.AMQPURL != "" {
		amqpPub, err = queue.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			slog.Error("failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to AMQP broker", "exchange", cfg.AMQPExchange)
		sinks = append(sinks, amqpPub)
	}

	// --- Connect to PostgreSQL ---
	var (
		pgPool  *pgxpool.Pool
		reports *store.ReportStore
	)
	if cfg.DatabaseURL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		if err := pgPool.Ping(ctx); err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to PostgreSQL")

		reports, err = store.NewReportStore(ctx, pgPool)
		if err != nil {
			slog.Error("failed to initialise report store", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, reports)
		checks["postgres"] = pgPool
	}

	runner := batch.NewRunner(batch.RunnerConfig{Analyzer: p, Sinks: sinks})
	apiCfg := api.Config{
		Runner:    runner,
		Checks:    checks,
		RateLimit: cfg.RateLimit,
	}
	if reports != nil {
		apiCfg.Reports = reports
	}
	server := api.NewServer(apiCfg)

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		if rdb != nil {
			rdb.Close()
		}
		if amqpPub != nil {
			amqpPub.Close()
		}
		if pgPool != nil {
			pgPool.Close()
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("communication analysis service stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
