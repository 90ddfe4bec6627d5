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

// Package config loads configuration from the built-in defaults, an optional
// YAML or TOML file, a .env file and environment variables.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// StyleWeights are the coefficients of the style feature sum.
type StyleWeights struct {
	FormalKeywords float64 `yaml:"formal_keywords" toml:"formal_keywords"`
	Slang          float64 `yaml:"slang" toml:"slang"`
	Contractions   float64 `yaml:"contractions" toml:"contractions"`
	SentenceLength float64 `yaml:"sentence_length" toml:"sentence_length"`
	Punctuation    float64 `yaml:"punctuation" toml:"punctuation"`
	Shouting       float64 `yaml:"shouting" toml:"shouting"`
}

// StyleConfig holds the style scorer vocabulary and thresholds.
type StyleConfig struct {
	FormalKeywords    []string     `yaml:"formal_keywords" toml:"formal_keywords" validate:"min=1"`
	Slang             []string     `yaml:"slang" toml:"slang" validate:"min=1"`
	Contractions      []string     `yaml:"contractions" toml:"contractions"`
	Weights           StyleWeights `yaml:"weights" toml:"weights"`
	FormalThreshold   float64      `yaml:"formal_threshold" toml:"formal_threshold"`
	InformalThreshold float64      `yaml:"informal_threshold" toml:"informal_threshold" validate:"ltfield=FormalThreshold"`
	ScoreFloor        float64      `yaml:"score_floor" toml:"score_floor"`
	ScoreCeiling      float64      `yaml:"score_ceiling" toml:"score_ceiling" validate:"gtfield=ScoreFloor"`
}

// SentimentConfig holds the two polarity lexicons.
type SentimentConfig struct {
	Positive []string `yaml:"positive" toml:"positive" validate:"min=1,dive,required"`
	Negative []string `yaml:"negative" toml:"negative" validate:"min=1,dive,required"`
}

// SuggestionConfig holds the thresholds of the behavioral suggestion rules.
type SuggestionConfig struct {
	SpamRatio     float64       `validate:"gt=0,lte=1"`
	NegativeShare float64       `validate:"gt=0,lte=1"`
	SlowResponse  time.Duration `validate:"gt=0"`
	LowStyleScore float64       `validate:"gte=0,lte=100"`
	InformalRatio float64       `validate:"gt=0"`
}

// Config holds all configuration for the analysis service.
type Config struct {
	// Grammar
	BoundaryMarker  string `validate:"required"`
	WhatsAppPattern string `validate:"required"`

	// Analysis
	TopSenders    int `validate:"gte=1"`
	Workers       int `validate:"gte=1"`
	PreviewLength int `validate:"gte=1"`
	SpamModelPath string
	SpamThreshold float64 `validate:"gt=0,lt=1"`
	Sentiment     SentimentConfig
	Style         StyleConfig
	Suggestions   SuggestionConfig

	// Output
	ReportsDir string `validate:"required"`
	SampleDir  string

	// Redis (optional)
	RedisURL     string
	ReportsQueue string
	DedupTTL     time.Duration

	// AMQP (optional)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Postgres (optional)
	DatabaseURL string

	// Server
	Port      int     `validate:"gt=0,lt=65536"`
	RateLimit float64 `validate:"gte=0"`

	LogLevel string `validate:"oneof=debug info warn error"`
}

// rawConfig mirrors the file structure for unmarshalling.
type rawConfig struct {
	Analysis struct {
		BoundaryMarker  string `yaml:"boundary_marker" toml:"boundary_marker"`
		WhatsAppPattern string `yaml:"whatsapp_pattern" toml:"whatsapp_pattern"`
		TopSenders      int    `yaml:"top_senders" toml:"top_senders"`
		Workers         int    `yaml:"workers" toml:"workers"`
		PreviewLength   int    `yaml:"preview_length" toml:"preview_length"`
	} `yaml:"analysis" toml:"analysis"`
	Spam struct {
		ModelPath string  `yaml:"model_path" toml:"model_path"`
		Threshold float64 `yaml:"threshold" toml:"threshold"`
	} `yaml:"spam" toml:"spam"`
	Sentiment   SentimentConfig `yaml:"sentiment" toml:"sentiment"`
	Style       StyleConfig     `yaml:"style" toml:"style"`
	Suggestions struct {
		SpamRatio     float64 `yaml:"spam_ratio" toml:"spam_ratio"`
		NegativeShare float64 `yaml:"negative_share" toml:"negative_share"`
		SlowResponse  string  `yaml:"slow_response" toml:"slow_response"`
		LowStyleScore float64 `yaml:"low_style_score" toml:"low_style_score"`
		InformalRatio float64 `yaml:"informal_ratio" toml:"informal_ratio"`
	} `yaml:"suggestions" toml:"suggestions"`
	Output struct {
		ReportsDir string `yaml:"reports_dir" toml:"reports_dir"`
		SampleDir  string `yaml:"sample_dir" toml:"sample_dir"`
	} `yaml:"output" toml:"output"`
	Redis struct {
		URL    string `yaml:"url" toml:"url"`
		Queues struct {
			Reports string `yaml:"reports" toml:"reports"`
		} `yaml:"queues" toml:"queues"`
		DedupTTL string `yaml:"dedup_ttl" toml:"dedup_ttl"`
	} `yaml:"redis" toml:"redis"`
	AMQP struct {
		URL        string `yaml:"url" toml:"url"`
		Exchange   string `yaml:"exchange" toml:"exchange"`
		RoutingKey string `yaml:"routing_key" toml:"routing_key"`
	} `yaml:"amqp" toml:"amqp"`
	DatabaseURL string `yaml:"database_url" toml:"database_url"`
	Server      struct {
		Port      int     `yaml:"port" toml:"port"`
		RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
	} `yaml:"server" toml:"server"`
}

// Load builds the configuration. path may be empty, in which case
// CONFIG_PATH is consulted; with neither set only the built-in defaults and
// environment variables apply.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(defaultsYAML, &raw); err != nil {
		return nil, fmt.Errorf("parse built-in defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := overlayFile(&raw, path); err != nil {
			return nil, err
		}
	}

	cfg, err := build(&raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFile decodes the file at path on top of raw. Keys absent from the
// file keep their current values.
func overlayFile(raw *rawConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand ${VAR} references in the file
	expanded := os.ExpandEnv(string(data))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, raw); err != nil {
			return fmt.Errorf("parse config TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), raw); err != nil {
			return fmt.Errorf("parse config YAML: %w", err)
		}
	}
	return nil
}

func build(raw *rawConfig) (*Config, error) {
	slow, err := time.ParseDuration(raw.Suggestions.SlowResponse)
	if err != nil {
		return nil, fmt.Errorf("suggestions.slow_response: %w", err)
	}
	ttl, err := time.ParseDuration(firstNonEmpty(raw.Redis.DedupTTL, "24h"))
	if err != nil {
		return nil, fmt.Errorf("redis.dedup_ttl: %w", err)
	}

	cfg := &Config{
		BoundaryMarker:  raw.Analysis.BoundaryMarker,
		WhatsAppPattern: raw.Analysis.WhatsAppPattern,
		TopSenders:      raw.Analysis.TopSenders,
		Workers:         envOrDefaultInt("WORKERS", raw.Analysis.Workers),
		PreviewLength:   raw.Analysis.PreviewLength,
		SpamModelPath:   envOrDefault("SPAM_MODEL_PATH", raw.Spam.ModelPath),
		SpamThreshold:   raw.Spam.Threshold,
		Sentiment:       raw.Sentiment,
		Style:           raw.Style,
		Suggestions: SuggestionConfig{
			SpamRatio:     raw.Suggestions.SpamRatio,
			NegativeShare: raw.Suggestions.NegativeShare,
			SlowResponse:  slow,
			LowStyleScore: raw.Suggestions.LowStyleScore,
			InformalRatio: raw.Suggestions.InformalRatio,
		},
		ReportsDir:     envOrDefault("REPORTS_DIR", raw.Output.ReportsDir),
		SampleDir:      envOrDefault("SAMPLE_DIR", raw.Output.SampleDir),
		RedisURL:       envOrDefault("REDIS_URL", raw.Redis.URL),
		ReportsQueue:   envOrDefault("REPORTS_QUEUE", firstNonEmpty(raw.Redis.Queues.Reports, "reports")),
		DedupTTL:       envOrDefaultDuration("DEDUP_TTL", ttl),
		AMQPURL:        envOrDefault("AMQP_URL", raw.AMQP.URL),
		AMQPExchange:   firstNonEmpty(raw.AMQP.Exchange, "commanalysis"),
		AMQPRoutingKey: firstNonEmpty(raw.AMQP.RoutingKey, "report.completed"),
		DatabaseURL:    envOrDefault("DATABASE_URL", raw.DatabaseURL),
		Port:           envOrDefaultInt("PORT", raw.Server.Port),
		RateLimit:      raw.Server.RateLimit,
		LogLevel:       strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and that the sentiment lexicons are
// disjoint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	negative := make(map[string]struct{}, len(c.Sentiment.Negative))
	for _, w := range c.Sentiment.Negative {
		negative[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range c.Sentiment.Positive {
		if _, ok := negative[strings.ToLower(w)]; ok {
			return fmt.Errorf("invalid configuration: %q is in both sentiment lexicons", w)
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
