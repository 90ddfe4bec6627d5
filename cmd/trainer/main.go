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

// Communication Analysis: spam model trainer
//
// Trains the naive Bayes spam model from two corpora with one message per
// line and stores it where the analyser loads it from.
//
// Usage:
//
//	go run ./cmd/trainer/ -ham ham.txt -spam spam.txt [-out data/spam_model.db]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/bcem/commanalysis/internal/config"
	"github.com/bcem/commanalysis/internal/spam"
)

func main() {
	slog.SetDefault(slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})))

	hamFlag := flag.String("ham", "", "File of legitimate messages, one per line (required)")
	spamFlag := flag.String("spam", "", "File of spam messages, one per line (required)")
	outFlag := flag.String("out", "", "Model output path (default: configured spam model_path)")
	flag.Parse()

	if *hamFlag == "" || *spamFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: -ham and -spam are required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	out := *outFlag
	if out == "" {
		cfg, err := config.Load("")
		if err != nil {
			slog.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		out = cfg.SpamModelPath
	}

	ham, err := readCorpusFile(*hamFlag)
	if err != nil {
		slog.Error("failed to read ham corpus", "error", err)
		os.Exit(1)
	}
	spamDocs, err := readCorpusFile(*spamFlag)
	if err != nil {
		slog.Error("failed to read spam corpus", "error", err)
		os.Exit(1)
	}
	if len(ham) == 0 || len(spamDocs) == 0 {
		slog.Error("both corpora need at least one message", "ham", len(ham), "spam", len(spamDocs))
		os.Exit(1)
	}

	model := spam.Train(ham, spamDocs)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		slog.Error("failed to create model directory", "error", err)
		os.Exit(1)
	}
	if err := spam.SaveModel(out, model); err != nil {
		slog.Error("failed to save model", "error", err)
		os.Exit(1)
	}

	slog.Info("spam model trained",
		"path", out,
		"ham_docs", len(ham),
		"spam_docs", len(spamDocs),
		"vocabulary", model.VocabularySize(),
	)
}

func readCorpusFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return spam.ReadCorpus(f)
}
