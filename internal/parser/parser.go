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

// Package parser converts raw text in each supported format into normalized
// messages. Parsers never fail on malformed input: records without a usable
// body are skipped and the rest of the text is still parsed.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcem/commanalysis/internal/detect"
	"github.com/bcem/commanalysis/internal/models"
)

// ErrUnknownFormat is returned by Registry.Parse for an unregistered format.
var ErrUnknownFormat = errors.New("no parser registered for format")

// Hints carries metadata supplied alongside the raw text. Parsers use it to
// fill fields the text itself does not provide.
type Hints struct {
	Source         string
	Sender         string
	ConversationID string
	Timestamp      *time.Time
}

func (h Hints) source() string {
	if h.Source == "" {
		return "input"
	}
	return filepath.Base(h.Source)
}

// Parser turns raw text into zero or more messages.
type Parser interface {
	Parse(text string, hints Hints) []models.Message
}

// Registry dispatches parsing by format.
type Registry struct {
	parsers map[models.Format]Parser
}

// NewRegistry returns a registry with the four built-in parsers.
func NewRegistry(g *detect.Grammar) *Registry {
	email := NewEmailParser()
	r := &Registry{parsers: make(map[models.Format]Parser, 4)}
	r.Register(models.FormatEmail, email)
	r.Register(models.FormatMultiEmail, NewMultiEmailParser(g, email))
	r.Register(models.FormatWhatsApp, NewWhatsAppParser(g))
	r.Register(models.FormatFreeform, FreeformParser{})
	return r
}

// Register installs p for format f, replacing any previous parser.
func (r *Registry) Register(f models.Format, p Parser) {
	r.parsers[f] = p
}

// Parse runs the parser registered for f.
func (r *Registry) Parse(f models.Format, text string, hints Hints) ([]models.Message, error) {
	p, ok := r.parsers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return p.Parse(text, hints), nil
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// trimBlankLines joins lines after dropping leading and trailing lines that
// contain only whitespace. Inner lines are kept verbatim.
func trimBlankLines(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
