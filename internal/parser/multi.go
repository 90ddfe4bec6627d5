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

package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bcem/commanalysis/internal/detect"
	"github.com/bcem/commanalysis/internal/models"
)

// MultiEmailParser parses a file of emails separated by boundary lines.
type MultiEmailParser struct {
	grammar *detect.Grammar
	email   *EmailParser
}

// NewMultiEmailParser creates a multi-email parser sharing the email grammar.
func NewMultiEmailParser(g *detect.Grammar, email *EmailParser) *MultiEmailParser {
	return &MultiEmailParser{grammar: g, email: email}
}

// Parse splits text on boundary lines and parses each segment as an email.
// Message IDs are numbered over the emails actually emitted.
func (p *MultiEmailParser) Parse(text string, hints Hints) []models.Message {
	var out []models.Message
	for i, segment := range p.segments(text) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		msg, ok := p.email.toMessage(p.email.parseBlock(segment), hints)
		if !ok {
			slog.Debug("email segment has no body, skipping",
				"source", hints.source(),
				"segment", i+1,
			)
			continue
		}
		msg.SourceFormat = models.FormatMultiEmail
		msg.MessageID = fmt.Sprintf("%s_email_%d", hints.source(), len(out)+1)
		out = append(out, msg)
	}
	return out
}

func (p *MultiEmailParser) segments(text string) []string {
	var (
		segments []string
		current  []string
	)
	for _, line := range splitLines(text) {
		if p.grammar.IsBoundary(line) {
			segments = append(segments, strings.Join(current, "\n"))
			current = nil
			continue
		}
		current = append(current, line)
	}
	return append(segments, strings.Join(current, "\n"))
}
