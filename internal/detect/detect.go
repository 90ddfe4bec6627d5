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

// Package detect classifies raw text into one of the supported message
// formats. The Grammar it exposes is shared with the parsers so detection
// and parsing never disagree about what a boundary or a chat line looks like.
package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bcem/commanalysis/internal/models"
)

const (
	// DefaultBoundaryMarker separates emails in a multi-email file.
	DefaultBoundaryMarker = "---EMAIL_BOUNDARY---"

	// DefaultWhatsAppPattern matches one line of a WhatsApp chat export:
	// "MM/DD/YY, HH:MM AM - Sender: Message". The four groups are date,
	// time, sender and text.
	DefaultWhatsAppPattern = `^(\d{1,2}/\d{1,2}/\d{2,4}),\s*(\d{1,2}:\d{2}(?:\s*[aApP][mM])?)\s*-\s*([^:]+?):\s*(.*)$`
)

// headerKeys are the email header names recognised by the detector and the
// email parser, lower-cased.
var headerKeys = []string{"from", "date", "subject", "conversation-id"}

// HeaderKeys returns the recognised email header names in lower case.
func HeaderKeys() []string {
	out := make([]string, len(headerKeys))
	copy(out, headerKeys)
	return out
}

// Grammar holds the format-defining constants.
type Grammar struct {
	BoundaryMarker string
	WhatsAppLine   *regexp.Regexp
}

// NewGrammar compiles the WhatsApp line pattern. Empty arguments select the
// defaults.
func NewGrammar(marker, pattern string) (*Grammar, error) {
	if strings.TrimSpace(marker) == "" {
		marker = DefaultBoundaryMarker
	}
	if pattern == "" {
		pattern = DefaultWhatsAppPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile whatsapp pattern: %w", err)
	}
	if re.NumSubexp() != 4 {
		return nil, fmt.Errorf("whatsapp pattern must have 4 capture groups, has %d", re.NumSubexp())
	}
	return &Grammar{BoundaryMarker: strings.TrimSpace(marker), WhatsAppLine: re}, nil
}

// DefaultGrammar returns the built-in grammar.
func DefaultGrammar() *Grammar {
	g, err := NewGrammar(DefaultBoundaryMarker, DefaultWhatsAppPattern)
	if err != nil {
		panic(err)
	}
	return g
}

// IsBoundary reports whether line is a multi-email boundary line.
func (g *Grammar) IsBoundary(line string) bool {
	return strings.TrimSpace(line) == g.BoundaryMarker
}

// MatchChatLine matches line against the WhatsApp pattern and returns the
// date, time, sender and text groups.
func (g *Grammar) MatchChatLine(line string) (date, clock, sender, text string, ok bool) {
	m := g.WhatsAppLine.FindStringSubmatch(NormalizeSpaces(strings.TrimSpace(line)))
	if m == nil {
		return "", "", "", "", false
	}
	return m[1], m[2], strings.TrimSpace(m[3]), m[4], true
}

// NormalizeSpaces replaces the no-break spaces newer chat exports put
// before AM/PM with plain spaces.
func NormalizeSpaces(s string) string {
	return strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(s)
}

// HeaderLine splits "Key: value" when Key is a recognised email header. The
// returned key is lower-cased.
func HeaderLine(line string) (key, value string, ok bool) {
	k, v, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	k = strings.ToLower(strings.TrimSpace(k))
	for _, h := range headerKeys {
		if k == h {
			return k, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

// Detector picks a format for raw text.
type Detector struct {
	grammar *Grammar
}

// NewDetector creates a detector over the given grammar.
func NewDetector(g *Grammar) *Detector {
	return &Detector{grammar: g}
}

// Detect classifies text. Rules are checked in order and the first match
// wins: a boundary line, then any chat line, then email headers at the
// start of the text, then freeform.
func (d *Detector) Detect(text string) models.Format {
	lines := splitLines(text)

	for _, line := range lines {
		if d.grammar.IsBoundary(line) {
			return models.FormatMultiEmail
		}
	}

	for _, line := range lines {
		if _, _, _, _, ok := d.grammar.MatchChatLine(line); ok {
			return models.FormatWhatsApp
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, _, ok := HeaderLine(line); ok {
			return models.FormatEmail
		}
		break
	}

	return models.FormatFreeform
}

// Resolve returns hint when set, otherwise the detected format.
func (d *Detector) Resolve(text string, hint models.Format) models.Format {
	if hint != "" {
		return hint
	}
	return d.Detect(text)
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
