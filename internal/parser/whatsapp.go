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
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bcem/commanalysis/internal/detect"
	"github.com/bcem/commanalysis/internal/models"
)

// chatTimeLayouts are tried in order against "<date> <time>".
var chatTimeLayouts = []string{
	"1/2/06 3:04 PM",
	"1/2/2006 3:04 PM",
	"1/2/06 15:04",
	"1/2/2006 15:04",
}

var meridiem = regexp.MustCompile(`(?i)\s*([ap])\.?m\.?$`)

type chatState int

const (
	awaitingMessageStart chatState = iota
	accumulatingBody
)

// pendingChat is the message being accumulated.
type pendingChat struct {
	line      int
	timestamp *time.Time
	sender    string
	parts     []string
}

// WhatsAppParser parses WhatsApp chat exports.
type WhatsAppParser struct {
	grammar *detect.Grammar
}

// NewWhatsAppParser creates a chat export parser.
func NewWhatsAppParser(g *detect.Grammar) *WhatsAppParser {
	return &WhatsAppParser{grammar: g}
}

// Parse walks the export line by line. A line matching the chat pattern
// starts a new message; any other line continues the current one. Lines
// before the first message (export banners) are ignored.
func (p *WhatsAppParser) Parse(text string, hints Hints) []models.Message {
	source := hints.source()
	convo := hints.ConversationID
	if convo == "" {
		convo = "whatsapp_chat_" + strings.ReplaceAll(filepath.Base(source), ".", "_")
	}

	var (
		out     []models.Message
		state   = awaitingMessageStart
		current *pendingChat
	)

	flush := func() {
		if current == nil {
			return
		}
		body := trimBlankLines(current.parts)
		if strings.TrimSpace(body) == "" {
			slog.Debug("chat message has no body, skipping", "source", source, "line", current.line)
		} else {
			out = append(out, models.Message{
				SourceFormat:   models.FormatWhatsApp,
				MessageID:      fmt.Sprintf("%s_line_%d", source, current.line),
				Source:         source,
				Sender:         current.sender,
				ConversationID: convo,
				Timestamp:      current.timestamp,
				Body:           body,
			})
		}
		current = nil
	}

	for i, line := range splitLines(text) {
		date, clock, sender, first, ok := p.grammar.MatchChatLine(line)
		switch {
		case ok:
			flush()
			current = &pendingChat{
				line:      i + 1,
				timestamp: parseChatTime(date, clock),
				sender:    sender,
				parts:     []string{first},
			}
			state = accumulatingBody
		case state == accumulatingBody:
			current.parts = append(current.parts, line)
		default:
			if strings.TrimSpace(line) != "" {
				slog.Debug("ignoring line before first chat message", "source", source, "line", i+1)
			}
		}
	}
	flush()

	return out
}

// parseChatTime returns nil when no layout matches.
func parseChatTime(date, clock string) *time.Time {
	clock = meridiem.ReplaceAllStringFunc(strings.TrimSpace(clock), func(m string) string {
		return " " + strings.ToUpper(strings.Trim(m, " .mM")) + "M"
	})
	value := strings.TrimSpace(date) + " " + clock
	for _, layout := range chatTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
