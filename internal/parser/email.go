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
	"log/slog"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/bcem/commanalysis/internal/detect"
	"github.com/bcem/commanalysis/internal/models"
)

// emailDateLayouts are tried in order before falling back to RFC 5322.
var emailDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
}

// emailBlock is one email split into its recognised headers and body.
type emailBlock struct {
	headers     map[string]string // recognised keys, lower-cased
	headerLines []string          // every line of the header block
	body        string
}

// EmailParser parses a single email: a header block, a blank line, a body.
type EmailParser struct {
	words *mime.WordDecoder
}

// NewEmailParser creates an email parser.
func NewEmailParser() *EmailParser {
	return &EmailParser{words: new(mime.WordDecoder)}
}

// Parse returns at most one message.
func (p *EmailParser) Parse(text string, hints Hints) []models.Message {
	block := p.parseBlock(text)
	msg, ok := p.toMessage(block, hints)
	if !ok {
		slog.Debug("email has no body, skipping", "source", hints.source())
		return nil
	}
	msg.SourceFormat = models.FormatEmail
	msg.MessageID = hints.source() + "_msg"
	return []models.Message{msg}
}

// parseBlock splits text at the first blank line following the headers.
func (p *EmailParser) parseBlock(text string) emailBlock {
	lines := splitLines(text)

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	block := emailBlock{headers: make(map[string]string)}
	i := start
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}
		block.headerLines = append(block.headerLines, line)
		if key, value, ok := detect.HeaderLine(line); ok {
			block.headers[key] = value
		}
	}

	if i < len(lines) {
		block.body = trimBlankLines(lines[i+1:])
	}
	block.body = p.decodeMIME(block)
	return block
}

// decodeMIME returns the text part of a body whose headers declare a MIME
// structure or a transfer encoding. Other bodies are returned unchanged.
func (p *EmailParser) decodeMIME(block emailBlock) string {
	if !needsMIMEDecode(block.headerLines) || strings.TrimSpace(block.body) == "" {
		return block.body
	}

	raw := strings.Join(block.headerLines, "\r\n") + "\r\n\r\n" +
		strings.ReplaceAll(block.body, "\n", "\r\n")
	env, err := enmime.ReadEnvelope(strings.NewReader(raw))
	if err != nil {
		slog.Debug("mime decode failed, keeping raw body", "error", err)
		return block.body
	}

	text := env.Text
	if strings.TrimSpace(text) == "" {
		return block.body
	}
	return trimBlankLines(splitLines(text))
}

func needsMIMEDecode(headerLines []string) bool {
	for _, line := range headerLines {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		v = strings.ToLower(strings.TrimSpace(v))
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "content-type":
			if strings.HasPrefix(v, "multipart/") || strings.HasPrefix(v, "text/html") {
				return true
			}
		case "content-transfer-encoding":
			if v == "base64" || v == "quoted-printable" {
				return true
			}
		}
	}
	return false
}

// toMessage maps a parsed block onto a message, falling back to hints for
// missing metadata. ok is false when the body is empty.
func (p *EmailParser) toMessage(block emailBlock, hints Hints) (models.Message, bool) {
	if strings.TrimSpace(block.body) == "" {
		return models.Message{}, false
	}

	msg := models.Message{
		Source:         hints.source(),
		Sender:         firstNonEmpty(p.decodeWords(block.headers["from"]), hints.Sender),
		ConversationID: firstNonEmpty(block.headers["conversation-id"], hints.ConversationID),
		Subject:        p.decodeWords(block.headers["subject"]),
		Body:           block.body,
		Timestamp:      hints.Timestamp,
	}
	if ts, ok := parseEmailDate(block.headers["date"]); ok {
		msg.Timestamp = &ts
	}
	return msg, true
}

// decodeWords decodes RFC 2047 encoded words, returning s unchanged on error.
func (p *EmailParser) decodeWords(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	decoded, err := p.words.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

func parseEmailDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range emailDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
