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

// Package models defines the data structures shared across the analysis service.
package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrAlreadyScored is returned when analysis is attached to a message twice.
var ErrAlreadyScored = errors.New("message already scored")

// Format identifies the textual layout a message was ingested from.
type Format string

const (
	FormatEmail      Format = "email"
	FormatMultiEmail Format = "multi_email"
	FormatWhatsApp   Format = "whatsapp"
	FormatFreeform   Format = "freeform"
)

// ParseFormat maps a user-supplied type name onto a Format. The typed-input
// names "sms", "text" and "other" are freeform.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return FormatEmail, nil
	case "multi_email", "multi-email", "multi":
		return FormatMultiEmail, nil
	case "whatsapp":
		return FormatWhatsApp, nil
	case "freeform", "sms", "text", "other":
		return FormatFreeform, nil
	}
	return "", fmt.Errorf("unknown message format %q", s)
}

// Sentiment is the lexicon-derived polarity of a message body.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Formality is the coarse register of a message body.
type Formality string

const (
	FormalityFormal   Formality = "formal"
	FormalityInformal Formality = "informal"
	FormalityNeutral  Formality = "neutral"
)

// Analysis holds the per-message scores.
type Analysis struct {
	IsSpam         bool      `json:"is_spam"`
	SpamConfidence float64   `json:"spam_confidence"`
	Sentiment      Sentiment `json:"sentiment"`
	StyleScore     float64   `json:"style_score"`
	Formality      Formality `json:"formality"`
}

// Message is one normalized communication record. Empty strings mean the
// field was not present in the source.
type Message struct {
	SourceFormat   Format     `json:"source_format"`
	MessageID      string     `json:"message_id"`
	Source         string     `json:"source"`
	Sender         string     `json:"sender,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	Body           string     `json:"body"`
	Analysis       *Analysis  `json:"analysis,omitempty"`
}

// Attach sets the message analysis. A message is scored exactly once.
func (m *Message) Attach(a Analysis) error {
	if m.Analysis != nil {
		return fmt.Errorf("%s: %w", m.MessageID, ErrAlreadyScored)
	}
	m.Analysis = &a
	return nil
}

// Scored reports whether analysis has been attached.
func (m Message) Scored() bool {
	return m.Analysis != nil
}

// OrderConversations reorders msgs in place so that, per conversation,
// timestamped messages are ascending by time. They are sorted within the
// slots they already occupy; untimestamped messages keep their position.
func OrderConversations(msgs []Message) {
	slots := make(map[string][]int)
	var order []string
	for i, m := range msgs {
		if m.ConversationID == "" || m.Timestamp == nil {
			continue
		}
		if _, ok := slots[m.ConversationID]; !ok {
			order = append(order, m.ConversationID)
		}
		slots[m.ConversationID] = append(slots[m.ConversationID], i)
	}

	for _, convo := range order {
		idx := slots[convo]
		if len(idx) < 2 {
			continue
		}
		group := make([]Message, len(idx))
		for j, i := range idx {
			group[j] = msgs[i]
		}
		sort.SliceStable(group, func(a, b int) bool {
			return group[a].Timestamp.Before(*group[b].Timestamp)
		})
		for j, i := range idx {
			msgs[i] = group[j]
		}
	}
}

// EnsureUniqueIDs suffixes repeated message IDs with "#2", "#3", ...
func EnsureUniqueIDs(msgs []Message) {
	seen := make(map[string]int, len(msgs))
	for i := range msgs {
		id := msgs[i].MessageID
		seen[id]++
		if n := seen[id]; n > 1 {
			candidate := fmt.Sprintf("%s#%d", id, n)
			for seen[candidate] > 0 {
				n++
				candidate = fmt.Sprintf("%s#%d", id, n)
			}
			seen[id] = n
			seen[candidate] = 1
			msgs[i].MessageID = candidate
		}
	}
}
