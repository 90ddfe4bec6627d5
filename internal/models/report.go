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

package models

import "time"

// SentimentCounts tallies messages per sentiment label.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// FormalityCounts tallies messages per formality label.
type FormalityCounts struct {
	Formal   int `json:"formal"`
	Informal int `json:"informal"`
	Neutral  int `json:"neutral"`
}

// SummaryMetrics aggregates the per-message scores of a batch.
type SummaryMetrics struct {
	TotalMessages     int             `json:"total_messages"`
	SpamCount         int             `json:"spam_count"`
	HamCount          int             `json:"ham_count"`
	SpamRatio         float64         `json:"spam_ratio"`
	Sentiment         SentimentCounts `json:"sentiment"`
	AverageStyleScore float64         `json:"average_style_score"`
	Formality         FormalityCounts `json:"formality"`
}

// SenderCount is one entry of the top-senders ranking.
type SenderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// ConversationDelay is the mean response delay within one conversation.
type ConversationDelay struct {
	ConversationID string        `json:"conversation_id"`
	Responses      int           `json:"responses"`
	Average        time.Duration `json:"average_ns"`
}

// BehavioralInsights holds the conversation-level findings of a batch.
type BehavioralInsights struct {
	TopSenders           []SenderCount       `json:"top_senders"`
	ResponseDelays       []ConversationDelay `json:"response_delays"`
	AverageResponseDelay *time.Duration      `json:"average_response_delay_ns,omitempty"`
	Suggestions          []string            `json:"suggestions"`
}

// MessageSummary is the per-message section of a report.
type MessageSummary struct {
	MessageID      string     `json:"message_id"`
	Source         string     `json:"source"`
	Format         Format     `json:"format"`
	Sender         string     `json:"sender,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	Preview        string     `json:"preview"`
	Language       string     `json:"language,omitempty"`
	Analysis
}

// AnalysisReport is the immutable result of one analysis run.
type AnalysisReport struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	GeneratedAt time.Time          `json:"generated_at"`
	Messages    []MessageSummary   `json:"messages"`
	Summary     SummaryMetrics     `json:"summary"`
	Insights    BehavioralInsights `json:"insights"`
}
