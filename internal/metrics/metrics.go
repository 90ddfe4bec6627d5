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

// Package metrics aggregates scored messages into summary metrics and
// behavioral insights.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bcem/commanalysis/internal/models"
)

var (
	// ErrEmptyBatch is returned when there are no messages to aggregate.
	ErrEmptyBatch = errors.New("no messages to analyze")

	// ErrUnscored is returned when a message reaches aggregation without
	// analysis attached.
	ErrUnscored = errors.New("message has no analysis")
)

// DefaultTopSenders is the length of the top-senders ranking.
const DefaultTopSenders = 5

// Suggestion texts.
const (
	SuggestSpam       = "A large share of messages look like spam; review sender filtering and unsubscribe from unwanted lists."
	SuggestNegative   = "Conversation tone is mostly negative; consider addressing open concerns directly."
	SuggestRespond    = "Respond to messages more promptly to improve conversation engagement."
	SuggestClarity    = "Improve clarity and structure in messages."
	SuggestFormalTone = "Consider using more formal phrasing for professional contexts."
)

// SuggestionRules holds the thresholds of the suggestion rules. A rule
// fires when the batch crosses its threshold; rules are independent.
type SuggestionRules struct {
	SpamRatio     float64       // spam share above which SuggestSpam fires
	NegativeShare float64       // negative share at or above which SuggestNegative fires
	SlowResponse  time.Duration // mean response delay above which SuggestRespond fires
	LowStyleScore float64       // average style score below which SuggestClarity fires
	InformalRatio float64       // informal/formal ratio above which SuggestFormalTone fires
}

// DefaultRules returns the built-in thresholds.
func DefaultRules() SuggestionRules {
	return SuggestionRules{
		SpamRatio:     0.5,
		NegativeShare: 0.5,
		SlowResponse:  time.Hour,
		LowStyleScore: 40,
		InformalRatio: 1.5,
	}
}

// Aggregator computes batch-level metrics.
type Aggregator struct {
	TopK  int
	Rules SuggestionRules
}

// NewAggregator creates an aggregator. topK <= 0 selects DefaultTopSenders.
func NewAggregator(topK int, rules SuggestionRules) *Aggregator {
	if topK <= 0 {
		topK = DefaultTopSenders
	}
	return &Aggregator{TopK: topK, Rules: rules}
}

// Aggregate summarises a fully scored batch.
func (a *Aggregator) Aggregate(msgs []models.Message) (models.SummaryMetrics, models.BehavioralInsights, error) {
	if len(msgs) == 0 {
		return models.SummaryMetrics{}, models.BehavioralInsights{}, ErrEmptyBatch
	}
	for _, m := range msgs {
		if m.Analysis == nil {
			return models.SummaryMetrics{}, models.BehavioralInsights{},
				fmt.Errorf("%s: %w", m.MessageID, ErrUnscored)
		}
	}

	summary := Summarize(msgs)
	delays, overall := ResponseDelays(msgs)
	insights := models.BehavioralInsights{
		TopSenders:           TopSenders(msgs, a.TopK),
		ResponseDelays:       delays,
		AverageResponseDelay: overall,
	}
	insights.Suggestions = a.Suggest(summary, overall)

	return summary, insights, nil
}

// Summarize counts labels and averages style scores. Every message must be
// scored.
func Summarize(msgs []models.Message) models.SummaryMetrics {
	var s models.SummaryMetrics
	var styleSum float64

	for _, m := range msgs {
		an := m.Analysis
		s.TotalMessages++
		if an.IsSpam {
			s.SpamCount++
		} else {
			s.HamCount++
		}

		switch an.Sentiment {
		case models.SentimentPositive:
			s.Sentiment.Positive++
		case models.SentimentNegative:
			s.Sentiment.Negative++
		default:
			s.Sentiment.Neutral++
		}

		switch an.Formality {
		case models.FormalityFormal:
			s.Formality.Formal++
		case models.FormalityInformal:
			s.Formality.Informal++
		default:
			s.Formality.Neutral++
		}

		styleSum += an.StyleScore
	}

	if s.TotalMessages > 0 {
		s.SpamRatio = round2(float64(s.SpamCount) / float64(s.TotalMessages))
		s.AverageStyleScore = round2(styleSum / float64(s.TotalMessages))
	}
	return s
}

// TopSenders ranks senders by message count, descending. Ties keep the
// order in which senders first appear. Messages without a sender are not
// counted.
func TopSenders(msgs []models.Message, k int) []models.SenderCount {
	counts := make(map[string]int)
	var order []string
	for _, m := range msgs {
		if m.Sender == "" {
			continue
		}
		if _, ok := counts[m.Sender]; !ok {
			order = append(order, m.Sender)
		}
		counts[m.Sender]++
	}

	ranked := make([]models.SenderCount, len(order))
	for i, sender := range order {
		ranked[i] = models.SenderCount{Sender: sender, Count: counts[sender]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// ResponseDelays measures how long participants take to answer each other.
//
// Within each conversation, messages carrying a timestamp and a sender are
// taken in time order; a gap counts as a response only when the sender
// differs from the previous message's sender. Each conversation with at
// least one response yields its mean gap. The overall value is the mean of
// those per-conversation means, or nil when no conversation qualifies.
func ResponseDelays(msgs []models.Message) ([]models.ConversationDelay, *time.Duration) {
	type timed struct {
		sender string
		at     time.Time
	}
	convos := make(map[string][]timed)
	for _, m := range msgs {
		if m.ConversationID == "" || m.Timestamp == nil || m.Sender == "" {
			continue
		}
		convos[m.ConversationID] = append(convos[m.ConversationID], timed{m.Sender, *m.Timestamp})
	}

	var delays []models.ConversationDelay
	for id, entries := range convos {
		if len(entries) < 2 {
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].at.Before(entries[j].at)
		})

		var total time.Duration
		responses := 0
		for i := 1; i < len(entries); i++ {
			if entries[i].sender == entries[i-1].sender {
				continue
			}
			total += entries[i].at.Sub(entries[i-1].at)
			responses++
		}
		if responses == 0 {
			continue
		}
		delays = append(delays, models.ConversationDelay{
			ConversationID: id,
			Responses:      responses,
			Average:        total / time.Duration(responses),
		})
	}

	if len(delays) == 0 {
		return nil, nil
	}

	sort.Slice(delays, func(i, j int) bool {
		return delays[i].ConversationID < delays[j].ConversationID
	})

	var sum time.Duration
	for _, d := range delays {
		sum += d.Average
	}
	overall := sum / time.Duration(len(delays))
	return delays, &overall
}

// Suggest applies the suggestion rules to a summary and the overall
// response delay.
func (a *Aggregator) Suggest(s models.SummaryMetrics, avgDelay *time.Duration) []string {
	r := a.Rules
	tips := []string{}

	if s.TotalMessages > 0 && float64(s.SpamCount)/float64(s.TotalMessages) > r.SpamRatio {
		tips = append(tips, SuggestSpam)
	}

	if s.TotalMessages > 0 && s.Sentiment.Negative > s.Sentiment.Positive &&
		float64(s.Sentiment.Negative)/float64(s.TotalMessages) >= r.NegativeShare {
		tips = append(tips, SuggestNegative)
	}

	if avgDelay != nil && *avgDelay > r.SlowResponse {
		tips = append(tips, SuggestRespond)
	}

	if s.AverageStyleScore < r.LowStyleScore {
		tips = append(tips, SuggestClarity)
	}

	if s.Formality.Informal > 0 && float64(s.Formality.Informal) > r.InformalRatio*float64(s.Formality.Formal) {
		tips = append(tips, SuggestFormalTone)
	}

	return tips
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
