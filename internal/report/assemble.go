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

// Package report assembles the immutable analysis report and renders it as
// a text file and a terminal summary.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"github.com/bcem/commanalysis/internal/models"
)

// ErrUnscored is returned when a message without analysis is assembled.
var ErrUnscored = errors.New("cannot report unscored message")

// DefaultPreviewLength is the number of body runes kept in a preview.
const DefaultPreviewLength = 100

// Meta identifies one report.
type Meta struct {
	ID            string
	Title         string
	GeneratedAt   time.Time
	PreviewLength int
}

// Assemble builds the report. It performs no I/O and copies everything it
// keeps, so later changes to the inputs do not affect the report.
func Assemble(meta Meta, msgs []models.Message, summary models.SummaryMetrics, insights models.BehavioralInsights) (models.AnalysisReport, error) {
	previewLen := meta.PreviewLength
	if previewLen <= 0 {
		previewLen = DefaultPreviewLength
	}
	title := meta.Title
	if title == "" {
		title = "Communication Analysis Report"
	}

	entries := make([]models.MessageSummary, 0, len(msgs))
	for _, m := range msgs {
		if m.Analysis == nil {
			return models.AnalysisReport{}, fmt.Errorf("%s: %w", m.MessageID, ErrUnscored)
		}
		entries = append(entries, models.MessageSummary{
			MessageID:      m.MessageID,
			Source:         m.Source,
			Format:         m.SourceFormat,
			Sender:         m.Sender,
			ConversationID: m.ConversationID,
			Timestamp:      copyTime(m.Timestamp),
			Subject:        m.Subject,
			Preview:        Preview(m.Body, previewLen),
			Language:       Language(m.Body),
			Analysis:       *m.Analysis,
		})
	}

	return models.AnalysisReport{
		ID:          meta.ID,
		Title:       title,
		GeneratedAt: meta.GeneratedAt,
		Messages:    entries,
		Summary:     summary,
		Insights:    copyInsights(insights),
	}, nil
}

// Preview returns the first n runes of body with newlines flattened.
func Preview(body string, n int) string {
	flat := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(flat) <= n {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:n]) + "..."
}

// Language returns the ISO 639-1 code of body, or "" when detection is not
// reliable.
func Language(body string) string {
	info := whatlanggo.Detect(body)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInsights(in models.BehavioralInsights) models.BehavioralInsights {
	out := models.BehavioralInsights{
		TopSenders:     append([]models.SenderCount(nil), in.TopSenders...),
		ResponseDelays: append([]models.ConversationDelay(nil), in.ResponseDelays...),
		Suggestions:    append([]string{}, in.Suggestions...),
	}
	if in.AverageResponseDelay != nil {
		d := *in.AverageResponseDelay
		out.AverageResponseDelay = &d
	}
	return out
}
