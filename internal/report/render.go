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

package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bcem/commanalysis/internal/models"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	rule       = "--------------------------------------------------"
)

// WriteText renders the full report.
func WriteText(w io.Writer, r models.AnalysisReport) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n", r.Title)
	fmt.Fprintf(bw, "Run ID    : %s\n", r.ID)
	fmt.Fprintf(bw, "Generated : %s\n\n", r.GeneratedAt.Format(timeLayout))

	fmt.Fprint(bw, "--- Individual Message Analysis ---\n\n")
	for _, m := range r.Messages {
		fmt.Fprintf(bw, "File: %s\n", orNA(m.Source))
		fmt.Fprintf(bw, " Message ID: %s\n", m.MessageID)
		fmt.Fprintf(bw, " Format: %s\n", m.Format)
		fmt.Fprintf(bw, " Subject: %s\n", orNA(m.Subject))
		fmt.Fprintf(bw, " Sender: %s\n", orNA(m.Sender))
		fmt.Fprintf(bw, " Conversation ID: %s\n", orNA(m.ConversationID))
		fmt.Fprintf(bw, " Timestamp: %s\n", formatTime(m.Timestamp))
		fmt.Fprintf(bw, " Language: %s\n", orNA(m.Language))
		fmt.Fprintf(bw, " Message Body Preview: %s\n", m.Preview)
		fmt.Fprintf(bw, "   Spam      : %s (confidence %.2f)\n", spamLabel(m.IsSpam), m.SpamConfidence)
		fmt.Fprintf(bw, "   Sentiment : %s\n", m.Sentiment)
		fmt.Fprintf(bw, "   Style     : %.2f (%s)\n", m.StyleScore, m.Formality)
		fmt.Fprintln(bw, rule)
	}

	fmt.Fprint(bw, "\n--- Summary Metrics ---\n\n")
	writeSummaryMetrics(bw, r.Summary)

	fmt.Fprint(bw, "\n--- Behavioral Insights ---\n\n")
	writeInsights(bw, r.Insights)

	return bw.Flush()
}

// WriteSummary renders the condensed terminal summary.
func WriteSummary(w io.Writer, r models.AnalysisReport) error {
	bw := bufio.NewWriter(w)
	bar := strings.Repeat("=", 30)

	fmt.Fprintf(bw, "\n%s\n  Analysis Summary\n%s\n", bar, bar)
	fmt.Fprint(bw, "\n--- Summary Metrics ---\n")
	writeSummaryMetrics(bw, r.Summary)
	fmt.Fprint(bw, "\n--- Behavioral Insights ---\n")
	writeInsights(bw, r.Insights)
	fmt.Fprintf(bw, "%s\n", bar)

	return bw.Flush()
}

func writeSummaryMetrics(w io.Writer, s models.SummaryMetrics) {
	fmt.Fprintf(w, "Total Messages        : %d\n", s.TotalMessages)
	fmt.Fprintf(w, "Spam Breakdown        : SPAM = %d, HAM = %d (ratio %.2f)\n", s.SpamCount, s.HamCount, s.SpamRatio)
	fmt.Fprintf(w, "Sentiment Breakdown   : positive = %d, neutral = %d, negative = %d\n",
		s.Sentiment.Positive, s.Sentiment.Neutral, s.Sentiment.Negative)
	fmt.Fprintf(w, "Average Style Score   : %.2f\n", s.AverageStyleScore)
	fmt.Fprintf(w, "Formality Breakdown   : formal = %d, informal = %d, neutral = %d\n",
		s.Formality.Formal, s.Formality.Informal, s.Formality.Neutral)
}

func writeInsights(w io.Writer, b models.BehavioralInsights) {
	senders := make([]string, len(b.TopSenders))
	for i, s := range b.TopSenders {
		senders[i] = fmt.Sprintf("%s (%d)", s.Sender, s.Count)
	}
	if len(senders) == 0 {
		fmt.Fprintln(w, "Top Senders           : [none]")
	} else {
		fmt.Fprintf(w, "Top Senders           : %s\n", strings.Join(senders, ", "))
	}

	if b.AverageResponseDelay != nil {
		fmt.Fprintf(w, "Avg Response Delay    : %.0f seconds\n", b.AverageResponseDelay.Seconds())
		for _, d := range b.ResponseDelays {
			fmt.Fprintf(w, "  %-20s: %.0f seconds over %d responses\n", d.ConversationID, d.Average.Seconds(), d.Responses)
		}
	} else {
		fmt.Fprintln(w, "Avg Response Delay    : [Not enough data for response time calculation]")
	}

	fmt.Fprintln(w, "Suggestions           :")
	if len(b.Suggestions) == 0 {
		fmt.Fprintln(w, " - No behavioral recommendations found.")
	}
	for _, tip := range b.Suggestions {
		fmt.Fprintf(w, " - %s\n", tip)
	}
}

func spamLabel(isSpam bool) string {
	if isSpam {
		return "SPAM"
	}
	return "HAM"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(timeLayout)
}
