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

import (
	"errors"
	"testing"
	"time"
)

func at(min int) *time.Time {
	t := time.Date(2026, 3, 1, 9, min, 0, 0, time.UTC)
	return &t
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "email", want: FormatEmail},
		{in: "WhatsApp", want: FormatWhatsApp},
		{in: " multi_email ", want: FormatMultiEmail},
		{in: "sms", want: FormatFreeform},
		{in: "other", want: FormatFreeform},
		{in: "fax", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAttach_OnlyOnce(t *testing.T) {
	m := Message{MessageID: "m1", Body: "hi"}
	if m.Scored() {
		t.Fatal("new message should not be scored")
	}
	if err := m.Attach(Analysis{Sentiment: SentimentNeutral}); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	if !m.Scored() {
		t.Fatal("message should be scored after attach")
	}
	err := m.Attach(Analysis{Sentiment: SentimentPositive})
	if !errors.Is(err, ErrAlreadyScored) {
		t.Fatalf("second attach error = %v, want ErrAlreadyScored", err)
	}
	if m.Analysis.Sentiment != SentimentNeutral {
		t.Errorf("analysis overwritten: %q", m.Analysis.Sentiment)
	}
}

func TestOrderConversations(t *testing.T) {
	msgs := []Message{
		{MessageID: "a3", ConversationID: "a", Timestamp: at(30)},
		{MessageID: "b1", ConversationID: "b", Timestamp: at(5)},
		{MessageID: "a-none", ConversationID: "a"},
		{MessageID: "a1", ConversationID: "a", Timestamp: at(10)},
		{MessageID: "free", Timestamp: at(1)},
		{MessageID: "a2", ConversationID: "a", Timestamp: at(20)},
	}

	OrderConversations(msgs)

	want := []string{"a1", "b1", "a-none", "a2", "free", "a3"}
	for i, id := range want {
		if msgs[i].MessageID != id {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].MessageID, id)
		}
	}
}

func TestOrderConversations_StableForEqualTimes(t *testing.T) {
	msgs := []Message{
		{MessageID: "first", ConversationID: "c", Timestamp: at(10)},
		{MessageID: "second", ConversationID: "c", Timestamp: at(10)},
	}
	OrderConversations(msgs)
	if msgs[0].MessageID != "first" || msgs[1].MessageID != "second" {
		t.Errorf("order changed for equal timestamps: %q, %q", msgs[0].MessageID, msgs[1].MessageID)
	}
}

func TestEnsureUniqueIDs(t *testing.T) {
	msgs := []Message{
		{MessageID: "x"},
		{MessageID: "y"},
		{MessageID: "x"},
		{MessageID: "x#2"},
		{MessageID: "x"},
	}
	EnsureUniqueIDs(msgs)

	seen := map[string]bool{}
	for _, m := range msgs {
		if seen[m.MessageID] {
			t.Fatalf("duplicate id %q after EnsureUniqueIDs", m.MessageID)
		}
		seen[m.MessageID] = true
	}
	if msgs[0].MessageID != "x" || msgs[2].MessageID != "x#2" {
		t.Errorf("unexpected ids: %q, %q", msgs[0].MessageID, msgs[2].MessageID)
	}
}
