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

package detect

import (
	"testing"

	"github.com/bcem/commanalysis/internal/models"
)

func TestDetect(t *testing.T) {
	d := NewDetector(DefaultGrammar())

	tests := []struct {
		name string
		text string
		want models.Format
	}{
		{
			name: "boundary wins over headers",
			text: "From: a@x.com\n\nHello\n---EMAIL_BOUNDARY---\nFrom: b@x.com\n\nHi",
			want: models.FormatMultiEmail,
		},
		{
			name: "boundary wins over chat lines",
			text: "12/01/23, 10:00 AM - Alice: hi\n  ---EMAIL_BOUNDARY---  \n",
			want: models.FormatMultiEmail,
		},
		{
			name: "boundary must be its own line",
			text: "See the ---EMAIL_BOUNDARY--- marker below",
			want: models.FormatFreeform,
		},
		{
			name: "whatsapp",
			text: "Messages are end-to-end encrypted.\n12/01/23, 10:00 AM - Alice: Hi there\n12/01/23, 10:05 AM - Bob: Hello",
			want: models.FormatWhatsApp,
		},
		{
			name: "whatsapp 24h clock",
			text: "3/7/2024, 18:42 - Carol: on my way",
			want: models.FormatWhatsApp,
		},
		{
			name: "whatsapp narrow no-break space",
			text: "3/7/24, 6:42\u202fPM - Carol: on my way",
			want: models.FormatWhatsApp,
		},
		{
			name: "email headers",
			text: "Subject: Quarterly update\nFrom: cfo@corp.com\n\nNumbers attached.",
			want: models.FormatEmail,
		},
		{
			name: "email header case-insensitive after blank lines",
			text: "\n\nconversation-id: c-1\n\nbody",
			want: models.FormatEmail,
		},
		{
			name: "headers not at start",
			text: "Hello team,\nFrom: me\n",
			want: models.FormatFreeform,
		},
		{
			name: "freeform",
			text: "just a note to say thanks",
			want: models.FormatFreeform,
		},
		{
			name: "empty",
			text: "",
			want: models.FormatFreeform,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(tt.text); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_HintWins(t *testing.T) {
	d := NewDetector(DefaultGrammar())
	text := "12/01/23, 10:00 AM - Alice: hi"
	if got := d.Resolve(text, models.FormatFreeform); got != models.FormatFreeform {
		t.Errorf("Resolve with hint = %q, want freeform", got)
	}
	if got := d.Resolve(text, ""); got != models.FormatWhatsApp {
		t.Errorf("Resolve without hint = %q, want whatsapp", got)
	}
}

func TestNewGrammar(t *testing.T) {
	if _, err := NewGrammar("", `^(a)(b)$`); err == nil {
		t.Error("expected error for pattern with 2 groups")
	}
	if _, err := NewGrammar("", `^(`); err == nil {
		t.Error("expected error for invalid pattern")
	}
	g, err := NewGrammar("  ===  ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.IsBoundary("===") {
		t.Error("custom marker not recognised")
	}
}

func TestMatchChatLine(t *testing.T) {
	g := DefaultGrammar()
	date, clock, sender, text, ok := g.MatchChatLine("12/25/23, 9:15 pm - Bob Smith : Merry: Christmas!")
	if !ok {
		t.Fatal("expected match")
	}
	if date != "12/25/23" || clock != "9:15 pm" || sender != "Bob Smith" || text != "Merry: Christmas!" {
		t.Errorf("got (%q, %q, %q, %q)", date, clock, sender, text)
	}
}
