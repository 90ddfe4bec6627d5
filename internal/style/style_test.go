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

package style

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bcem/commanalysis/internal/models"
)

func testConfig() Config {
	return Config{
		FormalKeywords: []string{"dear", "hereby", "confirm", "request", "furthermore",
			"facilitate", "acquisition", "accordingly", "sincerely", "regards"},
		Slang:        []string{"hey", "dude", "lol", "gonna", "btw"},
		Contractions: []string{"can't", "i'm", "don't"},
		Weights: Weights{
			FormalKeywords: 4,
			Slang:          -1.5,
			Contractions:   -3,
			SentenceLength: 0.1,
			Punctuation:    -0.5,
			Shouting:       -0.3,
		},
		FormalThreshold:   0.10,
		InformalThreshold: -0.15,
		ScoreFloor:        -0.7,
		ScoreCeiling:      0.7,
	}
}

func TestScore(t *testing.T) {
	s := NewScorer(testConfig())

	tests := []struct {
		name          string
		body          string
		wantScore     float64
		wantFormality models.Formality
	}{
		{
			name: "formal letter",
			body: "Dear Sir, I hereby confirm receipt of your request. Furthermore, we will " +
				"facilitate the acquisition accordingly. Sincerely, John",
			wantScore:     100,
			wantFormality: models.FormalityFormal,
		},
		{
			name:          "chatty",
			body:          "hey dude lol gonna be late!!! can't wait :)",
			wantScore:     0,
			wantFormality: models.FormalityInformal,
		},
		{
			name:          "plain",
			body:          "The report is attached for review.",
			wantScore:     46.43,
			wantFormality: models.FormalityNeutral,
		},
		{
			name:          "no words",
			body:          "  123 !!! ",
			wantScore:     NeutralScore,
			wantFormality: models.FormalityNeutral,
		},
		{
			name:          "empty",
			body:          "",
			wantScore:     NeutralScore,
			wantFormality: models.FormalityNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, formality := s.Score(tt.body)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantFormality, formality)
		})
	}
}

func TestScore_Range(t *testing.T) {
	s := NewScorer(testConfig())
	for _, body := range []string{
		"OK", "WHY IS NOTHING WORKING?!?!", "regards regards regards",
		"i'm i'm i'm don't don't", "a b c d e f g h i j k l m n o p q r s t u v w x y z",
	} {
		score, _ := s.Score(body)
		assert.GreaterOrEqual(t, score, 0.0, body)
		assert.LessOrEqual(t, score, 100.0, body)
	}
}

func TestFeatures(t *testing.T) {
	s := NewScorer(testConfig())

	f := s.Features("PLEASE send it NOW!! :)")
	assert.Equal(t, 4, f.Words)
	assert.InDelta(t, 0.5, f.Shouting, 1e-9)
	// two '!' characters, one repeated run, one emoticon
	assert.InDelta(t, 1.0, f.Punctuation, 1e-9)

	f = s.Features("One two three four five six seven eight nine ten eleven twelve.")
	assert.InDelta(t, 0, f.SentenceLength, 1e-9)

	f = s.Features("I'm sure I don't know")
	assert.InDelta(t, 2.0/5.0, f.ContractRate, 1e-9)
}

func TestScore_WeightsDriveOutcome(t *testing.T) {
	cfg := testConfig()
	cfg.Weights = Weights{Shouting: -1}
	s := NewScorer(cfg)

	_, formality := s.Score("STOP SENDING THESE")
	assert.Equal(t, models.FormalityInformal, formality)

	_, formality = s.Score("stop sending these")
	assert.Equal(t, models.FormalityNeutral, formality)
}
