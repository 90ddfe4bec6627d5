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

// Package sentiment assigns a lexicon-based polarity to message bodies.
package sentiment

import (
	"fmt"

	"github.com/bcem/commanalysis/internal/models"
	"github.com/bcem/commanalysis/internal/tokenize"
)

// Lexicon is a pair of disjoint word lists.
type Lexicon struct {
	Positive []string
	Negative []string
}

// Scorer counts lexicon hits. It holds no mutable state.
type Scorer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewScorer builds a scorer, rejecting words present in both lists.
func NewScorer(lex Lexicon) (*Scorer, error) {
	s := &Scorer{
		positive: tokenize.Set(lex.Positive),
		negative: tokenize.Set(lex.Negative),
	}
	for w := range s.positive {
		if _, ok := s.negative[w]; ok {
			return nil, fmt.Errorf("sentiment lexicons overlap on %q", w)
		}
	}
	return s, nil
}

// Score returns positive when positive hits outnumber negative ones,
// negative for the reverse, and neutral on a tie.
func (s *Scorer) Score(body string) models.Sentiment {
	pos, neg := s.Counts(body)
	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Counts returns the positive and negative lexicon hits in body.
func (s *Scorer) Counts(body string) (pos, neg int) {
	for _, w := range tokenize.Words(body) {
		if _, ok := s.positive[w]; ok {
			pos++
		} else if _, ok := s.negative[w]; ok {
			neg++
		}
	}
	return pos, neg
}
