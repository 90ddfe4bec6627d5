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

// Package style scores the formality of message bodies from surface
// features: register keywords, contractions, sentence length, expressive
// punctuation and shouting.
package style

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/bcem/commanalysis/internal/models"
	"github.com/bcem/commanalysis/internal/tokenize"
)

// NeutralScore is reported for bodies without words.
const NeutralScore = 50.0

var (
	emoticonRe  = regexp.MustCompile(`[:;=]-?[()DPp]|\bx[Dd]\b|<3`)
	repeatedRe  = regexp.MustCompile(`[?!]{2,}`)
	rawWordRe   = regexp.MustCompile(`\p{L}+(?:'\p{L}+)*`)
	sentenceLen = 12.0
)

// Weights are the coefficients of the feature sum.
type Weights struct {
	FormalKeywords float64
	Slang          float64
	Contractions   float64
	SentenceLength float64
	Punctuation    float64
	Shouting       float64
}

// Config describes the vocabulary, weights and thresholds of a Scorer.
type Config struct {
	FormalKeywords    []string
	Slang             []string
	Contractions      []string
	Weights           Weights
	FormalThreshold   float64
	InformalThreshold float64
	ScoreFloor        float64
	ScoreCeiling      float64
}

// Features are the per-word rates and normalised measures of one body.
type Features struct {
	Words          int
	FormalRate     float64
	SlangRate      float64
	ContractRate   float64
	SentenceLength float64 // in [-1, 1]; 0 is a 12-word sentence
	Punctuation    float64
	Shouting       float64
}

// Scorer is stateless after construction.
type Scorer struct {
	cfg          Config
	formal       map[string]struct{}
	slang        map[string]struct{}
	contractions map[string]struct{}
}

// NewScorer builds a scorer from cfg.
func NewScorer(cfg Config) *Scorer {
	if cfg.ScoreCeiling <= cfg.ScoreFloor {
		cfg.ScoreFloor, cfg.ScoreCeiling = -0.7, 0.7
	}
	return &Scorer{
		cfg:          cfg,
		formal:       tokenize.Set(cfg.FormalKeywords),
		slang:        tokenize.Set(cfg.Slang),
		contractions: tokenize.Set(cfg.Contractions),
	}
}

// Score returns the style score in [0, 100] and the formality label.
func (s *Scorer) Score(body string) (float64, models.Formality) {
	f := s.Features(body)
	if f.Words == 0 {
		return NeutralScore, models.FormalityNeutral
	}

	raw := s.Raw(f)

	formality := models.FormalityNeutral
	switch {
	case raw > s.cfg.FormalThreshold:
		formality = models.FormalityFormal
	case raw < s.cfg.InformalThreshold:
		formality = models.FormalityInformal
	}

	lo, hi := s.cfg.ScoreFloor, s.cfg.ScoreCeiling
	clamped := math.Max(lo, math.Min(hi, raw))
	score := math.Round((clamped-lo)/(hi-lo)*100*100) / 100
	return score, formality
}

// Raw returns the weighted feature sum.
func (s *Scorer) Raw(f Features) float64 {
	w := s.cfg.Weights
	return w.FormalKeywords*f.FormalRate +
		w.Slang*f.SlangRate +
		w.Contractions*f.ContractRate +
		w.SentenceLength*f.SentenceLength +
		w.Punctuation*f.Punctuation +
		w.Shouting*f.Shouting
}

// Features extracts the style features of body.
func (s *Scorer) Features(body string) Features {
	words := tokenize.Words(body)
	if len(words) == 0 {
		return Features{}
	}
	n := float64(len(words))

	var formal, slang, contractions int
	for _, w := range words {
		if _, ok := s.formal[w]; ok {
			formal++
		} else if _, ok := s.slang[w]; ok {
			slang++
		}
		if _, ok := s.contractions[w]; ok {
			contractions++
		}
	}

	sentences := len(tokenize.Sentences(body))
	if sentences == 0 {
		sentences = 1
	}
	avg := n / float64(sentences)

	text := tokenize.Normalize(body)
	expressive := strings.Count(text, "!") +
		len(repeatedRe.FindAllString(text, -1)) +
		len(emoticonRe.FindAllString(text, -1))

	return Features{
		Words:          len(words),
		FormalRate:     float64(formal) / n,
		SlangRate:      float64(slang) / n,
		ContractRate:   float64(contractions) / n,
		SentenceLength: math.Max(-1, math.Min(1, (avg-sentenceLen)/sentenceLen)),
		Punctuation:    float64(expressive) / n,
		Shouting:       float64(shoutedWords(text)) / n,
	}
}

// shoutedWords counts words of two or more letters written entirely in
// upper case.
func shoutedWords(text string) int {
	count := 0
	for _, w := range rawWordRe.FindAllString(text, -1) {
		letters, upper := 0, 0
		for _, r := range w {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
		if letters >= 2 && upper == letters {
			count++
		}
	}
	return count
}
