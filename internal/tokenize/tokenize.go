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

// Package tokenize provides the text normalisation shared by the scorers:
// HTML stripping, Unicode case folding and word splitting.
package tokenize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	wordRe   = regexp.MustCompile(`\p{L}+(?:'\p{L}+)*`)
	tagRe    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	sentence = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n\s*\n`)

	apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

	// bluemonday policies are safe for concurrent use once built.
	stripPolicy     *bluemonday.Policy
	stripPolicyOnce sync.Once
)

func policy() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// StripHTML removes markup from text that contains HTML tags. Plain text is
// returned unchanged.
func StripHTML(text string) string {
	if !tagRe.MatchString(text) {
		return text
	}
	return html.UnescapeString(policy().Sanitize(text))
}

// Normalize applies NFKC, unifies apostrophes and strips HTML.
func Normalize(text string) string {
	return apostrophes.Replace(norm.NFKC.String(StripHTML(text)))
}

// Words returns the case-folded words of text. Apostrophes inside a word
// are kept so contractions stay whole.
func Words(text string) []string {
	folded := cases.Fold().String(Normalize(text))
	return wordRe.FindAllString(folded, -1)
}

// Sentences splits text on terminal punctuation and blank lines, dropping
// empty pieces.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentence.Split(Normalize(text), -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Set builds a lookup set of case-folded entries.
func Set(words []string) map[string]struct{} {
	fold := cases.Fold()
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.TrimSpace(apostrophes.Replace(w))
		if w == "" {
			continue
		}
		out[fold.String(w)] = struct{}{}
	}
	return out
}
