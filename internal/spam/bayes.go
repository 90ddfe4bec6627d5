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

package spam

import (
	"math"

	"github.com/bcem/commanalysis/internal/tokenize"
)

// DefaultThreshold is the spam posterior above which a body is SPAM.
const DefaultThreshold = 0.5

// NaiveBayes is a multinomial naive Bayes classifier with Laplace
// smoothing. Training is not safe for concurrent use; scoring a trained
// model is.
type NaiveBayes struct {
	hamDocs, spamDocs   int
	hamWords, spamWords map[string]int
	hamTotal, spamTotal int
	vocab               map[string]struct{}
	threshold           float64
}

// NewNaiveBayes returns an untrained model.
func NewNaiveBayes() *NaiveBayes {
	return &NaiveBayes{
		hamWords:  make(map[string]int),
		spamWords: make(map[string]int),
		vocab:     make(map[string]struct{}),
		threshold: DefaultThreshold,
	}
}

// Train builds a model from labelled example bodies.
func Train(ham, spam []string) *NaiveBayes {
	nb := NewNaiveBayes()
	for _, body := range ham {
		nb.Learn(body, false)
	}
	for _, body := range spam {
		nb.Learn(body, true)
	}
	return nb
}

// Learn adds one labelled document.
func (nb *NaiveBayes) Learn(body string, isSpam bool) {
	words := tokenize.Words(body)
	if isSpam {
		nb.spamDocs++
	} else {
		nb.hamDocs++
	}
	for _, w := range words {
		nb.add(w, isSpam, 1)
	}
}

func (nb *NaiveBayes) add(word string, isSpam bool, n int) {
	if isSpam {
		nb.spamWords[word] += n
		nb.spamTotal += n
	} else {
		nb.hamWords[word] += n
		nb.hamTotal += n
	}
	nb.vocab[word] = struct{}{}
}

// WithThreshold sets the decision threshold and returns nb.
func (nb *NaiveBayes) WithThreshold(t float64) *NaiveBayes {
	if t > 0 && t < 1 {
		nb.threshold = t
	}
	return nb
}

// Documents returns the number of ham and spam training documents.
func (nb *NaiveBayes) Documents() (ham, spam int) {
	return nb.hamDocs, nb.spamDocs
}

// VocabularySize returns the number of distinct training words.
func (nb *NaiveBayes) VocabularySize() int {
	return len(nb.vocab)
}

// Score classifies body.
func (nb *NaiveBayes) Score(body string) Verdict {
	p, known := nb.SpamProbability(tokenize.Words(body))
	if known == 0 {
		return Verdict{IsSpam: false, Confidence: LowConfidence}
	}
	if p > nb.threshold {
		return Verdict{IsSpam: true, Confidence: p}
	}
	return Verdict{IsSpam: false, Confidence: 1 - p}
}

// SpamProbability returns P(spam | words) and how many of the words the
// model has seen. The probability is meaningless when known is zero.
func (nb *NaiveBayes) SpamProbability(words []string) (p float64, known int) {
	if nb.hamDocs+nb.spamDocs == 0 {
		return 0, 0
	}

	docs := float64(nb.hamDocs + nb.spamDocs)
	vocab := float64(len(nb.vocab))
	logHam := math.Log((float64(nb.hamDocs) + 1) / (docs + 2))
	logSpam := math.Log((float64(nb.spamDocs) + 1) / (docs + 2))

	for _, w := range words {
		if _, ok := nb.vocab[w]; ok {
			known++
		}
		logHam += math.Log((float64(nb.hamWords[w]) + 1) / (float64(nb.hamTotal) + vocab))
		logSpam += math.Log((float64(nb.spamWords[w]) + 1) / (float64(nb.spamTotal) + vocab))
	}

	return 1 / (1 + math.Exp(logHam-logSpam)), known
}
