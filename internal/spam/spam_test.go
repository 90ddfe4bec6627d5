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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultModel() *NaiveBayes {
	return Train([]string{"hello how are you"}, []string{"buy now free money"})
}

func TestNaiveBayes_Score(t *testing.T) {
	nb := defaultModel()

	tests := []struct {
		name     string
		body     string
		wantSpam bool
		wantConf float64
	}{
		{name: "spam words", body: "FREE money, buy now!", wantSpam: true},
		{name: "ham words", body: "Hello, how are you today?", wantSpam: false},
		{name: "empty body", body: "", wantSpam: false, wantConf: LowConfidence},
		{name: "no shared vocabulary", body: "zebra quantum", wantSpam: false, wantConf: LowConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := nb.Score(tt.body)
			assert.Equal(t, tt.wantSpam, v.IsSpam)
			assert.GreaterOrEqual(t, v.Confidence, 0.5)
			assert.LessOrEqual(t, v.Confidence, 1.0)
			if tt.wantConf != 0 {
				assert.InDelta(t, tt.wantConf, v.Confidence, 1e-9)
			}
		})
	}
}

func TestNaiveBayes_Posterior(t *testing.T) {
	nb := defaultModel()
	p, known := nb.SpamProbability([]string{"free", "money", "now"})
	assert.Equal(t, 3, known)
	// Each word is 2/12 under spam and 1/12 under ham with equal priors.
	assert.InDelta(t, 8.0/9.0, p, 1e-9)
}

func TestNaiveBayes_Threshold(t *testing.T) {
	nb := defaultModel().WithThreshold(0.95)
	v := nb.Score("free money now")
	assert.False(t, v.IsSpam)
	assert.InDelta(t, 1.0/9.0, v.Confidence, 1e-9)
}

func TestNaiveBayes_Untrained(t *testing.T) {
	v := NewNaiveBayes().Score("buy now")
	assert.Equal(t, Verdict{IsSpam: false, Confidence: LowConfidence}, v)
}

func TestNaiveBayes_ConcurrentScoring(t *testing.T) {
	nb := defaultModel()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, nb.Score("free money").IsSpam)
		}()
	}
	wg.Wait()
}

func TestModelStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spam.db")
	nb := Train(
		[]string{"see you at lunch", "meeting notes attached"},
		[]string{"win a free prize", "cheap pills free shipping"},
	)
	require.NoError(t, SaveModel(path, nb))

	loaded, err := LoadModel(path)
	require.NoError(t, err)

	ham, sp := loaded.Documents()
	assert.Equal(t, 2, ham)
	assert.Equal(t, 2, sp)
	assert.Equal(t, nb.VocabularySize(), loaded.VocabularySize())

	for _, body := range []string{"free prize", "lunch meeting", "unrelated"} {
		assert.Equal(t, nb.Score(body), loaded.Score(body), body)
	}
}

func TestModelStore_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spam.db")
	require.NoError(t, SaveModel(path, Train([]string{"a b c"}, []string{"x y z"})))
	require.NoError(t, SaveModel(path, Train([]string{"hello"}, nil)))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	ham, sp := loaded.Documents()
	assert.Equal(t, 1, ham)
	assert.Equal(t, 0, sp)
	assert.Equal(t, 1, loaded.VocabularySize())
}

func TestLoadModel_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadModel(filepath.Join(dir, "missing.db"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	empty := filepath.Join(dir, "empty.db")
	require.NoError(t, SaveModel(empty, NewNaiveBayes()))
	_, err = LoadModel(empty)
	assert.True(t, errors.Is(err, ErrUntrained))
}

func TestReadCorpus(t *testing.T) {
	docs, err := ReadCorpus(strings.NewReader("first line\n\n  second line  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first line", "second line"}, docs)
}

func TestScorerFunc(t *testing.T) {
	var s Scorer = ScorerFunc(func(string) Verdict { return Verdict{IsSpam: true, Confidence: 0.9} })
	assert.True(t, s.Score("x").IsSpam)
}
