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

// Package spam classifies message bodies as spam or ham. The pipeline
// depends only on the Scorer interface; NaiveBayes is the bundled model.
package spam

// Verdict is the outcome of scoring one body.
type Verdict struct {
	IsSpam     bool
	Confidence float64
}

// LowConfidence is reported when the model has no evidence either way.
const LowConfidence = 0.5

// Scorer classifies a message body. Implementations must be safe for
// concurrent use and return HAM with low confidence when the body shares no
// vocabulary with the model.
type Scorer interface {
	Score(body string) Verdict
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(body string) Verdict

// Score calls f(body).
func (f ScorerFunc) Score(body string) Verdict {
	return f(body)
}
