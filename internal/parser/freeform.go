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

package parser

import (
	"strings"

	"github.com/bcem/commanalysis/internal/models"
)

// FreeformParser treats the whole text as a single message.
type FreeformParser struct{}

// Parse returns one message built from the trimmed text and the hints.
func (FreeformParser) Parse(text string, hints Hints) []models.Message {
	body := trimBlankLines(splitLines(text))
	if strings.TrimSpace(body) == "" {
		return nil
	}
	return []models.Message{{
		SourceFormat:   models.FormatFreeform,
		MessageID:      hints.source() + "_msg",
		Source:         hints.source(),
		Sender:         hints.Sender,
		ConversationID: hints.ConversationID,
		Timestamp:      hints.Timestamp,
		Body:           body,
	}}
}
