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

package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bcem/commanalysis/internal/models"
)

// FileSink writes each report as a text file into Dir.
type FileSink struct {
	Dir string
}

// NewFileSink creates a file sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Path returns the file a report is written to.
func (s *FileSink) Path(r *models.AnalysisReport) string {
	return filepath.Join(s.Dir, fmt.Sprintf("report_%s.txt", r.GeneratedAt.Format("20060102_150405")))
}

// Publish writes r to its file, creating Dir when needed.
func (s *FileSink) Publish(_ context.Context, r *models.AnalysisReport) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	path := s.Path(r)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := WriteText(f, *r); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}

	slog.Info("report saved", "path", path, "report_id", r.ID)
	return nil
}

// Name identifies the sink in logs.
func (s *FileSink) Name() string { return "file" }
