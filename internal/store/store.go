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

// Package store persists analysis reports in Postgres: one row per report
// with its summary and insights as JSONB, and one row per analysed message.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bcem/commanalysis/internal/models"
)

// ErrNotFound is returned by Get for an unknown report ID.
var ErrNotFound = errors.New("report not found")

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// ReportStore writes reports to Postgres.
type ReportStore struct {
	db DB
}

// NewReportStore creates a report store backed by db.
// It ensures the report tables exist on creation.
func NewReportStore(ctx context.Context, db DB) (*ReportStore, error) {
	s := &ReportStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure report schema: %w", err)
	}
	slog.Info("report store initialised")
	return s, nil
}

func (s *ReportStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reports (
			id                  TEXT PRIMARY KEY,
			title               TEXT NOT NULL,
			generated_at        TIMESTAMPTZ NOT NULL,
			total_messages      INTEGER NOT NULL,
			spam_count          INTEGER NOT NULL,
			spam_ratio          DOUBLE PRECISION NOT NULL,
			average_style_score DOUBLE PRECISION NOT NULL,
			summary             JSONB NOT NULL,
			insights            JSONB NOT NULL,
			created_at          TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS report_messages (
			report_id       TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
			position        INTEGER NOT NULL,
			message_id      TEXT NOT NULL,
			source          TEXT NOT NULL,
			format          TEXT NOT NULL,
			sender          TEXT DEFAULT '',
			conversation_id TEXT DEFAULT '',
			sent_at         TIMESTAMPTZ,
			subject         TEXT DEFAULT '',
			preview         TEXT NOT NULL,
			language        TEXT DEFAULT '',
			is_spam         BOOLEAN NOT NULL,
			spam_confidence DOUBLE PRECISION NOT NULL,
			sentiment       TEXT NOT NULL,
			style_score     DOUBLE PRECISION NOT NULL,
			formality       TEXT NOT NULL,
			PRIMARY KEY (report_id, message_id)
		);
		CREATE INDEX IF NOT EXISTS idx_reports_generated ON reports(generated_at);
		CREATE INDEX IF NOT EXISTS idx_report_messages_sender ON report_messages(sender);
	`)
	return err
}

// Save inserts the report and its messages in one batch. Saving a report ID
// that already exists is a no-op.
func (s *ReportStore) Save(ctx context.Context, r *models.AnalysisReport) error {
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	insights, err := json.Marshal(r.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}

	b := &pgx.Batch{}
	b.Queue(`
		INSERT INTO reports
			(id, title, generated_at, total_messages, spam_count, spam_ratio,
			 average_style_score, summary, insights)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.Title, r.GeneratedAt, r.Summary.TotalMessages, r.Summary.SpamCount,
		r.Summary.SpamRatio, r.Summary.AverageStyleScore, summary, insights)

	for i, m := range r.Messages {
		b.Queue(`
			INSERT INTO report_messages
				(report_id, position, message_id, source, format, sender, conversation_id,
				 sent_at, subject, preview, language, is_spam, spam_confidence,
				 sentiment, style_score, formality)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (report_id, message_id) DO NOTHING
		`, r.ID, i, m.MessageID, m.Source, string(m.Format), m.Sender, m.ConversationID,
			m.Timestamp, m.Subject, m.Preview, m.Language, m.IsSpam, m.SpamConfidence,
			string(m.Sentiment), m.StyleScore, string(m.Formality))
	}

	br := s.db.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("save report %s (statement %d): %w", r.ID, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}

	slog.Debug("report saved", "report_id", r.ID, "messages", len(r.Messages))
	return nil
}

// Publish saves the report. It lets the store act as a report sink.
func (s *ReportStore) Publish(ctx context.Context, r *models.AnalysisReport) error {
	return s.Save(ctx, r)
}

// Name identifies the sink in logs.
func (s *ReportStore) Name() string { return "postgres" }

// Get loads a stored report with its messages in their original order.
func (s *ReportStore) Get(ctx context.Context, id string) (*models.AnalysisReport, error) {
	var (
		r                 models.AnalysisReport
		summary, insights []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, title, generated_at, summary, insights
		FROM reports
		WHERE id = $1
	`, id).Scan(&r.ID, &r.Title, &r.GeneratedAt, &summary, &insights)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	if err := json.Unmarshal(summary, &r.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal(insights, &r.Insights); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT message_id, source, format, sender, conversation_id, sent_at,
		       subject, preview, language, is_spam, spam_confidence,
		       sentiment, style_score, formality
		FROM report_messages
		WHERE report_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", id, err)
	}
	defer rows.Close()

	r.Messages, err = collectMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("scan messages of %s: %w", id, err)
	}
	return &r, nil
}

// collectMessages scans rows into message summaries.
func collectMessages(rows pgx.Rows) ([]models.MessageSummary, error) {
	var out []models.MessageSummary
	for rows.Next() {
		var (
			m                           models.MessageSummary
			format, sentiment, formality string
		)
		if err := rows.Scan(
			&m.MessageID, &m.Source, &format, &m.Sender, &m.ConversationID, &m.Timestamp,
			&m.Subject, &m.Preview, &m.Language, &m.IsSpam, &m.SpamConfidence,
			&sentiment, &m.StyleScore, &formality,
		); err != nil {
			return nil, err
		}
		m.Format = models.Format(format)
		m.Sentiment = models.Sentiment(sentiment)
		m.Formality = models.Formality(formality)
		out = append(out, m)
	}
	return out, rows.Err()
}
