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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/commanalysis/internal/batch"
	"github.com/bcem/commanalysis/internal/config"
	"github.com/bcem/commanalysis/internal/models"
	"github.com/bcem/commanalysis/internal/pipeline"
	"github.com/bcem/commanalysis/internal/spam"
	"github.com/bcem/commanalysis/internal/store"
)

type stubRunner struct {
	got batch.Request
	res *batch.Result
	err error
}

func (s *stubRunner) Run(_ context.Context, req batch.Request) (*batch.Result, error) {
	s.got = req
	return s.res, s.err
}

type stubReports struct {
	reports map[string]*models.AnalysisReport
	err     error
}

func (s stubReports) Get(_ context.Context, id string) (*models.AnalysisReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze_PassesHints(t *testing.T) {
	runner := &stubRunner{res: &batch.Result{Report: &models.AnalysisReport{ID: "rep-1"}}}
	s := NewServer(Config{Runner: runner})

	rec := post(t, s.Handler(), `{"text":"hello there","format":"sms","sender":"bob","conversation_id":"c1","timestamp":"2026-03-01T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, runner.got.Inputs, 1)
	in := runner.got.Inputs[0]
	assert.Equal(t, models.FormatFreeform, in.Format)
	assert.Equal(t, "bob", in.Hints.Sender)
	assert.Equal(t, "c1", in.Hints.ConversationID)
	require.NotNil(t, in.Hints.Timestamp)
	assert.Equal(t, 9, in.Hints.Timestamp.Hour())
	assert.False(t, runner.got.SkipSeen)

	var got models.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rep-1", got.ID)
}

func TestAnalyze_BadRequests(t *testing.T) {
	s := NewServer(Config{Runner: &stubRunner{}})

	cases := map[string]string{
		"malformed json": `{"text":`,
		"missing text":   `{"sender":"bob"}`,
		"unknown format": `{"text":"hi","format":"fax"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(t, s.Handler(), body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAnalyze_EmptyBatch(t *testing.T) {
	s := NewServer(Config{Runner: &stubRunner{err: pipeline.ErrEmptyBatch}})
	rec := post(t, s.Handler(), `{"text":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalyze_InternalError(t *testing.T) {
	s := NewServer(Config{Runner: &stubRunner{err: errors.New("boom")}})
	rec := post(t, s.Handler(), `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestAnalyze_EndToEnd(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	p, err := pipeline.FromConfig(cfg, spam.ScorerFunc(func(string) spam.Verdict {
		return spam.Verdict{Confidence: spam.LowConfidence}
	}))
	require.NoError(t, err)
	s := NewServer(Config{Runner: batch.NewRunner(batch.RunnerConfig{Analyzer: p})})

	rec := post(t, s.Handler(), `{"text":"Thank you for the great update, I appreciate it.","sender":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got models.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "alice", got.Messages[0].Sender)
	assert.Equal(t, models.SentimentPositive, got.Messages[0].Sentiment)
	assert.Equal(t, 1, got.Summary.TotalMessages)

	rec = post(t, s.Handler(), `{"text":"\n\n  \n"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealth(t *testing.T) {
	healthy := NewServer(Config{Checks: map[string]Pinger{"redis": stubPinger{}}})
	rec := httptest.NewRecorder()
	healthy.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewServer(Config{Checks: map[string]Pinger{"redis": stubPinger{err: errors.New("refused")}}})
	rec = httptest.NewRecorder()
	down.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis unhealthy")
}

func TestRateLimit(t *testing.T) {
	runner := &stubRunner{res: &batch.Result{Report: &models.AnalysisReport{ID: "r"}}}
	s := NewServer(Config{Runner: runner, RateLimit: 1})

	first := post(t, s.Handler(), `{"text":"one"}`)
	second := post(t, s.Handler(), `{"text":"two"}`)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health is never limited.
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetReport(t *testing.T) {
	reports := stubReports{reports: map[string]*models.AnalysisReport{
		"rep-1": {ID: "rep-1", Title: "Weekly"},
	}}
	s := NewServer(Config{Runner: &stubRunner{}, Reports: reports})

	rec := get(s.Handler(), "/api/v1/reports/rep-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Weekly", got.Title)

	assert.Equal(t, http.StatusNotFound, get(s.Handler(), "/api/v1/reports/missing").Code)

	broken := NewServer(Config{Runner: &stubRunner{}, Reports: stubReports{err: errors.New("conn reset")}})
	rec = get(broken.Handler(), "/api/v1/reports/rep-1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "conn reset")
}

func TestGetReport_NotServedWithoutStore(t *testing.T) {
	s := NewServer(Config{Runner: &stubRunner{}})
	assert.Equal(t, http.StatusNotFound, get(s.Handler(), "/api/v1/reports/rep-1").Code)
}

func TestRateLimit_PerClient(t *testing.T) {
	runner := &stubRunner{res: &batch.Result{Report: &models.AnalysisReport{ID: "r"}}}
	s := NewServer(Config{Runner: runner, RateLimit: 1})

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}
