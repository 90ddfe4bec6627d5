//go:build integration

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

package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/suite"
)

const (
	postgresUser     = "commanalysis"
	postgresPassword = "commanalysis_pwd"
	postgresDB       = "commanalysis_test"
)

func TestReportStoreIntegration(t *testing.T) {
	suite.Run(t, new(ReportStoreSuite))
}

type ReportStoreSuite struct {
	suite.Suite
	dockerPool *dockertest.Pool
	resource   *dockertest.Resource
	pool       *pgxpool.Pool
	store      *ReportStore
}

func (s *ReportStoreSuite) SetupSuite() {
	pool, err := dockertest.NewPool("")
	if err != nil {
		s.T().Fatalf("Could not connect to docker: %s", err)
	}
	s.dockerPool = pool

	s.resource, err = pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=" + postgresUser,
			"POSTGRES_PASSWORD=" + postgresPassword,
			"POSTGRES_DB=" + postgresDB,
		},
	})
	if err != nil {
		s.T().Fatalf("Could not run postgres from docker: %s", err)
	}

	dsn := "postgres://" + postgresUser + ":" + postgresPassword +
		"@localhost:" + s.resource.GetPort("5432/tcp") + "/" + postgresDB + "?sslmode=disable"

	ctx := context.Background()
	if err = pool.Retry(func() error {
		var err error
		s.pool, err = pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		return s.pool.Ping(ctx)
	}); err != nil {
		s.T().Fatalf("Could not connect to postgres: %s", err)
	}

	s.store, err = NewReportStore(ctx, s.pool)
	if err != nil {
		s.T().Fatalf("Failed to create report store: %v", err)
	}
}

func (s *ReportStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.dockerPool != nil && s.resource != nil {
		_ = s.dockerPool.Purge(s.resource)
	}
}

func (s *ReportStoreSuite) TestSaveAndGet() {
	ctx := context.Background()
	want := sampleReport()

	s.Require().NoError(s.store.Save(ctx, want))
	// Saving twice is a no-op.
	s.Require().NoError(s.store.Save(ctx, want))

	got, err := s.store.Get(ctx, want.ID)
	s.Require().NoError(err)
	s.Equal(want.Title, got.Title)
	s.True(want.GeneratedAt.Equal(got.GeneratedAt))
	s.Equal(want.Summary, got.Summary)
	s.Require().Len(got.Messages, 2)
	s.Equal("a_msg", got.Messages[0].MessageID)
	s.Equal("alice", got.Messages[0].Sender)
	s.WithinDuration(*want.Messages[0].Timestamp, *got.Messages[0].Timestamp, time.Second)
	s.Nil(got.Messages[1].Timestamp)
	s.True(got.Messages[1].IsSpam)
}

func (s *ReportStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "does-not-exist")
	s.ErrorIs(err, ErrNotFound)
}
