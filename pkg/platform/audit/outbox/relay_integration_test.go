//go:build integration

package outbox_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	checkinpg "checkpoint/internal/checkin/store/postgres"
	"checkpoint/internal/platform/kafka"
	audit "checkpoint/pkg/platform/audit"
	"checkpoint/pkg/platform/audit/outbox"
	auditkafka "checkpoint/pkg/platform/audit/store/kafka"
	auditpg "checkpoint/pkg/platform/audit/store/postgres"
	"checkpoint/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	broker   string
	topic    string
	producer *kgo.Client
	outbox   *auditpg.Store
	relay    *outbox.Relay
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(checkinpg.Migrate(s.ctx, s.postgres.Pool))
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "audit_outbox"))
	s.topic = "audit-" + uuid.NewString()[:8]

	cl, err := kafka.NewClient(s.ctx, []string{s.broker}, s.topic)
	s.Require().NoError(err)
	s.Require().NoError(kafka.EnsureTopic(s.ctx, cl, s.topic, 1, 1))
	s.Require().NoError(kafka.EnsureTopic(s.ctx, cl, s.topic, 1, 1), "existing topic is not an error")
	s.producer = cl

	s.outbox = auditpg.New(s.postgres.Pool)
	s.relay = outbox.New(s.outbox, auditkafka.New(cl, s.topic), slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)
}

func (s *RelaySuite) TearDownTest() {
	s.producer.Close()
}

func (s *RelaySuite) consume(n int) []*kgo.Record {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer cl.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()
	var out []*kgo.Record
	for len(out) < n {
		fetches := cl.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out after %d of %d records", len(out), n)
		fetches.EachRecord(func(r *kgo.Record) { out = append(out, r) })
	}
	return out
}

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (s *RelaySuite) TestForwardsPendingRowsOnce() {
	events := []audit.Event{
		{ID: uuid.NewString(), Action: string(audit.EventCheckinRecorded), Category: audit.CategoryCompliance, MeetingID: "m-1", MemberID: "42"},
		{ID: uuid.NewString(), Action: string(audit.EventCheckinUnattributed), Category: audit.CategorySecurity, MeetingID: "m-1"},
	}
	for _, e := range events {
		s.Require().NoError(s.outbox.Append(s.ctx, e))
	}

	s.Require().NoError(s.relay.Tick(s.ctx))
	s.Require().NoError(s.relay.Tick(s.ctx), "second tick finds nothing pending")

	records := s.consume(len(events))
	s.Len(records, len(events))
	for i, r := range records {
		s.Equal("m-1", string(r.Key))
		s.Equal(events[i].Action, header(r, "action"))

		var got audit.Event
		s.Require().NoError(json.Unmarshal(r.Value, &got))
		s.Equal(events[i].ID, got.ID)
	}
	s.Equal(string(audit.CategorySecurity), header(records[1], "category"))

	var pending int
	s.Require().NoError(s.postgres.Pool.QueryRow(s.ctx,
		`SELECT count(*) FROM audit_outbox WHERE published_at IS NULL`).Scan(&pending))
	s.Zero(pending)
}

func (s *RelaySuite) TestAppendIsIdempotentOnEventID() {
	e := audit.Event{ID: uuid.NewString(), Action: string(audit.EventCheckinRecorded), MeetingID: "m-2"}
	s.Require().NoError(s.outbox.Append(s.ctx, e))
	s.Require().NoError(s.outbox.Append(s.ctx, e))

	listed, err := s.outbox.ListByMeeting(s.ctx, "m-2")
	s.Require().NoError(err)
	s.Len(listed, 1)
}
