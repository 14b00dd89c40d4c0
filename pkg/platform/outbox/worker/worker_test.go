package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"barangay/internal/platform/kafka/producer"
	"barangay/pkg/platform/outbox"
	"barangay/pkg/platform/outbox/metrics"
	"barangay/pkg/platform/outbox/worker/mocks"
	txcontext "barangay/pkg/platform/tx"
)

type WorkerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	publisher *mocks.MockPublisher
	store     *outbox.InMemoryStore
	metrics   *metrics.Metrics
	runner    *txcontext.InMemory
	worker    *Worker
	base      time.Time
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.store = outbox.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.runner = txcontext.NewInMemory(0)
	s.worker = New(s.store, s.runner, s.publisher,
		WithTopic("test.events"),
		WithBatchSize(10),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *WorkerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *WorkerSuite) appendEntry(eventType string, offset time.Duration) *outbox.Entry {
	entry, err := outbox.NewEntry(outbox.AggregateResident, "6f1c2b9e-3d4a-4f5b-8c7d-0e1f2a3b4c5d", eventType,
		map[string]string{"status": "verified"}, s.base.Add(offset))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(context.Background(), entry))
	return entry
}

func (s *WorkerSuite) TestPollOnce() {
	s.Run("publishes pending entries and marks them processed", func() {
		s.SetupTest()
		first := s.appendEntry(outbox.EventVerificationTransition, 0)
		second := s.appendEntry(outbox.EventCredentialIssued, time.Second)

		gomock.InOrder(
			s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, msg *producer.Message) error {
					s.Equal("test.events", msg.Topic)
					s.Equal(first.ID.String(), string(msg.Key))
					s.Equal(outbox.EventVerificationTransition, msg.Headers["event_type"])
					s.Equal(outbox.AggregateResident, msg.Headers["aggregate_type"])
					s.JSONEq(`{"status":"verified"}`, string(msg.Value))
					return nil
				}),
			s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, msg *producer.Message) error {
					s.Equal(second.ID.String(), string(msg.Key))
					return nil
				}),
		)

		n, err := s.worker.PollOnce(context.Background())
		s.Require().NoError(err)
		s.Equal(2, n)

		pending, err := s.store.CountPending(context.Background())
		s.Require().NoError(err)
		s.Zero(pending)
		s.Equal(float64(2), testutil.ToFloat64(s.metrics.PublishedTotal))
	})

	s.Run("failed publishes stay pending for the next poll", func() {
		s.SetupTest()
		s.appendEntry(outbox.EventVerificationTransition, 0)
		s.appendEntry(outbox.EventCredentialIssued, time.Second)

		gomock.InOrder(
			s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(errors.New("broker down")),
			s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(nil),
		)

		n, err := s.worker.PollOnce(context.Background())
		s.Require().NoError(err)
		s.Equal(1, n)

		pending, err := s.store.CountPending(context.Background())
		s.Require().NoError(err)
		s.Equal(int64(1), pending)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.PublishFailures))

		s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(nil)
		n, err = s.worker.PollOnce(context.Background())
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("empty outbox publishes nothing", func() {
		s.SetupTest()
		n, err := s.worker.PollOnce(context.Background())
		s.Require().NoError(err)
		s.Zero(n)
	})
}

func (s *WorkerSuite) TestSlowPublishHoldsNoTransactionLock() {
	s.appendEntry(outbox.EventCredentialIssued, 0)

	publishing := make(chan struct{})
	release := make(chan struct{})
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *producer.Message) error {
			close(publishing)
			<-release
			return nil
		})

	done := make(chan int)
	go func() {
		n, err := s.worker.PollOnce(context.Background())
		s.NoError(err)
		done <- n
	}()
	<-publishing

	for _, key := range []string{"", lockKey, "6f1c2b9e-3d4a-4f5b-8c7d-0e1f2a3b4c5d"} {
		ran := make(chan error, 1)
		go func() {
			ran <- s.runner.RunInTx(txcontext.WithLockKey(context.Background(), key),
				func(context.Context) error { return nil })
		}()
		select {
		case err := <-ran:
			s.NoError(err)
		case <-time.After(time.Second):
			s.Failf("blocked", "unit on key %q waited on the publish", key)
		}
	}

	close(release)
	s.Equal(1, <-done)
	pending, err := s.store.CountPending(context.Background())
	s.Require().NoError(err)
	s.Zero(pending)
}

func (s *WorkerSuite) TestUpdateMetrics() {
	s.appendEntry(outbox.EventResidentRegistered, 0)
	s.Require().NoError(s.worker.UpdateMetrics(context.Background()))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.PendingDepth))
}

func (s *WorkerSuite) TestStopDrainsPendingEntries() {
	s.appendEntry(outbox.EventVerificationReopened, 0)
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(nil)

	w := New(s.store, txcontext.NewInMemory(0), s.publisher,
		WithPollInterval(time.Hour),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(w.Stop(ctx))

	pending, err := s.store.CountPending(context.Background())
	s.Require().NoError(err)
	s.Zero(pending)
}
