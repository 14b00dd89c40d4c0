//go:build integration

package producer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"barangay/internal/platform/kafka/producer"
	"barangay/pkg/platform/outbox"
	"barangay/pkg/platform/outbox/worker"
	txcontext "barangay/pkg/platform/tx"
	"barangay/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	cfg := producer.DefaultConfig([]string{s.kafka.Brokers})
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *ProducerIntegrationSuite) consumeKey(ctx context.Context, group, topic, key string) *kgo.Record {
	consumer, err := s.kafka.NewConsumer(ctx, group, topic)
	s.Require().NoError(err)
	defer consumer.Close()

	return s.kafka.WaitForMessage(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == key
	})
}

// Produce only returns once the broker acknowledged the record.
func (s *ProducerIntegrationSuite) TestProduceDeliversWithHeaders() {
	ctx := context.Background()
	topic := "test-produce-headers"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic: topic,
		Key:   []byte("resident-1"),
		Value: []byte(`{"new_status":"verified"}`),
		Headers: map[string]string{
			"aggregate_type": outbox.AggregateResident,
			"event_type":     outbox.EventVerificationTransition,
		},
	})
	s.Require().NoError(err)

	record := s.consumeKey(ctx, "test-headers-group", topic, "resident-1")
	s.Require().NotNil(record)
	s.JSONEq(`{"new_status":"verified"}`, string(record.Value))

	headers := make(map[string]string)
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(outbox.AggregateResident, headers["aggregate_type"])
	s.Equal(outbox.EventVerificationTransition, headers["event_type"])
}

// The outbox worker hands pending entries to the broker and marks them processed.
func (s *ProducerIntegrationSuite) TestOutboxWorkerPublishesPendingEntries() {
	ctx := context.Background()
	topic := "test-outbox-" + time.Now().Format("20060102150405")
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	store := outbox.NewInMemoryStore()
	entry, err := outbox.NewEntry(outbox.AggregateCredential, "cred_1", outbox.EventCredentialIssued,
		map[string]any{"credential_id": "cred_1", "version": 1}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(store.Append(ctx, entry))

	w := worker.New(store, txcontext.NewInMemory(0), s.producer, worker.WithTopic(topic))
	published, err := w.PollOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, published)

	record := s.consumeKey(ctx, "test-outbox-group", topic, entry.ID.String())
	s.Require().NotNil(record)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(record.Value, &body))
	s.Equal("cred_1", body["credential_id"])

	pending, err := store.FetchUnprocessed(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *ProducerIntegrationSuite) TestHealth() {
	s.NoError(s.producer.Health(context.Background()))
}
