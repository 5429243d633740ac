//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

type BrokerSuite struct {
	suite.Suite
	container *tcredpanda.Container
	broker    string
}

func TestBrokerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(BrokerSuite))
}

func (s *BrokerSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v23.3.3", tcredpanda.WithAutoCreateTopics())
	s.Require().NoError(err)
	s.container = container

	s.broker, err = container.KafkaSeedBroker(ctx)
	s.Require().NoError(err)
}

func (s *BrokerSuite) TearDownSuite() {
	_ = testcontainers.TerminateContainer(s.container)
}

func (s *BrokerSuite) TestProducerEnvelopeRoundTrip() {
	ctx := context.Background()
	topic := "screening-events-it"

	producer := NewProducer(ProducerConfig{
		Brokers:      []string{s.broker},
		Topic:        topic,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: 1,
		Compression:  "snappy",
	}, testLogger())
	defer producer.Close()

	groupID := int64(3)
	envelope := &Envelope{EventType: "detection.completed", GroupID: &groupID, Data: json.RawMessage(`{"summary":{}}`)}
	s.Require().Eventually(func() bool {
		return producer.Publish(ctx, envelope) == nil
	}, 30*time.Second, 500*time.Millisecond)

	reader := kafka.NewReader(kafka.ReaderConfig{Brokers: []string{s.broker}, Topic: topic, StartOffset: kafka.FirstOffset})
	defer reader.Close()

	readCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(readCtx)
	s.Require().NoError(err)

	s.Equal("group-3", string(msg.Key))
	var got Envelope
	s.Require().NoError(json.Unmarshal(msg.Value, &got))
	s.Equal(envelope.EventID, got.EventID)
	s.Equal(SchemaVersion, got.SchemaVersion)
}

func (s *BrokerSuite) TestConsumerDeliversDetectionRequests() {
	ctx := context.Background()
	topic := "detection-requests-it"

	writer := &kafka.Writer{Addr: kafka.TCP(s.broker), Topic: topic, AllowAutoTopicCreation: true}
	defer writer.Close()
	s.Require().Eventually(func() bool {
		return writer.WriteMessages(ctx,
			kafka.Message{Value: []byte(`not json`)},
			kafka.Message{Value: []byte(`{"group_id":"12","force_recheck":true}`)},
		) == nil
	}, 30*time.Second, 500*time.Millisecond)

	requests := make(chan DetectionRequest, 4)
	consumer := NewConsumer(ConsumerConfig{
		Brokers:       []string{s.broker},
		Topic:         topic,
		ConsumerGroup: "thistle-it",
	}, testLogger(), func(ctx context.Context, msg *IncomingMessage) error {
		req, err := msg.ParseDetectionRequest()
		if err != nil {
			return err
		}
		requests <- req
		return nil
	})
	s.Require().NoError(consumer.Start(ctx))
	defer consumer.Stop()

	select {
	case req := <-requests:
		s.Equal(int64(12), req.GroupID)
		s.True(req.ForceRecheck)
	case <-time.After(30 * time.Second):
		s.Fail("detection request was not delivered")
	}
}
