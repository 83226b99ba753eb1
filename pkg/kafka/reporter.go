// Package kafka publishes interactor failures to a Kafka topic so other
// services can observe them.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sprig/pkg/appctx"
	"github.com/Ramsey-B/sprig/pkg/failure"
	"github.com/Ramsey-B/sprig/pkg/tracing"
)

// MessageWriter is the part of *kafka.Writer the reporter uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FailureMessage is the JSON body published for each failure.
type FailureMessage struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Interactor  string    `json:"interactor,omitempty"`
	RequestType string    `json:"request_type,omitempty"`
	Errors      []string  `json:"errors"`
	Error       string    `json:"error,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	TraceID     string    `json:"trace_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Reporter is a failure handler that publishes every failure it sees. It
// never marks a failure handled.
type Reporter struct {
	writer MessageWriter
	logger ectologger.Logger
	topic  string
}

// NewWriter builds a synchronous writer for topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewReporter(writer MessageWriter, topic string, logger ectologger.Logger) *Reporter {
	return &Reporter{writer: writer, topic: topic, logger: logger}
}

func (r *Reporter) HandleFailure(ctx context.Context, p *failure.Payload) bool {
	if err := r.Publish(ctx, p); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish failure %s to Kafka topic %s", p.ID, r.topic)
	}
	return false
}

// Publish writes p to the topic, keyed by interactor name so failures of one
// interactor stay ordered.
func (r *Reporter) Publish(ctx context.Context, p *failure.Payload) error {
	ctx, span := tracing.StartSpan(ctx, "Kafka.PublishFailure",
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", r.topic),
		attribute.String("failure.action", p.Action),
	)
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	msg := FailureMessage{
		ID:          p.ID,
		Action:      p.Action,
		Interactor:  p.Interactor,
		RequestType: p.RequestType,
		Errors:      p.Errors(),
		RequestID:   appctx.GetRequestID(ctx),
		TraceID:     tracing.GetTraceID(ctx),
		Timestamp:   time.Now().UTC(),
	}
	if p.Err != nil {
		msg.Error = p.Err.Error()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		err = fmt.Errorf("failed to marshal failure message: %w", err)
		return err
	}

	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(p.Interactor),
		Value: data,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(p.Action)},
			{Key: "interactor", Value: []byte(p.Interactor)},
		},
	})
	if err != nil {
		return err
	}

	r.logger.WithContext(ctx).Debugf("Published failure %s to Kafka topic %s", p.ID, r.topic)
	return nil
}

func (r *Reporter) Close() error {
	return r.writer.Close()
}
