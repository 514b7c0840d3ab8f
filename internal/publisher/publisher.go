package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/adviser-fees/internal/metrics"
	"github.com/Checker-Finance/adviser-fees/pkg/logger"
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// Subjects and event types emitted by the service.
const (
	SubjectRecordClassified = "evt.feeproducts.record.classified.v1"
	SubjectFileProcessed    = "evt.feeproducts.file.processed.v1"

	EventRecordClassified = "record.classified"
	EventFileProcessed    = "file.processed"

	eventVersion = "1.0.0"
)

// jetStream is the part of nats.JetStreamContext the publisher needs.
type jetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher wraps a NATS connection and provides helpers for publishing canonical events.
type Publisher struct {
	nc      *nats.Conn
	js      jetStream
	subject string
	service string
}

// New creates a new Publisher with JetStream enabled if available.
func New(nc *nats.Conn, subject, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
	}, nil
}

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
// An empty subject falls back to the publisher's default subject.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	if subject == "" {
		subject = p.subject
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			// de-duplication key for redelivered records
			nats.MsgIdHdr: []string{env.ID.String()},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Debugw("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

func newEnvelope(topic, eventType string, correlationID uuid.UUID, payload any) (*model.Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}
	return &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		Topic:         topic,
		EventType:     eventType,
		Version:       eventVersion,
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}, nil
}

// PublishRecordClassified emits record.classified for one output row.
// correlationID ties the event to its batch or file run; uuid.Nil gets a fresh one.
func (p *Publisher) PublishRecordClassified(ctx context.Context, row model.OutputRow, correlationID uuid.UUID) error {
	env, err := newEnvelope(SubjectRecordClassified, EventRecordClassified, correlationID, model.NewRecordClassifiedEvent(row))
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	env.ID = RecordEventID(row)
	return p.PublishEnvelope(ctx, SubjectRecordClassified, env)
}

// RecordEventID is stable for a given row and classification, so a
// redelivered record publishes under the same message ID.
func RecordEventID(row model.OutputRow) uuid.UUID {
	key := fmt.Sprintf("%s#%d#%s#%s", row.Record.SourceFile, row.Record.RowIndex, row.Phase, strings.Join(row.Products[:], "|"))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))
}

// PublishFileProcessed emits file.processed once an input file is written out.
func (p *Publisher) PublishFileProcessed(ctx context.Context, evt model.FileProcessedEvent, correlationID uuid.UUID) error {
	env, err := newEnvelope(SubjectFileProcessed, EventFileProcessed, correlationID, evt)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	return p.PublishEnvelope(ctx, SubjectFileProcessed, env)
}

// Publish publishes raw JSON payloads (for non-canonical internal events).
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{"source": []string{p.service}},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
