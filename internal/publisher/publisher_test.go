package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/pkg/logger"
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// --- mock types ---

type mockJetStream struct {
	published []*nats.Msg
	fail      bool
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if m.fail {
		return nil, errors.New("mock publish error")
	}
	m.published = append(m.published, msg)
	return &nats.PubAck{Stream: "mock-stream"}, nil
}

// --- helper ---

func newTestPublisher(fail bool) (*Publisher, *mockJetStream) {
	logger.Set(zap.NewNop())
	js := &mockJetStream{fail: fail}
	return &Publisher{
		js:      js,
		subject: "evt.test.v1",
		service: "feeproducts",
	}, js
}

func sampleRow() model.OutputRow {
	row := model.OutputRow{
		Record: model.Record{SourceFile: "filing.csv", RowIndex: 7},
		Phase:  model.PhaseFeeRange,
	}
	row.Products[0] = "($0+) (0.32%)"
	row.Products[1] = "($0+) (2.50%)"
	return row
}

// --- tests ---

func TestPublishEnvelope_Success(t *testing.T) {
	pub, js := newTestPublisher(false)
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Topic:         SubjectRecordClassified,
		EventType:     EventRecordClassified,
		Version:       "1.0.0",
		Timestamp:     time.Now(),
		Payload:       json.RawMessage(`{"row_index":1}`),
	}

	require.NoError(t, pub.PublishEnvelope(context.Background(), SubjectRecordClassified, env))
	require.Len(t, js.published, 1)

	msg := js.published[0]
	assert.Equal(t, SubjectRecordClassified, msg.Subject)
	assert.Equal(t, EventRecordClassified, msg.Header.Get("event_type"))
	assert.Equal(t, "feeproducts", msg.Header.Get("service"))
	assert.Equal(t, env.ID.String(), msg.Header.Get(nats.MsgIdHdr))

	var parsed model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &parsed))
	assert.Equal(t, env.CorrelationID, parsed.CorrelationID)
}

func TestPublishEnvelope_DefaultSubject(t *testing.T) {
	pub, js := newTestPublisher(false)

	require.NoError(t, pub.PublishEnvelope(context.Background(), "", &model.Envelope{ID: uuid.New()}))
	require.Len(t, js.published, 1)
	assert.Equal(t, "evt.test.v1", js.published[0].Subject)
}

func TestPublishEnvelope_Failure(t *testing.T) {
	pub, _ := newTestPublisher(true)

	err := pub.PublishEnvelope(context.Background(), SubjectFileProcessed, &model.Envelope{ID: uuid.New()})
	assert.Error(t, err)
}

func TestPublishRecordClassified(t *testing.T) {
	pub, js := newTestPublisher(false)
	correlation := uuid.New()

	require.NoError(t, pub.PublishRecordClassified(context.Background(), sampleRow(), correlation))
	require.Len(t, js.published, 1)

	var env model.Envelope
	require.NoError(t, json.Unmarshal(js.published[0].Data, &env))
	assert.Equal(t, SubjectRecordClassified, env.Topic)
	assert.Equal(t, EventRecordClassified, env.EventType)
	assert.Equal(t, correlation, env.CorrelationID)

	var evt model.RecordClassifiedEvent
	require.NoError(t, json.Unmarshal(env.Payload, &evt))
	assert.Equal(t, 7, evt.RowIndex)
	assert.Equal(t, 2, evt.ProductCount)
	assert.Equal(t, model.PhaseFeeRange, evt.Phase)
}

func TestPublishFileProcessed_FreshCorrelation(t *testing.T) {
	pub, js := newTestPublisher(false)

	evt := model.FileProcessedEvent{SourceFile: "filing.csv", OutputFile: "processed_filing.csv", Rows: 10}
	require.NoError(t, pub.PublishFileProcessed(context.Background(), evt, uuid.Nil))
	require.Len(t, js.published, 1)

	var env model.Envelope
	require.NoError(t, json.Unmarshal(js.published[0].Data, &env))
	assert.NotEqual(t, uuid.Nil, env.CorrelationID)
	assert.Equal(t, EventFileProcessed, env.EventType)
}

func TestPublish_Raw(t *testing.T) {
	pub, js := newTestPublisher(false)

	require.NoError(t, pub.Publish(context.Background(), "internal.debug", map[string]int{"n": 1}))
	require.Len(t, js.published, 1)
	assert.Equal(t, "feeproducts", js.published[0].Header.Get("source"))
}

func TestPublish_MarshalFailure(t *testing.T) {
	pub, js := newTestPublisher(false)

	err := pub.Publish(context.Background(), "internal.debug", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, js.published)
}

func TestClose_NilConn(t *testing.T) {
	pub, _ := newTestPublisher(false)
	pub.Close()
}

func TestRecordEventID_Stable(t *testing.T) {
	row := sampleRow()
	assert.Equal(t, RecordEventID(row), RecordEventID(row))

	other := sampleRow()
	other.Record.RowIndex = 8
	assert.NotEqual(t, RecordEventID(row), RecordEventID(other))
}
