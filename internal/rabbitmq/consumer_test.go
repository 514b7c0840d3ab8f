package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- fakes ---

type settlement struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	settled []settlement
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, settlement{acked: true})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, settlement{nacked: true, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcknowledger) last() settlement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled[len(f.settled)-1]
}

type fakeHandler struct {
	mu   sync.Mutex
	err  error
	seen []model.RawRecord
}

func (h *fakeHandler) HandleRecord(ctx context.Context, raw model.RawRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, raw)
	return h.err
}

func delivery(ack amqp.Acknowledger, body string, redelivered bool) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, Body: []byte(body), Redelivered: redelivered}
}

// --- tests ---

func TestHandleDelivery(t *testing.T) {
	validBody := `{"source_file":"filing.csv","row_index":3,"slots":[{"threshold":"$0+","fee":"1%"}]}`
	tooManySlots := `{"row_index":0,"slots":[{},{},{},{},{},{},{},{},{}]}`

	tests := []struct {
		name        string
		body        string
		redelivered bool
		handlerErr  error
		expected    settlement
		handled     bool
	}{
		{name: "processed record is acked", body: validBody, expected: settlement{acked: true}, handled: true},
		{name: "bad json is rejected", body: `{not json`, expected: settlement{nacked: true}},
		{name: "invalid record is rejected", body: tooManySlots, expected: settlement{nacked: true}},
		{
			name:       "handler failure is requeued",
			body:       validBody,
			handlerErr: errors.New("postgres down"),
			expected:   settlement{nacked: true, requeue: true},
			handled:    true,
		},
		{
			name:        "repeated failure is rejected",
			body:        validBody,
			redelivered: true,
			handlerErr:  errors.New("postgres down"),
			expected:    settlement{nacked: true},
			handled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			h := &fakeHandler{err: tt.handlerErr}
			c := newConsumer("fees.records", 0, h, nil)

			c.handleDelivery(context.Background(), delivery(ack, tt.body, tt.redelivered))

			assert.Equal(t, tt.expected, ack.last())
			if tt.handled {
				require.Len(t, h.seen, 1)
				assert.Equal(t, 3, h.seen[0].RowIndex)
				assert.Equal(t, model.RawValue("$0+"), h.seen[0].Slots[0].Threshold)
			} else {
				assert.Empty(t, h.seen)
			}
		})
	}
}

func TestConsume_StopsOnClose(t *testing.T) {
	ack := &fakeAcknowledger{}
	h := &fakeHandler{}
	c := newConsumer("fees.records", 0, h, nil)

	msgs := make(chan amqp.Delivery)
	finished := make(chan struct{})
	go func() {
		c.consume(context.Background(), msgs)
		close(finished)
	}()

	msgs <- delivery(ack, `{"row_index":1,"slots":[]}`, false)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, settlement{acked: true}, ack.last())
}

func TestConsume_StopsWhenChannelCloses(t *testing.T) {
	c := newConsumer("fees.records", 0, &fakeHandler{}, nil)

	msgs := make(chan amqp.Delivery)
	close(msgs)

	c.consume(context.Background(), msgs)
}

func TestConsume_StopsOnContextCancel(t *testing.T) {
	c := newConsumer("fees.records", 0, &fakeHandler{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.consume(ctx, make(chan amqp.Delivery))
}
