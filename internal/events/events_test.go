package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (m *mockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	m.published = append(m.published, msg)
	return nil
}

func (m *mockChannel) Close() error {
	m.closed = true
	return nil
}

func TestAMQPPublisherPublish(t *testing.T) {
	ch := &mockChannel{}
	p := &AMQPPublisher{ch: ch, queue: "raqs.events"}

	err := p.Publish(context.Background(), New(TypeCertificateIssued, map[string]any{"number": "CQS-0001/2026"}))
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "raqs.events", ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, TypeCertificateIssued, msg.Type)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)

	var decoded struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, TypeCertificateIssued, decoded.Type)
	assert.Equal(t, "CQS-0001/2026", decoded.Payload["number"])
}

func TestAMQPPublisherErrors(t *testing.T) {
	ch := &mockChannel{err: errors.New("channel closed")}
	p := &AMQPPublisher{ch: ch, queue: "raqs.events"}

	err := p.Publish(context.Background(), New(TypeAuditBatchClosed, nil))
	assert.ErrorContains(t, err, "channel closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, New(TypeAuditBatchClosed, nil)), context.Canceled)

	assert.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(TypeAuditBatchClosed, nil)))
	assert.NoError(t, p.Close())
}
