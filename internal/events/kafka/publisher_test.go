package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := &Publisher{writer: writer}

	err := p.Publish(context.Background(), "key-1", events.LedgerUpdated{
		IdempotencyKey: "key-1",
		State:          "COMPLETED",
		Attempts:       2,
		Cached:         true,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("key-1"), writer.messages[0].Key)

	var decoded events.LedgerUpdated
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, 2, decoded.Attempts)
	assert.True(t, decoded.Cached)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), "key-1", events.LedgerUpdated{})
	assert.EqualError(t, err, "broker down")
}

func TestNewPublisher_DefaultTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "")

	writer, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, writer.Topic)
}
