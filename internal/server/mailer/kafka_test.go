package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaTransport_Deliver(t *testing.T) {
	w := &fakeWriter{}
	tr := &KafkaTransport{writer: w}

	msg := resetLinkMessage("a@x.com", "http://client/reset-password/t/u")
	require.NoError(t, tr.Deliver(context.Background(), msg))
	require.Len(t, w.msgs, 1)

	got := w.msgs[0]
	assert.Equal(t, "a@x.com", string(got.Key))
	require.Len(t, got.Headers, 1)
	assert.Equal(t, KindResetLink, string(got.Headers[0].Value))

	var decoded Message
	require.NoError(t, json.Unmarshal(got.Value, &decoded))
	assert.Equal(t, msg, decoded)

	require.NoError(t, tr.Close())
	assert.True(t, w.closed)
}

func TestKafkaTransport_WriteError(t *testing.T) {
	tr := &KafkaTransport{writer: &fakeWriter{err: errors.New("no leader")}}
	assert.Error(t, tr.Deliver(context.Background(), resetConfirmationMessage("a@x.com")))
}

func TestNewKafkaTransport_Validation(t *testing.T) {
	_, err := NewKafkaTransport(nil, "mail")
	assert.Error(t, err)
	_, err = NewKafkaTransport([]string{"k:9092"}, "")
	assert.Error(t, err)

	tr, err := NewKafkaTransport([]string{"k:9092"}, "mail")
	require.NoError(t, err)
	require.NoError(t, tr.Close())
}
