package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{w: fw}

	require.NoError(t, p.Publish(context.Background(), Event{Type: ProfileExperienceAdded, UserID: "u1", EntryID: "e1"}))
	require.Len(t, fw.msgs, 1)
	require.Equal(t, "u1", string(fw.msgs[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	require.Equal(t, ProfileExperienceAdded, got.Type)
	require.Equal(t, "e1", got.EntryID)
	require.False(t, got.At.IsZero())

	require.NoError(t, p.Close())
	require.True(t, fw.closed)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{w: &fakeWriter{err: boom}}
	err := p.Publish(context.Background(), Event{Type: UserDeleted, UserID: "u1"})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), UserDeleted)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	require.NoError(t, p.Publish(context.Background(), Event{Type: UserDeleted}))
	require.NoError(t, p.Close())
}
