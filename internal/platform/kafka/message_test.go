package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestRouter(t *testing.T) {
	var got []string
	record := func(name string) Handler {
		return HandlerFunc(func(_ context.Context, msg *Message) error {
			got = append(got, name+":"+string(msg.Value))
			return nil
		})
	}

	r := NewRouter(nil, nil)
	r.Register("requests", record("requests"))
	assert.Equal(t, []string{"requests"}, r.Topics())

	assert.NoError(t, r.Handle(context.Background(), &Message{Topic: "requests", Value: []byte("a")}))
	assert.NoError(t, r.Handle(context.Background(), &Message{Topic: "unknown", Value: []byte("b")}))
	assert.Equal(t, []string{"requests:a"}, got)
}

func TestRouterFallback(t *testing.T) {
	boom := errors.New("boom")
	r := NewRouter(nil, HandlerFunc(func(context.Context, *Message) error { return boom }))
	assert.ErrorIs(t, r.Handle(context.Background(), &Message{Topic: "other"}), boom)
}

func TestMessageFromRecord(t *testing.T) {
	msg := messageFromRecord(&kgo.Record{
		Topic:   "pen-match-requests",
		Key:     []byte("corr-1"),
		Value:   []byte("{}"),
		Offset:  7,
		Headers: []kgo.RecordHeader{{Key: "reply-to", Value: []byte("pen-match-results")}},
	})
	assert.Equal(t, "corr-1", string(msg.Key))
	assert.Equal(t, int64(7), msg.Offset)
	assert.Equal(t, "pen-match-results", msg.Headers["reply-to"])
}
