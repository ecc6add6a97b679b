package kafka

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	committed []kafkago.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, io.EOF
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func newTestConsumer(t *testing.T, reader ReaderInterface) *Consumer {
	t.Helper()
	c, err := NewConsumer(ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "workers",
		Topics:  []string{TopicGradingRequested},
		Retry:   RetryConfig{MaxRetries: 1, RetryBackoff: time.Millisecond, MaxRetryBackoff: time.Millisecond},
	}, logging.NewNopLogger())
	require.NoError(t, err)
	c.reader.Close()
	c.reader = reader
	return c
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(ConsumerConfig{GroupID: "g"}, logging.NewNopLogger())
	assert.Error(t, err)

	_, err = NewConsumer(ConsumerConfig{Brokers: []string{"b"}}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestConsumer_DispatchesToHandler(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{
		{Topic: TopicGradingRequested, Value: []byte(`{"rubric_id":"stroke-oral"}`), Offset: 1},
	}}
	c := newTestConsumer(t, reader)

	received := make(chan *Message, 1)
	c.Subscribe(TopicGradingRequested, func(_ context.Context, msg *Message) error {
		received <- msg
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	select {
	case msg := <-received:
		assert.Equal(t, TopicGradingRequested, msg.Topic)
		assert.JSONEq(t, `{"rubric_id":"stroke-oral"}`, string(msg.Value))
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestConsumer_RetriesBeforeGivingUp(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{
		{Topic: TopicGradingRequested, Value: []byte(`{}`), Offset: 1},
	}}
	c := newTestConsumer(t, reader)

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	c.Subscribe(TopicGradingRequested, func(context.Context, *Message) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 2 {
			close(done)
			return nil
		}
		return assert.AnError
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not happen")
	}
}

func TestConsumer_CommitsUnhandledTopics(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{
		{Topic: "unknown.topic", Value: []byte(`{}`), Offset: 1},
	}}
	c := newTestConsumer(t, reader)

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.Eventually(t, func() bool {
		return reader.committedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_StartTwiceFails(t *testing.T) {
	c := newTestConsumer(t, &fakeReader{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)
}
