package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/internal/amqp"
)

// blockingConsumer delivers its events and then waits for cancellation.
type blockingConsumer struct {
	events []*amqp.BillEventMessage
	fail   error
}

func (c *blockingConsumer) ConsumeBillEvents(ctx context.Context, handler amqp.Handler) error {
	for _, e := range c.events {
		if err := handler(ctx, e); err != nil {
			return err
		}
	}
	if c.fail != nil {
		return c.fail
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerLifecycle(t *testing.T) {
	handled := make(chan string, 1)
	consumer := &blockingConsumer{events: []*amqp.BillEventMessage{event(amqp.ActionDeleted, "b1")}}
	r := NewRunner(consumer, func(_ context.Context, msg *amqp.BillEventMessage) error {
		handled <- msg.BillID
		return nil
	}, nil)

	assert.False(t, r.IsRunning())
	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.IsRunning())
	assert.Error(t, r.Start(context.Background()), "second start must fail")

	select {
	case id := <-handled:
		assert.Equal(t, "b1", id)
	case <-time.After(time.Second):
		t.Fatal("event was not handled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	assert.Eventually(t, func() bool { return !r.IsRunning() }, time.Second, 10*time.Millisecond)
	assert.NoError(t, r.Err())
}

func TestRunnerStopNotRunning(t *testing.T) {
	r := NewRunner(&blockingConsumer{}, nil, nil)
	assert.NoError(t, r.Stop(context.Background()))
	assert.Nil(t, r.Done())
}

func TestRunnerReportsConsumerFailure(t *testing.T) {
	boom := errors.New("channel closed for good")
	r := NewRunner(&blockingConsumer{fail: boom}, nil, nil)
	require.NoError(t, r.Start(context.Background()))

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not finish")
	}
	assert.Eventually(t, func() bool { return !r.IsRunning() }, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, r.Err(), boom)
}
