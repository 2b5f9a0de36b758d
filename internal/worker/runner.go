package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"billbook/internal/amqp"
	"billbook/internal/log"
)

// Consumer delivers bill events to a handler until ctx is done.
type Consumer interface {
	ConsumeBillEvents(ctx context.Context, handler amqp.Handler) error
}

// Runner drives a Consumer in the background.
type Runner struct {
	consumer Consumer
	handler  amqp.Handler
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	err     error
}

func NewRunner(consumer Consumer, handler amqp.Handler, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Discard()
	}
	return &Runner{
		consumer: consumer,
		handler:  handler,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins consuming. Returns an error if already running.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("runner is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.doneCh = make(chan struct{})
	r.err = nil

	go r.run(runCtx, r.doneCh)

	r.logger.InfoContext(ctx, "Export runner started")
	return nil
}

func (r *Runner) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	err := r.consumer.ConsumeBillEvents(ctx, r.handler)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.ErrorContext(ctx, "Bill event consumption failed", log.FieldError, err)
	} else {
		err = nil
	}

	r.mu.Lock()
	r.running = false
	r.err = err
	r.mu.Unlock()
}

// Stop cancels consumption and waits for the consumer to return.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel, done := r.cancel, r.doneCh
	r.mu.Unlock()

	cancel()

	select {
	case <-done:
		r.logger.InfoContext(ctx, "Export runner stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Export runner stop timed out")
		return ctx.Err()
	}
}

// Done is closed when the current run ends. It is nil before Start.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doneCh
}

// Err returns the error that ended the last run, if it was not a stop.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
