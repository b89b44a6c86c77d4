package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the async queue cannot accept another event.
var ErrQueueFull = errors.New("event queue full")

// AsyncPublisher queues events and hands them to another Publisher from a single goroutine,
// so request handlers never wait on the broker.
type AsyncPublisher struct {
	next     Publisher
	queue    chan ChallengeJoined
	timeout  time.Duration
	logger   *zap.Logger
	finished chan struct{}
}

// NewAsyncPublisher wraps next with a bounded queue of the given size.
func NewAsyncPublisher(next Publisher, size int, timeout time.Duration, logger *zap.Logger) *AsyncPublisher {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncPublisher{
		next:     next,
		queue:    make(chan ChallengeJoined, size),
		timeout:  timeout,
		logger:   logger,
		finished: make(chan struct{}),
	}
}

// Publish enqueues the event without blocking; it drops the event when the queue is full.
func (p *AsyncPublisher) Publish(_ context.Context, event ChallengeJoined) error {
	select {
	case p.queue <- event:
		queueDepthGauge.Set(float64(len(p.queue)))
		return nil
	default:
		recordPublish(resultDropped)
		return ErrQueueFull
	}
}

// Start drains the queue until ctx is cancelled, then flushes what is left. It should be called
// in a goroutine.
func (p *AsyncPublisher) Start(ctx context.Context) {
	defer close(p.finished)

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case event := <-p.queue:
			p.deliver(event)
		}
	}
}

// Wait blocks until Start has returned.
func (p *AsyncPublisher) Wait() {
	<-p.finished
}

func (p *AsyncPublisher) flush() {
	for {
		select {
		case event := <-p.queue:
			p.deliver(event)
		default:
			return
		}
	}
}

func (p *AsyncPublisher) deliver(event ChallengeJoined) {
	queueDepthGauge.Set(float64(len(p.queue)))

	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.next.Publish(ctx, event); err != nil {
		recordPublish(resultFailed)
		p.logger.Warn("publish challenge event failed",
			zap.String("event_id", event.EventID),
			zap.Int("participants", event.Participants),
			zap.Error(err),
		)
		return
	}
	recordPublish(resultPublished)
}
