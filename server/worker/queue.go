// Package worker is the queue consumer that drives the whole inbound
// pipeline: conversation lookup, persona selection, quota gating, AI
// invocation and outbound dispatch.
package worker

import (
	"context"
	"hash/fnv"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/atendai/atendai/store"
)

// Job is one inbound customer message pulled off the queue.
type Job struct {
	SessionID string
	From      string
	Body      string
	Type      store.MessageType
	Timestamp int64
}

// key identifies the per-conversation serialization unit.
func (j *Job) key() string {
	return j.SessionID + "|" + j.From
}

// Handler processes one job. Returning an error marks the job failed; the
// queue does not redeliver.
type Handler func(ctx context.Context, job *Job) error

// Queue delivers jobs to a handler with per-conversation ordering.
type Queue interface {
	Enqueue(ctx context.Context, job *Job) error
	// Start runs the consumer until ctx is cancelled, then drains.
	Start(ctx context.Context, handler Handler) error
}

// InProcessQueue shards jobs across a fixed set of consumer goroutines by
// conversation key. Jobs with the same key land on the same shard, which
// gives per-conversation sequential delivery; different conversations run in
// parallel across shards.
type InProcessQueue struct {
	shards []chan *Job
}

// NewInProcessQueue creates a queue with the given shard count (one consumer
// goroutine per shard).
func NewInProcessQueue(concurrency int) *InProcessQueue {
	if concurrency <= 0 {
		concurrency = 8
	}
	shards := make([]chan *Job, concurrency)
	for i := range shards {
		shards[i] = make(chan *Job, 64)
	}
	return &InProcessQueue{shards: shards}
}

// Enqueue places the job on its conversation's shard. Blocks when the shard
// buffer is full, which backpressures the producer.
func (q *InProcessQueue) Enqueue(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	shard := q.shards[q.shardIndex(job.key())]
	select {
	case shard <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start consumes all shards until ctx is cancelled. Buffered jobs are drained
// before shutdown completes.
func (q *InProcessQueue) Start(ctx context.Context, handler Handler) error {
	g, gctx := errgroup.WithContext(context.Background())
	for _, shard := range q.shards {
		shard := shard
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					// Drain what is already buffered, then stop.
					for {
						select {
						case job := <-shard:
							_ = handler(gctx, job)
						default:
							return nil
						}
					}
				case job := <-shard:
					// Handler errors are job failures, not consumer failures.
					_ = handler(gctx, job)
				}
			}
		})
	}
	return g.Wait()
}

func (q *InProcessQueue) shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32()) % len(q.shards)
}

var _ Queue = (*InProcessQueue)(nil)
