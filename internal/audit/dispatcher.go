package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"reception/internal/queue"
)

const messageType = "audit_event"

// publishTimeout bounds how long Record may wait on a full queue before the
// event is dropped.
const publishTimeout = 200 * time.Millisecond

// QueueRecorder publishes events to a queue for asynchronous delivery.
// Recording is best-effort: a full queue or marshal failure drops the event
// with a log line and nothing else.
type QueueRecorder struct {
	q      queue.Queue
	onDrop func()
}

// NewQueueRecorder wraps q. onDrop, when non-nil, is invoked once per
// dropped event (metrics hook).
func NewQueueRecorder(q queue.Queue, onDrop func()) *QueueRecorder {
	return &QueueRecorder{q: q, onDrop: onDrop}
}

// Record enqueues evt without blocking the caller beyond publishTimeout.
func (r *QueueRecorder) Record(ctx context.Context, evt Event) {
	body, err := json.Marshal(evt)
	if err != nil {
		log.Printf("audit: drop event %s: marshal: %v", evt.ID, err)
		r.drop()
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.q.Publish(pctx, queue.Message{Type: messageType, Body: body}); err != nil {
		log.Printf("audit: drop event %s: publish: %v", evt.ID, err)
		r.drop()
	}
}

func (r *QueueRecorder) drop() {
	if r.onDrop != nil {
		r.onDrop()
	}
}

// Dispatcher drains the queue and delivers events to the sink in small
// batches with bounded attempts. Undeliverable batches are dropped after the
// last attempt; auditing never becomes a reliability dependency.
type Dispatcher struct {
	q           queue.Queue
	client      *Client
	maxAttempts int
	batchSize   int
	flushEvery  time.Duration
	onDrop      func(n int)
}

// NewDispatcher creates a dispatcher delivering via client. maxAttempts
// below 1 falls back to 3.
func NewDispatcher(q queue.Queue, client *Client, maxAttempts int, onDrop func(n int)) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &Dispatcher{
		q:           q,
		client:      client,
		maxAttempts: maxAttempts,
		batchSize:   32,
		flushEvery:  2 * time.Second,
		onDrop:      onDrop,
	}
}

// Run consumes until ctx is cancelled. A batch is flushed when full or when
// the flush interval elapses with events pending.
func (d *Dispatcher) Run(ctx context.Context) error {
	msgs, err := d.q.Consume(ctx)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(d.flushEvery)
	defer ticker.Stop()

	batch := make([]Event, 0, d.batchSize)
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				d.flush(ctx, batch)
				return ctx.Err()
			}
			var evt Event
			if err := json.Unmarshal(msg.Body, &evt); err != nil {
				log.Printf("audit: skip undecodable message: %v", err)
				continue
			}
			batch = append(batch, evt)
			if len(batch) >= d.batchSize {
				d.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			d.flush(context.Background(), batch)
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) flush(ctx context.Context, batch []Event) {
	if len(batch) == 0 {
		return
	}
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		result, err := d.client.Send(ctx, batch)
		if err == nil {
			if result.Failed > 0 {
				log.Printf("audit: sink rejected %d/%d events", result.Failed, result.Processed)
			}
			return
		}
		lastErr = err
		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		case <-ctx.Done():
			attempt = d.maxAttempts
		}
	}
	log.Printf("audit: drop batch of %d after %d attempts: %v", len(batch), d.maxAttempts, lastErr)
	if d.onDrop != nil {
		d.onDrop(len(batch))
	}
}
