package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"reception/internal/queue"
)

func startSink(t *testing.T, received *atomic.Int64, failFirst *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if failFirst != nil && failFirst.Add(-1) >= 0 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req struct {
			Events []Event `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received.Add(int64(len(req.Events)))
		result := BatchResult{Processed: len(req.Events), Successful: len(req.Events)}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatcher_DeliversBatches(t *testing.T) {
	var received atomic.Int64
	srv := startSink(t, &received, nil)

	q := queue.NewInMemory(64)
	d := NewDispatcher(q, NewClient(srv.URL, "test-key"), 3, nil)
	d.flushEvery = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	rec := NewQueueRecorder(q, nil)
	for i := 0; i < 5; i++ {
		rec.Record(ctx, NewEvent("op-001", "Prisca", ActionCheckinStep, "workflow:w1"))
	}

	deadline := time.After(3 * time.Second)
	for received.Load() < 5 {
		select {
		case <-deadline:
			t.Fatalf("delivered %d/5 events", received.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDispatcher_RetriesThenDelivers(t *testing.T) {
	var received, failFirst atomic.Int64
	failFirst.Store(1)
	srv := startSink(t, &received, &failFirst)

	q := queue.NewInMemory(64)
	d := NewDispatcher(q, NewClient(srv.URL, "test-key"), 3, nil)
	d.flushEvery = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	NewQueueRecorder(q, nil).Record(ctx, NewEvent("op-001", "Prisca", ActionCheckinStep, "w1"))

	deadline := time.After(5 * time.Second)
	for received.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("event not delivered after transient failure")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDispatcher_DropsAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var dropped atomic.Int64
	q := queue.NewInMemory(64)
	d := NewDispatcher(q, NewClient(srv.URL, "test-key"), 2, func(n int) {
		dropped.Add(int64(n))
	})
	d.flushEvery = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	NewQueueRecorder(q, nil).Record(ctx, NewEvent("op-001", "Prisca", ActionCheckinStep, "w1"))

	deadline := time.After(5 * time.Second)
	for dropped.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("batch never reported dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestQueueRecorder_DropsWhenFull(t *testing.T) {
	q := queue.NewInMemory(1)
	var dropped atomic.Int64
	rec := NewQueueRecorder(q, func() { dropped.Add(1) })

	ctx := context.Background()
	rec.Record(ctx, NewEvent("op-001", "Prisca", ActionCheckinStep, "w1"))
	// Second publish has no consumer and a full buffer; must drop, not hang.
	start := time.Now()
	rec.Record(ctx, NewEvent("op-001", "Prisca", ActionCheckinStep, "w1"))
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Record blocked for %s", elapsed)
	}
	if dropped.Load() != 1 {
		t.Errorf("dropped = %d, want 1", dropped.Load())
	}
}
