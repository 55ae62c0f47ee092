package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemory_PublishConsume(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	want := Message{Type: "audit_event", Body: []byte(`{"id":"e1"}`)}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-msgs:
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("message never consumed")
	}
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, Message{Type: "audit_event"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := q.Publish(tctx, Message{Type: "audit_event"}); err == nil {
		t.Fatal("publish to full queue without consumer succeeded")
	}
}

func TestInMemory_ConsumeStopsOnCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	cancel()
	select {
	case _, ok := <-msgs:
		if ok {
			t.Error("unexpected message after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
