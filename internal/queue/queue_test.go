package queue_test

import (
	"context"
	"testing"
	"time"

	"schoolattend/internal/queue"
)

type payload struct {
	Date string `json:"date"`
}

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q := queue.NewInMemory(4)
	msg, err := queue.NewMessage("daily_report", payload{Date: "2024-01-10"})
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	ch, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := <-ch
	if got.ID != msg.ID || got.Type != "daily_report" {
		t.Fatalf("got %+v", got)
	}
	var p payload
	if err := got.Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Date != "2024-01-10" {
		t.Errorf("date = %q", p.Date)
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := queue.NewInMemory(1)
	if err := q.Publish(context.Background(), queue.Message{Type: "a"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Publish(ctx, queue.Message{Type: "b"}); err == nil {
		t.Fatal("expected error when queue is full")
	}
}

func TestInMemoryConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := queue.NewInMemory(1).Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected message")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer channel not closed")
	}
}
