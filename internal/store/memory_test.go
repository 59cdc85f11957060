package store

import (
	"context"
	"testing"
	"time"

	"github.com/mugisha-web/igihozo-server/internal/chat"
	"github.com/mugisha-web/igihozo-server/internal/models"
)

func TestMemoryLogAssignsIDAndTimestamp(t *testing.T) {
	log := NewMemoryLog()

	msg := models.Message{Text: "hello", SenderID: "alice"}
	id, err := log.Append(context.Background(), &msg)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if id == "" || msg.ID != id {
		t.Fatalf("expected assigned id, got %q / %q", id, msg.ID)
	}
	if msg.CreatedAt == 0 {
		t.Fatal("expected commit timestamp")
	}
}

func TestMemoryLogSnapshotPreservesCommitOrder(t *testing.T) {
	log := NewMemoryLog()
	for _, text := range []string{"one", "two", "three"} {
		if _, err := log.Append(context.Background(), &models.Message{Text: text, SenderID: "alice"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	snap, err := log.Snapshot(context.Background(), chat.Resolve(chat.Broadcast(), "bob"))
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	want := []string{"one", "two", "three"}
	for i, text := range want {
		if snap[i].Text != text {
			t.Fatalf("position %d: expected %q, got %q", i, text, snap[i].Text)
		}
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].CreatedAt < snap[i-1].CreatedAt {
			t.Fatal("timestamps must be non-decreasing in commit order")
		}
	}
}

func TestMemoryLogNotifiesOnlyMatchingSubscribers(t *testing.T) {
	log := NewMemoryLog()

	broadcast, err := log.Subscribe(context.Background(), chat.Resolve(chat.Broadcast(), "alice"))
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer broadcast.Cancel()

	direct, err := log.Subscribe(context.Background(), chat.Resolve(chat.DirectWith("carol"), "bob"))
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer direct.Cancel()

	// Drain the initial empty snapshots.
	<-broadcast.Updates()
	<-direct.Updates()

	if _, err := log.Append(context.Background(), &models.Message{Text: "team news", SenderID: "alice"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	select {
	case snap := <-broadcast.Updates():
		if len(snap) != 1 || snap[0].Text != "team news" {
			t.Fatalf("unexpected broadcast snapshot: %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast subscriber not notified")
	}

	select {
	case snap := <-direct.Updates():
		t.Fatalf("direct subscriber must not be notified of broadcast commit, got %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryLogCancelStopsDeliveries(t *testing.T) {
	log := NewMemoryLog()

	sub, err := log.Subscribe(context.Background(), chat.Resolve(chat.Broadcast(), "alice"))
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	<-sub.Updates()
	sub.Cancel()
	sub.Cancel() // idempotent

	if _, err := log.Append(context.Background(), &models.Message{Text: "late", SenderID: "bob"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	select {
	case snap, ok := <-sub.Updates():
		if ok && len(snap) > 0 {
			t.Fatalf("canceled subscription received delivery: %+v", snap)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryLogRejectsCanceledContext(t *testing.T) {
	log := NewMemoryLog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := log.Append(ctx, &models.Message{Text: "x", SenderID: "a"}); err == nil {
		t.Fatal("expected append to fail with canceled context")
	}
	if _, err := log.Subscribe(ctx, chat.Resolve(chat.Broadcast(), "a")); err == nil {
		t.Fatal("expected subscribe to fail with canceled context")
	}
}
