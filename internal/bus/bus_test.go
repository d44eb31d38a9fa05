package bus

import (
	"log/slog"
	"testing"
	"time"

	"murmur/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "discord", ChatID: "c1", Content: "hello"})

	select {
	case msg := <-b.Subscribe():
		if msg.ChatID != "c1" || msg.Content != "hello" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestOutboundRouting(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	var got []domain.OutboundMessage
	b.OnOutbound("discord", func(msg domain.OutboundMessage) {
		got = append(got, msg)
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "discord", ChatID: "c1", Content: "one"})
	b.SendOutbound(domain.OutboundMessage{Channel: "discord", ChatID: "c1", Content: "two"})
	// No handler for this channel; must not panic.
	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", ChatID: "c1", Content: "lost"})

	if len(got) != 2 {
		t.Fatalf("expected 2 delivered messages, got %d", len(got))
	}
	if got[0].Content != "one" || got[1].Content != "two" {
		t.Fatalf("messages out of order: %+v", got)
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := New(10, testLogger())
	b.Close()
	// Must not panic on a closed bus.
	b.Publish(domain.InboundMessage{Channel: "discord", Content: "late"})
	b.Close() // double close is a no-op
}
