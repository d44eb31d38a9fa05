package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"murmur/internal/domain"
)

type pollBus struct {
	sent []domain.OutboundMessage
}

func (b *pollBus) Publish(domain.InboundMessage)                  {}
func (b *pollBus) Subscribe() <-chan domain.InboundMessage        { return nil }
func (b *pollBus) SendOutbound(msg domain.OutboundMessage)        { b.sent = append(b.sent, msg) }
func (b *pollBus) OnOutbound(string, func(domain.OutboundMessage)) {}
func (b *pollBus) Close()                                         {}

type stubPages struct {
	summary string
	err     error
	calls   []string
}

func (s *stubPages) Summarize(_ context.Context, pageURL string) (string, error) {
	s.calls = append(s.calls, pageURL)
	return s.summary, s.err
}

func rssDocument(guid, title, link string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <item>
      <guid>%s</guid>
      <title>%s</title>
      <link>%s</link>
    </item>
  </channel>
</rss>`, guid, title, link)
}

func newTestPoller(t *testing.T, bus *pollBus, pages *stubPages) *Poller {
	t.Helper()
	manager, err := NewManager(context.Background(), newFakeFeedStore(), slog.Default())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return NewPoller(PollerConfig{
		Manager:  manager,
		Bus:      bus,
		Pages:    pages,
		Channel:  "discord",
		ChatID:   "announce",
		Interval: time.Minute,
		Logger:   slog.Default(),
	})
}

func TestPollerFirstSightingOnlyRecordsMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDocument("entry-1", "Hello", "http://example.invalid/hello"))
	}))
	defer srv.Close()

	bus := &pollBus{}
	pages := &stubPages{summary: "a summary"}
	p := newTestPoller(t, bus, pages)
	p.manager.Add(srv.URL)

	p.pollAll(context.Background())

	if len(bus.sent) != 0 {
		t.Fatalf("first poll announced %d messages, want 0", len(bus.sent))
	}
	if got := p.manager.List()[srv.URL]; got != "entry-1" {
		t.Fatalf("marker = %q, want %q", got, "entry-1")
	}
}

func TestPollerAnnouncesNewEntry(t *testing.T) {
	guid := "entry-1"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDocument(guid, "Big News", "http://example.invalid/news"))
	}))
	defer srv.Close()

	bus := &pollBus{}
	pages := &stubPages{summary: "Condensed version of the article."}
	p := newTestPoller(t, bus, pages)
	p.manager.Add(srv.URL)

	p.pollAll(context.Background()) // records entry-1
	guid = "entry-2"
	p.pollAll(context.Background())

	if len(bus.sent) != 2 {
		t.Fatalf("got %d messages, want header + summary", len(bus.sent))
	}
	header := bus.sent[0]
	if header.Channel != "discord" || header.ChatID != "announce" {
		t.Fatalf("announcement routed to %s/%s", header.Channel, header.ChatID)
	}
	if !strings.Contains(header.Content, "Example Blog") || !strings.Contains(header.Content, "Big News") {
		t.Fatalf("header = %q", header.Content)
	}
	if bus.sent[1].Content != "Condensed version of the article." {
		t.Fatalf("summary = %q", bus.sent[1].Content)
	}
	if len(pages.calls) != 1 || pages.calls[0] != "http://example.invalid/news" {
		t.Fatalf("summarizer calls = %v", pages.calls)
	}
	if got := p.manager.List()[srv.URL]; got != "entry-2" {
		t.Fatalf("marker = %q, want %q", got, "entry-2")
	}
}

func TestPollerUnchangedEntrySilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDocument("entry-1", "Hello", "http://example.invalid/hello"))
	}))
	defer srv.Close()

	bus := &pollBus{}
	p := newTestPoller(t, bus, &stubPages{summary: "s"})
	p.manager.Add(srv.URL)

	p.pollAll(context.Background())
	p.pollAll(context.Background())
	p.pollAll(context.Background())

	if len(bus.sent) != 0 {
		t.Fatalf("unchanged feed produced %d messages, want 0", len(bus.sent))
	}
}

func TestPollerSummaryFailureStillAnnouncesHeader(t *testing.T) {
	guid := "entry-1"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDocument(guid, "Broken", "http://example.invalid/broken"))
	}))
	defer srv.Close()

	bus := &pollBus{}
	pages := &stubPages{err: fmt.Errorf("render timed out")}
	p := newTestPoller(t, bus, pages)
	p.manager.Add(srv.URL)

	p.pollAll(context.Background())
	guid = "entry-2"
	p.pollAll(context.Background())

	if len(bus.sent) != 1 {
		t.Fatalf("got %d messages, want header only", len(bus.sent))
	}
	if !strings.Contains(bus.sent[0].Content, "Broken") {
		t.Fatalf("header = %q", bus.sent[0].Content)
	}
}
