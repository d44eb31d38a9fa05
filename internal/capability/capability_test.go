package capability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"murmur/internal/domain"
)

// recordingBus captures outbound messages for assertions.
type recordingBus struct {
	sent []domain.OutboundMessage
}

func (b *recordingBus) Publish(domain.InboundMessage)               {}
func (b *recordingBus) Subscribe() <-chan domain.InboundMessage     { return nil }
func (b *recordingBus) SendOutbound(msg domain.OutboundMessage)     { b.sent = append(b.sent, msg) }
func (b *recordingBus) OnOutbound(string, func(domain.OutboundMessage)) {}
func (b *recordingBus) Close()                                      {}

type fakeVideos struct {
	summary string
	err     error
	gotID   string
}

func (f *fakeVideos) Summarize(_ context.Context, videoID string) (string, error) {
	f.gotID = videoID
	return f.summary, f.err
}

type fakeImages struct {
	data []byte
	err  error
}

func (f *fakeImages) Generate(context.Context, string) ([]byte, error) {
	return f.data, f.err
}

type fakeFeeds struct {
	feeds map[string]string
}

func (f *fakeFeeds) Add(url string) bool {
	if _, ok := f.feeds[url]; ok {
		return false
	}
	f.feeds[url] = ""
	return true
}

func (f *fakeFeeds) Remove(url string) bool {
	if _, ok := f.feeds[url]; !ok {
		return false
	}
	delete(f.feeds, url)
	return true
}

func (f *fakeFeeds) List() map[string]string { return f.feeds }

func testRequest(args map[string]string) Request {
	return Request{
		Channel:       "discord",
		ChatID:        "chat1",
		SenderMention: "<@42>",
		Args:          args,
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(slog.Default())
	feeds := &fakeFeeds{feeds: make(map[string]string)}
	reg.Register(NewWatchFeed(feeds))
	reg.Register(NewListFeeds(feeds))

	if reg.Get(NameWatchFeed) == nil {
		t.Fatal("registered capability not found")
	}
	if reg.Get("nonsense") != nil {
		t.Fatal("unknown name must return nil")
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != NameListFeeds || names[1] != NameWatchFeed {
		t.Fatalf("expected sorted names, got %v", names)
	}
}

func TestYouTubeValidate(t *testing.T) {
	c := NewYouTubeSummary(&fakeVideos{}, &recordingBus{}, 1500)

	if reply := c.Validate(testRequest(map[string]string{})); reply == nil {
		t.Fatal("missing video_url must be rejected")
	}
	if reply := c.Validate(testRequest(map[string]string{"video_url": "https://example.com/nope"})); reply == nil {
		t.Fatal("unextractable URL must be rejected")
	}
	if reply := c.Validate(testRequest(map[string]string{"video_url": "https://youtu.be/dQw4w9WgXcQ"})); reply != nil {
		t.Fatalf("valid URL rejected: %+v", reply)
	}
}

func TestYouTubeExecuteChunksOutput(t *testing.T) {
	bus := &recordingBus{}
	videos := &fakeVideos{summary: strings.Repeat("s", 250)}
	c := NewYouTubeSummary(videos, bus, 100)

	reply := c.Execute(context.Background(), testRequest(map[string]string{"video_url": "https://youtu.be/dQw4w9WgXcQ"}))
	if reply != nil {
		t.Fatalf("unexpected failure reply: %+v", reply)
	}
	if videos.gotID != "dQw4w9WgXcQ" {
		t.Fatalf("expected extracted id, got %q", videos.gotID)
	}
	if len(bus.sent) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(bus.sent))
	}
	var joined strings.Builder
	for _, m := range bus.sent {
		joined.WriteString(m.Content)
	}
	if joined.String() != videos.summary {
		t.Fatal("chunks do not reassemble the summary")
	}
}

func TestYouTubeExecuteFailure(t *testing.T) {
	bus := &recordingBus{}
	c := NewYouTubeSummary(&fakeVideos{err: errors.New("no captions")}, bus, 1500)

	reply := c.Execute(context.Background(), testRequest(map[string]string{"video_url": "https://youtu.be/dQw4w9WgXcQ"}))
	if reply == nil {
		t.Fatal("expected failure reply")
	}
	if !strings.Contains(reply.Fallback, "no captions") {
		t.Fatalf("fallback should cite the cause, got %q", reply.Fallback)
	}
	if len(bus.sent) != 0 {
		t.Fatal("failed execute must not emit output itself")
	}
}

func TestDrawPictureSendsFile(t *testing.T) {
	bus := &recordingBus{}
	c := NewDrawPicture(&fakeImages{data: []byte{1, 2, 3}}, bus)

	if reply := c.Validate(testRequest(map[string]string{})); reply == nil {
		t.Fatal("missing prompt must be rejected")
	}
	if c.Wait(testRequest(nil)) == nil {
		t.Fatal("draw_picture must send a wait message")
	}

	reply := c.Execute(context.Background(), testRequest(map[string]string{"prompt": "a sunset"}))
	if reply != nil {
		t.Fatalf("unexpected failure reply: %+v", reply)
	}
	if len(bus.sent) != 1 || bus.sent[0].File == nil {
		t.Fatalf("expected one file message, got %+v", bus.sent)
	}
	if bus.sent[0].File.Name != "generated_image.png" {
		t.Fatalf("unexpected filename %q", bus.sent[0].File.Name)
	}
}

func TestCacheTorrentRequiresAttachment(t *testing.T) {
	c := NewCacheTorrent(nil)

	if reply := c.Validate(testRequest(nil)); reply == nil {
		t.Fatal("missing attachment must be rejected")
	}

	req := testRequest(nil)
	req.Attachments = []domain.Attachment{{Filename: "x.torrent", URL: "http://files/x.torrent"}}
	if reply := c.Validate(req); reply != nil {
		t.Fatalf("attachment present, expected no reply: %+v", reply)
	}
}

func TestFeedHandlersAreCommands(t *testing.T) {
	feeds := &fakeFeeds{feeds: make(map[string]string)}
	for _, c := range []Capability{NewWatchFeed(feeds), NewUnwatchFeed(feeds), NewListFeeds(feeds)} {
		if c.Conversational() {
			t.Fatalf("%s must not be conversational", c.Name())
		}
		if c.Wait(testRequest(nil)) != nil {
			t.Fatalf("%s must not send a wait message", c.Name())
		}
	}
}

func TestWatchFeed(t *testing.T) {
	feeds := &fakeFeeds{feeds: make(map[string]string)}
	c := NewWatchFeed(feeds)

	if reply := c.Validate(testRequest(map[string]string{})); reply == nil {
		t.Fatal("missing feed_url must be rejected")
	}

	req := testRequest(map[string]string{"feed_url": "http://example.com/rss"})
	reply := c.Execute(context.Background(), req)
	if reply == nil || !strings.Contains(reply.Fallback, "Now watching") {
		t.Fatalf("expected watch confirmation, got %+v", reply)
	}
	if _, ok := feeds.feeds["http://example.com/rss"]; !ok {
		t.Fatal("feed not added")
	}

	// Duplicate watch is reported, not silently accepted.
	reply = c.Execute(context.Background(), req)
	if reply == nil || !strings.Contains(reply.Fallback, "Already watching") {
		t.Fatalf("expected duplicate notice, got %+v", reply)
	}
}

func TestUnwatchFeed(t *testing.T) {
	feeds := &fakeFeeds{feeds: map[string]string{"http://example.com/rss": "guid-1"}}
	c := NewUnwatchFeed(feeds)

	req := testRequest(map[string]string{"feed_url": "http://example.com/rss"})
	reply := c.Execute(context.Background(), req)
	if reply == nil || !strings.Contains(reply.Fallback, "Stopped watching") {
		t.Fatalf("expected unwatch confirmation, got %+v", reply)
	}

	reply = c.Execute(context.Background(), req)
	if reply == nil || !strings.Contains(reply.Fallback, "Not watching") {
		t.Fatalf("expected not-watching notice, got %+v", reply)
	}
}

func TestListFeeds(t *testing.T) {
	feeds := &fakeFeeds{feeds: make(map[string]string)}
	c := NewListFeeds(feeds)

	reply := c.Execute(context.Background(), testRequest(nil))
	if reply == nil || !strings.Contains(reply.Fallback, "No feeds") {
		t.Fatalf("expected empty-list notice, got %+v", reply)
	}

	feeds.feeds["http://a/rss"] = "guid-3"
	feeds.feeds["http://b/rss"] = ""
	reply = c.Execute(context.Background(), testRequest(nil))
	if reply == nil {
		t.Fatal("expected listing reply")
	}
	if !strings.Contains(reply.Fallback, "http://a/rss") || !strings.Contains(reply.Fallback, "http://b/rss") {
		t.Fatalf("listing must include every URL, got %q", reply.Fallback)
	}
	if !strings.Contains(reply.Fallback, "guid-3") {
		t.Fatalf("listing must include last-seen markers, got %q", reply.Fallback)
	}
}
