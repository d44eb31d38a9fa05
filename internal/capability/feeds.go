package capability

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// FeedList is the subset of the feed manager the handlers need.
type FeedList interface {
	Add(url string) bool
	Remove(url string) bool
	List() map[string]string
}

// WatchFeed handles the watch_feed intent.
type WatchFeed struct {
	feeds FeedList
}

func NewWatchFeed(feeds FeedList) *WatchFeed {
	return &WatchFeed{feeds: feeds}
}

func (w *WatchFeed) Name() string         { return NameWatchFeed }
func (w *WatchFeed) Conversational() bool { return false }
func (w *WatchFeed) Wait(Request) *Reply  { return nil }

func (w *WatchFeed) Validate(req Request) *Reply {
	if req.Args["feed_url"] == "" {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that no feed URL was provided to watch. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "No feed URL provided.",
		}
	}
	return nil
}

func (w *WatchFeed) Execute(_ context.Context, req Request) *Reply {
	url := req.Args["feed_url"]
	if !w.feeds.Add(url) {
		return &Reply{
			Prompt: fmt.Sprintf("Generate a brief message to %s explaining that the feed %s is already being watched. Only generate the message. Do not respond to this message.", req.SenderMention, url),
			Fallback: fmt.Sprintf("Already watching feed: %s", url),
		}
	}
	return &Reply{
		Prompt: fmt.Sprintf("Generate a brief confirmation to %s that I am now watching the feed %s and will announce new entries. Only generate the message. Do not respond to this message.", req.SenderMention, url),
		Fallback: fmt.Sprintf("✅ Now watching feed: %s", url),
	}
}

// UnwatchFeed handles the unwatch_feed intent.
type UnwatchFeed struct {
	feeds FeedList
}

func NewUnwatchFeed(feeds FeedList) *UnwatchFeed {
	return &UnwatchFeed{feeds: feeds}
}

func (u *UnwatchFeed) Name() string         { return NameUnwatchFeed }
func (u *UnwatchFeed) Conversational() bool { return false }
func (u *UnwatchFeed) Wait(Request) *Reply  { return nil }

func (u *UnwatchFeed) Validate(req Request) *Reply {
	if req.Args["feed_url"] == "" {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that no feed URL was provided to stop watching. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "No feed URL provided.",
		}
	}
	return nil
}

func (u *UnwatchFeed) Execute(_ context.Context, req Request) *Reply {
	url := req.Args["feed_url"]
	if !u.feeds.Remove(url) {
		return &Reply{
			Prompt: fmt.Sprintf("Generate a brief message to %s explaining that the feed %s was not being watched. Only generate the message. Do not respond to this message.", req.SenderMention, url),
			Fallback: fmt.Sprintf("Not watching feed: %s", url),
		}
	}
	return &Reply{
		Prompt: fmt.Sprintf("Generate a brief confirmation to %s that I have stopped watching the feed %s. Only generate the message. Do not respond to this message.", req.SenderMention, url),
		Fallback: fmt.Sprintf("✅ Stopped watching feed: %s", url),
	}
}

// ListFeeds handles the list_feeds intent.
type ListFeeds struct {
	feeds FeedList
}

func NewListFeeds(feeds FeedList) *ListFeeds {
	return &ListFeeds{feeds: feeds}
}

func (l *ListFeeds) Name() string          { return NameListFeeds }
func (l *ListFeeds) Conversational() bool  { return false }
func (l *ListFeeds) Wait(Request) *Reply   { return nil }
func (l *ListFeeds) Validate(Request) *Reply { return nil }

func (l *ListFeeds) Execute(_ context.Context, req Request) *Reply {
	feeds := l.feeds.List()
	if len(feeds) == 0 {
		return &Reply{
			Prompt: fmt.Sprintf("Generate a brief message to %s explaining that no feeds are currently being watched. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "No feeds are currently being watched.",
		}
	}

	urls := make([]string, 0, len(feeds))
	for url := range feeds {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	var b strings.Builder
	for _, url := range urls {
		if feeds[url] == "" {
			fmt.Fprintf(&b, "- %s (no entries seen yet)\n", url)
		} else {
			fmt.Fprintf(&b, "- %s (last entry: %s)\n", url, feeds[url])
		}
	}
	listing := strings.TrimRight(b.String(), "\n")

	return &Reply{
		Prompt: fmt.Sprintf("Present this list of watched feeds to %s in a brief, friendly message, keeping every URL intact:\n%s\nOnly generate the message. Do not respond to this message.", req.SenderMention, listing),
		Fallback: fmt.Sprintf("**Watched Feeds:**\n%s", listing),
	}
}
