// Package capability defines the fixed set of task handlers the dispatch
// engine can route a model function call to, and the registry that maps
// intent names onto them.
package capability

import (
	"context"

	"murmur/internal/domain"
)

// Capability names as emitted by the model. The registry is populated with
// exactly this set; anything else is an unknown function.
const (
	NameYouTubeSummary = "youtube_summary"
	NameWebSummary     = "web_summary"
	NameDrawPicture    = "draw_picture"
	NameCacheDownload  = "cache_download"
	NameCacheTorrent   = "cache_torrent"
	NameWatchFeed      = "watch_feed"
	NameUnwatchFeed    = "unwatch_feed"
	NameListFeeds      = "list_feeds"
)

// Request carries everything a handler needs from the inbound turn.
type Request struct {
	Channel       string
	ChatID        string
	SenderMention string
	Args          map[string]string
	Attachments   []domain.Attachment
}

// Reply is a user-facing message to be phrased by the model, with a static
// fallback sent verbatim when phrasing fails. The two-tier degrade guarantees
// the user is never left without a message.
type Reply struct {
	Prompt   string
	Fallback string
}

// Phraser asks the model for a friendly phrasing of a message, returning the
// fallback when the model call fails or comes back empty.
type Phraser interface {
	Phrase(ctx context.Context, prompt, fallback string) string
}

// Capability is one routable task handler.
type Capability interface {
	Name() string

	// Validate reports whether the request is routable. A non-nil reply is
	// the missing-argument (or unusable-argument) error to send; the
	// handler is not executed.
	Validate(req Request) *Reply

	// Wait returns the acknowledgment to send before Execute starts, or
	// nil for capabilities that answer quickly.
	Wait(req Request) *Reply

	// Execute performs the work. A non-nil reply is a message for the
	// engine to phrase and send (failure for the slow capabilities, which
	// emit their own success output; confirmation for the feed commands).
	Execute(ctx context.Context, req Request) *Reply

	// Conversational reports whether the turn is written to chat history.
	// Feed management intents are commands, not conversation.
	Conversational() bool
}
