package capability

import (
	"context"
	"fmt"

	"murmur/internal/domain"
)

// CacheLookup checks URLs or torrent files against an external cache service.
// The provider emits its own result messages.
type CacheLookup interface {
	CheckURL(ctx context.Context, channel, chatID, src string) error
	CheckTorrent(ctx context.Context, channel, chatID string, att domain.Attachment) error
}

// CacheDownload handles the cache_download intent (URL form).
type CacheDownload struct {
	cache CacheLookup
}

func NewCacheDownload(cache CacheLookup) *CacheDownload {
	return &CacheDownload{cache: cache}
}

func (c *CacheDownload) Name() string         { return NameCacheDownload }
func (c *CacheDownload) Conversational() bool { return true }

func (c *CacheDownload) Validate(req Request) *Reply {
	if req.Args["url"] == "" {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that no URL was provided for the cache download check. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "No URL provided for the cache download check.",
		}
	}
	return nil
}

func (c *CacheDownload) Wait(req Request) *Reply {
	return &Reply{
		Prompt: fmt.Sprintf("Generate a brief message to %s telling them to wait a moment while I check the cache for that URL and retrieve download links for them. Only generate the message. Do not respond to this message.", req.SenderMention),
		Fallback: "Hold on while I check the cache for that URL...",
	}
}

func (c *CacheDownload) Execute(ctx context.Context, req Request) *Reply {
	if err := c.cache.CheckURL(ctx, req.Channel, req.ChatID, req.Args["url"]); err != nil {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that I was unable to retrieve the cached download links for the URL. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: fmt.Sprintf("Failed to retrieve cached download links: %v", err),
		}
	}
	return nil
}

// CacheTorrent handles the cache_torrent intent (attachment form).
type CacheTorrent struct {
	cache CacheLookup
}

func NewCacheTorrent(cache CacheLookup) *CacheTorrent {
	return &CacheTorrent{cache: cache}
}

func (c *CacheTorrent) Name() string         { return NameCacheTorrent }
func (c *CacheTorrent) Conversational() bool { return true }

func (c *CacheTorrent) Validate(req Request) *Reply {
	if len(req.Attachments) == 0 {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that no torrent file was attached for the cache torrent check. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "No torrent file attached for the cache torrent check.",
		}
	}
	return nil
}

func (c *CacheTorrent) Wait(req Request) *Reply {
	return &Reply{
		Prompt: fmt.Sprintf("Generate a brief message to %s telling them to wait a moment while I check the cache for that torrent and retrieve download links for them. Only generate the message. Do not respond to this message.", req.SenderMention),
		Fallback: "Hold on while I check the cache for that torrent...",
	}
}

func (c *CacheTorrent) Execute(ctx context.Context, req Request) *Reply {
	if err := c.cache.CheckTorrent(ctx, req.Channel, req.ChatID, req.Attachments[0]); err != nil {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that I was unable to retrieve the cached download links for the torrent. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: fmt.Sprintf("Failed to retrieve cached download links for the torrent: %v", err),
		}
	}
	return nil
}
