package capability

import (
	"context"
	"fmt"

	"murmur/internal/chunk"
	"murmur/internal/domain"
	"murmur/internal/summarize"
)

// VideoSummarizer condenses a video identified by its platform id.
type VideoSummarizer interface {
	Summarize(ctx context.Context, videoID string) (string, error)
}

// YouTubeSummary handles the youtube_summary intent.
type YouTubeSummary struct {
	videos   VideoSummarizer
	bus      domain.MessageBus
	chunkLen int
}

func NewYouTubeSummary(videos VideoSummarizer, bus domain.MessageBus, chunkLen int) *YouTubeSummary {
	return &YouTubeSummary{videos: videos, bus: bus, chunkLen: chunkLen}
}

func (c *YouTubeSummary) Name() string         { return NameYouTubeSummary }
func (c *YouTubeSummary) Conversational() bool { return true }

func (c *YouTubeSummary) Validate(req Request) *Reply {
	videoURL := req.Args["video_url"]
	if videoURL == "" {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that no YouTube URL was provided in the function call. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "No YouTube URL provided in the function call.",
		}
	}
	if _, ok := summarize.ExtractVideoID(videoURL); !ok {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that the provided YouTube URL is invalid. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "The provided YouTube URL is invalid.",
		}
	}
	return nil
}

func (c *YouTubeSummary) Wait(req Request) *Reply {
	return &Reply{
		Prompt: fmt.Sprintf("Generate a brief message to %s telling them to wait a moment while you watch this boring YouTube video for them, and that you will provide a summary in a moment so they don't have to watch it. Only generate the message. Do not respond to this message.", req.SenderMention),
		Fallback: "Please wait a moment while I summarize the video...",
	}
}

func (c *YouTubeSummary) Execute(ctx context.Context, req Request) *Reply {
	videoID, _ := summarize.ExtractVideoID(req.Args["video_url"])

	article, err := c.videos.Summarize(ctx, videoID)
	if err != nil {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that I was unable to retrieve the summary from the YouTube video. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: fmt.Sprintf("Failed to retrieve the summary from YouTube: %v", err),
		}
	}

	for _, part := range chunk.Split(article, c.chunkLen) {
		c.bus.SendOutbound(domain.OutboundMessage{Channel: req.Channel, ChatID: req.ChatID, Content: part})
	}
	return nil
}
