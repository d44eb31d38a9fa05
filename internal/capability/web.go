package capability

import (
	"context"
	"fmt"

	"murmur/internal/chunk"
	"murmur/internal/domain"
)

// PageSummarizer condenses the page behind a URL into chat-ready text.
type PageSummarizer interface {
	Summarize(ctx context.Context, pageURL string) (string, error)
}

// WebSummary handles the web_summary intent.
type WebSummary struct {
	pages    PageSummarizer
	bus      domain.MessageBus
	chunkLen int
}

func NewWebSummary(pages PageSummarizer, bus domain.MessageBus, chunkLen int) *WebSummary {
	return &WebSummary{pages: pages, bus: bus, chunkLen: chunkLen}
}

func (c *WebSummary) Name() string         { return NameWebSummary }
func (c *WebSummary) Conversational() bool { return true }

func (c *WebSummary) Validate(req Request) *Reply {
	if req.Args["url"] == "" {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that no webpage URL was provided in the function call. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "No webpage URL provided in the function call.",
		}
	}
	return nil
}

func (c *WebSummary) Wait(req Request) *Reply {
	return &Reply{
		Prompt: fmt.Sprintf("Generate a brief message to %s telling them to wait a moment while you read this boring article for them, and that you will provide a summary shortly. Only generate the message. Do not respond to this message.", req.SenderMention),
		Fallback: "Please wait a moment while I summarize the webpage...",
	}
}

func (c *WebSummary) Execute(ctx context.Context, req Request) *Reply {
	summary, err := c.pages.Summarize(ctx, req.Args["url"])
	if err != nil {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that I was unable to retrieve the summary from the webpage. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: fmt.Sprintf("Failed to retrieve the summary from the webpage: %v", err),
		}
	}

	for _, part := range chunk.Split(summary, c.chunkLen) {
		c.bus.SendOutbound(domain.OutboundMessage{Channel: req.Channel, ChatID: req.ChatID, Content: part})
	}
	return nil
}
