package capability

import (
	"context"
	"fmt"

	"murmur/internal/domain"
)

// ImageGenerator renders a text prompt into PNG bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// DrawPicture handles the draw_picture intent.
type DrawPicture struct {
	images ImageGenerator
	bus    domain.MessageBus
}

func NewDrawPicture(images ImageGenerator, bus domain.MessageBus) *DrawPicture {
	return &DrawPicture{images: images, bus: bus}
}

func (c *DrawPicture) Name() string         { return NameDrawPicture }
func (c *DrawPicture) Conversational() bool { return true }

func (c *DrawPicture) Validate(req Request) *Reply {
	if req.Args["prompt"] == "" {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that no prompt was provided for drawing a picture. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: "No prompt provided for drawing a picture.",
		}
	}
	return nil
}

func (c *DrawPicture) Wait(req Request) *Reply {
	return &Reply{
		Prompt: fmt.Sprintf("Generate a brief message to %s telling them to wait a moment while I create that picture for them. Only generate the message. Do not respond to this message.", req.SenderMention),
		Fallback: "Hold on while I create that picture for you...",
	}
}

func (c *DrawPicture) Execute(ctx context.Context, req Request) *Reply {
	data, err := c.images.Generate(ctx, req.Args["prompt"])
	if err != nil {
		return &Reply{
			Prompt: fmt.Sprintf("Generate an error message to %s explaining that I was unable to create the image. Only generate the message. Do not respond to this message.", req.SenderMention),
			Fallback: fmt.Sprintf("Failed to generate image: %v", err),
		}
	}

	c.bus.SendOutbound(domain.OutboundMessage{
		Channel: req.Channel,
		ChatID:  req.ChatID,
		File:    &domain.FileUpload{Name: "generated_image.png", Data: data},
	})
	return nil
}
