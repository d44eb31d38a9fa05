package domain

import "context"

// ChatRequest is a single blocking chat completion call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	KeepAlive   int // -1 keeps the model loaded between calls
}

// ChatResponse carries the model's text reply.
type ChatResponse struct {
	Content string
}

// Provider is a language-model backend: chat completions plus text embeddings.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Embed returns the embedding vector for text, or nil with an error
	// when the embedding backend is unavailable.
	Embed(ctx context.Context, text string) ([]float64, error)
	Name() string
	Healthy(ctx context.Context) error
}
