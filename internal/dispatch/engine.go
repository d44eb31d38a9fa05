// Package dispatch is the core turn engine: gate an inbound message, assemble
// a context-enriched prompt, call the model, and route the reply either to
// chat as text or to a capability handler.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"murmur/internal/capability"
	"murmur/internal/chunk"
	"murmur/internal/domain"
	"murmur/internal/intent"
	"murmur/internal/metrics"
)

const (
	defaultConcurrency  = 4
	defaultHistoryLimit = 10
	defaultChunkLen     = 1500
	defaultSnippetTopK  = 3
	defaultMinEmbedLen  = 30

	emptyResponseFallback = "I'm not sure how to respond to that."
	turnFailureFallback   = "An error occurred while processing your request."
	unknownFnFallback     = "Received an unknown function call."
)

// Engine owns the full lifecycle of a turn. One Engine serves all channels.
type Engine struct {
	provider      domain.Provider
	bus           domain.MessageBus
	conversations domain.ConversationStore
	memory        domain.SemanticMemory
	registry      *capability.Registry
	logger        *slog.Logger

	model       string
	temperature float64
	chunkLen    int

	adminUserID       string
	responseChannelID string
	selfID            string

	historyLimit int
	snippetTopK  int
	minEmbedLen  int
	concurrency  int
}

// Config holds the engine's dependencies and tuning parameters.
type Config struct {
	Provider      domain.Provider
	Bus           domain.MessageBus
	Conversations domain.ConversationStore
	Memory        domain.SemanticMemory
	Registry      *capability.Registry
	Logger        *slog.Logger

	Model       string
	Temperature float64
	ChunkLen    int

	AdminUserID       string
	ResponseChannelID string
	SelfID            string

	HistoryLimit int
	SnippetTopK  int
	MinEmbedLen  int
	Concurrency  int
}

// NewEngine creates a dispatch engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ChunkLen <= 0 {
		cfg.ChunkLen = defaultChunkLen
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.SnippetTopK <= 0 {
		cfg.SnippetTopK = defaultSnippetTopK
	}
	if cfg.MinEmbedLen <= 0 {
		cfg.MinEmbedLen = defaultMinEmbedLen
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Engine{
		provider:          cfg.Provider,
		bus:               cfg.Bus,
		conversations:     cfg.Conversations,
		memory:            cfg.Memory,
		registry:          cfg.Registry,
		logger:            cfg.Logger,
		model:             cfg.Model,
		temperature:       cfg.Temperature,
		chunkLen:          cfg.ChunkLen,
		adminUserID:       cfg.AdminUserID,
		responseChannelID: cfg.ResponseChannelID,
		selfID:            cfg.SelfID,
		historyLimit:      cfg.HistoryLimit,
		snippetTopK:       cfg.SnippetTopK,
		minEmbedLen:       cfg.MinEmbedLen,
		concurrency:       cfg.Concurrency,
	}
}

// Run consumes inbound messages until ctx is cancelled or the bus closes.
// Turns run concurrently up to the configured limit; ordering is only
// guaranteed within a turn, not across chats.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("dispatch engine started", "model", e.model, "concurrency", e.concurrency)

	sem := make(chan struct{}, e.concurrency)
	inbound := e.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("dispatch engine stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				e.logger.Info("inbound channel closed, dispatch engine stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				e.Handle(ctx, m)
			}(msg)
		}
	}
}

// Handle runs one complete turn for msg. It never panics: any failure past the
// gate still produces a user-facing message.
func (e *Engine) Handle(ctx context.Context, msg domain.InboundMessage) {
	if !e.admit(msg) {
		metrics.GateSkipsTotal.Inc()
		return
	}
	metrics.MessagesTotal.Inc()
	metrics.ActiveTurns.Inc()
	defer metrics.ActiveTurns.Dec()

	defer func() {
		if r := recover(); r != nil {
			metrics.TurnFailuresTotal.Inc()
			e.logger.Error("turn panicked", "chat", msg.ChatID, "panic", r)
			e.sendApology(ctx, msg)
		}
	}()

	e.logger.Info("handling message",
		"channel", msg.Channel,
		"chat", msg.ChatID,
		"sender", msg.SenderID,
		"content_len", len(msg.Content),
	)

	e.turn(ctx, msg)
}

// admit decides whether a turn starts at all. A false return is deliberate
// silence, not an error.
func (e *Engine) admit(msg domain.InboundMessage) bool {
	if msg.SenderID == e.selfID {
		return false
	}
	if msg.DM {
		return msg.SenderID == e.adminUserID
	}
	return msg.ChatID == e.responseChannelID || msg.BotMentioned
}

func (e *Engine) turn(ctx context.Context, msg domain.InboundMessage) {
	// Embed the inbound text up front so the semantic lookup can use the
	// same vector. Persistence is detached; only the lookup waits on it.
	var vector []float64
	if len(strings.TrimSpace(msg.Content)) >= e.minEmbedLen {
		v, err := e.provider.Embed(ctx, msg.Content)
		if err != nil {
			e.logger.Warn("embedding failed, continuing without semantic recall", "err", err)
		} else {
			vector = v
			e.saveEmbedding(msg.Content, v)
		}
	}

	snippets, err := e.memory.Query(ctx, vector, e.snippetTopK)
	if err != nil {
		e.logger.Warn("semantic lookup failed", "err", err)
		snippets = nil
	}
	if len(snippets) > 0 {
		e.logger.Debug("recalled snippets", "count", len(snippets))
	}

	history, err := e.conversations.Recent(ctx, msg.ChatID, e.historyLimit)
	if err != nil {
		e.logger.Warn("failed to load history, continuing without it", "err", err)
		history = nil
	}

	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: e.systemPrompt(snippets)})
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: msg.Content})

	e.typing(msg)

	metrics.ModelRequestsTotal.Inc()
	resp, err := e.provider.Chat(ctx, domain.ChatRequest{
		Model:       e.model,
		Messages:    messages,
		Temperature: e.temperature,
		KeepAlive:   -1,
	})
	if err != nil {
		metrics.TurnFailuresTotal.Inc()
		e.logger.Error("model call failed", "err", err)
		e.sendApology(ctx, msg)
		return
	}

	responseText := strings.TrimSpace(resp.Content)
	if responseText == "" {
		e.logger.Error("model returned an empty response")
		e.send(msg, emptyResponseFallback)
		return
	}

	if len(responseText) >= e.minEmbedLen {
		e.embedAndSave(responseText)
	}

	conversational := true
	it := intent.Parse(responseText)
	switch it.Kind {
	case intent.KindPlainText:
		for _, c := range chunk.Split(it.Raw, e.chunkLen) {
			e.send(msg, c)
		}
	case intent.KindFunctionCall:
		conversational = e.route(ctx, msg, it)
	case intent.KindMalformed:
		e.logger.Warn("malformed function call", "raw_len", len(it.Raw))
		e.send(msg, e.Phrase(ctx,
			fmt.Sprintf("Generate an error message to %s explaining that an unknown function call was received. Only generate the message. Do not respond to this message.", msg.SenderMention),
			unknownFnFallback))
	}

	if !conversational {
		return
	}

	// Persist the raw model output, function-call JSON included, so the
	// model sees its own past decisions on replay.
	if err := e.conversations.Append(ctx, msg.ChatID, domain.Message{Role: domain.RoleUser, Content: msg.Content}); err != nil {
		e.logger.Warn("failed to persist user message", "err", err)
	}
	if err := e.conversations.Append(ctx, msg.ChatID, domain.Message{Role: domain.RoleAssistant, Content: responseText}); err != nil {
		e.logger.Warn("failed to persist assistant message", "err", err)
	}
}

// route dispatches a parsed function call to its capability. The return value
// reports whether the turn should be written to chat history.
func (e *Engine) route(ctx context.Context, msg domain.InboundMessage, it intent.Intent) bool {
	handler := e.registry.Get(it.Name)
	if handler == nil {
		e.logger.Warn("unknown function call", "name", it.Name)
		e.send(msg, e.Phrase(ctx,
			fmt.Sprintf("Generate an error message to %s explaining that an unknown function call was received. Only generate the message. Do not respond to this message.", msg.SenderMention),
			unknownFnFallback))
		return true
	}

	metrics.CapabilityCallsTotal.Inc()
	e.logger.Info("routing capability", "name", it.Name, "chat", msg.ChatID)

	req := capability.Request{
		Channel:       msg.Channel,
		ChatID:        msg.ChatID,
		SenderMention: msg.SenderMention,
		Args:          it.Args,
		Attachments:   msg.Attachments,
	}

	if reply := handler.Validate(req); reply != nil {
		e.send(msg, e.Phrase(ctx, reply.Prompt, reply.Fallback))
		return handler.Conversational()
	}

	// The wait acknowledgment goes out before the slow work, never after.
	if wait := handler.Wait(req); wait != nil {
		e.send(msg, e.Phrase(ctx, wait.Prompt, wait.Fallback))
		e.typing(msg)
	}

	start := time.Now()
	reply := handler.Execute(ctx, req)
	e.logger.Debug("capability finished", "name", it.Name, "duration", time.Since(start), "failed", reply != nil)

	if reply != nil {
		e.send(msg, e.Phrase(ctx, reply.Prompt, reply.Fallback))
	}
	return handler.Conversational()
}

// Phrase asks the model for a friendly phrasing of fallback based on prompt.
// Failure or an empty reply degrades to the fallback verbatim, so the caller
// always has something to send.
func (e *Engine) Phrase(ctx context.Context, prompt, fallback string) string {
	resp, err := e.provider.Chat(ctx, domain.ChatRequest{
		Model:       e.model,
		Messages:    []domain.Message{{Role: domain.RoleSystem, Content: prompt}},
		Temperature: e.temperature,
		KeepAlive:   -1,
	})
	if err != nil {
		e.logger.Error("failed to generate message", "err", err)
		return fallback
	}
	if text := strings.TrimSpace(resp.Content); text != "" {
		return text
	}
	return fallback
}

func (e *Engine) sendApology(ctx context.Context, msg domain.InboundMessage) {
	e.send(msg, e.Phrase(ctx,
		fmt.Sprintf("Generate a friendly error message to %s explaining that an error occurred while processing the request. Only generate the message. Do not respond to this message.", msg.SenderMention),
		turnFailureFallback))
}

func (e *Engine) send(msg domain.InboundMessage, content string) {
	e.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: content,
	})
}

func (e *Engine) typing(msg domain.InboundMessage) {
	e.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Typing:  true,
	})
}

// embedAndSave computes text's embedding and persists it, detached from the
// turn with its own error boundary.
func (e *Engine) embedAndSave(text string) {
	go func() {
		v, err := e.provider.Embed(context.Background(), text)
		if err != nil {
			e.logger.Warn("response embedding failed", "err", err)
			return
		}
		e.persistEmbedding(text, v)
	}()
}

// saveEmbedding persists an already-computed vector, detached from the turn.
func (e *Engine) saveEmbedding(text string, vector []float64) {
	go func() {
		e.persistEmbedding(text, vector)
	}()
}

func (e *Engine) persistEmbedding(text string, vector []float64) {
	rec := domain.EmbeddingRecord{
		ID:        uuid.NewString(),
		Text:      text,
		Vector:    vector,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.memory.Save(context.Background(), rec); err != nil {
		e.logger.Warn("failed to persist embedding", "err", err)
		return
	}
	metrics.EmbeddingsSavedTotal.Inc()
}
