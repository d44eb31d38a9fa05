package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"murmur/internal/domain"

	"github.com/chromedp/chromedp"
)

const (
	pageLoadTimeout = 45 * time.Second
	// Pages beyond this are truncated before summarization to keep the
	// prompt inside a small model's context window.
	maxPageChars = 24_000
)

// Web summarizes pages by rendering them in headless Chrome and condensing
// the visible text. Rendering (rather than a plain GET) picks up
// script-populated article bodies.
type Web struct {
	provider domain.Provider
	model    string
	headless bool
	logger   *slog.Logger
}

type WebConfig struct {
	Provider domain.Provider
	Model    string
	Logger   *slog.Logger
}

func NewWeb(cfg WebConfig) *Web {
	return &Web{
		provider: cfg.Provider,
		model:    cfg.Model,
		headless: true,
		logger:   cfg.Logger,
	}
}

// Summarize extracts the page text at pageURL and asks the model for a
// summary formatted for chat.
func (w *Web) Summarize(ctx context.Context, pageURL string) (string, error) {
	text, err := w.extractText(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if len(text) > maxPageChars {
		text = text[:maxPageChars]
	}

	prompt := "Summarize the following article text in a few short paragraphs. " +
		"Keep the key facts and drop navigation noise.\n\n" + text

	resp, err := w.provider.Chat(ctx, domain.ChatRequest{
		Model:     w.model,
		Messages:  []domain.Message{{Role: domain.RoleSystem, Content: prompt}},
		KeepAlive: -1,
	})
	if err != nil {
		return "", fmt.Errorf("summarize page: %w", err)
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("model returned empty summary")
	}

	return "**Page Summary**\n\n" + summary, nil
}

func (w *Web) extractText(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if w.headless {
		opts = append(opts, chromedp.Headless)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	taskCtx, timeoutCancel := context.WithTimeout(taskCtx, pageLoadTimeout)
	defer timeoutCancel()

	var text string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render page %s: %w", pageURL, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("page %s yielded no text", pageURL)
	}
	return text, nil
}
