// Package summarize fetches remote content (video transcripts, web pages) and
// condenses it through the language model.
package summarize

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"murmur/internal/domain"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/embed/|/shorts/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
}

// ExtractVideoID pulls the 11-character video id out of the common YouTube
// URL forms (watch, short link, embed, shorts). Returns false when the URL
// carries no recognizable id.
func ExtractVideoID(rawURL string) (string, bool) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// YouTube summarizes videos by fetching the caption track and condensing it.
type YouTube struct {
	provider domain.Provider
	model    string
	client   *http.Client
	logger   *slog.Logger
}

type YouTubeConfig struct {
	Provider domain.Provider
	Model    string
	Logger   *slog.Logger
}

func NewYouTube(cfg YouTubeConfig) *YouTube {
	return &YouTube{
		provider: cfg.Provider,
		model:    cfg.Model,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   cfg.Logger,
	}
}

// timedText matches the YouTube caption track XML.
type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// Summarize fetches the caption track for videoID and asks the model for a
// summary formatted for chat.
func (y *YouTube) Summarize(ctx context.Context, videoID string) (string, error) {
	transcript, err := y.fetchTranscript(ctx, videoID)
	if err != nil {
		return "", err
	}

	prompt := "Summarize the following video transcript. Lead with a one-line " +
		"overview, then the key points as a short bullet list.\n\n" + transcript

	resp, err := y.provider.Chat(ctx, domain.ChatRequest{
		Model:     y.model,
		Messages:  []domain.Message{{Role: domain.RoleSystem, Content: prompt}},
		KeepAlive: -1,
	})
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("model returned empty summary")
	}

	return "**Video Summary**\n\n" + summary, nil
}

func (y *YouTube) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	endpoint := "https://video.google.com/timedtext?" + url.Values{
		"lang": {"en"},
		"v":    {videoID},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}

	var track timedText
	if err := xml.Unmarshal(body, &track); err != nil {
		return "", fmt.Errorf("parse transcript: %w", err)
	}
	if len(track.Texts) == 0 {
		return "", fmt.Errorf("no captions available for video %s", videoID)
	}

	parts := make([]string, 0, len(track.Texts))
	for _, t := range track.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Value))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " "), nil
}
