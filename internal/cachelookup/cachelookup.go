// Package cachelookup checks URLs and torrent files against a debrid-style
// cache service and posts any download links it finds. Unlike the summarizers
// this provider emits its result messages itself, since a single lookup can
// produce several link messages.
package cachelookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"murmur/internal/chunk"
	"murmur/internal/domain"
)

const defaultBase = "https://www.premiumize.me/api"

// Client talks to the cache service and emits results through the bus.
type Client struct {
	apiBase  string
	apiKey   string
	bus      domain.MessageBus
	chunkLen int
	client   *http.Client
	logger   *slog.Logger
}

type Config struct {
	APIBase  string
	APIKey   string
	Bus      domain.MessageBus
	ChunkLen int
	Logger   *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultBase
	}
	if cfg.ChunkLen <= 0 {
		cfg.ChunkLen = 1500
	}
	return &Client{
		apiBase:  cfg.APIBase,
		apiKey:   cfg.APIKey,
		bus:      cfg.Bus,
		chunkLen: cfg.ChunkLen,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   cfg.Logger,
	}
}

type cacheCheckResponse struct {
	Status   string `json:"status"`
	Response []bool `json:"response"`
}

type directDLResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Content []struct {
		Path string `json:"path"`
		Size int64  `json:"size"`
		Link string `json:"link"`
	} `json:"content"`
}

// CheckURL looks up src in the cache and posts download links to the chat.
func (c *Client) CheckURL(ctx context.Context, channel, chatID, src string) error {
	cached, err := c.isCached(ctx, src)
	if err != nil {
		return err
	}
	if !cached {
		c.send(channel, chatID, "That link is not cached. Nothing to fetch, sorry.")
		return nil
	}

	form := url.Values{"src": {src}}
	dl, err := c.directDL(ctx, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}

	c.sendLinks(channel, chatID, dl)
	return nil
}

// CheckTorrent downloads the attached torrent file and looks it up in the cache.
func (c *Client) CheckTorrent(ctx context.Context, channel, chatID string, att domain.Attachment) error {
	torrent, err := c.fetchAttachment(ctx, att)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("src", att.Filename)
	if err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(torrent); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}

	dl, err := c.directDL(ctx, &body, writer.FormDataContentType())
	if err != nil {
		return err
	}

	c.sendLinks(channel, chatID, dl)
	return nil
}

func (c *Client) isCached(ctx context.Context, src string) (bool, error) {
	endpoint := c.apiBase + "/cache/check?" + url.Values{
		"apikey":  {c.apiKey},
		"items[]": {src},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("cache check: %w", err)
	}
	defer resp.Body.Close()

	var result cacheCheckResponse
	if err := decodeJSON(resp, &result); err != nil {
		return false, fmt.Errorf("cache check: %w", err)
	}
	if result.Status != "success" {
		return false, fmt.Errorf("cache check returned status %q", result.Status)
	}
	return len(result.Response) > 0 && result.Response[0], nil
}

func (c *Client) directDL(ctx context.Context, body io.Reader, contentType string) (*directDLResponse, error) {
	endpoint := c.apiBase + "/transfer/directdl?" + url.Values{"apikey": {c.apiKey}}.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("direct download lookup: %w", err)
	}
	defer resp.Body.Close()

	var result directDLResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, fmt.Errorf("direct download lookup: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("cache service rejected the request: %s", result.Message)
	}
	return &result, nil
}

func (c *Client) fetchAttachment(ctx context.Context, att domain.Attachment) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", att.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment %s: %w", att.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch attachment %s: status %d", att.Filename, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func (c *Client) sendLinks(channel, chatID string, dl *directDLResponse) {
	if len(dl.Content) == 0 {
		c.send(channel, chatID, "Cached, but the service returned no files.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Cached download links:**\n")
	for _, item := range dl.Content {
		fmt.Fprintf(&sb, "%s — %s\n", item.Path, item.Link)
	}
	c.send(channel, chatID, sb.String())
}

func (c *Client) send(channel, chatID, content string) {
	for _, part := range chunk.Split(content, c.chunkLen) {
		c.bus.SendOutbound(domain.OutboundMessage{
			Channel: channel,
			ChatID:  chatID,
			Content: part,
		})
	}
}

func decodeJSON(resp *http.Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, string(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
