// Package imagegen generates images through a Stable Diffusion web UI
// compatible HTTP endpoint.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultBase = "http://localhost:7860"

	defaultWidth  = 768
	defaultHeight = 768
	defaultSteps  = 25
)

// Client calls the /sdapi/v1/txt2img endpoint and returns raw PNG bytes.
type Client struct {
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

type Config struct {
	APIBase string
	Logger  *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultBase
	}
	return &Client{
		apiBase: cfg.APIBase,
		client:  &http.Client{Timeout: 5 * time.Minute},
		logger:  cfg.Logger,
	}
}

type txt2imgRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Steps  int    `json:"steps"`
}

type txt2imgResponse struct {
	Images []string `json:"images"` // base64-encoded PNGs
}

// Generate renders prompt into a PNG.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(txt2imgRequest{
		Prompt: prompt,
		Width:  defaultWidth,
		Height: defaultHeight,
		Steps:  defaultSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image backend returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Images) == 0 {
		return nil, fmt.Errorf("image backend returned no images")
	}

	data, err := base64.StdEncoding.DecodeString(result.Images[0])
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	return data, nil
}
