package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Client talks to a Stable-Diffusion-style txt2img REST API to render
// karaoke background images.
type Client struct {
	apiURL    string
	apiKey    string
	outputDir string // rendered images are written here, served under /media
	http      *http.Client
}

// NewClient creates an image generation client.
func NewClient(apiURL, apiKey, outputDir string) *Client {
	return &Client{
		apiURL:    apiURL,
		apiKey:    apiKey,
		outputDir: outputDir,
		http:      &http.Client{Timeout: 120 * time.Second},
	}
}

// txt2imgRequest is the /sdapi/v1/txt2img request body.
type txt2imgRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Steps          int    `json:"steps"`
	Seed           int    `json:"seed"`
}

// txt2imgResponse is the /sdapi/v1/txt2img response body.
type txt2imgResponse struct {
	Images []string `json:"images"` // base64-encoded PNGs
}

// Available checks if the image API is reachable.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+"/sdapi/v1/options", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Generate renders one background image for the prompt and writes it into
// the output directory. Returns the file name (relative to the output dir).
// No image in the response is a terminal error surfaced to the user.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(txt2imgRequest{
		Prompt: prompt,
		Width:  1280,
		Height: 720,
		Steps:  25,
		Seed:   -1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("image API status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(result.Images) == 0 || result.Images[0] == "" {
		return "", fmt.Errorf("image API returned no image")
	}

	return c.saveImage(result.Images[0])
}

// saveImage decodes a base64 PNG into the output dir under a
// timestamp-derived name.
func (c *Client) saveImage(b64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode image data: %w", err)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("bg-%d.png", time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(c.outputDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}
