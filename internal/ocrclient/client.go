// Package ocrclient wraps the optional text-extraction collaborator. When no
// base URL is configured the client reports itself disabled and the meal-plan
// extraction endpoints degrade gracefully.
package ocrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"hostelhub/internal/apperrors"
)

// Client calls the OCR service over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client. An empty baseURL yields a disabled client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether an OCR collaborator is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.BaseURL != ""
}

// Extract asks the collaborator for best-effort plain text from a PDF or
// image file.
func (c *Client) Extract(ctx context.Context, fileURL, fileType string) (string, error) {
	if !c.Enabled() {
		return "", apperrors.Unavailable("text extraction is not configured")
	}

	body, _ := json.Marshal(map[string]string{
		"file_url":  fileURL,
		"file_type": fileType,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", apperrors.Timeout("text extraction timed out")
		}
		return "", apperrors.Unavailable("text extraction service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", apperrors.Newf(apperrors.ErrUnavailable, "text extraction failed (%d): %s", resp.StatusCode, string(raw))
	}

	var out struct {
		Success bool   `json:"success"`
		Text    string `json:"text"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "text extraction failed"
		}
		return "", apperrors.Unavailable(msg)
	}
	return out.Text, nil
}
