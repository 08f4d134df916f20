package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DiscordContentLimit is the maximum message length, in characters, that
// Discord accepts.
const DiscordContentLimit = 2000

// TruncateRunes shortens s to at most n runes without splitting a multi-byte
// character.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}

	return s
}

// SendDiscordNotification posts content to a Discord webhook. Content longer
// than DiscordContentLimit runes is truncated.
//
// Parameters:
//   - ctx: Bounds the HTTP request
//   - webhook: The Discord webhook URL to POST to
//   - content: The message text
//
// Returns:
//   - An error if the request could not be sent or Discord answered with a
//     non-2xx status
func SendDiscordNotification(ctx context.Context, webhook string, content string) error {
	content = TruncateRunes(content, DiscordContentLimit)

	body, err := json.Marshal(struct {
		Content string `json:"content"`
	}{Content: content})
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Close = true
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord notification: %w", err)
	}

	defer func(Body io.ReadCloser) {
		_, _ = io.Copy(io.Discard, Body)
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord webhook returned %s", resp.Status)
	}

	return nil
}
