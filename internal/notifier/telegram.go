// Package notifier delivers admin replies and status reports over Telegram.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// maxMessageLen is the Bot API limit for one message text.
	maxMessageLen = 4096
	maxBackoff    = 30 * time.Second
)

// Sender delivers a text message to the operators.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// TelegramNotifier talks to the Bot API of one operator chat.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Client   *http.Client
	APIBase  string
}

func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Printf("[WARN] ignoring bad proxy url %q: %v", proxyURL, err)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  defaultAPIBase,
		Client:   &http.Client{Timeout: 35 * time.Second, Transport: transport},
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	base := t.APIBase
	if base == "" {
		base = defaultAPIBase
	}
	return fmt.Sprintf("%s/bot%s/%s", base, t.BotToken, method)
}

// apiError is a non-200 answer from the Bot API.
type apiError struct {
	Status     int
	Desc       string
	RetryAfter time.Duration
}

func (e *apiError) Error() string {
	return fmt.Sprintf("telegram API error: status %d: %s", e.Status, e.Desc)
}

// temporary reports whether sending again may succeed.
func (e *apiError) temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	e := &apiError{Status: resp.StatusCode, Desc: strings.TrimSpace(string(raw))}
	var body struct {
		Description string `json:"description"`
		Parameters  struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Description != "" {
		e.Desc = body.Description
		e.RetryAfter = time.Duration(body.Parameters.RetryAfter) * time.Second
	}
	return e
}

// send posts one message of at most maxMessageLen characters.
func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return nil
}

// SendWithRetry delivers text, split on line boundaries when it exceeds the
// message limit. Rate limits and server errors are retried with backoff,
// other API errors fail at once.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := t.sendPart(ctx, part, maxRetries); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) sendPart(ctx context.Context, text string, maxRetries int) error {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		err := t.send(ctx, text)
		if err == nil {
			return nil
		}
		var apiErr *apiError
		if errors.As(err, &apiErr) && !apiErr.temporary() {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}
		wait := backoff
		if apiErr != nil && apiErr.RetryAfter > 0 {
			wait = apiErr.RetryAfter
		}
		log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", attempt+1, maxRetries+1, err, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff = min(2*backoff, maxBackoff)
	}
}

// splitMessage cuts text into chunks of at most limit bytes, preferring
// newline boundaries.
func splitMessage(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	return append(parts, text)
}

// LogNotifier writes messages to the log. Used when Telegram is not configured.
type LogNotifier struct{}

func (LogNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	log.Printf("[INFO] notification:\n%s", text)
	return nil
}
