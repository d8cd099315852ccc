package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CommandHandler is called when an operator command is received.
type CommandHandler func(command string) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling long-polls getUpdates and answers operator commands. Messages
// from chats other than ChatID are ignored. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for ctx.Err() == nil {
		next, err := t.poll(ctx, offset, handler)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[WARN] polling failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		offset = next
	}
	log.Println("[INFO] Telegram polling stopped")
}

// poll fetches one batch of updates, dispatches them and returns the next
// offset to acknowledge.
func (t *TelegramNotifier) poll(ctx context.Context, offset int, handler CommandHandler) (int, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("timeout", "30")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return offset, err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return offset, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return offset, readAPIError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return offset, fmt.Errorf("read updates: %w", err)
	}
	updates, err := decodeUpdates(body)
	if err != nil {
		return offset, fmt.Errorf("decode updates: %w", err)
	}
	for _, u := range updates {
		offset = u.UpdateID + 1
		reply := t.dispatch(u, handler)
		if reply == "" {
			continue
		}
		if err := t.SendWithRetry(ctx, reply, 1); err != nil {
			log.Printf("[ERROR] send reply: %v", err)
		}
	}
	return offset, nil
}

func decodeUpdates(body []byte) ([]telegramUpdate, error) {
	var result struct {
		OK     bool             `json:"ok"`
		Result []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram returned ok=false")
	}
	return result.Result, nil
}

func (t *TelegramNotifier) dispatch(update telegramUpdate, handler CommandHandler) string {
	if update.Message == nil || update.Message.Text == "" {
		return ""
	}
	if strconv.FormatInt(update.Message.Chat.ID, 10) != t.ChatID {
		log.Printf("[WARN] ignoring command from chat %d", update.Message.Chat.ID)
		return ""
	}
	text := strings.TrimSpace(update.Message.Text)
	log.Printf("[INFO] received command: %s", text)
	return handler(text)
}
