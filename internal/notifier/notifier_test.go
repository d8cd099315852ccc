package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AuctionBot/internal/model"
	"AuctionBot/internal/seller"
)

func TestSend_PostsToChat(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	if err := n.SendWithRetry(context.Background(), "hello", 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSendWithRetry_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := n.SendWithRetry(ctx, "hello", 3); err == nil {
		t.Fatal("expected error")
	}
}

func TestSendWithRetry_ClientErrorFailsFast(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	err := n.SendWithRetry(context.Background(), "hello", 3)
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected chat not found error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestSendWithRetry_SplitsLongText(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		json.NewDecoder(r.Body).Decode(&got)
		texts = append(texts, got["text"])
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	line := strings.Repeat("x", 99) + "\n"
	if err := n.SendWithRetry(context.Background(), strings.Repeat(line, 90), 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(texts) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(texts))
	}
	for _, txt := range texts {
		if len(txt) > maxMessageLen {
			t.Errorf("message of %d bytes exceeds limit", len(txt))
		}
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		text  string
		limit int
		want  []string
	}{
		{"short", 10, []string{"short"}},
		{"aaa\nbbb\nccc", 8, []string{"aaa\nbbb", "ccc"}},
		{"abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"ééé", 3, []string{"é", "é", "é"}},
	}
	for _, tt := range tests {
		got := splitMessage(tt.text, tt.limit)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("splitMessage(%q, %d): expected %q, got %q", tt.text, tt.limit, tt.want, got)
		}
	}
}

func TestPoll_AnswersCommands(t *testing.T) {
	var replies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if r.URL.Query().Get("offset") != "5" {
				t.Errorf("unexpected offset %s", r.URL.Query().Get("offset"))
			}
			w.Write([]byte(`{"ok":true,"result":[{"update_id":5,"message":{"text":"status","chat":{"id":42}}}]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var got map[string]string
			json.NewDecoder(r.Body).Decode(&got)
			replies = append(replies, got["text"])
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	next, err := n.poll(context.Background(), 5, func(cmd string) string { return "re:" + cmd })
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if next != 6 {
		t.Errorf("expected next offset 6, got %d", next)
	}
	if len(replies) != 1 || replies[0] != "re:status" {
		t.Errorf("unexpected replies %v", replies)
	}
}

func TestDispatch_FiltersChat(t *testing.T) {
	n := NewTelegramNotifier("token", "42", "")
	handler := func(cmd string) string { return "ok:" + cmd }

	updates, err := decodeUpdates([]byte(`{"ok":true,"result":[
		{"update_id":1,"message":{"text":" status ","chat":{"id":42}}},
		{"update_id":2,"message":{"text":"seller off","chat":{"id":7}}},
		{"update_id":3}
	]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"ok:status", "", ""}
	for i, u := range updates {
		if got := n.dispatch(u, handler); got != want[i] {
			t.Errorf("update %d: expected %q, got %q", u.UpdateID, want[i], got)
		}
	}
}

func TestFormatStatusReport(t *testing.T) {
	cfg := model.DefaultMarketConfig("horde")
	cfg.MaxItems = 100
	statuses := []SegmentStatus{{
		Config:   *cfg,
		Active:   true,
		LastTick: time.Now(),
		LastSell: seller.SellReport{Segment: "horde", Requested: 10, Created: 8, BinEmpty: 2},
	}}
	out := FormatStatusReport(statuses)
	for _, want := range []string{"<b>horde</b>", "8/10 created", "last bid run: never", "max 100"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(FormatStatusReport(nil), "no segments") {
		t.Error("expected empty report notice")
	}
}
