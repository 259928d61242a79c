package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type sent struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func testBot(t *testing.T, h http.HandlerFunc) *Bot {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	b := NewBot("TOKEN", func(context.Context) string { return "TVL $150.04" },
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.baseURL = srv.URL + "/bot"
	b.client = srv.Client()
	return b
}

func TestSendMessage(t *testing.T) {
	var got sent
	b := testBot(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	if err := b.SendMessage(context.Background(), "-100123", "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got.ChatID != "-100123" || got.Text != "hello" {
		t.Errorf("sent = %+v", got)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	b := testBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	})

	err := b.SendMessage(context.Background(), "1", "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("err = %v, want chat not found", err)
	}
}

func TestPollAnswersCommands(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []sent
	)
	b := testBot(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			_, _ = w.Write([]byte(`{"ok":true,"result":[
				{"update_id":10,"message":{"chat":{"id":42},"text":"/status@sonic_vault_bot"}},
				{"update_id":11,"message":{"chat":{"id":42},"text":"/help"}},
				{"update_id":12,"message":{"chat":{"id":42},"text":"   "}},
				{"update_id":13}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var s sent
			_ = json.NewDecoder(r.Body).Decode(&s)
			mu.Lock()
			replies = append(replies, s)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	})

	b.poll(context.Background())

	if b.offset != 14 {
		t.Errorf("offset = %d, want 14", b.offset)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 2 {
		t.Fatalf("replies = %d, want 2", len(replies))
	}
	if replies[0].ChatID != "42" || replies[0].Text != "TVL $150.04" {
		t.Errorf("status reply = %+v", replies[0])
	}
	if !strings.Contains(replies[1].Text, "/status") {
		t.Errorf("help reply = %q", replies[1].Text)
	}
}
