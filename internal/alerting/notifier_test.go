package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"continuous-futures/internal/series"
)

func alignmentNote() Notification {
	return Notification{
		Product:  "CL",
		Contract: "CLZ2015",
		Stage:    "chain",
		Err:      &series.AlignmentError{Date: time.Date(2015, 11, 18, 0, 0, 0, 0, time.UTC), Reason: "roll date missing from incoming contract"},
		Time:     time.Date(2016, 1, 4, 6, 0, 0, 0, time.UTC),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), alignmentNote()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("wrong chat_id: %#v", received)
	}
	text := received["text"]
	for _, want := range []string{"Product: CL", "Contract: CLZ2015", "Stage: chain", "manual reconciliation"} {
		if !strings.Contains(text, want) {
			t.Fatalf("message %q missing %q", text, want)
		}
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), alignmentNote()); err == nil {
		t.Fatal("ok=false should fail")
	}
}

func TestTelegramNotifierStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), alignmentNote()); err == nil {
		t.Fatal("non-2xx status should fail")
	}
}

func TestRenderMessageWithoutReconciliation(t *testing.T) {
	msg := renderMessage(Notification{Product: "NG", Stage: "fetch", Err: errors.New("timeout")})
	if strings.Contains(msg, "reconciliation") || strings.Contains(msg, "Contract:") {
		t.Fatalf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "Error: timeout") {
		t.Fatalf("message %q missing error", msg)
	}
}

func TestLogNotifier(t *testing.T) {
	if err := NewLogNotifier(testLogger()).Notify(context.Background(), alignmentNote()); err != nil {
		t.Fatalf("LogNotifier should never fail: %v", err)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
