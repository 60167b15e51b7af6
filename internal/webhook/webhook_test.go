package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bikinibottom/spongeplay/internal/board"
)

func newTestClient(url, secret string) *Client {
	c := New(url, secret)
	c.retryDelays = []time.Duration{1 * time.Millisecond, 1 * time.Millisecond}
	return c
}

func TestSignPayload(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"event":"comment.created","data":{}}`)

	signature := SignPayload(secret, payload)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if signature != expected {
		t.Errorf("expected signature %s, got %s", expected, signature)
	}
}

func TestSignPayloadDifferentSecrets(t *testing.T) {
	payload := []byte(`{"event":"comment.created"}`)

	if SignPayload("secret-one", payload) == SignPayload("secret-two", payload) {
		t.Error("different secrets should produce different signatures")
	}
}

func TestNotifySuccess(t *testing.T) {
	var receivedSignature string
	var receivedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedSignature = r.Header.Get("X-Webhook-Signature")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	event := board.Event{
		Name:      board.EventCommentCreated,
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Data:      map[string]any{"username": "派大星"},
	}
	eventJSON, _ := json.Marshal(event)

	client := newTestClient(server.URL, "my-secret")
	if err := client.Notify(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if want := SignPayload("my-secret", eventJSON); receivedSignature != want {
		t.Errorf("expected signature %s, got %s", want, receivedSignature)
	}

	var received struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := json.Unmarshal(receivedBody, &received); err != nil {
		t.Fatalf("failed to unmarshal received body: %v", err)
	}
	if received.Event != board.EventCommentCreated {
		t.Errorf("expected event %s, got %s", board.EventCommentCreated, received.Event)
	}
	if received.Data["username"] != "派大星" {
		t.Errorf("expected username in payload, got %v", received.Data)
	}
}

func TestDispatchRetryOnServerError(t *testing.T) {
	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attemptCount.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestClient(server.URL, "secret").Dispatch(context.Background(), board.Event{Name: board.EventCommentDeleted})
	if err != nil {
		t.Fatalf("expected no error after successful retry, got %v", err)
	}
	if attemptCount.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attemptCount.Load())
	}
}

func TestDispatchAllRetriesFail(t *testing.T) {
	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	err := newTestClient(server.URL, "secret").Dispatch(context.Background(), board.Event{Name: board.EventAnnouncementCreated})
	if err == nil {
		t.Fatal("expected error after all retries failed, got nil")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected error to mention status 502, got: %s", err.Error())
	}
	if attemptCount.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attemptCount.Load())
	}
}

func TestDispatchConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachableURL := server.URL
	server.Close()

	err := newTestClient(unreachableURL, "secret").Dispatch(context.Background(), board.Event{Name: board.EventCommentCreated})
	if err == nil {
		t.Fatal("expected error for unreachable URL, got nil")
	}
}

func TestDispatchStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "secret")
	client.retryDelays = []time.Duration{time.Hour, time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := client.Dispatch(ctx, board.Event{Name: board.EventCommentCreated}); err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestResponseBodyTruncation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer server.Close()

	statusCode, respBody, err := newTestClient(server.URL, "secret").doPost(context.Background(), []byte("{}"), "sha256=test")
	if err != nil {
		t.Fatalf("doPost error: %v", err)
	}
	if statusCode == nil || *statusCode != 200 {
		t.Fatalf("expected status 200, got %v", statusCode)
	}
	if len(respBody) != maxResponseBodyBytes {
		t.Errorf("expected response body truncated to %d bytes, got %d bytes", maxResponseBodyBytes, len(respBody))
	}
}
