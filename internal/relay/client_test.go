package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/api", 5*time.Second), server
}

func TestModels(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"models":[{"name":"llama3","size":4.34},{"name":"phi3","size":"N/A"}]}`))
	})

	listed, err := client.Models(context.Background())
	if err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("unexpected model count: %d", len(listed))
	}
	if listed[0].Size != "4.34" || !listed[0].Size.Known() {
		t.Fatalf("unexpected numeric size: %q", listed[0].Size)
	}
	if listed[1].Size != "N/A" || listed[1].Size.Known() {
		t.Fatalf("unexpected sentinel size: %q", listed[1].Size)
	}
}

func TestChat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "mistral" || req["message"] != "hello" || req["session_id"] != "42" {
			t.Errorf("unexpected request payload: %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"response":"hi there","elapsed_time":1.23}`))
	})

	result, err := client.Chat(context.Background(), "mistral", "hello", "42")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if result.Response != "hi there" || result.ElapsedTime != 1.23 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRemoteError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"model not found"}`))
	})

	_, err := client.Chat(context.Background(), "nope", "hello", "42")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Message != "model not found" || remote.Status != http.StatusOK {
		t.Fatalf("unexpected remote error: %+v", remote)
	}
}

func TestRemoteErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":"Missing required parameters"}`))
	})

	err := client.Pull(context.Background(), "")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Status != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", remote.Status)
	}
}

func TestBackendTimeout(t *testing.T) {
	// The handler must drain the body and be releasable, or Close would
	// wait on it forever after the client gives up.
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Chat(ctx, "mistral", "hello", "42")
	if !errors.Is(err, ErrBackendTimeout) {
		t.Fatalf("expected ErrBackendTimeout, got %v", err)
	}
}

func TestBackendUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client := NewClient(base+"/api", time.Second)
	_, err := client.Models(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestClearHistory(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"success":true,"message":"Chat history cleared"}`))
	})

	if err := client.ClearHistory(context.Background(), "42"); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	if gotPath != "/api/chat/clear/42" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
}
