package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prodflowhq/prodflow/agent"
	"github.com/prodflowhq/prodflow/types"
)

func TestClientInvoke_MessagesRoundTrip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Fatalf("expected api key header")
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["system"] != "You write PRDs." {
			t.Fatalf("unexpected system prompt: %#v", req["system"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "` + "```json\\n{\\\"summary\\\": \\\"ok\\\"}\\n```" + `"}]
		}`))
	}))
	defer ts.Close()

	client, err := New("test-key",
		WithBaseURL(ts.URL),
		WithHTTPClient(ts.Client()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	raw, err := client.Invoke(context.Background(), "doc-writer", types.PromptPayload{
		Role: "You write PRDs.",
		Task: "Assemble the PRD.",
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("response is not JSON after fence stripping: %v", err)
	}
	if payload["summary"] != "ok" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestClientInvoke_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer ts.Close()

	client, err := New("test-key", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = client.Invoke(context.Background(), "doc-writer", types.PromptPayload{Task: "Assemble."})
	var invErr *agent.InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
	if invErr.Agent != "doc-writer" {
		t.Fatalf("error names agent %q", invErr.Agent)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}
