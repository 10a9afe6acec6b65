package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/artifactchat/pkg/llm"
)

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected path /v1/chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("expected bearer auth, got %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		var reqBody map[string]any
		json.Unmarshal(body, &reqBody)
		if reqBody["model"] != "gpt-4o-mini" {
			t.Errorf("expected model gpt-4o-mini, got %v", reqBody["model"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello there"}},
			},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
		})
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL + "/v1", APIKey: "key", Model: "gpt-4o-mini"})
	resp, err := client.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello there" {
		t.Errorf("expected content 'hello there', got %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("expected 5 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestClientToolRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var reqBody struct {
			Messages []llm.Message `json:"messages"`
			Tools    []llm.Tool    `json:"tools"`
		}
		json.Unmarshal(body, &reqBody)

		if len(reqBody.Tools) != 1 || reqBody.Tools[0].Function.Name != "create_artifact" {
			t.Errorf("expected create_artifact tool, got %+v", reqBody.Tools)
		}
		last := reqBody.Messages[len(reqBody.Messages)-1]
		if last.Role != llm.RoleTool || last.ToolCallID != "call_1" {
			t.Errorf("expected tool result for call_1, got %+v", last)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{{
						"id":   "call_2",
						"type": "function",
						"function": map[string]any{
							"name":      "create_artifact",
							"arguments": `{"type":"code","title":"Counter"}`,
						},
					}},
				},
			}},
		})
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, APIKey: "key", Model: "m"})
	tools := []llm.Tool{{
		Type: "function",
		Function: llm.Function{
			Name:        "create_artifact",
			Description: "Create an artifact",
			Parameters:  json.RawMessage(`{"type":"object"}`),
		},
	}}
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "make code"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "call_1", Type: "function", Function: llm.FunctionCall{Name: "create_artifact", Arguments: "{}"}}}},
		{Role: llm.RoleTool, Content: "ok", ToolCallID: "call_1"},
	}

	resp, err := client.Complete(context.Background(), history, tools)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if got := resp.ToolCalls[0].Function.Arguments; got != `{"type":"code","title":"Counter"}` {
		t.Errorf("unexpected arguments %q", got)
	}
}

func TestClientAPIError(t *testing.T) {
	for _, tc := range []struct {
		status    int
		temporary bool
	}{
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))

		client := New(&llm.Config{BaseURL: server.URL, APIKey: "bad", Model: "m"})
		_, err := client.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
		server.Close()

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: expected *APIError, got %v", tc.status, err)
		}
		if apiErr.StatusCode != tc.status {
			t.Errorf("expected status %d, got %d", tc.status, apiErr.StatusCode)
		}
		if apiErr.Temporary() != tc.temporary {
			t.Errorf("status %d: expected temporary=%v", tc.status, tc.temporary)
		}
		if apiErr.Message != "nope" {
			t.Errorf("expected server message 'nope', got %q", apiErr.Message)
		}
	}
}

func TestClientNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, Model: "m"})
	if _, err := client.Complete(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestClientCustomHTTPClientAndTrailingSlash(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected single slash path, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("expected no auth header without a key")
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL + "/v1/", Model: "m"}, WithHTTPClient(server.Client()))
	resp, err := client.Complete(context.Background(), []llm.Message{llm.System("be brief")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "ok" || hits != 1 {
		t.Errorf("unexpected response %q after %d hits", resp.Content, hits)
	}
}
