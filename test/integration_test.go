//go:build integration

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ctxengine "github.com/user/artifactchat/internal/context"
	"github.com/user/artifactchat/internal/export"
	"github.com/user/artifactchat/internal/gateway"
	"github.com/user/artifactchat/internal/httpapi"
	"github.com/user/artifactchat/internal/metrics"
	"github.com/user/artifactchat/internal/render"
	"github.com/user/artifactchat/internal/runtime"
	"github.com/user/artifactchat/internal/runtime/tools"
	"github.com/user/artifactchat/internal/state"
	"github.com/user/artifactchat/internal/types"
	"github.com/user/artifactchat/pkg/llm"
)

// scriptedProvider returns its responses in order, repeating the last.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.Response
	calls     int
}

func (s *scriptedProvider) Complete(_ context.Context, _ []llm.Message, _ []llm.Tool) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.responses)-1)
	s.calls++
	return s.responses[i], nil
}

func newStack(t *testing.T, provider types.ResponseProvider) (*httptest.Server, *gateway.Chat) {
	t.Helper()
	m := metrics.New()
	chat := gateway.New(state.NewConversation(state.WelcomeMessages(time.Now())...), provider,
		gateway.WithRetryPolicy(gateway.NoRetry()), gateway.WithMetrics(m))
	chat.Start(context.Background())
	t.Cleanup(chat.Stop)

	srv := httptest.NewServer(httpapi.NewServer(chat, httpapi.Options{
		Settings: render.DefaultSettings(),
		Metrics:  m.Handler(),
	}))
	t.Cleanup(srv.Close)
	return srv, chat
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestEndToEndWithRuntime(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      "create_artifact",
				Arguments: `{"type":"code","title":"Counter","content":"let n = 0","language":"js"}`,
			},
		}}},
		{Content: "Here is a counter."},
	}}

	registry := runtime.NewRegistry()
	registry.Register(tools.NewCreateArtifact())
	rt := runtime.New(provider, ctxengine.New("gpt-4", 128000, 4096), registry, 5)

	srv, chat := newStack(t, rt)

	resp := post(t, srv.URL+"/api/messages", `{"content":"write me a counter"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if !chat.WaitIdle(5 * time.Second) {
		t.Fatal("timeout waiting for reply")
	}

	msgs := chat.Snapshot()
	reply := msgs[len(msgs)-1]
	if reply.Content != "Here is a counter." || reply.Kind != types.KindArtifact {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(reply.Artifacts) != 1 || reply.Artifacts[0].Title != "Counter" {
		t.Fatalf("expected Counter artifact, got %+v", reply.Artifacts)
	}

	layoutResp, err := http.Get(srv.URL + "/api/messages/" + string(reply.ID) + "/layout")
	if err != nil {
		t.Fatal(err)
	}
	defer layoutResp.Body.Close()
	var layout render.Layout
	if err := json.NewDecoder(layoutResp.Body).Decode(&layout); err != nil {
		t.Fatal(err)
	}
	if layout.Kind != render.LayoutInline || layout.Default != reply.Artifacts[0].ID {
		t.Errorf("expected inline layout on the artifact, got %+v", layout)
	}

	exportResp, err := http.Get(srv.URL + "/api/export")
	if err != nil {
		t.Fatal(err)
	}
	defer exportResp.Body.Close()
	var snap export.Snapshot
	if err := json.NewDecoder(exportResp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Messages) != 4 {
		t.Fatalf("expected 4 exported messages, got %d", len(snap.Messages))
	}
	last := snap.Messages[3]
	if len(last.Artifacts) != 1 || last.Artifacts[0].Content != "let n = 0" {
		t.Errorf("unexpected exported artifacts %+v", last.Artifacts)
	}
}

func TestEndToEndWithStub(t *testing.T) {
	srv, chat := newStack(t, runtime.NewStub(runtime.WithLatency(0)))

	for _, text := range []string{"draw a chart", "write a document"} {
		if resp := post(t, srv.URL+"/api/messages", `{"content":"`+text+`"}`); resp.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.StatusCode)
		}
	}
	if !chat.WaitIdle(5 * time.Second) {
		t.Fatal("timeout waiting for replies")
	}

	msgs := chat.Snapshot()
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	var replies []types.Message
	for _, m := range msgs[2:] {
		if m.Sender == types.SenderAssistant {
			replies = append(replies, m)
		}
	}
	if len(replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(replies))
	}
	if got := replies[0].Artifacts[0].Type; got != types.ArtifactChart {
		t.Errorf("expected chart reply first, got %s", got)
	}
	if got := replies[1].Artifacts[0].Type; got != types.ArtifactDocument {
		t.Errorf("expected document reply second, got %s", got)
	}

	scrape, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer scrape.Body.Close()
	if scrape.StatusCode != http.StatusOK {
		t.Errorf("expected metrics 200, got %d", scrape.StatusCode)
	}
}
