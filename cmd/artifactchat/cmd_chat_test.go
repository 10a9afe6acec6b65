package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/artifactchat/internal/config"
	"github.com/user/artifactchat/internal/gateway"
	"github.com/user/artifactchat/internal/render"
	"github.com/user/artifactchat/internal/state"
	"github.com/user/artifactchat/internal/types"
)

type echoProvider struct{}

func (echoProvider) Respond(ctx context.Context, req types.ReplyRequest) (*types.Message, error) {
	msg := types.NewMessage(types.SenderAssistant, "echo: "+req.Utterance, nil, "")
	return &msg, nil
}

// syncBuffer guards a bytes.Buffer written by the reply lane.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setupREPL(t *testing.T) (*repl, *gateway.Chat, *syncBuffer) {
	t.Helper()
	chat := gateway.New(state.NewConversation(state.WelcomeMessages(time.Now())...), echoProvider{},
		gateway.WithRetryPolicy(gateway.NoRetry()))
	chat.Start(context.Background())
	t.Cleanup(chat.Stop)

	cfg := config.Default()
	out := &syncBuffer{}
	settings := render.Settings{Theme: render.ThemeDark}
	r := newREPL(chat, newRegistry(cfg), render.NewTerminal(settings, 80), settings, t.TempDir(), out)
	return r, chat, out
}

func TestREPLSessionFlow(t *testing.T) {
	r, chat, out := setupREPL(t)

	input := strings.Join([]string{
		"/bookmark 1",
		"/react 2 like",
		"hello there",
		"/quit",
		"never sent",
	}, "\n")
	if err := r.run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}
	if !chat.WaitIdle(2 * time.Second) {
		t.Fatal("reply did not finish")
	}

	if m, _ := chat.Get("1"); !m.Bookmarked {
		t.Error("expected message 1 bookmarked")
	}
	if m, _ := chat.Get("2"); len(m.Reactions) != 1 {
		t.Errorf("expected one reaction on message 2, got %+v", m.Reactions)
	}

	msgs := chat.Snapshot()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[2].Content != "hello there" || msgs[3].Content != "echo: hello there" {
		t.Errorf("unexpected tail %q, %q", msgs[2].Content, msgs[3].Content)
	}
	if !strings.Contains(out.String(), "Type a message") {
		t.Errorf("expected greeting in output")
	}
}

func TestREPLSearchAndClose(t *testing.T) {
	r, chat, out := setupREPL(t)

	r.handleLine(context.Background(), "/search example")
	if !chat.SearchOpen() || chat.Query() != "example" {
		t.Fatalf("expected open search, got open=%v q=%q", chat.SearchOpen(), chat.Query())
	}
	if !strings.Contains(out.String(), "1 of 2 messages") {
		t.Errorf("expected match count in output:\n%s", out.String())
	}

	r.handleLine(context.Background(), "/close")
	if chat.SearchOpen() {
		t.Error("expected search closed")
	}
}

func TestREPLAttachAndDetach(t *testing.T) {
	r, chat, out := setupREPL(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	r.handleLine(context.Background(), "/attach "+path)
	staged := chat.Staged()
	if len(staged) != 1 || staged[0].Name != "notes.txt" || staged[0].Size != 5 {
		t.Fatalf("unexpected staged files %+v", staged)
	}
	if !strings.HasPrefix(staged[0].MimeType, "text/plain") {
		t.Errorf("expected text/plain, got %q", staged[0].MimeType)
	}

	r.handleLine(context.Background(), "/detach 3")
	if !strings.Contains(out.String(), "Usage: /detach") {
		t.Error("expected usage for out of range detach")
	}
	r.handleLine(context.Background(), "/detach 1")
	if len(chat.Staged()) != 0 {
		t.Error("expected staged file removed")
	}

	r.handleLine(context.Background(), "/attach "+filepath.Join(t.TempDir(), "missing"))
	if !strings.Contains(out.String(), "Attach failed") {
		t.Error("expected attach failure message")
	}
}

func TestREPLExport(t *testing.T) {
	r, _, out := setupREPL(t)

	r.handleLine(context.Background(), "/export")
	if !strings.Contains(out.String(), "Exported to ") {
		t.Fatalf("expected export path in output:\n%s", out.String())
	}
	matches, _ := filepath.Glob(filepath.Join(r.dataDir, "chat-export-*.json"))
	if len(matches) != 1 {
		t.Errorf("expected one export file, got %v", matches)
	}
}

func TestREPLToolsAndUnknown(t *testing.T) {
	r, _, out := setupREPL(t)

	r.handleLine(context.Background(), "/tools")
	r.handleLine(context.Background(), "/frobnicate")

	got := out.String()
	if !strings.Contains(got, "Code Generation") || !strings.Contains(got, "Read URL") {
		t.Errorf("expected tool titles, got:\n%s", got)
	}
	if strings.Contains(got, "Web Search") {
		t.Error("web search should not register without a key")
	}
	if !strings.Contains(got, "Unknown command /frobnicate") {
		t.Error("expected unknown command notice")
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default()
	registry := newRegistry(cfg)

	if _, err := newProvider(cfg, registry); err != nil {
		t.Fatalf("stub provider: %v", err)
	}

	cfg.Provider = "openai"
	cfg.LLM.APIKey = ""
	if _, err := newProvider(cfg, registry); err == nil {
		t.Error("expected error for openai without key")
	}
	cfg.LLM.APIKey = "sk-test"
	if _, err := newProvider(cfg, registry); err != nil {
		t.Errorf("openai provider: %v", err)
	}

	cfg.Provider = "carrier-pigeon"
	if _, err := newProvider(cfg, registry); err == nil {
		t.Error("expected error for unknown provider")
	}
}
