package context

import (
	"strings"
	"testing"
	"time"

	"github.com/user/artifactchat/internal/types"
	"github.com/user/artifactchat/pkg/llm"
)

func TestBuildPromptBasic(t *testing.T) {
	e := New("gpt-4", 128000, 4096)
	history := []types.Message{
		{ID: "1", Sender: types.SenderUser, Content: "hello"},
		{ID: "2", Sender: types.SenderAssistant, Content: "hi there"},
	}

	messages := e.BuildPrompt(history, nil)
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Role != llm.RoleSystem {
		t.Errorf("expected system message first, got %q", messages[0].Role)
	}
	if messages[1].Role != llm.RoleUser || messages[1].Content != "hello" {
		t.Errorf("unexpected user message %+v", messages[1])
	}
	if messages[2].Role != llm.RoleAssistant {
		t.Errorf("expected assistant message, got %q", messages[2].Role)
	}
}

func TestBuildPromptSummarisesArtifacts(t *testing.T) {
	e := New("gpt-4", 128000, 4096)
	history := []types.Message{{
		ID:        "1",
		Sender:    types.SenderAssistant,
		Content:   "Here is a chart.",
		Artifacts: []types.Artifact{{ID: "a", Type: types.ArtifactChart, Title: "Sales"}},
	}}

	messages := e.BuildPrompt(history, nil)
	if !strings.Contains(messages[1].Content, "[artifact chart: Sales]") {
		t.Errorf("expected artifact summary, got %q", messages[1].Content)
	}
}

func TestBuildPromptSkipsFailedReplies(t *testing.T) {
	e := New("gpt-4", 128000, 4096)
	history := []types.Message{
		{ID: "1", Sender: types.SenderUser, Content: "hi"},
		{ID: "2", Sender: types.SenderAssistant, Content: "Sorry", Error: "timeout"},
	}
	if got := len(e.BuildPrompt(history, nil)); got != 2 {
		t.Errorf("expected system + user only, got %d messages", got)
	}
}

func TestBuildPromptListsTools(t *testing.T) {
	e := New("gpt-4", 128000, 4096)
	e.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	sys := e.BuildPrompt(nil, []string{"create_artifact", "web_search"})[0].Content
	for _, want := range []string{"2024-01-01T00:00:00Z", "create_artifact, web_search", "code, component, chart, document, image"} {
		if !strings.Contains(sys, want) {
			t.Errorf("expected system prompt to contain %q", want)
		}
	}
}

func TestBuildPromptBudgetKeepsNewest(t *testing.T) {
	e := New("gpt-4", 600, 100)

	history := make([]types.Message, 50)
	for i := range history {
		history[i] = types.Message{Sender: types.SenderUser, Content: "This is a message that takes up tokens in the context window budget."}
	}
	history[49].Content = "newest"

	messages := e.BuildPrompt(history, nil)
	if len(messages) >= 51 {
		t.Errorf("expected truncation, got %d messages for 50 entries", len(messages))
	}
	if messages[len(messages)-1].Content != "newest" {
		t.Errorf("expected newest message last, got %q", messages[len(messages)-1].Content)
	}
}

func TestSetPromptRejectsBadTemplate(t *testing.T) {
	e := New("gpt-4", 1000, 100)
	if err := e.SetPrompt("{{.Time"); err == nil {
		t.Fatal("expected parse error")
	}
	if err := e.SetPrompt("time {{.Time}}"); err != nil {
		t.Fatal(err)
	}
	if got := e.BuildPrompt(nil, nil)[0].Content; !strings.HasPrefix(got, "time ") {
		t.Errorf("expected custom prompt, got %q", got)
	}
}
