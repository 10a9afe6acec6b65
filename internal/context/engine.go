// internal/context/engine.go
package context

import (
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/artifactchat/internal/types"
	"github.com/user/artifactchat/pkg/llm"
)

// PromptData is the data passed to the system prompt template.
type PromptData struct {
	Time      string
	Tools     string
	Artifacts string
}

// Engine assembles token-budgeted prompts for the LLM.
type Engine struct {
	tokenizer *tiktoken.Tiktoken
	prompt    *template.Template
	maxTokens int
	reserve   int
	now       func() time.Time
}

// New creates a context engine with the specified token budget.
// model selects the tokenizer; when no encoding can be loaded (unknown
// model, no network for the BPE files) tokens are estimated from length.
// maxTokens is the model's context window and reserve is held back for the
// response.
func New(model string, maxTokens, reserve int) *Engine {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Warn("tokenizer unavailable, estimating token counts", "model", model, "error", err)
			enc = nil
		}
	}
	return &Engine{
		tokenizer: enc,
		prompt:    template.Must(template.New("system").Parse(DefaultPrompt)),
		maxTokens: maxTokens,
		reserve:   reserve,
		now:       time.Now,
	}
}

// SetPrompt replaces the system prompt template.
func (e *Engine) SetPrompt(text string) error {
	tmpl, err := template.New("system").Parse(text)
	if err != nil {
		return fmt.Errorf("parse prompt template: %w", err)
	}
	e.prompt = tmpl
	return nil
}

// countTokens returns the token count for a string.
func (e *Engine) countTokens(text string) int {
	if e.tokenizer == nil {
		return (len(text) + 3) / 4
	}
	return len(e.tokenizer.Encode(text, nil, nil))
}

// BuildPrompt assembles a token-budgeted prompt from the conversation
// history. The newest messages that fit are kept and emitted oldest first.
// Failed assistant messages are left out.
func (e *Engine) BuildPrompt(history []types.Message, toolNames []string) []llm.Message {
	sysPrompt := e.systemPrompt(toolNames)
	budget := e.maxTokens - e.reserve - e.countTokens(sysPrompt)

	var picked []llm.Message
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		msg, ok := toLLMMessage(history[i])
		if !ok {
			continue
		}
		n := e.countTokens(msg.Content)
		if used+n > budget {
			break
		}
		picked = append(picked, msg)
		used += n
	}

	messages := make([]llm.Message, 0, 1+len(picked))
	messages = append(messages, llm.System(sysPrompt))
	for i := len(picked) - 1; i >= 0; i-- {
		messages = append(messages, picked[i])
	}
	return messages
}

func (e *Engine) systemPrompt(toolNames []string) string {
	kinds := make([]string, len(types.ArtifactTypes))
	for i, at := range types.ArtifactTypes {
		kinds[i] = string(at)
	}
	data := PromptData{
		Time:      e.now().Format(time.RFC3339),
		Tools:     strings.Join(toolNames, ", "),
		Artifacts: strings.Join(kinds, ", "),
	}
	var sb strings.Builder
	if err := e.prompt.Execute(&sb, data); err != nil {
		slog.Warn("system prompt template failed, using default", "error", err)
		return "You are a helpful assistant. Current time: " + data.Time + "."
	}
	return sb.String()
}

func toLLMMessage(m types.Message) (llm.Message, bool) {
	if m.Failed() {
		return llm.Message{}, false
	}
	role := llm.RoleAssistant
	if m.Sender == types.SenderUser {
		role = llm.RoleUser
	}

	var sb strings.Builder
	sb.WriteString(m.Content)
	for _, f := range m.Attachments {
		fmt.Fprintf(&sb, "\n[attachment %s]", f.Name)
	}
	for _, a := range m.Artifacts {
		fmt.Fprintf(&sb, "\n[artifact %s: %s]", a.Type, a.Title)
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return llm.Message{}, false
	}
	return llm.Message{Role: role, Content: content}, true
}
