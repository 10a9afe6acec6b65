package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	ctxengine "github.com/user/artifactchat/internal/context"
	"github.com/user/artifactchat/internal/types"
	"github.com/user/artifactchat/pkg/llm"
)

// ErrProviderFailure marks a reply that could not be produced.
var ErrProviderFailure = errors.New("response provider failure")

// maxToolResult bounds a tool result fed back to the model.
const maxToolResult = 2000

// Runtime is the model-backed response provider. It runs the tool loop
// for one user turn and folds create_artifact calls into the reply.
type Runtime struct {
	provider  llm.Provider
	engine    *ctxengine.Engine
	registry  *Registry
	maxRounds int
}

var _ types.ResponseProvider = (*Runtime)(nil)

// New creates a Runtime with the given dependencies.
func New(provider llm.Provider, engine *ctxengine.Engine, registry *Registry, maxRounds int) *Runtime {
	if maxRounds <= 0 {
		maxRounds = 1
	}
	return &Runtime{
		provider:  provider,
		engine:    engine,
		registry:  registry,
		maxRounds: maxRounds,
	}
}

// Respond executes the turn loop for a single reply.
func (rt *Runtime) Respond(ctx context.Context, req types.ReplyRequest) (*types.Message, error) {
	history := req.History
	if len(history) == 0 {
		history = []types.Message{types.NewMessage(types.SenderUser, req.Utterance, nil, "")}
	}
	messages := rt.engine.BuildPrompt(history, rt.registry.Names())
	tools := rt.registry.AsLLMTools()

	var (
		artifacts []types.Artifact
		toolTitle string
	)
	for round := 0; round < rt.maxRounds; round++ {
		resp, err := rt.provider.Complete(ctx, messages, tools)
		if err != nil {
			return nil, fmt.Errorf("%w: llm call: %w", ErrProviderFailure, err)
		}

		if len(resp.ToolCalls) == 0 {
			msg := types.NewMessage(types.SenderAssistant, resp.Content, artifacts, toolTitle)
			slog.Debug("reply ready", "message_id", req.MessageID, "rounds", round+1, "artifacts", len(artifacts))
			return &msg, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result, art, title := rt.execute(ctx, tc)
			if art != nil {
				artifacts = append(artifacts, *art)
			}
			if title != "" {
				toolTitle = title
			}
			messages = append(messages, llm.ToolResult(tc.ID, result))
		}
	}

	return nil, fmt.Errorf("%w: max tool rounds (%d) exceeded", ErrProviderFailure, rt.maxRounds)
}

// execute runs one tool call. It returns the result for the model, the
// artifact the call produced if any, and the tool's title.
func (rt *Runtime) execute(ctx context.Context, tc llm.ToolCall) (string, *types.Artifact, string) {
	tool, ok := rt.registry.Get(tc.Function.Name)
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", tc.Function.Name), nil, ""
	}
	args := json.RawMessage(tc.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	if at, ok := tool.(ArtifactTool); ok {
		art, err := at.BuildArtifact(args)
		if err != nil {
			return fmt.Sprintf("error: %v", err), nil, ""
		}
		return fmt.Sprintf("created %s artifact %q", art.Type, art.Title), &art, tool.Title()
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		slog.Warn("tool failed", "tool", tc.Function.Name, "error", err)
		result = fmt.Sprintf("error: %v", err)
	}
	if len(result) > maxToolResult {
		result = result[:maxToolResult] + "\n[truncated]"
	}
	return result, nil, tool.Title()
}
