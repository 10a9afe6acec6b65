package runtime

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/user/artifactchat/internal/types"
)

func seeded(seed uint64) StubOption {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

func TestPickArtifactsKeywordRules(t *testing.T) {
	cases := []struct {
		in    string
		want  types.ArtifactType
		title string
	}{
		{"Write some CODE please", types.ArtifactCode, "Generated Component"},
		{"a React component", types.ArtifactCode, "Generated Component"},
		{"show me a chart", types.ArtifactChart, "Data Visualization"},
		{"plot a Graph", types.ArtifactChart, "Data Visualization"},
		{"draft a document", types.ArtifactDocument, "Generated Document"},
		{"write a poem", types.ArtifactDocument, "Generated Document"},
		{"write code for a chart", types.ArtifactCode, "Generated Component"},
	}
	for _, tc := range cases {
		arts := PickArtifacts(tc.in)
		if len(arts) != 1 {
			t.Fatalf("%q: expected one artifact, got %d", tc.in, len(arts))
		}
		if arts[0].Type != tc.want || arts[0].Title != tc.title {
			t.Errorf("%q: expected %s %q, got %s %q", tc.in, tc.want, tc.title, arts[0].Type, arts[0].Title)
		}
	}

	if arts := PickArtifacts("hello there"); len(arts) != 0 {
		t.Errorf("expected no artifacts, got %d", len(arts))
	}
}

func TestPickArtifactsPayloads(t *testing.T) {
	code := PickArtifacts("code")[0]
	if code.Language != "tsx" || code.Framework != "React" {
		t.Errorf("unexpected code artifact %+v", code)
	}
	if !strings.Contains(code.Content, `request: "code"`) {
		t.Errorf("expected utterance in generated code, got %q", code.Content)
	}

	chart := PickArtifacts("chart")[0]
	if string(chart.Data) != `{"type":"line","values":[5,10,15,20,25]}` {
		t.Errorf("unexpected chart data %s", chart.Data)
	}
	if chart.Content != "" {
		t.Errorf("chart must not carry content, got %q", chart.Content)
	}

	doc := PickArtifacts("document")[0]
	if !strings.HasPrefix(doc.Content, "# Generated Document") {
		t.Errorf("unexpected document content %q", doc.Content)
	}
}

func TestStubReplyPools(t *testing.T) {
	s := NewStub(WithLatency(0), seeded(1))
	for range 20 {
		msg, err := s.Respond(context.Background(), types.ReplyRequest{Utterance: "make a chart"})
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Contains(artifactReplies, msg.Content) {
			t.Errorf("artifact reply %q not from pool A", msg.Content)
		}
		if msg.Kind != types.KindArtifact || msg.ToolName != "" {
			t.Errorf("expected artifact kind without tool, got %s %q", msg.Kind, msg.ToolName)
		}

		msg, err = s.Respond(context.Background(), types.ReplyRequest{Utterance: "hello"})
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Contains(plainReplies, msg.Content) {
			t.Errorf("plain reply %q not from pool B", msg.Content)
		}
		if msg.Sender != types.SenderAssistant {
			t.Errorf("expected assistant sender, got %s", msg.Sender)
		}
	}
}

func TestStubToolTagging(t *testing.T) {
	always := NewStub(WithLatency(0), WithToolProbability(1), seeded(2))
	msg, _ := always.Respond(context.Background(), types.ReplyRequest{Utterance: "hi"})
	if msg.Kind != types.KindTool || msg.ToolName != StubToolName {
		t.Errorf("expected tool reply, got %s %q", msg.Kind, msg.ToolName)
	}

	never := NewStub(WithLatency(0), WithToolProbability(0), seeded(3))
	msg, _ = never.Respond(context.Background(), types.ReplyRequest{Utterance: "hi"})
	if msg.Kind != types.KindText || msg.ToolName != "" {
		t.Errorf("expected text reply, got %s %q", msg.Kind, msg.ToolName)
	}

	s := NewStub(WithLatency(0), seeded(4))
	tagged := 0
	const n = 2000
	for range n {
		msg, _ := s.Respond(context.Background(), types.ReplyRequest{Utterance: "hi"})
		if msg.Kind == types.KindTool {
			tagged++
		}
	}
	if ratio := float64(tagged) / n; ratio < 0.25 || ratio > 0.35 {
		t.Errorf("expected about 30%% tool replies, got %.2f", ratio)
	}
}

func TestStubLatencyAndCancel(t *testing.T) {
	s := NewStub(WithLatency(30 * time.Millisecond))
	start := time.Now()
	if _, err := s.Respond(context.Background(), types.ReplyRequest{Utterance: "hi"}); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("reply arrived before the configured latency")
	}

	slow := NewStub(WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg, err := slow.Respond(ctx, types.ReplyRequest{Utterance: "hi"})
	if !errors.Is(err, context.Canceled) || msg != nil {
		t.Errorf("expected cancellation, got %v %v", msg, err)
	}
}

func TestStubDefaults(t *testing.T) {
	s := NewStub()
	if s.latency != 1500*time.Millisecond {
		t.Errorf("expected 1.5s latency, got %v", s.latency)
	}
	if s.toolProbability != 0.3 {
		t.Errorf("expected tool probability 0.3, got %v", s.toolProbability)
	}
}
