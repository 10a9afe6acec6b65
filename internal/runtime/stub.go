package runtime

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/user/artifactchat/internal/types"
)

// StubToolName is the tool badge the stub puts on tool-tagged replies.
const StubToolName = "Code Generation"

const (
	defaultStubLatency     = 1500 * time.Millisecond
	defaultToolProbability = 0.3
)

// Reply pools. artifactReplies accompany a generated artifact, plainReplies
// are used otherwise.
var (
	artifactReplies = []string{
		"I've generated the requested artifact for you. You can view, copy, and download the content using the controls above.",
		"Here's what I've created based on your request. The artifact includes all the functionality you asked for.",
		"Perfect! I've generated the artifact with the specifications you provided. Feel free to modify or extend it as needed.",
	}
	plainReplies = []string{
		"I understand you'd like me to help with that. Let me process your request and generate the appropriate response.",
		"Great question! I'll use my available tools to provide you with a comprehensive answer.",
		"I can help you with that. Let me analyze your request and create the necessary artifacts.",
	}
)

// Stub is the offline response provider. It answers after a fixed latency
// with a canned reply and at most one keyword-selected artifact.
type Stub struct {
	mu              sync.Mutex
	rng             *rand.Rand
	latency         time.Duration
	toolProbability float64
}

var _ types.ResponseProvider = (*Stub)(nil)

// StubOption configures a Stub.
type StubOption func(*Stub)

// WithLatency sets the reply delay. Zero answers immediately.
func WithLatency(d time.Duration) StubOption {
	return func(s *Stub) { s.latency = d }
}

// WithToolProbability sets the chance that an artifact-free reply is
// tool-tagged.
func WithToolProbability(p float64) StubOption {
	return func(s *Stub) { s.toolProbability = p }
}

// WithRand supplies the random source, mainly for tests.
func WithRand(r *rand.Rand) StubOption {
	return func(s *Stub) { s.rng = r }
}

// NewStub creates a stub provider with a 1.5s latency and a 0.3 tool
// probability unless opts say otherwise.
func NewStub(opts ...StubOption) *Stub {
	s := &Stub{
		rng:             rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		latency:         defaultStubLatency,
		toolProbability: defaultToolProbability,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Respond waits out the latency and returns the reply. A cancelled ctx
// returns ctx.Err() and no message.
func (s *Stub) Respond(ctx context.Context, req types.ReplyRequest) (*types.Message, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifacts := PickArtifacts(req.Utterance)

	s.mu.Lock()
	var content, toolName string
	if len(artifacts) > 0 {
		content = artifactReplies[s.rng.IntN(len(artifactReplies))]
	} else {
		content = plainReplies[s.rng.IntN(len(plainReplies))]
		if s.rng.Float64() < s.toolProbability {
			toolName = StubToolName
		}
	}
	s.mu.Unlock()

	msg := types.NewMessage(types.SenderAssistant, content, artifacts, toolName)
	return &msg, nil
}

// PickArtifacts applies the keyword rules to an utterance. Rules are
// checked in order, case-insensitively, and the first match wins.
func PickArtifacts(utterance string) []types.Artifact {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "code") || strings.Contains(lower, "component"):
		a := types.NewCodeArtifact("Generated Component", generatedComponent(utterance), "tsx")
		a.Framework = "React"
		return []types.Artifact{a}
	case strings.Contains(lower, "chart") || strings.Contains(lower, "graph"):
		data, _ := json.Marshal(map[string]any{"type": "line", "values": []int{5, 10, 15, 20, 25}})
		return []types.Artifact{types.NewChartArtifact("Data Visualization", data)}
	case strings.Contains(lower, "document") || strings.Contains(lower, "write"):
		return []types.Artifact{types.NewDocumentArtifact("Generated Document", generatedDocument(utterance))}
	}
	return nil
}

func generatedComponent(utterance string) string {
	return `// Generated based on your request
import React from 'react'

export default function GeneratedComponent() {
  return (
    <div className="p-6 bg-card rounded-lg">
      <h2 className="text-xl font-semibold mb-4">Your Component</h2>
      <p className="text-muted-foreground">
        This component was generated based on your request: "` + utterance + `"
      </p>
    </div>
  )
}`
}

func generatedDocument(utterance string) string {
	return `# Generated Document

Based on your request: "` + utterance + `"

## Overview
This document was automatically generated to address your needs.

## Key Points
- Comprehensive analysis
- Detailed explanations
- Actionable insights

## Conclusion
The generated content provides a solid foundation for your project.`
}
