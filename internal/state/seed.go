package state

import (
	"encoding/json"
	"time"

	"github.com/user/artifactchat/internal/types"
)

const welcomeText = "Hello! I'm your advanced AI assistant. I can help you with code generation, " +
	"file analysis, web searches, and much more. What would you like to work on today?"

const sampleIntro = "Here's an example of what I can create for you - interactive artifacts that " +
	"showcase code, components, charts, and documents:"

const sampleCounter = `import React, { useState } from 'react'
import { Button } from '@/components/ui/button'

export default function Counter() {
  const [count, setCount] = useState(0)

  return (
    <div className="p-4">
      <h2 className="text-2xl font-bold mb-4">Counter: {count}</h2>
      <div className="space-x-2">
        <Button onClick={() => setCount(count + 1)}>
          Increment
        </Button>
        <Button variant="outline" onClick={() => setCount(0)}>
          Reset
        </Button>
      </div>
    </div>
  )
}`

// WelcomeMessages returns the greeting and the sample-artifact message a
// fresh conversation starts with.
func WelcomeMessages(now time.Time) []types.Message {
	code := types.NewCodeArtifact("React Component", sampleCounter, "tsx")
	code.ID = "sample-code"
	code.Framework = "React"

	chart := types.NewChartArtifact("Sales Dashboard", json.RawMessage(`{"type":"bar","values":[10,20,30,40]}`))
	chart.ID = "sample-chart"

	return []types.Message{
		{
			ID:        "1",
			Content:   welcomeText,
			Sender:    types.SenderAssistant,
			Timestamp: now,
			Kind:      types.KindText,
		},
		{
			ID:        "2",
			Content:   sampleIntro,
			Sender:    types.SenderAssistant,
			Timestamp: now,
			Kind:      types.KindArtifact,
			Artifacts: []types.Artifact{code, chart},
		},
	}
}
