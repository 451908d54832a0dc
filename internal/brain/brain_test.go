// File: internal/brain/brain_test.go
package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []string
	err       error
	requests  []Request
}

func (s *scriptedClient) Complete(_ context.Context, req Request) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("script exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		LLM: config.LLMConfig{
			Provider:    config.ProviderOpenAI,
			Model:       "gpt-4o-mini",
			APITimeout:  time.Minute,
			Temperature: 0.1,
			MaxTokens:   2000,
		},
		StepBudget:     20,
		HistoryWindow:  8,
		RepairAttempts: 2,
	}
}

func TestDecideReturnsValidAction(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"action": "open_app", "app_query": "Settings", "reasoning": "goal names Settings"}`,
	}}
	engine := NewEngine(client, testAgentConfig(), zaptest.NewLogger(t))

	action, err := engine.Decide(context.Background(), DecideInput{
		Goal:          "Open Settings",
		ScreenSummary: "Current App: com.android.launcher",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionOpenApp, action.Type)
	assert.Equal(t, "Settings", action.AppQuery)
}

func TestDecideRepairsMalformedResponse(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"I think we should tap the gear icon first.",
		`{"action": "click", "target_uid": 3, "reasoning": "tapping the gear icon"}`,
	}}
	engine := NewEngine(client, testAgentConfig(), zaptest.NewLogger(t))

	action, err := engine.Decide(context.Background(), DecideInput{
		Goal:          "Open wifi settings",
		ScreenSummary: "Current App: com.android.settings",
	})
	require.NoError(t, err, "a repaired decision must not surface as failure")
	assert.Equal(t, ActionClick, action.Type)
	assert.Equal(t, 3, action.TargetUID)

	// The second request must carry the bad reply and the correction.
	require.Len(t, client.requests, 2)
	second := client.requests[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "assistant", second.Messages[1].Role)
	assert.Contains(t, second.Messages[2].Content, "ONLY a valid JSON action")
}

func TestDecideAbortsAfterRepairBudget(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"nope", "still nope", "never json",
	}}
	engine := NewEngine(client, testAgentConfig(), zaptest.NewLogger(t))

	_, err := engine.Decide(context.Background(), DecideInput{Goal: "anything"})
	var decisionErr *DecisionError
	require.ErrorAs(t, err, &decisionErr)
	assert.Equal(t, 3, decisionErr.Attempts)
	assert.Len(t, client.requests, 3)
}

func TestDecidePropagatesBackendError(t *testing.T) {
	client := &scriptedClient{err: &BackendError{Provider: "openai", Cause: errors.New("timeout")}}
	engine := NewEngine(client, testAgentConfig(), zaptest.NewLogger(t))

	_, err := engine.Decide(context.Background(), DecideInput{Goal: "anything"})
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
}

func TestBuildUserPromptDeterministic(t *testing.T) {
	in := PromptInput{
		Goal:          "Send a message to Alice",
		AppSummary:    "- WhatsApp: com.whatsapp",
		ScreenSummary: "Current App: com.whatsapp\n\nInteractive Elements:\n  [1] \"Alice\" • clickable",
		History: []HistoryEntry{
			{Index: 1, Action: `open_app("WhatsApp")`, Outcome: "ok"},
		},
		LastError: "",
	}

	first := BuildUserPrompt(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildUserPrompt(in))
	}
	assert.Contains(t, first, "## User Goal")
	assert.Contains(t, first, "## Relevant Installed Apps")
	assert.Contains(t, first, "## Previous Steps")
	assert.Contains(t, first, "## Current Screen")
	assert.NotContains(t, first, "## Last Action Failed")
}

func TestBuildUserPromptIncludesLastError(t *testing.T) {
	out := BuildUserPrompt(PromptInput{
		Goal:          "anything",
		ScreenSummary: "Current App: unknown",
		LastError:     "stale element target: uid 3 is not on the current screen",
	})
	assert.Contains(t, out, "## Last Action Failed")
	assert.Contains(t, out, "stale element target")
}
