// File: internal/brain/prompt.go
package brain

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an Android automation agent. You control a phone and complete tasks step-by-step.

## CRITICAL: Response Format
You MUST respond with ONLY valid JSON. No thinking out loud. No explanations outside JSON.

{"action": "ACTION_TYPE", "target_uid": UID_OR_OMIT, "text": "TEXT_OR_OMIT", "app_query": "APP_OR_OMIT", "direction": "DIRECTION_OR_OMIT", "reasoning": "brief reason"}

## Actions
- "click": Tap element by target_uid
- "type": Enter text (use after clicking a text field)
- "scroll": Scroll screen (direction: up/down/left/right)
- "open_app": Launch an app by name or package id
- "back"/"home": Navigation buttons
- "wait": Wait for UI to load
- "done": Task fully complete

## Key Rules

1. **Multi-step tasks**: Most tasks require MULTIPLE actions. After each action, analyze the NEW screen and continue. Only use "done" when the ENTIRE task is complete.

2. **Click strategically**: Look at the UI elements list. Find buttons/links that progress toward the goal. Use the target_uid.

3. **Don't give up early**: If you clicked something, wait for the result in the next step. Keep going until the task is done.

4. **App launches**: Use "open_app" with the app name - never try to find app icons.

## Examples

Task: "Book a court for tomorrow at 6pm"
Step 1: {"action": "click", "target_uid": 45, "reasoning": "Clicking date picker to select tomorrow"}
Step 2: {"action": "click", "target_uid": 67, "reasoning": "Selected tomorrow's date"}
Step 3: {"action": "click", "target_uid": 89, "reasoning": "Clicking 6pm time slot"}
Step 4: {"action": "click", "target_uid": 102, "reasoning": "Clicking Book/Confirm button"}
Step 5: {"action": "done", "reasoning": "Booking confirmed"}

Task: "Open Spotify"
Step 1: {"action": "open_app", "app_query": "Spotify", "reasoning": "Launching Spotify directly"}`

// repairPrompt is sent after a non-conformant response, together with the
// validation error.
const repairPrompt = "Your last response was not a valid action: %s\nRespond with ONLY a valid JSON action object. No other text."

// HistoryEntry is one prior step rendered for the prompt.
type HistoryEntry struct {
	Index   int    `json:"step"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
}

// PromptInput carries everything a decision prompt is built from.
type PromptInput struct {
	Goal          string
	AppSummary    string
	ScreenSummary string
	History       []HistoryEntry
	LastError     string
}

// BuildUserPrompt renders the per-step user message. The function is pure:
// identical input always yields byte-identical output, so decisions can be
// replayed and tested deterministically.
func BuildUserPrompt(in PromptInput) string {
	var parts []string

	parts = append(parts, "## User Goal\n"+in.Goal)

	if in.AppSummary != "" {
		parts = append(parts, "## Relevant Installed Apps\n"+in.AppSummary)
	}

	if len(in.History) > 0 {
		var b strings.Builder
		b.WriteString("## Previous Steps (JSONL, read-only)\n")
		for _, entry := range in.History {
			line, _ := json.Marshal(entry)
			b.Write(line)
			b.WriteByte('\n')
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}

	parts = append(parts, "## Current Screen\n"+in.ScreenSummary)

	if in.LastError != "" {
		parts = append(parts, "## Last Action Failed\n"+in.LastError)
	}

	return strings.Join(parts, "\n\n")
}

// SystemPrompt exposes the static instruction block.
func SystemPrompt() string { return systemPrompt }

func formatRepair(validationErr error) string {
	return fmt.Sprintf(repairPrompt, validationErr)
}
