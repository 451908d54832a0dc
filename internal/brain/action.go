// File: internal/brain/action.go

// Package brain turns a task goal plus the current screen into the next
// discrete device action, using an LLM backend as the decision maker.
package brain

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ActionType enumerates everything the agent can do in one step.
type ActionType string

const (
	ActionClick    ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionScroll   ActionType = "scroll"
	ActionOpenApp  ActionType = "open_app"
	ActionBack     ActionType = "back"
	ActionHome     ActionType = "home"
	ActionWait     ActionType = "wait"
	ActionDone     ActionType = "done"
)

// Direction is a scroll direction.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Action is one decision from the reasoning backend. Exactly one variant is
// active, selected by Type; Validate enforces that the fields the variant
// needs are present and everything non-conformant is rejected outright.
type Action struct {
	Type      ActionType `json:"action"`
	TargetUID int        `json:"target_uid,omitempty"`
	Text      string     `json:"text,omitempty"`
	AppQuery  string     `json:"app_query,omitempty"`
	Direction Direction  `json:"direction,omitempty"`
	Reasoning string     `json:"reasoning"`
}

// Validate checks the action against the schema. It returns a descriptive
// error for anything malformed so the error text can be fed back to the
// backend as a correction.
func (a Action) Validate() error {
	switch a.Type {
	case ActionClick:
		if a.TargetUID < 1 {
			return fmt.Errorf("click requires a positive target_uid, got %d", a.TargetUID)
		}
	case ActionTypeText:
		if a.Text == "" {
			return fmt.Errorf("type requires a non-empty text field")
		}
	case ActionScroll:
		switch a.Direction {
		case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		default:
			return fmt.Errorf("scroll requires direction up/down/left/right, got %q", a.Direction)
		}
	case ActionOpenApp:
		if a.AppQuery == "" {
			return fmt.Errorf("open_app requires a non-empty app_query")
		}
	case ActionBack, ActionHome, ActionWait, ActionDone:
		// no parameters
	case "":
		return fmt.Errorf("missing required action field")
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// Describe renders the action for history lines and logs.
func (a Action) Describe() string {
	switch a.Type {
	case ActionClick:
		return fmt.Sprintf("click(uid=%d)", a.TargetUID)
	case ActionTypeText:
		return fmt.Sprintf("type(%q)", a.Text)
	case ActionScroll:
		return fmt.Sprintf("scroll(%s)", a.Direction)
	case ActionOpenApp:
		return fmt.Sprintf("open_app(%q)", a.AppQuery)
	default:
		return string(a.Type)
	}
}

var (
	// Backticks are written as \x60 because raw strings cannot contain them.
	fencedObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
)

// ParseAction extracts and validates an Action from a raw backend response.
// Markdown fences and surrounding prose are tolerated; a response with no
// parseable JSON object, or one that fails validation, is an error.
func ParseAction(raw string) (Action, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return Action{}, fmt.Errorf("empty response")
	}

	if m := fencedObjectRegex.FindStringSubmatch(payload); len(m) > 1 {
		payload = m[1]
	} else if !strings.HasPrefix(payload, "{") {
		// The model may wrap the object in conversational text.
		start := strings.Index(payload, "{")
		end := strings.LastIndex(payload, "}")
		if start == -1 || end <= start {
			return Action{}, fmt.Errorf("no JSON object in response")
		}
		payload = payload[start : end+1]
	}

	var action Action
	if err := json.Unmarshal([]byte(payload), &action); err != nil {
		return Action{}, fmt.Errorf("decoding action: %w", err)
	}
	if err := action.Validate(); err != nil {
		return Action{}, err
	}
	return action, nil
}
