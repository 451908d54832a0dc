// File: internal/brain/brain.go
package brain

import (
	"context"

	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// Engine drives one decision per step. Each step moves through a fixed
// sequence: wait for perception input, ask the backend, validate the reply,
// then either hand the action to the caller, send a corrective repair back
// to the backend, or abort once repairs are spent.
type Engine struct {
	client Client
	cfg    config.AgentConfig
	logger *zap.Logger
}

// DecideInput is everything one decision is made from.
type DecideInput struct {
	Goal          string
	AppSummary    string
	ScreenSummary string
	History       []HistoryEntry
	LastError     string
}

func NewEngine(client Client, cfg config.AgentConfig, logger *zap.Logger) *Engine {
	return &Engine{
		client: client,
		cfg:    cfg,
		logger: logger.Named("brain"),
	}
}

// Decide asks the backend for the next action. A malformed reply triggers a
// corrective exchange: the validation error goes back to the backend and it
// gets another chance, up to the configured repair budget. Repairs are an
// internal matter; callers only see the final action or a DecisionError.
// Transport failures surface as BackendError.
func (e *Engine) Decide(ctx context.Context, in DecideInput) (Action, error) {
	userPrompt := BuildUserPrompt(PromptInput{
		Goal:          in.Goal,
		AppSummary:    in.AppSummary,
		ScreenSummary: in.ScreenSummary,
		History:       in.History,
		LastError:     in.LastError,
	})

	messages := []Message{{Role: "user", Content: userPrompt}}

	var lastErr error
	attempts := e.cfg.RepairAttempts + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := e.client.Complete(ctx, Request{
			System:   SystemPrompt(),
			Messages: messages,
		})
		if err != nil {
			return Action{}, err
		}

		action, parseErr := ParseAction(raw)
		if parseErr == nil {
			if attempt > 1 {
				e.logger.Info("Backend recovered after repair",
					zap.Int("attempt", attempt),
					zap.String("action", action.Describe()))
			}
			e.logger.Debug("Decision made",
				zap.String("action", action.Describe()),
				zap.String("reasoning", action.Reasoning))
			return action, nil
		}

		lastErr = parseErr
		e.logger.Warn("Backend returned a non-conformant action",
			zap.Int("attempt", attempt),
			zap.Error(parseErr))

		// feed the model its own reply plus the correction
		messages = append(messages,
			Message{Role: "assistant", Content: raw},
			Message{Role: "user", Content: formatRepair(parseErr)},
		)
	}

	return Action{}, &DecisionError{Attempts: attempts, LastErr: lastErr}
}
