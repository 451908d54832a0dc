// File: internal/agent/loop.go
package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/brain"
	"github.com/idofrizler/phone-buddy/internal/config"
	"github.com/idofrizler/phone-buddy/internal/executor"
	"github.com/idofrizler/phone-buddy/internal/perception"
)

// Perceiver captures screen snapshots.
type Perceiver interface {
	Capture(ctx context.Context) (*perception.Snapshot, error)
	SummaryCap() int
}

// Decider produces the next action for a decision input.
type Decider interface {
	Decide(ctx context.Context, in brain.DecideInput) (brain.Action, error)
}

// Actor executes an action against the snapshot it was decided from.
type Actor interface {
	Execute(ctx context.Context, action brain.Action, snap *perception.Snapshot) executor.Result
}

// Apps supplies the installed-app context for prompts.
type Apps interface {
	Summary() string
}

// maxPerceptionFailures bounds consecutive capture failures before the task
// is declared dead; a flaky single dump is tolerated.
const maxPerceptionFailures = 3

// Loop is the control loop: perceive, decide, execute, record, repeat until
// the goal is reported done or the step budget runs out.
type Loop struct {
	perceiver Perceiver
	decider   Decider
	actor     Actor
	apps      Apps
	cfg       config.AgentConfig
	logger    *zap.Logger
}

func NewLoop(perceiver Perceiver, decider Decider, actor Actor, apps Apps, cfg config.AgentConfig, logger *zap.Logger) *Loop {
	return &Loop{
		perceiver: perceiver,
		decider:   decider,
		actor:     actor,
		apps:      apps,
		cfg:       cfg,
		logger:    logger.Named("agent"),
	}
}

// Run executes one task to completion. The returned task always carries the
// full step trail; the error is non-nil only when the run could not proceed
// at all (context cancelled, backend unreachable). Recoverable execution
// failures are folded into the next decision instead of ending the task.
func (l *Loop) Run(ctx context.Context, goal string) (*Task, error) {
	task := NewTask(goal)
	task.start()
	l.logger.Info("Task started",
		zap.String("task_id", task.ID),
		zap.String("goal", goal),
		zap.Int("step_budget", l.cfg.StepBudget))

	appSummary := l.apps.Summary()
	lastError := ""
	perceptionFailures := 0

	for len(task.Steps) < l.cfg.StepBudget {
		if err := ctx.Err(); err != nil {
			task.finish(StatusAborted, "cancelled: "+err.Error())
			return task, err
		}

		snap, err := l.perceiver.Capture(ctx)
		if err != nil {
			perceptionFailures++
			l.logger.Warn("Perception failed",
				zap.Int("consecutive", perceptionFailures), zap.Error(err))
			if perceptionFailures >= maxPerceptionFailures {
				task.finish(StatusFailed, ReasonPerceptionFailure)
				return task, err
			}
			continue
		}
		perceptionFailures = 0

		action, err := l.decider.Decide(ctx, brain.DecideInput{
			Goal:          goal,
			AppSummary:    appSummary,
			ScreenSummary: snap.Summary(l.perceiver.SummaryCap()),
			History:       task.historyWindow(l.cfg.HistoryWindow),
			LastError:     lastError,
		})
		if err != nil {
			// both are fatal for the task; aborted is reserved for
			// external cancellation
			var decisionErr *brain.DecisionError
			if errors.As(err, &decisionErr) {
				task.finish(StatusFailed, ReasonDecisionFailure)
			} else {
				task.finish(StatusFailed, ReasonBackendUnavailable)
			}
			return task, err
		}

		result := l.actor.Execute(ctx, action, snap)
		if result.Code == executor.CodeDeviceOp {
			// transport hiccups get exactly one more shot; the connection
			// manager already reconnected underneath if it could
			l.logger.Warn("Device operation failed, retrying once", zap.Error(result.Err))
			result = l.actor.Execute(ctx, action, snap)
		}
		task.record(snap, action, result)

		if result.Code == executor.CodeDeviceOp {
			task.finish(StatusFailed, ReasonDeviceFailure)
			l.logger.Error("Device operation failed twice, giving up",
				zap.String("task_id", task.ID), zap.Error(result.Err))
			return task, result.Err
		}

		l.logger.Info("Step complete",
			zap.Int("step", len(task.Steps)),
			zap.String("action", action.Describe()),
			zap.Bool("success", result.Success),
			zap.String("outcome", result.Summary))

		if action.Type == brain.ActionDone && result.Success {
			task.finish(StatusSucceeded, "")
			l.logger.Info("Task succeeded",
				zap.String("task_id", task.ID), zap.Int("steps", len(task.Steps)))
			return task, nil
		}

		// a failed step is not a failed task: the outcome feeds the next
		// decision so the backend can route around it
		if result.Success {
			lastError = ""
		} else {
			lastError = result.Summary
		}
	}

	task.finish(StatusFailed, ReasonStepBudgetExceeded)
	l.logger.Warn("Task exhausted its step budget",
		zap.String("task_id", task.ID), zap.Int("steps", len(task.Steps)))
	return task, nil
}
