// File: internal/agent/task.go

// Package agent runs the perceive-decide-execute loop that carries a task
// from free-text goal to completion.
package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/idofrizler/phone-buddy/internal/brain"
	"github.com/idofrizler/phone-buddy/internal/executor"
	"github.com/idofrizler/phone-buddy/internal/perception"
)

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Failure reasons recorded on the task when it does not succeed.
const (
	ReasonStepBudgetExceeded = "step budget exceeded"
	ReasonDecisionFailure    = "decision engine gave up"
	ReasonBackendUnavailable = "reasoning backend unavailable"
	ReasonPerceptionFailure  = "could not read the screen"
	ReasonDeviceFailure      = "device stopped responding"
)

// Step records one executed action: which capture it was decided against,
// what was decided, and how it went. Steps are append-only.
type Step struct {
	Index      int
	SnapshotID string // capture the decision was made against
	Package    string // foreground app at capture time
	Action     brain.Action
	Result     executor.Result
	Timestamp  time.Time
}

// Task is one invocation of the agent. It lives for the duration of the run
// and is the full audit trail of what happened.
type Task struct {
	ID        string
	Goal      string
	Steps     []Step
	Status    Status
	Reason    string // set when Status is failed or aborted
	StartedAt time.Time
	EndedAt   time.Time
}

// NewTask creates a pending task for a goal.
func NewTask(goal string) *Task {
	return &Task{
		ID:     uuid.NewString(),
		Goal:   goal,
		Status: StatusPending,
	}
}

func (t *Task) start() {
	t.Status = StatusRunning
	t.StartedAt = time.Now()
}

func (t *Task) finish(status Status, reason string) {
	t.Status = status
	t.Reason = reason
	t.EndedAt = time.Now()
}

func (t *Task) record(snap *perception.Snapshot, action brain.Action, result executor.Result) {
	t.Steps = append(t.Steps, Step{
		Index:      len(t.Steps) + 1,
		SnapshotID: snap.ID,
		Package:    snap.Package,
		Action:     action,
		Result:     result,
		Timestamp:  time.Now(),
	})
}

// historyWindow renders the last k steps for the decision prompt.
func (t *Task) historyWindow(k int) []brain.HistoryEntry {
	steps := t.Steps
	if k > 0 && len(steps) > k {
		steps = steps[len(steps)-k:]
	}

	entries := make([]brain.HistoryEntry, 0, len(steps))
	for _, step := range steps {
		outcome := step.Result.Summary
		if !step.Result.Success {
			outcome = "FAILED: " + outcome
		}
		entries = append(entries, brain.HistoryEntry{
			Index:   step.Index,
			Action:  step.Action.Describe(),
			Outcome: outcome,
		})
	}
	return entries
}
