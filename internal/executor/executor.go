// File: internal/executor/executor.go

// Package executor maps validated actions onto concrete device gestures.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/adb"
	"github.com/idofrizler/phone-buddy/internal/brain"
	"github.com/idofrizler/phone-buddy/internal/catalog"
	"github.com/idofrizler/phone-buddy/internal/config"
	"github.com/idofrizler/phone-buddy/internal/perception"
)

// ErrorCode classifies execution failures for the step record.
type ErrorCode string

const (
	CodeStaleTarget ErrorCode = "stale_target"
	CodeAppNotFound ErrorCode = "app_not_found"
	CodeDeviceOp    ErrorCode = "device_operation"
)

// StaleTargetError reports an action that references a uid the current
// snapshot does not contain. Stale references are rejected, never remapped.
type StaleTargetError struct {
	UID      int
	Elements int
}

func (e *StaleTargetError) Error() string {
	return fmt.Sprintf("stale element target: uid %d is not on the current screen (%d elements visible)", e.UID, e.Elements)
}

// Result is the outcome of one executed action.
type Result struct {
	Success bool
	Summary string
	Code    ErrorCode
	Err     error
}

func success(summary string) Result {
	return Result{Success: true, Summary: summary}
}

func failure(code ErrorCode, err error) Result {
	return Result{Summary: err.Error(), Code: code, Err: err}
}

// Device is the gesture surface the executor drives.
type Device interface {
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	SendKeyEvent(ctx context.Context, codes ...adb.KeyCode) error
	InputText(ctx context.Context, text string) error
	ClearText(ctx context.Context) error
	ScreenSize(ctx context.Context) (int, int, error)
}

// AppLauncher resolves and starts apps by free-text query.
type AppLauncher interface {
	Launch(ctx context.Context, query string) (catalog.Entry, error)
}

// Executor performs actions against the device. It validates every
// uid-bearing action against the snapshot it was decided from before
// touching the screen.
type Executor struct {
	device   Device
	launcher AppLauncher
	cfg      config.AgentConfig
	logger   *zap.Logger

	// cached after the first lookup; physical size does not change
	screenW, screenH int
}

func New(device Device, launcher AppLauncher, cfg config.AgentConfig, logger *zap.Logger) *Executor {
	return &Executor{
		device:   device,
		launcher: launcher,
		cfg:      cfg,
		logger:   logger.Named("executor"),
	}
}

// Execute performs one action decided against the given snapshot and
// reports the outcome. Failures come back inside the Result so the loop can
// fold them into the next decision instead of dying.
func (x *Executor) Execute(ctx context.Context, action brain.Action, snap *perception.Snapshot) Result {
	x.logger.Info("Executing action", zap.String("action", action.Describe()))

	var result Result
	switch action.Type {
	case brain.ActionClick:
		result = x.click(ctx, action.TargetUID, snap)
	case brain.ActionTypeText:
		result = x.typeText(ctx, action.Text, snap)
	case brain.ActionScroll:
		result = x.scroll(ctx, action.Direction)
	case brain.ActionOpenApp:
		result = x.openApp(ctx, action.AppQuery)
	case brain.ActionBack:
		result = x.key(ctx, adb.KeyBack, "pressed back")
	case brain.ActionHome:
		result = x.key(ctx, adb.KeyHome, "pressed home")
	case brain.ActionWait:
		x.settle(ctx, x.cfg.SettleDelay)
		return success("waited for UI to settle")
	case brain.ActionDone:
		return success("task reported complete")
	default:
		// Validate() upstream makes this unreachable; guard anyway.
		return failure(CodeDeviceOp, fmt.Errorf("unsupported action type %q", action.Type))
	}

	if result.Success {
		x.settle(ctx, x.settleFor(action.Type))
	}
	return result
}

func (x *Executor) click(ctx context.Context, uid int, snap *perception.Snapshot) Result {
	el, ok := snap.Lookup(uid)
	if !ok {
		return failure(CodeStaleTarget, &StaleTargetError{UID: uid, Elements: len(snap.Elements)})
	}

	cx, cy := el.Bounds.Center()
	if err := x.device.Tap(ctx, cx, cy); err != nil {
		return failure(CodeDeviceOp, err)
	}
	return success(fmt.Sprintf("tapped %s at (%d,%d)", el.Describe(), cx, cy))
}

// typeText clears the focused field and types the new content. With no
// focused editable on screen the action degrades to a logged no-op so the
// next decision sees the problem in the step outcome rather than a crash.
func (x *Executor) typeText(ctx context.Context, text string, snap *perception.Snapshot) Result {
	el, focused := snap.FocusedEditable()
	if !focused {
		x.logger.Warn("Type requested with no focused text field")
		return success("nothing typed: no text field is focused, click one first")
	}

	if err := x.device.ClearText(ctx); err != nil {
		return failure(CodeDeviceOp, err)
	}
	if err := x.device.InputText(ctx, text); err != nil {
		return failure(CodeDeviceOp, err)
	}
	return success(fmt.Sprintf("typed %q into %s", text, el.Describe()))
}

// scroll swipes a fixed third of the screen from its center. Direction is
// where the user wants to look, so the gesture moves content the other way.
func (x *Executor) scroll(ctx context.Context, dir brain.Direction) Result {
	w, h, err := x.screenSize(ctx)
	if err != nil {
		return failure(CodeDeviceOp, err)
	}

	cx, cy := w/2, h/2
	dy, dx := h/3, w/3

	var x2, y2 int
	x1, y1 := cx, cy
	switch dir {
	case brain.DirectionDown:
		x2, y2 = cx, cy-dy
	case brain.DirectionUp:
		x2, y2 = cx, cy+dy
	case brain.DirectionLeft:
		x2, y2 = cx+dx, cy
	case brain.DirectionRight:
		x2, y2 = cx-dx, cy
	default:
		return failure(CodeDeviceOp, fmt.Errorf("unknown scroll direction %q", dir))
	}

	if err := x.device.Swipe(ctx, x1, y1, x2, y2, 300*time.Millisecond); err != nil {
		return failure(CodeDeviceOp, err)
	}
	return success(fmt.Sprintf("scrolled %s", dir))
}

func (x *Executor) openApp(ctx context.Context, query string) Result {
	entry, err := x.launcher.Launch(ctx, query)
	if err != nil {
		var notFound *catalog.AppNotFoundError
		if errors.As(err, &notFound) {
			return failure(CodeAppNotFound, err)
		}
		return failure(CodeDeviceOp, err)
	}
	return success(fmt.Sprintf("launched %s", entry))
}

func (x *Executor) key(ctx context.Context, code adb.KeyCode, summary string) Result {
	if err := x.device.SendKeyEvent(ctx, code); err != nil {
		return failure(CodeDeviceOp, err)
	}
	return success(summary)
}

func (x *Executor) screenSize(ctx context.Context) (int, int, error) {
	if x.screenW == 0 || x.screenH == 0 {
		w, h, err := x.device.ScreenSize(ctx)
		if err != nil {
			return 0, 0, err
		}
		x.screenW, x.screenH = w, h
	}
	return x.screenW, x.screenH, nil
}

// settleFor picks how long to pause after an action so the UI catches up.
// App launches get extra time for the cold-start case.
func (x *Executor) settleFor(t brain.ActionType) time.Duration {
	if t == brain.ActionOpenApp {
		return 2 * x.cfg.SettleDelay
	}
	return x.cfg.SettleDelay
}

func (x *Executor) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
