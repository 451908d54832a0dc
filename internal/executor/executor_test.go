// File: internal/executor/executor_test.go
package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/idofrizler/phone-buddy/internal/adb"
	"github.com/idofrizler/phone-buddy/internal/brain"
	"github.com/idofrizler/phone-buddy/internal/catalog"
	"github.com/idofrizler/phone-buddy/internal/config"
	"github.com/idofrizler/phone-buddy/internal/perception"
)

type fakeGestures struct {
	taps     [][2]int
	swipes   [][4]int
	keys     []adb.KeyCode
	typed    []string
	cleared  int
	tapErr   error
	swipeErr error
}

func (f *fakeGestures) Tap(_ context.Context, x, y int) error {
	if f.tapErr != nil {
		return f.tapErr
	}
	f.taps = append(f.taps, [2]int{x, y})
	return nil
}

func (f *fakeGestures) Swipe(_ context.Context, x1, y1, x2, y2 int, _ time.Duration) error {
	if f.swipeErr != nil {
		return f.swipeErr
	}
	f.swipes = append(f.swipes, [4]int{x1, y1, x2, y2})
	return nil
}

func (f *fakeGestures) SendKeyEvent(_ context.Context, codes ...adb.KeyCode) error {
	f.keys = append(f.keys, codes...)
	return nil
}

func (f *fakeGestures) InputText(_ context.Context, text string) error {
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakeGestures) ClearText(context.Context) error {
	f.cleared++
	return nil
}

func (f *fakeGestures) ScreenSize(context.Context) (int, int, error) { return 1080, 2400, nil }

type fakeLauncher struct {
	launched []string
	err      error
}

func (f *fakeLauncher) Launch(_ context.Context, query string) (catalog.Entry, error) {
	if f.err != nil {
		return catalog.Entry{}, f.err
	}
	f.launched = append(f.launched, query)
	return catalog.Entry{PackageID: "com.android.settings", CommonName: "Settings"}, nil
}

func snapshotWith(elements ...perception.Element) *perception.Snapshot {
	return &perception.Snapshot{Package: "com.app", Elements: elements}
}

func newTestExecutor(t *testing.T, device Device, launcher AppLauncher) *Executor {
	cfg := config.AgentConfig{SettleDelay: 0} // no sleeps in unit tests
	return New(device, launcher, cfg, zaptest.NewLogger(t))
}

func TestClickTapsElementCenter(t *testing.T) {
	device := &fakeGestures{}
	x := newTestExecutor(t, device, &fakeLauncher{})
	snap := snapshotWith(perception.Element{
		UID:    1,
		Text:   "Send",
		Bounds: perception.Rect{Left: 100, Top: 200, Right: 300, Bottom: 400},
	})

	result := x.Execute(context.Background(), brain.Action{Type: brain.ActionClick, TargetUID: 1}, snap)
	require.True(t, result.Success, result.Summary)
	require.Len(t, device.taps, 1)
	assert.Equal(t, [2]int{200, 300}, device.taps[0])
}

func TestClickStaleUID(t *testing.T) {
	device := &fakeGestures{}
	x := newTestExecutor(t, device, &fakeLauncher{})
	snap := snapshotWith() // zero elements on screen

	result := x.Execute(context.Background(), brain.Action{Type: brain.ActionClick, TargetUID: 3}, snap)
	assert.False(t, result.Success)
	assert.Equal(t, CodeStaleTarget, result.Code)

	var stale *StaleTargetError
	require.ErrorAs(t, result.Err, &stale)
	assert.Equal(t, 3, stale.UID)
	assert.Empty(t, device.taps, "a stale target must never reach the screen")
}

func TestTypeWithFocusedField(t *testing.T) {
	device := &fakeGestures{}
	x := newTestExecutor(t, device, &fakeLauncher{})
	snap := snapshotWith(perception.Element{
		UID: 1, Class: "EditText", Focused: true,
		Bounds: perception.Rect{Left: 0, Top: 0, Right: 100, Bottom: 50},
	})

	result := x.Execute(context.Background(), brain.Action{Type: brain.ActionTypeText, Text: "hello"}, snap)
	require.True(t, result.Success)
	assert.Equal(t, 1, device.cleared)
	assert.Equal(t, []string{"hello"}, device.typed)
}

func TestTypeWithoutFocusIsNoOp(t *testing.T) {
	device := &fakeGestures{}
	x := newTestExecutor(t, device, &fakeLauncher{})

	result := x.Execute(context.Background(), brain.Action{Type: brain.ActionTypeText, Text: "hello"}, snapshotWith())
	require.True(t, result.Success, "no focused field degrades to a reported no-op")
	assert.Contains(t, result.Summary, "no text field is focused")
	assert.Empty(t, device.typed)
}

func TestScrollDirections(t *testing.T) {
	cases := []struct {
		dir  brain.Direction
		want [4]int
	}{
		{brain.DirectionDown, [4]int{540, 1200, 540, 400}},
		{brain.DirectionUp, [4]int{540, 1200, 540, 2000}},
		{brain.DirectionLeft, [4]int{540, 1200, 900, 1200}},
		{brain.DirectionRight, [4]int{540, 1200, 180, 1200}},
	}
	for _, tc := range cases {
		t.Run(string(tc.dir), func(t *testing.T) {
			device := &fakeGestures{}
			x := newTestExecutor(t, device, &fakeLauncher{})

			result := x.Execute(context.Background(), brain.Action{Type: brain.ActionScroll, Direction: tc.dir}, snapshotWith())
			require.True(t, result.Success)
			require.Len(t, device.swipes, 1)
			assert.Equal(t, tc.want, device.swipes[0])
		})
	}
}

func TestOpenAppDelegatesToLauncher(t *testing.T) {
	launcher := &fakeLauncher{}
	x := newTestExecutor(t, &fakeGestures{}, launcher)

	result := x.Execute(context.Background(), brain.Action{Type: brain.ActionOpenApp, AppQuery: "settings"}, snapshotWith())
	require.True(t, result.Success)
	assert.Equal(t, []string{"settings"}, launcher.launched)
	assert.Contains(t, result.Summary, "com.android.settings")
}

func TestOpenAppNotFound(t *testing.T) {
	launcher := &fakeLauncher{err: &catalog.AppNotFoundError{Query: "flight sim"}}
	x := newTestExecutor(t, &fakeGestures{}, launcher)

	result := x.Execute(context.Background(), brain.Action{Type: brain.ActionOpenApp, AppQuery: "flight sim"}, snapshotWith())
	assert.False(t, result.Success)
	assert.Equal(t, CodeAppNotFound, result.Code)
}

func TestOpenAppLaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{err: fmt.Errorf("launching com.app: %w", errors.New("monkey aborted"))}
	x := newTestExecutor(t, &fakeGestures{}, launcher)

	result := x.Execute(context.Background(), brain.Action{Type: brain.ActionOpenApp, AppQuery: "app"}, snapshotWith())
	assert.False(t, result.Success)
	assert.Equal(t, CodeDeviceOp, result.Code)
}

func TestBackAndHomeSendKeyEvents(t *testing.T) {
	device := &fakeGestures{}
	x := newTestExecutor(t, device, &fakeLauncher{})

	require.True(t, x.Execute(context.Background(), brain.Action{Type: brain.ActionBack}, snapshotWith()).Success)
	require.True(t, x.Execute(context.Background(), brain.Action{Type: brain.ActionHome}, snapshotWith()).Success)
	assert.Equal(t, []adb.KeyCode{adb.KeyBack, adb.KeyHome}, device.keys)
}

func TestDeviceFailureReportsErrorCode(t *testing.T) {
	device := &fakeGestures{tapErr: errors.New("device offline")}
	x := newTestExecutor(t, device, &fakeLauncher{})
	snap := snapshotWith(perception.Element{
		UID: 1, Bounds: perception.Rect{Left: 0, Top: 0, Right: 10, Bottom: 10},
	})

	result := x.Execute(context.Background(), brain.Action{Type: brain.ActionClick, TargetUID: 1}, snap)
	assert.False(t, result.Success)
	assert.Equal(t, CodeDeviceOp, result.Code)
}
