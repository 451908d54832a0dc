// File: internal/adb/driver.go
package adb

import (
	"context"
	"time"
)

// KeyCode identifies an Android key event.
type KeyCode int

const (
	KeyHome KeyCode = 3
	KeyBack KeyCode = 4
	KeyDel  KeyCode = 67
	// KeyMoveEnd places the cursor at the end of the focused field, so a
	// following run of KeyDel events clears it.
	KeyMoveEnd KeyCode = 123
)

// Driver is the low-level device debug channel. Implementations are not
// required to be safe for concurrent use; the ConnectionManager serializes
// access to the channel.
type Driver interface {
	// Connect establishes the session with the device at the given address.
	Connect(ctx context.Context, address string) error
	// Disconnect tears the session down.
	Disconnect(ctx context.Context) error
	// Ping verifies the session is still alive.
	Ping(ctx context.Context) error

	// Shell runs a shell command on the device and returns its output.
	Shell(ctx context.Context, args ...string) (string, error)
	// DumpUIHierarchy returns the current accessibility hierarchy as XML.
	DumpUIHierarchy(ctx context.Context) (string, error)
	// ForegroundPackage reports the package id of the focused application.
	ForegroundPackage(ctx context.Context) (string, error)
	// ScreenSize reports the display dimensions in pixels.
	ScreenSize(ctx context.Context) (width, height int, err error)

	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	SendKeyEvent(ctx context.Context, codes ...KeyCode) error
	InputText(ctx context.Context, text string) error
	// ClearText empties the focused editable field.
	ClearText(ctx context.Context) error

	// ListPackages returns installed package ids. Display labels are not
	// available over the shell channel; the app catalog derives them.
	ListPackages(ctx context.Context, thirdPartyOnly bool) ([]string, error)
	// PackagePath reports the on-device path of the package's base APK.
	PackagePath(ctx context.Context, packageID string) (string, error)
	// Pull copies a file from the device to the local filesystem.
	Pull(ctx context.Context, remotePath, localPath string) error
	// Launch fires the foreground-launch intent for the package.
	Launch(ctx context.Context, packageID string) error
}
