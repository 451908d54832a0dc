// File: internal/adb/exec_driver.go
package adb

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// ExecDriver drives the device through the `adb` binary. Every call targets
// the configured serial with `adb -s`, so multiple devices on the host do not
// interfere with each other.
type ExecDriver struct {
	adbPath        string
	commandTimeout time.Duration
	logger         *zap.Logger

	serial string
}

var _ Driver = (*ExecDriver)(nil)

// NewExecDriver creates a driver backed by the adb command-line tool.
func NewExecDriver(cfg config.DeviceConfig, logger *zap.Logger) *ExecDriver {
	return &ExecDriver{
		adbPath:        cfg.ADBPath,
		commandTimeout: cfg.CommandTimeout,
		logger:         logger.Named("adb"),
	}
}

// run executes a raw adb invocation (without the -s serial selector).
func (d *ExecDriver) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.adbPath, args...)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return output, fmt.Errorf("adb %s: %w (output: %s)", args[0], err, output)
	}
	return output, nil
}

// device executes an adb invocation targeted at the connected serial.
func (d *ExecDriver) device(ctx context.Context, args ...string) (string, error) {
	if d.serial == "" {
		return "", &ConnectionError{Address: "", Cause: fmt.Errorf("not connected")}
	}
	return d.run(ctx, append([]string{"-s", d.serial}, args...)...)
}

// Connect establishes the wireless session. A stale registration for the
// same address is dropped first, matching `adb connect` semantics where a
// half-dead entry reports success without a usable transport.
func (d *ExecDriver) Connect(ctx context.Context, address string) error {
	_, _ = d.run(ctx, "disconnect", address)

	out, err := d.run(ctx, "connect", address)
	if err != nil {
		return &ConnectionError{Address: address, Cause: err}
	}
	lower := strings.ToLower(out)
	if !strings.Contains(lower, "connected") || strings.Contains(lower, "cannot") || strings.Contains(lower, "failed") {
		return &ConnectionError{Address: address, Cause: fmt.Errorf("unexpected connect output: %s", out)}
	}

	d.serial = address
	if err := d.Ping(ctx); err != nil {
		d.serial = ""
		return &ConnectionError{Address: address, Cause: err}
	}
	d.logger.Info("Device connected", zap.String("address", address))
	return nil
}

func (d *ExecDriver) Disconnect(ctx context.Context) error {
	if d.serial == "" {
		return nil
	}
	_, err := d.run(ctx, "disconnect", d.serial)
	d.serial = ""
	if err != nil {
		return &OperationError{Op: "disconnect", Cause: err}
	}
	return nil
}

// Ping round-trips a trivial shell command to prove the transport is alive.
func (d *ExecDriver) Ping(ctx context.Context) error {
	out, err := d.device(ctx, "shell", "echo", "ping")
	if err != nil {
		return &OperationError{Op: "ping", Cause: err}
	}
	if !strings.Contains(out, "ping") {
		return &OperationError{Op: "ping", Cause: fmt.Errorf("unexpected output: %s", out)}
	}
	return nil
}

func (d *ExecDriver) Shell(ctx context.Context, args ...string) (string, error) {
	out, err := d.device(ctx, append([]string{"shell"}, args...)...)
	if err != nil {
		return "", &OperationError{Op: "shell " + strings.Join(args, " "), Cause: err}
	}
	return out, nil
}

// uiDumpMarker trails the XML when uiautomator writes the dump to a stream.
// The tool misspells "hierarchy" as "hierchary", so match loosely.
var uiDumpMarker = regexp.MustCompile(`UI hier\w+ dumped to:.*$`)

func (d *ExecDriver) DumpUIHierarchy(ctx context.Context) (string, error) {
	// exec-out keeps the XML off the device filesystem and avoids the
	// CR/LF mangling that `shell` applies to binary-ish output.
	out, err := d.device(ctx, "exec-out", "uiautomator", "dump", "/dev/tty")
	if err != nil {
		return "", &OperationError{Op: "dump-hierarchy", Cause: err}
	}
	xml := strings.TrimSpace(uiDumpMarker.ReplaceAllString(out, ""))
	if !strings.HasPrefix(xml, "<?xml") && !strings.HasPrefix(xml, "<hierarchy") {
		return "", &OperationError{Op: "dump-hierarchy", Cause: fmt.Errorf("no XML in dump output")}
	}
	return xml, nil
}

var (
	currentFocusRe = regexp.MustCompile(`mCurrentFocus.*?([a-zA-Z][a-zA-Z0-9_]*(?:\.[a-zA-Z][a-zA-Z0-9_]*)+)/`)
	focusedAppRe   = regexp.MustCompile(`mFocusedApp.*?([a-zA-Z][a-zA-Z0-9_]*(?:\.[a-zA-Z][a-zA-Z0-9_]*)+)/`)
)

// ForegroundPackage extracts the focused package from the window manager
// dump, preferring mCurrentFocus with mFocusedApp as the fallback.
func (d *ExecDriver) ForegroundPackage(ctx context.Context) (string, error) {
	out, err := d.Shell(ctx, "dumpsys", "window", "windows")
	if err != nil {
		return "", err
	}
	if m := currentFocusRe.FindStringSubmatch(out); m != nil {
		return m[1], nil
	}
	if m := focusedAppRe.FindStringSubmatch(out); m != nil {
		return m[1], nil
	}
	return "unknown", nil
}

var screenSizeRe = regexp.MustCompile(`(\d+)x(\d+)`)

func (d *ExecDriver) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := d.Shell(ctx, "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	m := screenSizeRe.FindStringSubmatch(out)
	if m == nil {
		return 0, 0, &OperationError{Op: "screen-size", Cause: fmt.Errorf("unparseable output: %s", out)}
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h, nil
}

func (d *ExecDriver) Tap(ctx context.Context, x, y int) error {
	_, err := d.Shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

func (d *ExecDriver) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	_, err := d.Shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1),
		strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(int(duration.Milliseconds())))
	return err
}

func (d *ExecDriver) SendKeyEvent(ctx context.Context, codes ...KeyCode) error {
	args := []string{"input", "keyevent"}
	for _, c := range codes {
		args = append(args, strconv.Itoa(int(c)))
	}
	_, err := d.Shell(ctx, args...)
	return err
}

// InputText injects text into the focused field. `input text` treats spaces
// as argument separators, so they are encoded as %s per its contract.
func (d *ExecDriver) InputText(ctx context.Context, text string) error {
	escaped := strings.NewReplacer(
		" ", "%s",
		`"`, `\"`,
		"'", `\'`,
		"&", `\&`,
		"<", `\<`,
		">", `\>`,
		"|", `\|`,
		";", `\;`,
		"(", `\(`,
		")", `\)`,
	).Replace(text)
	_, err := d.Shell(ctx, "input", "text", escaped)
	return err
}

// ClearText moves the cursor to the end of the field and deletes backwards.
// There is no dedicated clear command over the shell channel; a bounded run
// of delete events is the established workaround.
func (d *ExecDriver) ClearText(ctx context.Context) error {
	if err := d.SendKeyEvent(ctx, KeyMoveEnd); err != nil {
		return err
	}
	deletes := make([]KeyCode, 50)
	for i := range deletes {
		deletes[i] = KeyDel
	}
	return d.SendKeyEvent(ctx, deletes...)
}

func (d *ExecDriver) ListPackages(ctx context.Context, thirdPartyOnly bool) ([]string, error) {
	args := []string{"cmd", "package", "list", "packages"}
	if thirdPartyOnly {
		args = append(args, "-3")
	} else {
		args = append(args, "-s")
	}
	out, err := d.Shell(ctx, args...)
	if err != nil {
		return nil, err
	}

	var packages []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if pkg, ok := strings.CutPrefix(line, "package:"); ok && pkg != "" {
			packages = append(packages, pkg)
		}
	}
	return packages, nil
}

// PackagePath resolves the base APK path via `pm path`. Split APKs list
// several paths; the first one is the base.
func (d *ExecDriver) PackagePath(ctx context.Context, packageID string) (string, error) {
	out, err := d.Shell(ctx, "pm", "path", packageID)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if path, ok := strings.CutPrefix(strings.TrimSpace(line), "package:"); ok && path != "" {
			return path, nil
		}
	}
	return "", &OperationError{Op: "pm path " + packageID, Cause: fmt.Errorf("no package line in output: %s", out)}
}

// Pull copies a device file to the local filesystem over the sync channel.
func (d *ExecDriver) Pull(ctx context.Context, remotePath, localPath string) error {
	if _, err := d.device(ctx, "pull", remotePath, localPath); err != nil {
		return &OperationError{Op: "pull " + remotePath, Cause: err}
	}
	return nil
}

// Launch fires the launcher intent through monkey, which resolves the main
// activity without needing to know its name.
func (d *ExecDriver) Launch(ctx context.Context, packageID string) error {
	out, err := d.Shell(ctx, "monkey", "-p", packageID, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return err
	}
	if strings.Contains(out, "No activities found") || strings.Contains(out, "monkey aborted") {
		return &OperationError{Op: "launch " + packageID, Cause: fmt.Errorf("%s", out)}
	}
	return nil
}
