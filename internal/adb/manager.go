// File: internal/adb/manager.go
package adb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// State describes the lifecycle of the managed connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Manager serializes all device traffic through a single Driver and
// transparently re-establishes the wireless session when it drops. Wireless
// adb links die routinely (screen off, wifi roam), so every operation runs
// through a connection check and failed operations mark the session for
// reconnection instead of surfacing raw transport errors to callers.
type Manager struct {
	driver  Driver
	cfg     config.DeviceConfig
	address string
	logger  *zap.Logger

	mu    sync.Mutex
	state State

	stopOnce  sync.Once
	stopCh    chan struct{}
	keepAlive sync.WaitGroup
}

// NewManager wraps the driver for the configured device address.
func NewManager(driver Driver, cfg config.DeviceConfig, logger *zap.Logger) *Manager {
	return &Manager{
		driver:  driver,
		cfg:     cfg,
		address: fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		logger:  logger.Named("conn"),
		state:   StateDisconnected,
		stopCh:  make(chan struct{}),
	}
}

// Address returns the host:port target the manager connects to.
func (m *Manager) Address() string { return m.address }

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the initial session and starts the keep-alive
// watchdog. It blocks until the device answers or ConnectTimeout expires.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateConnected {
		return nil
	}
	m.state = StateConnecting
	if err := m.connectLocked(ctx); err != nil {
		m.state = StateDisconnected
		return err
	}
	m.state = StateConnected

	if m.cfg.KeepAliveInterval > 0 {
		m.keepAlive.Add(1)
		go m.keepAliveLoop()
	}
	return nil
}

// connectLocked retries the raw connect with exponential backoff until the
// connect timeout elapses. The mutex must be held.
func (m *Manager) connectLocked(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = m.cfg.MaxReconnectWait
	policy.MaxElapsedTime = m.cfg.ConnectTimeout

	attempt := 0
	op := func() error {
		attempt++
		err := m.driver.Connect(ctx, m.address)
		if err != nil {
			m.logger.Warn("Connect attempt failed",
				zap.Int("attempt", attempt),
				zap.String("address", m.address),
				zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return &ConnectionError{Address: m.address, Cause: err}
	}
	return nil
}

// Close stops the watchdog and tears down the session.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.keepAlive.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisconnected {
		return nil
	}
	m.state = StateDisconnected
	return m.driver.Disconnect(ctx)
}

func (m *Manager) keepAliveLoop() {
	defer m.keepAlive.Done()
	ticker := time.NewTicker(m.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CommandTimeout)
			m.mu.Lock()
			if m.state == StateConnected {
				if err := m.driver.Ping(ctx); err != nil {
					m.logger.Warn("Keep-alive ping failed, marking for reconnect", zap.Error(err))
					m.state = StateReconnecting
				}
			}
			m.mu.Unlock()
			cancel()
		}
	}
}

// withDevice runs a device operation under the manager's lock, reconnecting
// first if the session is down and demoting the state again if the
// operation fails with a transport error.
func (m *Manager) withDevice(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureConnectedLocked(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if isConnectionLoss(err) {
			m.logger.Warn("Operation hit a dead transport",
				zap.String("op", op), zap.Error(err))
			m.state = StateReconnecting
		}
		return err
	}
	return nil
}

func (m *Manager) ensureConnectedLocked(ctx context.Context) error {
	switch m.state {
	case StateConnected:
		return nil
	case StateDisconnected:
		return &ConnectionError{Address: m.address, Cause: errors.New("manager not started")}
	}

	m.logger.Info("Reconnecting to device", zap.String("address", m.address))
	if err := m.connectLocked(ctx); err != nil {
		return err
	}
	m.state = StateConnected
	return nil
}

// isConnectionLoss reports whether an operation error indicates the
// transport itself is gone rather than the command failing.
func isConnectionLoss(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		msg := strings.ToLower(opErr.Error())
		for _, marker := range []string{"device offline", "not found", "closed", "connection reset", "no devices"} {
			if strings.Contains(msg, marker) {
				return true
			}
		}
	}
	return false
}

// Shell proxies Driver.Shell through the reconnect wrapper.
func (m *Manager) Shell(ctx context.Context, args ...string) (string, error) {
	var out string
	err := m.withDevice(ctx, "shell", func(ctx context.Context) error {
		var err error
		out, err = m.driver.Shell(ctx, args...)
		return err
	})
	return out, err
}

func (m *Manager) DumpUIHierarchy(ctx context.Context) (string, error) {
	var out string
	err := m.withDevice(ctx, "dump-hierarchy", func(ctx context.Context) error {
		var err error
		out, err = m.driver.DumpUIHierarchy(ctx)
		return err
	})
	return out, err
}

func (m *Manager) ForegroundPackage(ctx context.Context) (string, error) {
	var pkg string
	err := m.withDevice(ctx, "foreground-package", func(ctx context.Context) error {
		var err error
		pkg, err = m.driver.ForegroundPackage(ctx)
		return err
	})
	return pkg, err
}

func (m *Manager) ScreenSize(ctx context.Context) (int, int, error) {
	var w, h int
	err := m.withDevice(ctx, "screen-size", func(ctx context.Context) error {
		var err error
		w, h, err = m.driver.ScreenSize(ctx)
		return err
	})
	return w, h, err
}

func (m *Manager) Tap(ctx context.Context, x, y int) error {
	return m.withDevice(ctx, "tap", func(ctx context.Context) error {
		return m.driver.Tap(ctx, x, y)
	})
}

func (m *Manager) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	return m.withDevice(ctx, "swipe", func(ctx context.Context) error {
		return m.driver.Swipe(ctx, x1, y1, x2, y2, duration)
	})
}

func (m *Manager) SendKeyEvent(ctx context.Context, codes ...KeyCode) error {
	return m.withDevice(ctx, "keyevent", func(ctx context.Context) error {
		return m.driver.SendKeyEvent(ctx, codes...)
	})
}

func (m *Manager) InputText(ctx context.Context, text string) error {
	return m.withDevice(ctx, "input-text", func(ctx context.Context) error {
		return m.driver.InputText(ctx, text)
	})
}

func (m *Manager) ClearText(ctx context.Context) error {
	return m.withDevice(ctx, "clear-text", func(ctx context.Context) error {
		return m.driver.ClearText(ctx)
	})
}

func (m *Manager) ListPackages(ctx context.Context, thirdPartyOnly bool) ([]string, error) {
	var pkgs []string
	err := m.withDevice(ctx, "list-packages", func(ctx context.Context) error {
		var err error
		pkgs, err = m.driver.ListPackages(ctx, thirdPartyOnly)
		return err
	})
	return pkgs, err
}

func (m *Manager) PackagePath(ctx context.Context, packageID string) (string, error) {
	var path string
	err := m.withDevice(ctx, "package-path", func(ctx context.Context) error {
		var err error
		path, err = m.driver.PackagePath(ctx, packageID)
		return err
	})
	return path, err
}

func (m *Manager) Pull(ctx context.Context, remotePath, localPath string) error {
	return m.withDevice(ctx, "pull", func(ctx context.Context) error {
		return m.driver.Pull(ctx, remotePath, localPath)
	})
}

func (m *Manager) Launch(ctx context.Context, packageID string) error {
	return m.withDevice(ctx, "launch", func(ctx context.Context) error {
		return m.driver.Launch(ctx, packageID)
	})
}
