// File: internal/perception/capturer.go
package perception

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/idofrizler/phone-buddy/internal/config"
)

// Screen is the slice of device capability perception needs.
type Screen interface {
	DumpUIHierarchy(ctx context.Context) (string, error)
	ForegroundPackage(ctx context.Context) (string, error)
}

// Capturer produces fresh snapshots from a live device.
type Capturer struct {
	screen Screen
	cfg    config.PerceptionConfig
	logger *zap.Logger
}

func NewCapturer(screen Screen, cfg config.PerceptionConfig, logger *zap.Logger) *Capturer {
	return &Capturer{
		screen: screen,
		cfg:    cfg,
		logger: logger.Named("perception"),
	}
}

// Capture dumps the current hierarchy and flattens it. The foreground
// package is read first so the snapshot reflects one coherent moment as
// closely as the transport allows.
func (c *Capturer) Capture(ctx context.Context) (*Snapshot, error) {
	pkg, err := c.screen.ForegroundPackage(ctx)
	if err != nil {
		c.logger.Warn("Could not determine foreground package", zap.Error(err))
		pkg = "unknown"
	}

	xml, err := c.screen.DumpUIHierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing UI hierarchy: %w", err)
	}

	snap, err := ParseSnapshot(xml, pkg)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Captured snapshot",
		zap.String("package", snap.Package),
		zap.Int("elements", len(snap.Elements)))
	return snap, nil
}

// SummaryCap returns the configured element cap for screen summaries.
func (c *Capturer) SummaryCap() int { return c.cfg.MaxSummaryElements }
