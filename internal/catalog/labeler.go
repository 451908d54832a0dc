// File: internal/catalog/labeler.go
package catalog

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Labeler resolves the human display label for an installed package.
type Labeler interface {
	Label(ctx context.Context, packageID string) (string, error)
}

// ApkSource fetches APKs off the device for local inspection.
type ApkSource interface {
	PackagePath(ctx context.Context, packageID string) (string, error)
	Pull(ctx context.Context, remotePath, localPath string) error
}

// AaptLabeler reads display labels out of APK badging: the package's base
// APK is pulled to a temp file and fed through the host aapt tool.
type AaptLabeler struct {
	source   ApkSource
	aaptPath string
	logger   *zap.Logger
}

// NewAaptLabeler locates aapt on the host PATH. Callers should treat a
// lookup failure as non-fatal; the catalog still works without labels.
func NewAaptLabeler(source ApkSource, logger *zap.Logger) (*AaptLabeler, error) {
	path, err := exec.LookPath("aapt")
	if err != nil {
		return nil, fmt.Errorf("aapt not found on PATH: %w", err)
	}
	return &AaptLabeler{
		source:   source,
		aaptPath: path,
		logger:   logger.Named("labeler"),
	}, nil
}

func (l *AaptLabeler) Label(ctx context.Context, packageID string) (string, error) {
	apkPath, err := l.source.PackagePath(ctx, packageID)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "phone-buddy-*.apk")
	if err != nil {
		return "", fmt.Errorf("creating temp apk: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := l.source.Pull(ctx, apkPath, tmpPath); err != nil {
		return "", err
	}

	out, err := exec.CommandContext(ctx, l.aaptPath, "dump", "badging", tmpPath).Output()
	if err != nil {
		return "", fmt.Errorf("aapt dump badging %s: %w", packageID, err)
	}

	label := parseBadgingLabel(string(out))
	if label == "" {
		return "", fmt.Errorf("no application-label in badging for %s", packageID)
	}
	return label, nil
}

// parseBadgingLabel extracts the default label from aapt badging output,
// e.g. `application-label:'Spotify'`. Locale-specific variants like
// application-label-en are skipped.
func parseBadgingLabel(out string) string {
	for _, line := range strings.Split(out, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "application-label:")
		if !ok {
			continue
		}
		return strings.Trim(strings.TrimSpace(rest), `'"`)
	}
	return ""
}
