// File: internal/catalog/cache.go
package catalog

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultLabelCachePath returns the on-disk location for the label cache.
func DefaultLabelCachePath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "phone-buddy", "app_labels.json"), nil
}

// loadLabelCache reads previously discovered display labels keyed by
// package id. A missing or corrupt cache is treated as empty; labels are an
// enhancement, never a requirement.
func loadLabelCache(path string) map[string]string {
	labels := make(map[string]string)
	if path == "" {
		return labels
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return labels
	}
	if err := json.Unmarshal(data, &labels); err != nil {
		return make(map[string]string)
	}
	return labels
}

func saveLabelCache(path string, labels map[string]string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
