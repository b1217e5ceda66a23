package filter

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed defaults/*.stopwords
var defaultRules embed.FS

// loadDefault builds a scrubber from the embedded rule file of the given
// name, or an empty scrubber when no default ships for it.
func loadDefault(name string) *Scrubber {
	data, err := defaultRules.ReadFile("defaults/" + name)
	if err != nil {
		return New()
	}
	return parse(strings.NewReader(string(data)), "embedded:"+name)
}

// ExportDefaults writes every embedded rule file into dir, creating it if
// needed. Existing files are overwritten so the shipped defaults can be
// refreshed in place.
func ExportDefaults(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	entries, err := defaultRules.ReadDir("defaults")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		data, err := defaultRules.ReadFile("defaults/" + entry.Name())
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, entry.Name())
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}
	}

	return nil
}

// DefaultExportDir returns the per-user rule directory the export command
// targets when no directory is given.
func DefaultExportDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".loglens", "filters"), nil
}
