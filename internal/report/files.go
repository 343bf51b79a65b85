package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteFiles persists the run's history files: a markdown report and a
// structured JSON twin, named after the run id. Returns both paths.
func WriteFiles(dir string, s *Summary, loc *time.Location) (mdPath, jsonPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}

	mdPath = filepath.Join(dir, s.RunID+".md")
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(s, loc)), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode summary: %w", err)
	}
	jsonPath = filepath.Join(dir, s.RunID+".json")
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}
	return mdPath, jsonPath, nil
}
