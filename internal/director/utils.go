package director

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// GeneratePlanPath creates a timestamped plan filename inside dir
func GeneratePlanPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("plan_%s.yaml", timestamp))
}

// FindLatestPlan returns the plan_*.yaml in dir with the newest modification time.
// Entries that cannot be stat'ed, e.g. removed during the scan, are skipped.
func FindLatestPlan(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "plan_*.yaml"))
	if err != nil {
		return "", fmt.Errorf("search plans in %s: %w", dir, err)
	}

	var latest string
	var latestTime time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest, latestTime = path, info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("no plan files found in %s", dir)
	}
	return latest, nil
}
