package packager

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Packager bundles the images named in a solar config into one dynamic wallpaper
type Packager interface {
	Package(ctx context.Context, configPath, outputPath string) error
}

// defaultOutput is the file wallpapper writes into its working directory
const defaultOutput = "output.heic"

// Wallpapper runs https://github.com/mczachurski/wallpapper
type Wallpapper struct {
	Binary string
}

// Package runs wallpapper next to the config (image paths in it are relative)
// and moves the bundle to outputPath. Relative outputPath is resolved against the config directory.
func (w *Wallpapper) Package(ctx context.Context, configPath, outputPath string) error {
	dir := filepath.Dir(configPath)
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(dir, outputPath)
	}

	cmd := exec.CommandContext(ctx, w.binary(), w.buildArgs(configPath)...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("wallpapper error: %v, output: %s", err, strings.TrimSpace(string(out)))
	}

	produced := filepath.Join(dir, defaultOutput)
	if produced == outputPath {
		return nil
	}
	if err := os.Rename(produced, outputPath); err != nil {
		return fmt.Errorf("move %s: %w", defaultOutput, err)
	}
	return nil
}

func (w *Wallpapper) buildArgs(configPath string) []string {
	return []string{"-i", filepath.Base(configPath)}
}

func (w *Wallpapper) binary() string {
	if w.Binary == "" {
		return "wallpapper"
	}
	return w.Binary
}
