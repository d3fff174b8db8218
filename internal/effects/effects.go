package effects

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Compositor blends an overlay layer onto a base layer
type Compositor interface {
	Composite(ctx context.Context, base, overlay, out string) error
}

// MagickCompositor uses ImageMagick: the base is dithered with -spread to hide
// gradient banding, then the overlay is blended in lighten mode.
type MagickCompositor struct {
	Binary string // "magick"
	Spread int    // 0 disables the dither pass
	Dir    string // working directory for relative paths
}

// NewMagickCompositor creates a compositor with the default spread radius
func NewMagickCompositor(binary string, spread int, dir string) *MagickCompositor {
	if binary == "" {
		binary = "magick"
	}
	return &MagickCompositor{Binary: binary, Spread: spread, Dir: dir}
}

func (m *MagickCompositor) Composite(ctx context.Context, base, overlay, out string) error {
	if args := m.buildSpreadArgs(base); args != nil {
		if err := m.run(ctx, args); err != nil {
			return fmt.Errorf("magick spread error: %w", err)
		}
	}

	if err := m.run(ctx, m.buildLightenArgs(base, overlay, out)); err != nil {
		return fmt.Errorf("magick composite error: %w", err)
	}
	return nil
}

// buildSpreadArgs returns nil when the dither pass is disabled
func (m *MagickCompositor) buildSpreadArgs(base string) []string {
	if m.Spread <= 0 {
		return nil
	}
	return []string{base, "-spread", strconv.Itoa(m.Spread), base}
}

func (m *MagickCompositor) buildLightenArgs(base, overlay, out string) []string {
	return []string{base, overlay, "-compose", "lighten", "-composite", out}
}

func (m *MagickCompositor) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, m.Binary, args...)
	cmd.Dir = m.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v, output: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
