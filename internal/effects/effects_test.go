package effects

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	m := NewMagickCompositor("", 32, "")

	if m.Binary != "magick" {
		t.Errorf("Expected default binary magick, got %s", m.Binary)
	}

	spread := strings.Join(m.buildSpreadArgs("sky-0.png"), " ")
	if spread != "sky-0.png -spread 32 sky-0.png" {
		t.Errorf("Unexpected spread args: %s", spread)
	}

	lighten := strings.Join(m.buildLightenArgs("sky-0.png", "stars-0.png", "sky-0.png"), " ")
	if lighten != "sky-0.png stars-0.png -compose lighten -composite sky-0.png" {
		t.Errorf("Unexpected composite args: %s", lighten)
	}

	m.Spread = 0
	if args := m.buildSpreadArgs("sky-0.png"); args != nil {
		t.Errorf("Spread 0 should skip the dither pass, got %v", args)
	}
}

// fakeMagick writes a shell script that logs its arguments
func fakeMagick(t *testing.T, exitCode string) (bin, logPath string) {
	t.Helper()
	dir := t.TempDir()
	bin = filepath.Join(dir, "magick")
	logPath = filepath.Join(dir, "calls.log")
	script := "#!/bin/sh\necho \"$@\" >> " + logPath + "\nexit " + exitCode + "\n"
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return bin, logPath
}

func TestCompositeRunsBothPasses(t *testing.T) {
	bin, logPath := fakeMagick(t, "0")
	m := NewMagickCompositor(bin, 16, t.TempDir())

	if err := m.Composite(context.Background(), "sky-5.png", "stars-5.png", "sky-5.png"); err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 magick calls, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[0], "-spread 16") || !strings.Contains(lines[1], "-compose lighten") {
		t.Errorf("Unexpected call order: %q", lines)
	}
}

func TestCompositeFailure(t *testing.T) {
	bin, _ := fakeMagick(t, "1")
	m := NewMagickCompositor(bin, 0, "")

	err := m.Composite(context.Background(), "a.png", "b.png", "a.png")
	if err == nil || !strings.Contains(err.Error(), "magick composite error") {
		t.Errorf("Expected composite error, got %v", err)
	}
}
