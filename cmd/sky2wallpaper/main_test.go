package main

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/sky2wallpaper/internal/config"
	"github.com/ivlev/sky2wallpaper/internal/director"
	"github.com/ivlev/sky2wallpaper/internal/solar"
)

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "sky.yaml")
	content := "output_dir: " + filepath.Join(dir, "images") + "\n" + body
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigSample(t *testing.T) {
	out, err := executeCLI(t, "config", "sample")
	if err != nil {
		t.Fatalf("config sample failed: %v", err)
	}
	if !strings.Contains(out, "page_url:") || !strings.Contains(out, "altitude:") {
		t.Errorf("Unexpected sample config:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "nested", "sky.yaml")
	if _, err := executeCLI(t, "config", "sample", "--path", target); err != nil {
		t.Fatalf("config sample --path failed: %v", err)
	}
	if _, err := executeCLI(t, "config", "sample", "--path", target); err == nil {
		t.Error("Expected error when the file already exists")
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()

	good := writeTestConfig(t, dir, "samples:\n  percents: [0, 50, 100]\n")
	out, err := executeCLI(t, "--config", good, "config", "validate")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "3 кадров") {
		t.Errorf("Unexpected output: %s", out)
	}

	bad := writeTestConfig(t, dir, "samples:\n  percents: [0, 50, 50, 100]\n")
	_, err = executeCLI(t, "--config", bad, "config", "validate")
	if !errors.Is(err, director.ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestPlanAndMetadata(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "samples:\n  percents: [100, 0, 50]\n")
	imagesDir := filepath.Join(dir, "images")

	out, err := executeCLI(t, "--config", cfgPath, "plan", "--output", "auto")
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	for _, want := range []string{"sky-0.png", "stars-50.png", "yes", "270"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in plan output:\n%s", want, out)
		}
	}
	if _, err := director.FindLatestPlan(imagesDir); err != nil {
		t.Fatalf("Expected a plan file: %v", err)
	}

	for _, name := range []string{"sky-0.png", "sky-50.png", "sky-100.png"} {
		f, err := os.Create(filepath.Join(imagesDir, name))
		if err != nil {
			t.Fatal(err)
		}
		png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4)))
		f.Close()
	}

	if _, err := executeCLI(t, "--config", cfgPath, "metadata", "--plan", "latest"); err != nil {
		t.Fatalf("metadata failed: %v", err)
	}

	records, err := solar.ReadConfig(filepath.Join(imagesDir, "config.json"))
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if len(records) != 3 || records[0].FileName != "sky-0.png" || !records[0].IsPrimary {
		t.Errorf("Unexpected records: %+v", records)
	}
}

func TestRequiredTools(t *testing.T) {
	cfg := config.Default()
	cfg.Package.Enabled = false
	tools := requiredTools(cfg)
	if len(tools) != 1 || tools[0] != "magick" {
		t.Errorf("Expected [magick], got %v", tools)
	}

	cfg.Layers.Overlay = nil
	cfg.Capture.Driver = "exec"
	cfg.Capture.Command = []string{"shot-scraper", "{url}"}
	cfg.Package.Enabled = true
	tools = requiredTools(cfg)
	if strings.Join(tools, ",") != "shot-scraper,wallpapper" {
		t.Errorf("Expected [shot-scraper wallpapper], got %v", tools)
	}
}
