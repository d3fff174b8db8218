package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/sky2wallpaper/internal/director"
	"github.com/ivlev/sky2wallpaper/internal/solar"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Altitude.Policy != PolicyFormula || cfg.Altitude.NightAltitude != -20 {
		t.Errorf("Unexpected altitude defaults: %+v", cfg.Altitude)
	}
	if len(cfg.Samples.Percents) != 17 {
		t.Errorf("Expected 17 default percents, got %d", len(cfg.Samples.Percents))
	}
	if cfg.ConfigPath() != filepath.Join("images", "config.json") {
		t.Errorf("Unexpected config path %s", cfg.ConfigPath())
	}
}

func TestSampleConfigLoads(t *testing.T) {
	path := writeFile(t, "sample.yaml", SampleConfig())

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Sample config must load: %v", err)
	}
	overrides, _ := cfg.Altitude.OverrideMap()
	if overrides[50] != 45 {
		t.Errorf("Expected override 50 -> 45, got %v", overrides)
	}
}

func TestLoadYAMLAndTOMLAgree(t *testing.T) {
	yamlPath := writeFile(t, "c.yaml", `
page_url: http://example.test/sky
output_dir: out
samples:
  percents: [0, 25, 50, 75, 100]
altitude:
  policy: table
  table:
    "0": -20
    "25": 10
    "50": 60
    "75": 10
    "100": -20
capture:
  driver: exec
  command: ["capture", "{output}"]
`)
	tomlPath := writeFile(t, "c.toml", `
page_url = "http://example.test/sky"
output_dir = "out"

[samples]
percents = [0.0, 25.0, 50.0, 75.0, 100.0]

[altitude]
policy = "table"

[altitude.table]
"0" = -20.0
"25" = 10.0
"50" = 60.0
"75" = 10.0
"100" = -20.0

[capture]
driver = "exec"
command = ["capture", "{output}"]
`)

	fromYAML, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load yaml failed: %v", err)
	}
	fromTOML, err := Load(tomlPath)
	if err != nil {
		t.Fatalf("Load toml failed: %v", err)
	}

	for _, cfg := range []*Config{fromYAML, fromTOML} {
		if cfg.PageURL != "http://example.test/sky" || cfg.OutputDir != "out" {
			t.Errorf("Unexpected paths: %s %s", cfg.PageURL, cfg.OutputDir)
		}
		table, err := cfg.Altitude.TableMap()
		if err != nil {
			t.Fatalf("TableMap failed: %v", err)
		}
		if len(table) != 5 || table[50] != 60 {
			t.Errorf("Unexpected table: %v", table)
		}
		if cfg.Capture.Driver != DriverExec || len(cfg.Capture.Command) != 2 {
			t.Errorf("Unexpected capture: %+v", cfg.Capture)
		}
		// Defaults not named in the file survive
		if cfg.Capture.SettleMillis != 500 || cfg.Layers.Base.Name != "sky" {
			t.Errorf("Defaults lost: %+v %+v", cfg.Capture, cfg.Layers)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"policy", "altitude:\n  policy: spline\n"},
		{"night", "altitude:\n  night_altitude: 95\n"},
		{"driver", "capture:\n  driver: selenium\n"},
		{"exec without command", "capture:\n  driver: exec\n"},
		{"cdp without endpoint", "capture:\n  cdp_endpoint: \"\"\n"},
		{"override key", "altitude:\n  overrides:\n    noon: 45\n"},
		{"overlay name", "layers:\n  overlay:\n    name: sky\n    selector: \"#stars\"\n"},
		{"layer path", "layers:\n  base:\n    name: ../sky\n    selector: \"#sky\"\n"},
		{"url", "page_url: not a url\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.content))
			if !errors.Is(err, director.ErrInvalidConfiguration) {
				t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := Load(writeFile(t, "c.json", "{}")); err == nil {
		t.Error("Expected error for .json config")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SKY2WALLPAPER_OUTPUT_DIR", "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OutputDir != "from-env" {
		t.Errorf("Expected output dir from env, got %s", cfg.OutputDir)
	}
}

func TestOverlayCanBeDisabled(t *testing.T) {
	cfg, err := Load(writeFile(t, "c.yaml", "layers:\n  overlay: null\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Layers.Overlay != nil {
		t.Errorf("Expected no overlay, got %+v", cfg.Layers.Overlay)
	}
	if len(cfg.PlannerLayers()) != 1 {
		t.Errorf("Expected one planner layer, got %d", len(cfg.PlannerLayers()))
	}
}

func TestPlannerAndPolicy(t *testing.T) {
	cfg := Default()
	cfg.Samples.Step = 25

	planner, err := cfg.Planner()
	if err != nil {
		t.Fatalf("Planner failed: %v", err)
	}
	plan, err := planner.Plan()
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Keyframes) != 5 {
		t.Errorf("Expected 5 keyframes, got %d", len(plan.Keyframes))
	}

	policy, err := cfg.Policy()
	if err != nil {
		t.Fatalf("Policy failed: %v", err)
	}
	if _, ok := policy.(*solar.FormulaPolicy); !ok {
		t.Errorf("Expected formula policy, got %T", policy)
	}

	cfg.Altitude.Policy = PolicyTable
	policy, err = cfg.Policy()
	if err != nil {
		t.Fatalf("Policy failed: %v", err)
	}
	if alt, err := policy.AltitudeOf(92.5); err != nil || alt != -2 {
		t.Errorf("Expected legacy table altitude -2, got %v (err %v)", alt, err)
	}
}

func TestFormatPercentKeys(t *testing.T) {
	m := FormatPercentKeys(map[float64]float64{2.5: -14, 50: 45})
	if m["2.5"] != -14 || m["50"] != 45 {
		t.Errorf("Unexpected keys: %v", m)
	}
}
