package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/sky2wallpaper/internal/director"
)

//go:embed sample_config.yaml
var sampleConfig string

// Altitude policy names
const (
	PolicyFormula = "formula"
	PolicyTable   = "table"
)

// Capture driver names
const (
	DriverCDP  = "cdp"
	DriverExec = "exec"
)

// Config is the complete run configuration
type Config struct {
	PageURL    string `yaml:"page_url" toml:"page_url" validate:"required,url"`
	OutputDir  string `yaml:"output_dir" toml:"output_dir" validate:"required"`
	ConfigName string `yaml:"config_name" toml:"config_name" validate:"required"`

	Samples   Samples   `yaml:"samples" toml:"samples"`
	Altitude  Altitude  `yaml:"altitude" toml:"altitude"`
	Layers    Layers    `yaml:"layers" toml:"layers"`
	Capture   Capture   `yaml:"capture" toml:"capture"`
	Composite Composite `yaml:"composite" toml:"composite"`
	Package   Package   `yaml:"package" toml:"package"`
	Logging   Logging   `yaml:"logging" toml:"logging"`

	ShowStats    bool   `yaml:"show_stats" toml:"show_stats"`
	BuildVersion string `yaml:"-" toml:"-"`
}

// Samples selects the keyframe sampling policy: explicit percents, or a uniform step when Step > 0
type Samples struct {
	Percents []float64 `yaml:"percents" toml:"percents"`
	Step     float64   `yaml:"step" toml:"step" validate:"gte=0,lte=100"`
}

// Altitude selects the percent -> altitude mapping.
// Map keys are percents written as strings ("2.5") so YAML and TOML decode them alike.
type Altitude struct {
	Policy        string             `yaml:"policy" toml:"policy" validate:"oneof=formula table"`
	NightAltitude float64            `yaml:"night_altitude" toml:"night_altitude" validate:"gte=-90,lt=90"`
	Overrides     map[string]float64 `yaml:"overrides" toml:"overrides"`
	Table         map[string]float64 `yaml:"table" toml:"table"`
}

// Layers names the captured page elements; Overlay is optional
type Layers struct {
	Base    Layer  `yaml:"base" toml:"base"`
	Overlay *Layer `yaml:"overlay" toml:"overlay"`
}

// Layer is a captured page element
type Layer struct {
	Name     string `yaml:"name" toml:"name" validate:"required,excludesall=/\\"`
	Selector string `yaml:"selector" toml:"selector" validate:"required"`
}

// Capture configures the browser harness
type Capture struct {
	Driver           string   `yaml:"driver" toml:"driver" validate:"oneof=cdp exec"`
	CDPEndpoint      string   `yaml:"cdp_endpoint" toml:"cdp_endpoint" validate:"omitempty,url"`
	Command          []string `yaml:"command" toml:"command" validate:"required_if=Driver exec"`
	ProgressFunction string   `yaml:"progress_function" toml:"progress_function" validate:"required"`
	SettleMillis     int      `yaml:"settle_ms" toml:"settle_ms" validate:"gte=0"`
	TimeoutSeconds   int      `yaml:"timeout_seconds" toml:"timeout_seconds" validate:"gt=0"`
}

// Composite configures the lighten blend of the overlay onto the base layer
type Composite struct {
	Binary  string `yaml:"binary" toml:"binary" validate:"required"`
	Spread  int    `yaml:"spread" toml:"spread" validate:"gte=0"`
	Workers int    `yaml:"workers" toml:"workers" validate:"gte=0"`
	// KeepOverlay leaves the overlay images on disk after compositing
	KeepOverlay bool `yaml:"keep_overlay" toml:"keep_overlay"`
}

// Package configures the dynamic wallpaper packager
type Package struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Binary  string `yaml:"binary" toml:"binary" validate:"required"`
	Output  string `yaml:"output" toml:"output" validate:"required"`
}

// Logging configures log output
type Logging struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=console json"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		PageURL:    "http://localhost:5173/",
		OutputDir:  "images",
		ConfigName: "config.json",
		Samples: Samples{
			Percents: director.DefaultPercents(),
		},
		Altitude: Altitude{
			Policy:        PolicyFormula,
			NightAltitude: -20,
		},
		Layers: Layers{
			Base:    Layer{Name: "sky", Selector: "#sky"},
			Overlay: &Layer{Name: "stars", Selector: "#stars"},
		},
		Capture: Capture{
			Driver:           DriverCDP,
			CDPEndpoint:      "http://127.0.0.1:9222",
			ProgressFunction: "setAnimPct",
			SettleMillis:     500,
			TimeoutSeconds:   30,
		},
		Composite: Composite{
			Binary: "magick",
			Spread: 32,
		},
		Package: Package{
			Enabled: true,
			Binary:  "wallpapper",
			Output:  "sky_dynamic.heic",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// SampleConfig returns a commented sample configuration file
func SampleConfig() string {
	return sampleConfig
}

// Load reads defaults, then the file at path (if any), then .env and environment overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// .env не обязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: unsupported file type %q (use .yaml or .toml)", filepath.Ext(path))
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SKY2WALLPAPER_PAGE_URL"); v != "" {
		cfg.PageURL = v
	}
	if v := os.Getenv("SKY2WALLPAPER_CDP_ENDPOINT"); v != "" {
		cfg.Capture.CDPEndpoint = v
	}
	if v := os.Getenv("SKY2WALLPAPER_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
}

// Validate checks struct constraints and the percent keys of the altitude maps
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: %w: %s", director.ErrInvalidConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w: %v", director.ErrInvalidConfiguration, err)
	}

	if c.Capture.Driver == DriverCDP && c.Capture.CDPEndpoint == "" {
		return fmt.Errorf("config: %w: capture.cdp_endpoint is required for the cdp driver", director.ErrInvalidConfiguration)
	}
	if c.Layers.Overlay != nil && c.Layers.Overlay.Name == c.Layers.Base.Name {
		return fmt.Errorf("config: %w: overlay layer must not reuse base name %q", director.ErrInvalidConfiguration, c.Layers.Base.Name)
	}
	if _, err := c.Altitude.OverrideMap(); err != nil {
		return err
	}
	if _, err := c.Altitude.TableMap(); err != nil {
		return err
	}
	return nil
}

// OverrideMap returns the overrides keyed by percent
func (a Altitude) OverrideMap() (map[float64]float64, error) {
	return parsePercentKeys("altitude.overrides", a.Overrides)
}

// TableMap returns the table keyed by percent
func (a Altitude) TableMap() (map[float64]float64, error) {
	return parsePercentKeys("altitude.table", a.Table)
}

// PlannerLayers returns base then overlay as planner layers
func (c *Config) PlannerLayers() []director.Layer {
	layers := []director.Layer{{Name: c.Layers.Base.Name, Selector: c.Layers.Base.Selector}}
	if c.Layers.Overlay != nil {
		layers = append(layers, director.Layer{Name: c.Layers.Overlay.Name, Selector: c.Layers.Overlay.Selector})
	}
	return layers
}

// ConfigPath is the location of the solar metadata file
func (c *Config) ConfigPath() string {
	return filepath.Join(c.OutputDir, c.ConfigName)
}

func parsePercentKeys(field string, m map[string]float64) (map[float64]float64, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[float64]float64, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		pct, err := strconv.ParseFloat(strings.TrimSpace(k), 64)
		if err != nil {
			return nil, fmt.Errorf("config: %w: %s key %q is not a number", director.ErrInvalidConfiguration, field, k)
		}
		if _, dup := out[pct]; dup {
			return nil, fmt.Errorf("config: %w: %s has percent %v twice", director.ErrInvalidConfiguration, field, pct)
		}
		out[pct] = m[k]
	}
	return out, nil
}

// FormatPercentKeys converts a percent-keyed map into the string-keyed file form
func FormatPercentKeys(m map[float64]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[director.FormatPercent(k)] = v
	}
	return out
}
