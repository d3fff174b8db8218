package director

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ErrInvalidConfiguration is returned for empty, out-of-range or duplicate sample sets
var ErrInvalidConfiguration = errors.New("invalid configuration")

// PlanVersion is written into every plan file
const PlanVersion = "1.0"

// Planner decides at which animation percentages the sky is captured
type Planner struct {
	Percents []float64
	Layers   []Layer
	// RequireFullCycle rejects sets that do not contain both 0 and 100
	RequireFullCycle bool
}

// NewPlanner creates a Planner for an explicit set of percentages
func NewPlanner(percents []float64, layers ...Layer) *Planner {
	return &Planner{
		Percents:         percents,
		Layers:           layers,
		RequireFullCycle: true,
	}
}

// NewUniformPlanner creates a Planner that subdivides [0,100] with a fixed step.
// 100 is always the last sample even when step does not divide it.
func NewUniformPlanner(step float64, layers ...Layer) (*Planner, error) {
	if math.IsNaN(step) || step <= 0 || step > 100 {
		return nil, fmt.Errorf("%w: step %v must be in (0, 100]", ErrInvalidConfiguration, step)
	}

	percents := []float64{}
	for i := 0; ; i++ {
		// Умножение вместо накопления, чтобы не копить ошибку округления
		p := math.Round(float64(i)*step*1e6) / 1e6
		if p >= 100 {
			break
		}
		percents = append(percents, p)
	}
	percents = append(percents, 100)

	return NewPlanner(percents, layers...), nil
}

// DefaultPercents returns the sample set dense around sunrise and sunset
func DefaultPercents() []float64 {
	return []float64{0, 2.5, 5, 7.5, 10, 15, 20, 35, 50, 65, 80, 85, 90, 92.5, 95, 97.5, 100}
}

// DefaultLayers returns the sky layer followed by the stars overlay
func DefaultLayers() []Layer {
	return []Layer{
		{Name: "sky", Selector: "#sky"},
		{Name: "stars", Selector: "#stars"},
	}
}

// Plan validates the configured percentages and returns keyframes sorted ascending
func (p *Planner) Plan() (*Plan, error) {
	if len(p.Layers) == 0 {
		return nil, fmt.Errorf("%w: at least one layer is required", ErrInvalidConfiguration)
	}
	seenLayers := make(map[string]bool, len(p.Layers))
	for _, l := range p.Layers {
		if l.Name == "" || l.Selector == "" {
			return nil, fmt.Errorf("%w: layer needs a name and a selector", ErrInvalidConfiguration)
		}
		if seenLayers[l.Name] {
			return nil, fmt.Errorf("%w: duplicate layer %q", ErrInvalidConfiguration, l.Name)
		}
		seenLayers[l.Name] = true
	}

	samples := make([]SamplePoint, len(p.Percents))
	for i, pct := range p.Percents {
		samples[i] = SamplePoint{Percent: pct}
	}
	if err := ValidateSamples(samples); err != nil {
		return nil, err
	}

	sorted := sortSamples(samples)

	if p.RequireFullCycle {
		if err := CheckFullCycle(sorted); err != nil {
			return nil, err
		}
	}

	keyframes := make([]Keyframe, len(sorted))
	for i, s := range sorted {
		shots := make([]Shot, len(p.Layers))
		for j, l := range p.Layers {
			shots[j] = Shot{Layer: l, FileName: FileName(l.Name, s.Percent)}
		}
		keyframes[i] = Keyframe{Sample: s, Shots: shots}
	}

	return &Plan{Version: PlanVersion, Keyframes: keyframes}, nil
}

// ValidateSamples rejects empty sets, percentages outside [0,100] and duplicates.
// The order of samples is not checked.
func ValidateSamples(samples []SamplePoint) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: sample set is empty", ErrInvalidConfiguration)
	}

	seen := make(map[float64]bool, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Percent) || s.Percent < 0 || s.Percent > 100 {
			return fmt.Errorf("%w: percent %v is outside [0, 100]", ErrInvalidConfiguration, s.Percent)
		}
		if seen[s.Percent] {
			return fmt.Errorf("%w: duplicate percent %v", ErrInvalidConfiguration, s.Percent)
		}
		seen[s.Percent] = true
	}
	return nil
}

// CheckFullCycle requires an ascending sample set to start at 0 and end at 100
func CheckFullCycle(sorted []SamplePoint) error {
	if len(sorted) == 0 || sorted[0].Percent != 0 || sorted[len(sorted)-1].Percent != 100 {
		return fmt.Errorf("%w: sample set must include 0 and 100", ErrInvalidConfiguration)
	}
	return nil
}

// FileName returns the image name for a layer at a given percent, e.g. "sky-2.5.png"
func FileName(layer string, percent float64) string {
	return fmt.Sprintf("%s-%s.png", layer, FormatPercent(percent))
}

// FormatPercent renders a percent in its shortest decimal form
func FormatPercent(percent float64) string {
	if percent == 0 {
		percent = 0 // -0 -> 0
	}
	return strconv.FormatFloat(percent, 'f', -1, 64)
}

// sortSamples returns an ascending copy of samples
func sortSamples(samples []SamplePoint) []SamplePoint {
	sorted := make([]SamplePoint, len(samples))
	copy(sorted, samples)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Percent < sorted[j].Percent
	})

	return sorted
}
