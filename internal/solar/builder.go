package solar

import (
	"fmt"

	"github.com/ivlev/sky2wallpaper/internal/director"
)

// ErrInvalidConfiguration is shared with the planner so callers match one sentinel
var ErrInvalidConfiguration = director.ErrInvalidConfiguration

const (
	// AzimuthRising is used for percent <= 50 (sun in the east)
	AzimuthRising = 90.0
	// AzimuthSetting is used for percent > 50 (sun in the west)
	AzimuthSetting = 270.0
)

// Record is one entry of the wallpapper solar config
type Record struct {
	FileName  string  `json:"fileName"`
	Altitude  float64 `json:"altitude"`
	Azimuth   float64 `json:"azimuth"`
	IsPrimary bool    `json:"isPrimary,omitempty"`
}

// Builder turns planner samples into metadata records
type Builder struct {
	// FileName derives the image name from a percent; must be collision-free
	FileName func(percent float64) string
}

// NewBuilder creates a Builder naming records after the given capture layer
func NewBuilder(layer string) *Builder {
	return &Builder{
		FileName: func(percent float64) string {
			return director.FileName(layer, percent)
		},
	}
}

// Build creates one record per sample, in sample order. Either every record is
// built or none is returned.
func (b *Builder) Build(samples []director.SamplePoint, policy AltitudePolicy) ([]Record, error) {
	if policy == nil {
		return nil, fmt.Errorf("%w: altitude policy is not set", ErrInvalidConfiguration)
	}
	if b.FileName == nil {
		return nil, fmt.Errorf("%w: file naming is not set", ErrInvalidConfiguration)
	}
	if err := director.ValidateSamples(samples); err != nil {
		return nil, err
	}

	primary := PrimaryIndex(samples)
	records := make([]Record, len(samples))
	names := make(map[string]bool, len(samples))

	for i, s := range samples {
		alt, err := policy.AltitudeOf(s.Percent)
		if err != nil {
			return nil, fmt.Errorf("sample %v: %w", s.Percent, err)
		}
		if !validAltitude(alt) {
			return nil, fmt.Errorf("%w: altitude %v for percent %v is outside [-90, 90]", ErrInvalidConfiguration, alt, s.Percent)
		}

		name := b.FileName(s.Percent)
		if names[name] {
			return nil, fmt.Errorf("%w: file name %q is used twice", ErrInvalidConfiguration, name)
		}
		names[name] = true

		records[i] = Record{
			FileName:  name,
			Altitude:  alt,
			Azimuth:   Azimuth(s.Percent),
			IsPrimary: i == primary,
		}
	}

	return records, nil
}

// Azimuth returns the coarse east/west bucket for a percent
func Azimuth(percent float64) float64 {
	if percent <= 50 {
		return AzimuthRising
	}
	return AzimuthSetting
}

// PrimaryIndex returns the position of the lowest percent, or -1 for no samples.
// The position is computed, not assumed, so unsorted input still gets the right record.
func PrimaryIndex(samples []director.SamplePoint) int {
	idx := -1
	for i, s := range samples {
		if idx == -1 || s.Percent < samples[idx].Percent {
			idx = i
		}
	}
	return idx
}
