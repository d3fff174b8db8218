package solar

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnmappedSample is returned when a table policy has no altitude for a sampled percent
var ErrUnmappedSample = errors.New("unmapped sample")

const (
	// PeakAltitude is reached at percent 50 when no override applies
	PeakAltitude = 90.0
	// DefaultNightAltitude is the altitude considered fully dark
	DefaultNightAltitude = -20.0
)

// AltitudePolicy maps an animation percent to a sun altitude in degrees
type AltitudePolicy interface {
	AltitudeOf(percent float64) (float64, error)
}

// PolicyFunc adapts a plain function to AltitudePolicy
type PolicyFunc func(percent float64) (float64, error)

func (f PolicyFunc) AltitudeOf(percent float64) (float64, error) {
	return f(percent)
}

// TablePolicy looks altitudes up in a fixed table covering every sampled percent
type TablePolicy struct {
	Table map[float64]float64
}

// NewTablePolicy validates the table and wraps it in a TablePolicy
func NewTablePolicy(table map[float64]float64) (*TablePolicy, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: altitude table is empty", ErrInvalidConfiguration)
	}
	if err := validateAltitudes(table); err != nil {
		return nil, err
	}
	return &TablePolicy{Table: table}, nil
}

// LegacyTable returns the hand-tuned table used by the first generated wallpapers
func LegacyTable() map[float64]float64 {
	return map[float64]float64{
		0:    -20,
		2.5:  -14,
		5:    -8,
		7.5:  -2,
		10:   2,
		15:   7.5,
		20:   15,
		35:   30,
		50:   45,
		65:   30,
		80:   15,
		85:   7.5,
		90:   2,
		92.5: -2,
		95:   -8,
		97.5: -14,
		100:  -20,
	}
}

func (p *TablePolicy) AltitudeOf(percent float64) (float64, error) {
	alt, ok := p.Table[percent]
	if !ok {
		return 0, fmt.Errorf("%w: no altitude for percent %v", ErrUnmappedSample, percent)
	}
	return alt, nil
}

// FormulaPolicy produces a symmetric triangular profile: NightAltitude at 0 and 100,
// PeakAltitude at 50. Overrides take precedence at their exact percent.
type FormulaPolicy struct {
	NightAltitude float64
	Overrides     map[float64]float64
}

// NewFormulaPolicy validates the night altitude and the overrides
func NewFormulaPolicy(nightAltitude float64, overrides map[float64]float64) (*FormulaPolicy, error) {
	if math.IsNaN(nightAltitude) || nightAltitude < -90 || nightAltitude >= PeakAltitude {
		return nil, fmt.Errorf("%w: night altitude %v must be in [-90, 90)", ErrInvalidConfiguration, nightAltitude)
	}
	if err := validateAltitudes(overrides); err != nil {
		return nil, err
	}
	return &FormulaPolicy{NightAltitude: nightAltitude, Overrides: overrides}, nil
}

func (p *FormulaPolicy) AltitudeOf(percent float64) (float64, error) {
	if alt, ok := p.Overrides[percent]; ok {
		return alt, nil
	}
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return 0, fmt.Errorf("%w: percent %v is outside [0, 100]", ErrInvalidConfiguration, percent)
	}
	return p.formula(percent), nil
}

// formula is the override-free triangular profile
func (p *FormulaPolicy) formula(percent float64) float64 {
	// Восход: 0..50 -> ночь..пик, закат: 50..100 -> пик..ночь
	t := percent / 50
	if percent >= 50 {
		t = (100 - percent) / 50
	}
	return lerp(p.NightAltitude, PeakAltitude, t)
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func validateAltitudes(m map[float64]float64) error {
	for pct, alt := range m {
		if math.IsNaN(pct) || pct < 0 || pct > 100 {
			return fmt.Errorf("%w: percent %v is outside [0, 100]", ErrInvalidConfiguration, pct)
		}
		if !validAltitude(alt) {
			return fmt.Errorf("%w: altitude %v for percent %v is outside [-90, 90]", ErrInvalidConfiguration, alt, pct)
		}
	}
	return nil
}

func validAltitude(alt float64) bool {
	return !math.IsNaN(alt) && alt >= -90 && alt <= 90
}
