package solar

import (
	"errors"
	"math"
	"testing"
)

func TestFormulaPolicy(t *testing.T) {
	policy, err := NewFormulaPolicy(-20, nil)
	if err != nil {
		t.Fatalf("NewFormulaPolicy failed: %v", err)
	}

	tests := []struct {
		percent  float64
		expected float64
	}{
		{0, -20},
		{25, 35},
		{50, 90},
		{75, 35},
		{100, -20},
		{10, 2},
		{90, 2},
	}

	for _, tt := range tests {
		got, err := policy.AltitudeOf(tt.percent)
		if err != nil {
			t.Fatalf("AltitudeOf(%v) failed: %v", tt.percent, err)
		}
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("At %v: expected altitude %v, got %v", tt.percent, tt.expected, got)
		}
	}
}

func TestFormulaPolicyMonotonic(t *testing.T) {
	for _, night := range []float64{-90, -20, 0, 45} {
		policy, err := NewFormulaPolicy(night, nil)
		if err != nil {
			t.Fatalf("NewFormulaPolicy(%v) failed: %v", night, err)
		}

		prev, _ := policy.AltitudeOf(0)
		if prev != night {
			t.Errorf("Night %v: expected altitude(0) = %v, got %v", night, night, prev)
		}
		for p := 0.5; p <= 100; p += 0.5 {
			alt, err := policy.AltitudeOf(p)
			if err != nil {
				t.Fatalf("AltitudeOf(%v) failed: %v", p, err)
			}
			if p <= 50 && alt < prev {
				t.Errorf("Night %v: altitude decreased on rising side at %v (%v < %v)", night, p, alt, prev)
			}
			if p > 50 && alt > prev {
				t.Errorf("Night %v: altitude increased on setting side at %v (%v > %v)", night, p, alt, prev)
			}
			if alt < -90 || alt > 90 {
				t.Errorf("Night %v: altitude %v out of range at %v", night, alt, p)
			}
			prev = alt
		}
		if prev != night {
			t.Errorf("Night %v: expected altitude(100) = %v, got %v", night, night, prev)
		}
	}
}

func TestFormulaPolicyOverrides(t *testing.T) {
	policy, err := NewFormulaPolicy(-20, map[float64]float64{50: 60, 0: -30})
	if err != nil {
		t.Fatalf("NewFormulaPolicy failed: %v", err)
	}

	tests := []struct {
		percent  float64
		expected float64
	}{
		{50, 60},
		{0, -30},
		{100, -20},
		{25, 35},
	}

	for _, tt := range tests {
		got, _ := policy.AltitudeOf(tt.percent)
		if got != tt.expected {
			t.Errorf("At %v: expected altitude %v, got %v", tt.percent, tt.expected, got)
		}
	}
}

func TestFormulaPolicyInvalid(t *testing.T) {
	tests := []struct {
		name      string
		night     float64
		overrides map[float64]float64
	}{
		{"night at peak", 90, nil},
		{"night below nadir", -91, nil},
		{"night nan", math.NaN(), nil},
		{"override altitude", -20, map[float64]float64{50: 95}},
		{"override percent", -20, map[float64]float64{120: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFormulaPolicy(tt.night, tt.overrides); !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}

	policy, _ := NewFormulaPolicy(-20, nil)
	if _, err := policy.AltitudeOf(101); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for percent 101, got %v", err)
	}
}

func TestTablePolicy(t *testing.T) {
	policy, err := NewTablePolicy(map[float64]float64{10: 2, 90: 2})
	if err != nil {
		t.Fatalf("NewTablePolicy failed: %v", err)
	}

	if alt, err := policy.AltitudeOf(10); err != nil || alt != 2 {
		t.Errorf("Expected altitude 2, got %v (err %v)", alt, err)
	}

	_, err = policy.AltitudeOf(50)
	if !errors.Is(err, ErrUnmappedSample) {
		t.Errorf("Expected ErrUnmappedSample, got %v", err)
	}

	if _, err := NewTablePolicy(nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for empty table, got %v", err)
	}
	if _, err := NewTablePolicy(map[float64]float64{10: -100}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for altitude -100, got %v", err)
	}
}

func TestLegacyTable(t *testing.T) {
	table := LegacyTable()
	if len(table) != 17 {
		t.Fatalf("Expected 17 entries, got %d", len(table))
	}
	if _, err := NewTablePolicy(table); err != nil {
		t.Errorf("Legacy table should be valid: %v", err)
	}
	if table[50] != 45 {
		t.Errorf("Expected noon altitude 45, got %v", table[50])
	}
}

func TestPolicyFunc(t *testing.T) {
	policy := PolicyFunc(func(percent float64) (float64, error) {
		return percent - 50, nil
	})
	if alt, _ := policy.AltitudeOf(60); alt != 10 {
		t.Errorf("Expected 10, got %v", alt)
	}
}
