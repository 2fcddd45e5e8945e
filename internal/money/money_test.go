package money

import (
	"math"
	"testing"
)

func TestRoundToCents(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{"whole", 10, 10},
		{"two decimals", 12.34, 12.34},
		{"rounds down", 1.234, 1.23},
		{"rounds up", 1.236, 1.24},
		{"positive tie rounds up", 0.125, 0.13},
		{"negative tie rounds toward positive infinity", -0.125, -0.12},
		{"negative non-tie", -1.234, -1.23},
		{"negative zero normalized", math.Copysign(0, -1), 0},
		{"tiny negative collapses to zero", -0.001, 0},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundToCents(tt.input)
			if got != tt.want {
				t.Errorf("RoundToCents(%v) = %v, want %v", tt.input, got, tt.want)
			}
			if math.Signbit(got) && got == 0 {
				t.Errorf("RoundToCents(%v) returned -0", tt.input)
			}
		})
	}
}

func TestRoundToCentsIdempotent(t *testing.T) {
	inputs := []float64{0, 1.005, 2.675, -2.345, 19.999, -0.125, 1234.5678, -9999.995}
	for _, x := range inputs {
		once := RoundToCents(x)
		twice := RoundToCents(once)
		if once != twice {
			t.Errorf("RoundToCents not idempotent for %v: %v != %v", x, once, twice)
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"float", 12.5, 12.5},
		{"int", 7, 7},
		{"numeric string", "42.75", 42.75},
		{"padded string", "  3.5 ", 3.5},
		{"garbage string", "not a number", 0},
		{"nil", nil, 0},
		{"bool true", true, 1},
		{"bool false", false, 0},
		{"object", map[string]any{}, 0},
		{"nan float", math.NaN(), 0},
		{"infinite string", "Inf", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Coerce(tt.input); got != tt.want {
				t.Errorf("Coerce(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	if !IsZero(0) || !IsZero(0.00005) || !IsZero(-0.00005) {
		t.Error("values within epsilon should count as zero")
	}
	if IsZero(0.001) || IsZero(-0.001) {
		t.Error("values outside epsilon should not count as zero")
	}
}
