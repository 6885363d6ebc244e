package unit

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		from     string
		to       string
		category string
		want     string
	}{
		{"kg to g", "5", "kg", "g", CategoryWeight, "5000"},
		{"g to kg", "250", "g", "kg", CategoryWeight, "0.25"},
		{"mg to g", "1500", "mg", "g", CategoryWeight, "1.5"},
		{"ml to l", "500", "ml", "l", CategoryVolume, "0.5"},
		{"l to ml", "2", "l", "ml", CategoryVolume, "2000"},
		{"same unit", "7.25", "kg", "kg", CategoryWeight, "7.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(decimal.RequireFromString(tt.value), tt.from, tt.to, tt.category)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Convert(%s %s -> %s) = %s, want %s", tt.value, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	pairs := []struct {
		from, to, category string
	}{
		{"kg", "g", CategoryWeight},
		{"kg", "mg", CategoryWeight},
		{"g", "mg", CategoryWeight},
		{"l", "ml", CategoryVolume},
	}
	value := decimal.RequireFromString("3.7")
	for _, p := range pairs {
		there, err := Convert(value, p.from, p.to, p.category)
		if err != nil {
			t.Fatalf("Convert(%s -> %s) error = %v", p.from, p.to, err)
		}
		back, err := Convert(there, p.to, p.from, p.category)
		if err != nil {
			t.Fatalf("Convert(%s -> %s) error = %v", p.to, p.from, err)
		}
		if !back.Equal(value) {
			t.Errorf("round trip %s -> %s -> %s = %s, want %s", p.from, p.to, p.from, back, value)
		}
	}
}

func TestConvertErrors(t *testing.T) {
	one := decimal.NewFromInt(1)
	if _, err := Convert(one, "kg", "g", "Temperature"); err == nil {
		t.Error("expected error for unsupported category")
	}
	if _, err := Convert(one, "lb", "g", CategoryWeight); err == nil {
		t.Error("expected error for unsupported from unit")
	}
	if _, err := Convert(one, "kg", "oz", CategoryWeight); err == nil {
		t.Error("expected error for unsupported to unit")
	}
	if _, err := Convert(one, "ml", "kg", CategoryWeight); err == nil {
		t.Error("expected error for unit outside category table")
	}
}

func TestConvertAuto(t *testing.T) {
	got, err := ConvertAuto(decimal.NewFromInt(500), "g", "kg")
	if err != nil {
		t.Fatalf("ConvertAuto() error = %v", err)
	}
	if !got.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("ConvertAuto(500 g -> kg) = %s, want 0.5", got)
	}

	// Counted units pass through untouched when equal.
	got, err = ConvertAuto(decimal.NewFromInt(3), "pc", "pc")
	if err != nil {
		t.Fatalf("ConvertAuto() error = %v", err)
	}
	if !got.Equal(decimal.NewFromInt(3)) {
		t.Errorf("ConvertAuto(3 pc -> pc) = %s, want 3", got)
	}

	if _, err := ConvertAuto(decimal.NewFromInt(1), "kg", "ml"); err == nil {
		t.Error("expected error converting across categories")
	}
	if _, err := ConvertAuto(decimal.NewFromInt(1), "pc", "kg"); err == nil {
		t.Error("expected error converting counted unit to measured unit")
	}
}
