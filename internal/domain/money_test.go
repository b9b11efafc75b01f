package domain

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals int32
		want     uint64
		wantErr  bool
	}{
		{"zero", "0", 2, 0, false},
		{"whole units", "100", 2, 10000, false},
		{"one decimal place", "1.5", 2, 150, false},
		{"two decimal places", "101.25", 2, 10125, false},
		{"no decimals asset", "10100", 0, 10100, false},
		{"six decimals", "1.000001", 6, 1000001, false},
		{"too precise", "1.234", 2, 0, true},
		{"negative", "-5", 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(decimal.RequireFromString(tt.input), tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ToBaseUnits(%s) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToBaseUnits(%s) unexpected error: %v", tt.input, err)
			}
			if got.Uint64() != tt.want {
				t.Errorf("ToBaseUnits(%s) = %s, want %d", tt.input, got.Dec(), tt.want)
			}
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	got := FromBaseUnits(uint256.NewInt(10125), 2)
	if !got.Equal(decimal.RequireFromString("101.25")) {
		t.Errorf("FromBaseUnits(10125, 2) = %s, want 101.25", got)
	}
	if !FromBaseUnits(nil, 2).IsZero() {
		t.Error("FromBaseUnits(nil) should be zero")
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("20100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Uint64() != 20100 {
		t.Errorf("ParseAmount = %s, want 20100", v.Dec())
	}
	if _, err := ParseAmount("-1"); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := ParseAmount("ten"); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}
