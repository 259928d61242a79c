package display

import (
	"math"
	"testing"
)

func TestUSD(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "$0.00"},
		{150.04, "$150.04"},
		{1000, "$1,000.00"},
		{1234567.891, "$1,234,567.89"},
		{-0.001, "$0.00"},
		{-1500, "$-1,500.00"},
	}
	for _, tt := range tests {
		if got := USD(tt.input); got != tt.want {
			t.Errorf("USD(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAmount(t *testing.T) {
	if got := Amount(1, "SOL"); got != "1.00 SOL" {
		t.Errorf("Amount(1, SOL) = %q", got)
	}
	if got := Amount(2, "SONIC"); got != "2.00 SONIC" {
		t.Errorf("Amount(2, SONIC) = %q", got)
	}
	if got := Amount(12345.678, "SONIC"); got != "12,345.68 SONIC" {
		t.Errorf("Amount(12345.678, SONIC) = %q", got)
	}
}

func TestFixedNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := Fixed(v, 2); got != Unavailable {
			t.Errorf("Fixed(%v) = %q, want %q", v, got, Unavailable)
		}
	}
	if got := Percent(math.Inf(1)); got != Unavailable+"%" {
		t.Errorf("Percent(+Inf) = %q", got)
	}
}

func TestCompact(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{999.5, "999.50"},
		{1500, "1.5K"},
		{1000000, "1.00M"},
		{123456789, "123.46M"},
	}
	for _, tt := range tests {
		if got := Compact(tt.input); got != tt.want {
			t.Errorf("Compact(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAddCommas(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "0"},
		{"100", "100"},
		{"1000", "1,000"},
		{"123456", "123,456"},
		{"1234567", "1,234,567"},
		{"1000.50", "1,000.50"},
		{"12345678.99", "12,345,678.99"},
	}
	for _, tt := range tests {
		if got := addCommas(tt.input); got != tt.want {
			t.Errorf("addCommas(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDepositLabel(t *testing.T) {
	tests := []struct {
		connected, processing, full bool
		want                        string
	}{
		{false, false, false, LabelConnect},
		{false, true, true, LabelConnect},
		{true, true, true, LabelProcessing},
		{true, false, true, LabelVaultFull},
		{true, false, false, LabelDeposit},
	}
	for _, tt := range tests {
		if got := DepositLabel(tt.connected, tt.processing, tt.full); got != tt.want {
			t.Errorf("DepositLabel(%v,%v,%v) = %q, want %q", tt.connected, tt.processing, tt.full, got, tt.want)
		}
	}
}
