package common

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		expected string
	}{
		{"Zero", "0", "0"},
		{"Whole", "100", "100"},
		{"Thousands", "1234567", "1,234,567"},
		{"Fraction", "1500.5", "1,500.50"},
		{"Truncates", "0.129", "0.12"},
		{"Negative", "-2500", "-2,500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatAmount(decimal.RequireFromString(tt.amount))
			if result != tt.expected {
				t.Errorf("FormatAmount(%s) = %s; want %s", tt.amount, result, tt.expected)
			}
		})
	}
}

func TestShortAddress(t *testing.T) {
	tests := []struct {
		address  string
		expected string
	}{
		{"0x00000000000000000000000000000000000000aa", "0x0000…00aa"},
		{"0xabc", "0xabc"},
	}

	for _, tt := range tests {
		if result := ShortAddress(tt.address); result != tt.expected {
			t.Errorf("ShortAddress(%s) = %s; want %s", tt.address, result, tt.expected)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if result := FormatPercent(0.5); result != "50.0%" {
		t.Errorf("FormatPercent(0.5) = %s; want 50.0%%", result)
	}
	if result := FormatPercent(2.0 / 3.0); result != "66.7%" {
		t.Errorf("FormatPercent(2/3) = %s; want 66.7%%", result)
	}
}
