package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,250.50", "1250.5", true},
		{"$42", "42", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseStoredAmount(t *testing.T) {
	cases := map[string]string{
		"":          "0",
		"garbage":   "0",
		"1,200.00":  "1200",
		" $15.25 ":  "15.25",
		"-3":        "-3",
	}
	for in, want := range cases {
		if got := ParseStoredAmount(in); !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("%q expected %s, got %s", in, want, got)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":         "$0.00",
		"5.5":       "$5.50",
		"1234.56":   "$1,234.56",
		"1000000":   "$1,000,000.00",
		"-999.999":  "-$1,000.00",
	}
	for in, want := range cases {
		if got := FormatMoney(decimal.RequireFromString(in)); got != want {
			t.Fatalf("%s expected %s, got %s", in, want, got)
		}
	}
}
