package tax

import "testing"

func TestCleanCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"₦1,200,000.50", 1200000.50},
		{"NGN 5000", 5000},
		{" 2,000 NGN ", 2000},
		{"1500", 1500},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"12.34.56", 0},
		{"-50", 0},
		{"₦ 300,000", 300000},
	}
	for _, tc := range cases {
		if got := CleanCurrency(tc.in); got != tc.want {
			t.Errorf("CleanCurrency(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatNaira(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1234567.5, "₦1,234,567.50"},
		{0, "₦0.00"},
		{999, "₦999.00"},
		{-2500, "-₦2,500.00"},
	}
	for _, tc := range cases {
		if got := FormatNaira(tc.in); got != tc.want {
			t.Errorf("FormatNaira(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
