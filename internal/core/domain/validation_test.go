package domain

import "testing"

func TestIsValidInterface(t *testing.T) {
	tests := []struct {
		iface string
		valid bool
	}{
		{"wlan0", true},
		{"mon0", true},
		{"wlp3s0", true},
		{"eth0.100", false}, // we only allowed alphanumeric + - _
		{"very_long_interface_name_that_should_fail", false}, // > 16 chars
		{"; rm -rf /", false},
		{"", false},
	}

	for _, tt := range tests {
		if IsValidInterface(tt.iface) != tt.valid {
			t.Errorf("IsValidInterface(%s) = %v; want %v", tt.iface, IsValidInterface(tt.iface), tt.valid)
		}
	}
}

func TestValidChannel(t *testing.T) {
	for ch := -1; ch <= 16; ch++ {
		want := ch >= 1 && ch <= 14
		if ValidChannel(ch) != want {
			t.Errorf("ValidChannel(%d) = %v; want %v", ch, ValidChannel(ch), want)
		}
	}
}

func TestNextChannel(t *testing.T) {
	tests := []struct{ cur, next int }{
		{1, 2},
		{6, 7},
		{13, 14},
		{14, 1},
	}
	for _, tt := range tests {
		if got := NextChannel(tt.cur); got != tt.next {
			t.Errorf("NextChannel(%d) = %d; want %d", tt.cur, got, tt.next)
		}
	}

	// A full cycle visits every channel once
	seen := map[int]bool{}
	ch := 1
	for i := 0; i < MaxChannel; i++ {
		seen[ch] = true
		ch = NextChannel(ch)
	}
	if len(seen) != MaxChannel || ch != 1 {
		t.Errorf("cycle visited %d channels, ended on %d", len(seen), ch)
	}
}
