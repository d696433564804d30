package utils

import (
	"strings"
	"testing"
)

func TestShortenAddress(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0x1111222233334444555566667777888899990000", "0x1111...0000"},
		{"0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", "0xAb58...eC9B"},
		{"0xABCD", "0xABCD"},
		{"Ab5801a7D398351b8bE11C439e05C5B3259aeC9B", "Ab5801a7D398351b8bE11C439e05C5B3259aeC9B"},
		{"0xZZ5801a7D398351b8bE11C439e05C5B3259aeC9B", "0xZZ5801a7D398351b8bE11C439e05C5B3259aeC9B"},
		{"", ""},
	}

	for _, tt := range tests {
		result := ShortenAddress(tt.input)
		if result != tt.expected {
			t.Errorf("ShortenAddress(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestShortenAddressIdempotentOnInput(t *testing.T) {
	addr := "0x1111222233334444555566667777888899990000"
	first := ShortenAddress(addr)
	second := ShortenAddress(addr)
	if first != second {
		t.Errorf("ShortenAddress not deterministic: %q vs %q", first, second)
	}
	if strings.Count(first, Ellipsis) != 1 {
		t.Errorf("ShortenAddress(%q) = %q; want exactly one ellipsis", addr, first)
	}
	if !strings.HasPrefix(first, addr[:6]) || !strings.HasSuffix(first, addr[len(addr)-4:]) {
		t.Errorf("ShortenAddress(%q) = %q; prefix/suffix not preserved", addr, first)
	}
}

func TestChecksumAddress(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0xab5801a7d398351b8be11c439e05c5b3259aec9b", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"},
		{"  0xab5801a7d398351b8be11c439e05c5b3259aec9b ", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"},
		{"not-an-address", "not-an-address"},
	}

	for _, tt := range tests {
		result := ChecksumAddress(tt.input)
		if result != tt.expected {
			t.Errorf("ChecksumAddress(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input    string
		length   int
		expected string
	}{
		{"hello world", 5, "he..."},
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"", 5, ""},
		{"abc", 2, "ab"},
		{"abc", 3, "abc"},
	}

	for _, tt := range tests {
		result := TruncateString(tt.input, tt.length)
		if result != tt.expected {
			t.Errorf("TruncateString(%q, %d) = %q; want %q", tt.input, tt.length, result, tt.expected)
		}
	}
}
