package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// AddressPrefixLen is the number of hex digits kept after "0x".
	AddressPrefixLen = 4
	// AddressSuffixLen is the number of hex digits kept at the end.
	AddressSuffixLen = 4
	Ellipsis         = "..."
)

// IsCanonicalAddress reports whether addr is "0x" followed by 40 hex digits.
func IsCanonicalAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// ShortenAddress renders 0x1234...abcd. Anything that is not a canonical
// address comes back unchanged.
func ShortenAddress(addr string) string {
	if !IsCanonicalAddress(addr) {
		return addr
	}
	return addr[:2+AddressPrefixLen] + Ellipsis + addr[len(addr)-AddressSuffixLen:]
}

// ChecksumAddress returns the EIP-55 form of addr, or addr itself when it is not hex.
func ChecksumAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

func TruncateString(str string, num int) string {
	if len(str) <= num {
		return str
	}
	if num <= 3 {
		return str[:num]
	}
	return str[0:num-3] + Ellipsis
}
