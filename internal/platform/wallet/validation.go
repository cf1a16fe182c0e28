package wallet

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidateAddress checks a voter or owner address and returns its EIP-55 form.
// Mixed-case input must carry a correct checksum; all-lower or all-upper input is accepted.
func ValidateAddress(address string) (string, error) {
	if address == "" {
		return "", ErrMissingAddress
	}
	if !evmAddressRegex.MatchString(address) {
		return "", ErrInvalidAddress
	}

	checksummed := Checksum(address)
	body := address[2:]
	mixed := strings.ToLower(body) != body && strings.ToUpper(body) != body
	if mixed && address != checksummed {
		return "", ErrInvalidChecksum
	}

	return checksummed, nil
}

// Checksum renders an address in EIP-55 mixed case.
// https://eips.ethereum.org/EIPS/eip-55
func Checksum(address string) string {
	lower := strings.ToLower(strings.TrimPrefix(address, "0x"))

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2] >> 4
		if i%2 == 1 {
			nibble = digest[i/2] & 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 32
		}
	}

	return "0x" + string(out)
}

// NormalizeAddress lower-cases an address and ensures the 0x prefix, for cache keys and lookups
func NormalizeAddress(address string) string {
	return "0x" + strings.ToLower(strings.TrimPrefix(address, "0x"))
}

// AddressesEqual compares two EVM addresses case-insensitively
func AddressesEqual(a, b string) bool {
	return strings.EqualFold(
		strings.TrimPrefix(a, "0x"),
		strings.TrimPrefix(b, "0x"),
	)
}
