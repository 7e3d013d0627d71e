package domain

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte account address.
type Address = common.Address

// ZeroAddress is the reserved null address. It is never a valid mint target.
var ZeroAddress = Address{}

// addressPattern is the canonical text form: 0x prefix followed by 40 hex digits.
var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateAddress parses text as a mint target.
// The text must match the canonical form exactly; surrounding whitespace is not trimmed.
func ValidateAddress(text string) (Address, error) {
	if !addressPattern.MatchString(text) {
		return Address{}, &ValidationError{Err: ErrMalformedAddress, Input: text}
	}

	addr := common.HexToAddress(text)
	if addr == ZeroAddress {
		return Address{}, &ValidationError{Err: ErrZeroAddress, Input: text}
	}

	return addr, nil
}
