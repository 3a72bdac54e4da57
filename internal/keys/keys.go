// Copyright Barclays Bank PLC
// SPDX-License-Identifier: Apache-2.0

// Package keys implements security-identifier arithmetic: CUSIP and SEDOL
// check digits, abbreviated-to-full expansion and validation.
//
// Vendors disagree on identifier length. QAD stores the 8-character CUSIP
// and 6-character SEDOL without their check digit, while Compustat and most
// index providers carry the full 9- and 7-character forms. The helpers here
// move between the two representations.
package keys

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey reports a malformed security identifier.
var ErrInvalidKey = errors.New("invalid security key")

const sedolWeights = "131739"

// charValue maps an identifier character to its numeric value: digits map to
// themselves, letters to 10..35, then the CUSIP specials *, @ and #.
func charValue(c byte) (int, error) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), nil
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, nil
	case c == '*':
		return 36, nil
	case c == '@':
		return 37, nil
	case c == '#':
		return 38, nil
	}
	return 0, fmt.Errorf("%w: unexpected character %q", ErrInvalidKey, string(c))
}

// CusipCheckDigit computes the check digit for an 8-character CUSIP base.
func CusipCheckDigit(base string) (int, error) {
	base = CleanString(base)
	if len(base) != 8 {
		return 0, fmt.Errorf("%w: cusip base %q must be 8 characters", ErrInvalidKey, base)
	}

	sum := 0
	for i := 0; i < len(base); i++ {
		value, err := charValue(base[i])
		if err != nil {
			return 0, err
		}
		if i%2 == 1 {
			value *= 2
		}
		sum += value/10 + value%10
	}
	return (10 - sum%10) % 10, nil
}

// SedolCheckDigit computes the check digit for a 6-character SEDOL base.
func SedolCheckDigit(base string) (int, error) {
	base = CleanString(base)
	if len(base) != 6 {
		return 0, fmt.Errorf("%w: sedol base %q must be 6 characters", ErrInvalidKey, base)
	}

	sum := 0
	for i := 0; i < len(base); i++ {
		value, err := charValue(base[i])
		if err != nil {
			return 0, err
		}
		if value > 35 {
			return 0, fmt.Errorf("%w: unexpected character %q", ErrInvalidKey, string(base[i]))
		}
		sum += value * int(sedolWeights[i]-'0')
	}
	return (10 - sum%10) % 10, nil
}

// CusipAbbrevToFull expands an 8-character CUSIP to its full 9-character form
// by appending the computed check digit.
func CusipAbbrevToFull(base string) (string, error) {
	base = CleanString(base)
	digit, err := CusipCheckDigit(base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", base, digit), nil
}

// SedolAbbrevToFull expands a 6-character SEDOL to its full 7-character form
// by appending the computed check digit.
func SedolAbbrevToFull(base string) (string, error) {
	base = CleanString(base)
	digit, err := SedolCheckDigit(base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", base, digit), nil
}

// ValidCusip reports whether key is a well-formed 9-character CUSIP with a
// correct check digit.
func ValidCusip(key string) bool {
	key = CleanString(key)
	if len(key) != 9 {
		return false
	}
	digit, err := CusipCheckDigit(key[:8])
	if err != nil {
		return false
	}
	return key[8] == byte('0'+digit)
}

// ValidSedol reports whether key is a well-formed 7-character SEDOL with a
// correct check digit.
func ValidSedol(key string) bool {
	key = CleanString(key)
	if len(key) != 7 {
		return false
	}
	digit, err := SedolCheckDigit(key[:6])
	if err != nil {
		return false
	}
	return key[6] == byte('0'+digit)
}

// CleanString normalizes an identifier for comparison: surrounding
// whitespace is removed and letters are upper-cased.
func CleanString(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
