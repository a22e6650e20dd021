// Package sizespec parses human-readable size strings like "40K" or "1.5G".
package sizespec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is returned (wrapped) for any input that is not a
// non-negative number with an optional K/M/G/T unit suffix.
var ErrMalformed = errors.New("malformed size spec")

// Parse parses a human-readable size string into bytes.
// Supports: 100, 100B, 40K, 40KB, 1.5M, 2G, 1T (case-insensitive).
// Units are powers of 1024 (matching rsync behavior); fractional bytes
// are truncated. An empty string means "no limit" and parses to 0.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	numStr := s

	// Optional trailing "B" after the unit letter ("40KB" == "40K").
	if len(numStr) > 1 {
		if last := numStr[len(numStr)-1]; last == 'B' || last == 'b' {
			numStr = numStr[:len(numStr)-1]
		}
	}

	multiplier := int64(1)
	switch last := strings.ToUpper(numStr[len(numStr)-1:]); last {
	case "K":
		multiplier = 1 << 10
		numStr = numStr[:len(numStr)-1]
	case "M":
		multiplier = 1 << 20
		numStr = numStr[:len(numStr)-1]
	case "G":
		multiplier = 1 << 30
		numStr = numStr[:len(numStr)-1]
	case "T":
		multiplier = 1 << 40
		numStr = numStr[:len(numStr)-1]
	default:
		// No suffix, plain byte count.
	}

	if numStr == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	// Try integer first, then float.
	if n, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		if n < 0 || n > math.MaxInt64/multiplier {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return n * multiplier, nil
	}

	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	// float64(MaxInt64) is exactly 2^63; anything at or past it would
	// overflow the byte count.
	bytes := f * float64(multiplier)
	if bytes >= float64(math.MaxInt64) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return int64(bytes), nil
}
