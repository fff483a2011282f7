package common

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"payments/internal/appers"
)

const Version = "0.1.0"

var (
	// accepted: "123", "123.4", "123,45", "+0.99", "-10", surrounding spaces
	reDec = regexp.MustCompile(`^\s*([+-])?(\d+)(?:[.,](\d+))?\s*$`)

	maxIntDigits = 16
	maxScale     = 2
)

// AmountFromString parses a decimal string into minor units (scale 2).
// Nothing is rounded: more than 2 fractional digits is an error.
func AmountFromString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, appers.ErrFormat
	}

	m := reDec.FindStringSubmatch(s)
	if m == nil {
		return 0, appers.ErrFormat
	}
	sign := m[1]
	intPart := trimZeros(m[2])
	frac := m[3]

	if len(frac) > maxScale {
		return 0, appers.ErrScale
	}
	if len(intPart) > maxIntDigits {
		return 0, appers.ErrPrecision
	}

	for len(frac) < maxScale {
		frac += "0"
	}

	var units int64
	for _, r := range intPart + frac {
		units = units*10 + int64(r-'0')
	}
	if sign == "-" {
		units = -units
	}
	return units, nil
}

// AmountToString renders minor units back to a canonical "123.45" string.
func AmountToString(units int64) string {
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}

func trimZeros(s string) string {
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

func PgInterval(d time.Duration) string {
	sec := int64(d / time.Second)
	return fmt.Sprintf("%d seconds", sec)
}

func NextBackoffWithJitter(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}

	base := time.Second << attempts

	limit := 30 * time.Minute
	if base > limit {
		base = limit
	}

	jitter := time.Duration(rand.Int63n(int64(base / 2)))

	return base/2 + jitter
}

func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer func() {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
	}()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
