package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// zone-less layouts are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339, the common ISO-8601 variants without a
// zone, and numeric Unix epochs (see parseEpoch).
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, ok := parseEpoch(value); ok {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q: unsupported format", value)
}

// parseEpoch reads integer epochs in seconds, milliseconds, microseconds or
// nanoseconds, picked by magnitude, and fractional epochs in seconds.
func parseEpoch(value string) (time.Time, bool) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		abs := n
		if abs < 0 {
			abs = -abs
		}
		switch {
		case abs < 1e11:
			return time.Unix(n, 0).UTC(), true
		case abs < 1e14:
			return time.UnixMilli(n).UTC(), true
		case abs < 1e17:
			return time.UnixMicro(n).UTC(), true
		default:
			return time.Unix(0, n).UTC(), true
		}
	}
	if !isDecimal(value) {
		return time.Time{}, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.Abs(f) >= 1e11 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), true
}

// isDecimal matches [-]digits.digits, which rules out exponents and NaN/Inf.
func isDecimal(value string) bool {
	intPart, fracPart, ok := strings.Cut(strings.TrimPrefix(value, "-"), ".")
	if !ok || intPart == "" || fracPart == "" {
		return false
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RoundSeconds rounds d to the given number of decimal places of a second.
func RoundSeconds(d time.Duration, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int64(d.Seconds()*scale+0.5)) / scale
}
