// Package timeutil converts user-local reminder times into the UTC cron
// specs the scheduler runs on. All validation and fallback behavior for
// malformed input lives here, in one place.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// FallbackTime is used whenever a time string cannot be parsed. A reminder
// at a wrong-but-valid time beats silently dropping the schedule.
const FallbackTime = "12:00"

var (
	// ErrInvalidOffset reports a timezone label that is not of the form
	// "UTC+3", "UTC-4" or "UTC+5.5".
	ErrInvalidOffset = errors.New("invalid UTC offset label")
	// ErrInvalidTime reports a string that is not a valid "HH:MM" time.
	ErrInvalidTime = errors.New("invalid time")
)

var (
	offsetPattern = regexp.MustCompile(`^UTC([+-])(\d{1,2}(?:\.\d+)?)$`)
	timePattern   = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// OffsetHours parses an offset label like "UTC+3" or "UTC+5.5" into signed
// fractional hours. Callers treat a failure as offset 0 after logging it.
func OffsetHours(label string) (float64, error) {
	m := offsetPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, label)
	}
	hours, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, label)
	}
	if m[1] == "-" {
		hours = -hours
	}
	return hours, nil
}

// IsValidTime reports whether s is a valid "H:MM" or "HH:MM" time of day.
func IsValidTime(s string) bool {
	return timePattern.MatchString(strings.TrimSpace(s))
}

// NormalizeTime brings a time string to the canonical zero-padded "HH:MM"
// form ("8:0" becomes "08:00"). Anything unparsable yields FallbackTime.
func NormalizeTime(s string) string {
	h, m, err := splitTime(s)
	if err != nil {
		return FallbackTime
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ToUTC converts a local "HH:MM" to its UTC counterpart by subtracting the
// offset. Fractional offsets shift minutes; the result wraps modulo 24h
// because only the time of day recurs daily, no date is tracked. Malformed
// input falls back to FallbackTime and is logged, never returned as an error.
func ToUTC(localTime string, offset float64) string {
	h, m, err := splitTime(localTime)
	if err != nil {
		log.Error().Str("time", localTime).Msg("malformed local time, falling back to 12:00 UTC")
		return FallbackTime
	}
	return shiftMinutes(h*60+m, -offsetMinutes(offset))
}

// ToLocal is the inverse of ToUTC: it renders a stored UTC time in the
// user's offset.
func ToLocal(utcTime string, offset float64) string {
	h, m, err := splitTime(utcTime)
	if err != nil {
		log.Error().Str("time", utcTime).Msg("malformed UTC time, falling back to 12:00")
		return FallbackTime
	}
	return shiftMinutes(h*60+m, offsetMinutes(offset))
}

// CronSpec builds a five-field cron expression firing daily at the given
// UTC "HH:MM". Malformed input produces the daily-noon fallback spec.
func CronSpec(utcTime string) string {
	h, m, err := splitTime(utcTime)
	if err != nil {
		log.Error().Str("time", utcTime).Msg("malformed time for cron spec, falling back to daily noon")
		return "0 12 * * *"
	}
	return fmt.Sprintf("%d %d * * *", m, h)
}

func splitTime(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h, m, nil
}

func offsetMinutes(offset float64) int {
	return int(math.Round(offset * 60))
}

func shiftMinutes(total, delta int) string {
	const day = 24 * 60
	total = ((total+delta)%day + day) % day
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
