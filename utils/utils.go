package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateBookingReference returns a human-readable booking reference of the
// form BK<yymmdd><6 random alphanumerics>, e.g. BK260830X7K2QD. Uniqueness is
// ultimately enforced by the unique column constraint.
func GenerateBookingReference() string {
	var sb strings.Builder
	sb.WriteString("BK")
	sb.WriteString(time.Now().Format("060102"))
	max := big.NewInt(int64(len(referenceCharset)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken;
			// fall back to a time-derived index rather than panicking.
			n = big.NewInt(time.Now().UnixNano() % int64(len(referenceCharset)))
		}
		sb.WriteByte(referenceCharset[n.Int64()])
	}
	return sb.String()
}

// ParseHHMM parses a "HH:MM" clock string into hour and minute components.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// ParseOperatingDays parses a comma-separated list of ISO weekdays
// (Mon=1 .. Sun=7) into a lookup set keyed by time.Weekday.
func ParseOperatingDays(s string) (map[time.Weekday]bool, error) {
	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 7 {
			return nil, fmt.Errorf("invalid operating day %q", part)
		}
		// ISO Sunday=7 maps to time.Sunday=0.
		days[time.Weekday(n%7)] = true
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no operating days in %q", s)
	}
	return days, nil
}
