// Package rvthtime implements the 14-character YYYYMMDDhhmmss timestamp
// format NHCD bank entries use, and the RSA-encrypted identification blob
// embedded in recrypted partition headers.
package rvthtime

import (
	"time"
)

// ParseTimestamp parses exactly 14 ASCII decimal digits (YYYYMMDDhhmmss,
// UTC). ok is false ("absent") for anything out of range or non-numeric.
func ParseTimestamp(buf string) (t time.Time, ok bool) {
	if len(buf) != 14 {
		return time.Time{}, false
	}
	for _, c := range buf {
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
	}

	ymd := atoi(buf[0:8])
	hms := atoi(buf[8:14])

	if ymd < 19000101 || ymd > 99991231 {
		return time.Time{}, false
	}
	if hms > 235959 {
		return time.Time{}, false
	}

	year := ymd / 10000
	month := (ymd / 100) % 100
	day := ymd % 100
	hour := hms / 10000
	minute := (hms / 100) % 100
	second := hms % 100

	if month < 1 || month > 12 || day < 1 || day > 31 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	t = time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Day() != day {
		// time.Date normalizes a day past the month's end into the next
		// month (e.g. February 30).
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// FormatTimestamp emits t as 14 ASCII decimal digits. The value is
// converted to UTC first; bank-entry timestamps are UTC throughout this
// module.
func FormatTimestamp(t time.Time) string {
	u := t.UTC()
	return sprintf14(u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(), u.Second())
}

func sprintf14(year, month, day, hour, min, sec int) string {
	b := make([]byte, 0, 14)
	b = appendPadded(b, year, 4)
	b = appendPadded(b, month, 2)
	b = appendPadded(b, day, 2)
	b = appendPadded(b, hour, 2)
	b = appendPadded(b, min, 2)
	b = appendPadded(b, sec, 2)
	return string(b)
}

func appendPadded(b []byte, v, width int) []byte {
	digits := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return append(b, digits...)
}
