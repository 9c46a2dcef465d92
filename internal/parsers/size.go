// Package parsers turns raw remote command output into typed records.
// Every parser is a pure, total function: malformed input never raises, it
// degrades to a documented default, and malformed lines are skipped without
// aborting the surrounding batch.
package parsers

import (
	"regexp"
	"strconv"
	"strings"
)

var sizeRe = regexp.MustCompile(`^([\d.]+)([KMGTP]?)B?$`)

// sizeMultipliers convert a unit suffix to gigabytes (1024-based).
var sizeMultipliers = map[string]float64{
	"K": 1.0 / (1024 * 1024),
	"M": 1.0 / 1024,
	"G": 1,
	"T": 1024,
	"P": 1024 * 1024,
	"":  1.0 / (1024 * 1024 * 1024), // bare number = bytes
}

// ParseSize converts a size string to gigabytes.
// Accepts a numeric value plus optional unit suffix K/M/G/T/P (case-insensitive,
// optional trailing "B"): "100G", "1.5T", "500M", "1024K". A unit-less value is
// interpreted as raw bytes. Unrecognized input returns 0.
func ParseSize(text string) float64 {
	text = strings.ToUpper(strings.TrimSpace(text))

	match := sizeRe.FindStringSubmatch(text)
	if match == nil {
		return 0.0
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0.0
	}

	return value * sizeMultipliers[match[2]]
}
