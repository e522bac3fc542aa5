// Package sizefmt parses and formats the human-readable byte-size strings
// that appear throughout updatectl: Docker CLI `--format` output over SSH
// (e.g. "1.5GB", "250MB", "0B") and the size-string grammar in the
// environment-variable table (e.g. DOCKERMON_CLEANUP_LOG_SIZE_CONTAINER).
//
// Grounded on original_source's remote_cleanup.rs parse_docker_size and
// dockermon/cleanup/logs.rs parse_size_threshold, unified into one grammar
// per spec.md §6: case-insensitive `<number>[<unit>]`, unit ∈ {B, KB, MB,
// GB}, number parsed as a float and truncated to uint64 after
// multiplication.
package sizefmt

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	unitKB uint64 = 1024
	unitMB uint64 = unitKB * 1024
	unitGB uint64 = unitMB * 1024
)

// Parse converts a size string like "1.5GB", "250MB", "100K", or a bare
// number (bytes) into a byte count. Unit suffix is case-insensitive; the
// trailing "B" of "KB"/"MB"/"GB" is optional ("100K" == "100KB").
func Parse(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("sizefmt: empty size string")
	}
	upper := strings.ToUpper(s)

	unit := uint64(1)
	numPart := upper
	switch {
	case strings.HasSuffix(upper, "GB"):
		unit, numPart = unitGB, strings.TrimSuffix(upper, "GB")
	case strings.HasSuffix(upper, "MB"):
		unit, numPart = unitMB, strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "KB"):
		unit, numPart = unitKB, strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "G"):
		unit, numPart = unitGB, strings.TrimSuffix(upper, "G")
	case strings.HasSuffix(upper, "M"):
		unit, numPart = unitMB, strings.TrimSuffix(upper, "M")
	case strings.HasSuffix(upper, "K"):
		unit, numPart = unitKB, strings.TrimSuffix(upper, "K")
	case strings.HasSuffix(upper, "B"):
		unit, numPart = 1, strings.TrimSuffix(upper, "B")
	}

	numPart = strings.TrimSpace(numPart)
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("sizefmt: invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("sizefmt: negative size %q", s)
	}

	return uint64(n * float64(unit)), nil
}

// Format renders a byte count as a human string: GB with two decimals,
// MB/KB as whole numbers, otherwise raw bytes. Ported from
// original_source's dockermon/cleanup/types.rs format_bytes.
func Format(n uint64) string {
	switch {
	case n >= unitGB:
		return fmt.Sprintf("%.2fGB", float64(n)/float64(unitGB))
	case n >= unitMB:
		return fmt.Sprintf("%dMB", n/unitMB)
	case n >= unitKB:
		return fmt.Sprintf("%dKB", n/unitKB)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
