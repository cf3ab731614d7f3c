// SPDX-License-Identifier: MPL-2.0

package container

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// Canonical stats keys.
	statsKeyCPU    = "cpu"
	statsKeyMemory = "mem_usage"

	// Vendor-alternate stats keys, as printed by `docker stats --format '{{json .}}'`.
	statsKeyCPUPerc  = "CPUPerc"
	statsKeyMemUsage = "MemUsage"

	defaultCPUValue    = "0.00%"
	defaultMemoryValue = "0.00MiB / 0MiB"
)

// ErrInvalidStatsOutput is returned when stats output is neither a JSON object
// nor a one-element JSON array of objects.
var ErrInvalidStatsOutput = errors.New("invalid stats output")

type (
	// Stats is one normalized resource usage sample for a container.
	// Both fields are always >= 0.
	Stats struct {
		// CPUPercent is the CPU usage in percent (may exceed 100 on multi-core hosts).
		CPUPercent float64
		// MemoryAmount is the memory usage magnitude in whatever unit the
		// engine reported (typically MiB); the unit itself is discarded.
		MemoryAmount float64
	}

	// AggregatedStats is the sum of Stats over a set of containers.
	AggregatedStats struct {
		// ContainerIDs lists the containers that were reconciled within the
		// polling budget, in discovery order.
		ContainerIDs []string
		CPUTotal     float64
		MemoryTotal  float64
	}
)

// NewStats normalizes one raw stats mapping. The canonical keys ("cpu",
// "mem_usage") are checked first, then the vendor keys ("CPUPerc",
// "MemUsage"), then the zero defaults. Malformed values degrade to zero.
func NewStats(raw map[string]any) Stats {
	cpu := statsField(raw, defaultCPUValue, statsKeyCPU, statsKeyCPUPerc)
	mem := statsField(raw, defaultMemoryValue, statsKeyMemory, statsKeyMemUsage)
	return Stats{
		CPUPercent:   parseCPUPercent(cpu),
		MemoryAmount: parseMemoryAmount(mem),
	}
}

// Add returns the aggregate with s folded in for the given container.
func (a AggregatedStats) Add(id string, s Stats) AggregatedStats {
	a.ContainerIDs = append(a.ContainerIDs, id)
	a.CPUTotal += s.CPUPercent
	a.MemoryTotal += s.MemoryAmount
	return a
}

// ParseStatsOutput decodes single-shot stats output. A JSON object is
// returned as-is; a one-element array is unwrapped; anything else is an
// error wrapping ErrInvalidStatsOutput.
func ParseStatsOutput(out string) (map[string]any, error) {
	var decoded any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStatsOutput, err)
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	case []any:
		if len(v) == 1 {
			if obj, ok := v[0].(map[string]any); ok {
				return obj, nil
			}
		}
		return nil, fmt.Errorf("%w: expected a one-element array of objects, got %d element(s)", ErrInvalidStatsOutput, len(v))
	default:
		return nil, fmt.Errorf("%w: unexpected JSON %T", ErrInvalidStatsOutput, decoded)
	}
}

// statsField returns the first present, non-null key as a string.
func statsField(raw map[string]any, fallback string, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch tv := v.(type) {
		case string:
			return tv
		case float64:
			return strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			return fmt.Sprint(tv)
		}
	}
	return fallback
}

// parseCPUPercent parses "12.5%" (or "12.5") into 12.5.
func parseCPUPercent(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return nonNegative(s)
}

// parseMemoryAmount parses "10.5MiB / 100MiB" into 10.5: the part before the
// slash, reduced to digits and dots.
func parseMemoryAmount(s string) float64 {
	used, _, _ := strings.Cut(s, "/")
	var sb strings.Builder
	for _, r := range used {
		if (r >= '0' && r <= '9') || r == '.' {
			sb.WriteRune(r)
		}
	}
	return nonNegative(sb.String())
}

func nonNegative(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
