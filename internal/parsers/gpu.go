package parsers

import (
	"strconv"
	"strings"
)

// GPUSample is one GPU row from the vendor tool's CSV output.
type GPUSample struct {
	Index         int     `json:"index"`
	Name          string  `json:"name"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	UtilPercent   float64 `json:"gpu_util_percent"`
	Temperature   float64 `json:"temperature"`
}

// ParseGPURows parses nvidia-smi CSV output with fields in the order:
// index, name, memory.total, memory.used, utilization.gpu, temperature.gpu.
// Missing or unsupported hardware yields an empty list, not an error; the
// derived memory percent is guarded against a zero total. Malformed rows are
// skipped.
func ParseGPURows(csvOutput string) []GPUSample {
	csvOutput = strings.TrimSpace(csvOutput)
	if csvOutput == "" {
		return nil
	}

	lower := strings.ToLower(csvOutput)
	if strings.Contains(lower, "no devices") ||
		strings.Contains(lower, "not found") ||
		strings.Contains(lower, "failed") ||
		strings.Contains(lower, "error") {
		return nil
	}

	var samples []GPUSample
	for _, line := range strings.Split(csvOutput, "\n") {
		fields := strings.Split(line, ",")
		if len(fields) < 6 {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}

		sample := GPUSample{
			Index:         index,
			Name:          strings.TrimSpace(fields[1]),
			MemoryTotalMB: parseCSVFloat(fields[2]),
			MemoryUsedMB:  parseCSVFloat(fields[3]),
			UtilPercent:   parseCSVFloat(fields[4]),
			Temperature:   parseCSVFloat(fields[5]),
		}
		if sample.MemoryTotalMB > 0 {
			sample.MemoryPercent = round2(sample.MemoryUsedMB / sample.MemoryTotalMB * 100)
		}

		samples = append(samples, sample)
	}

	return samples
}

// parseCSVFloat parses one CSV field, treating blanks and [N/A] as 0.
func parseCSVFloat(field string) float64 {
	field = strings.TrimSpace(field)
	if field == "" || field == "[N/A]" {
		return 0.0
	}
	val, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0.0
	}
	return val
}
