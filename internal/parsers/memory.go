package parsers

import (
	"strconv"
	"strings"
)

// MemoryInfo is one parsed memory sample, in gigabytes.
type MemoryInfo struct {
	TotalGB float64
	UsedGB  float64
	FreeGB  float64
	Percent float64
}

// ParseMemory parses `free -b` output. Byte-level values keep sub-GB
// precision that the human-readable variants round away. Returns ok=false
// when no usable Mem: row is present; the percent is guarded against a zero
// total.
func ParseMemory(freeOutput string) (MemoryInfo, bool) {
	for _, line := range strings.Split(strings.TrimSpace(freeOutput), "\n") {
		if !strings.HasPrefix(line, "Mem:") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return MemoryInfo{}, false
		}

		total, err1 := strconv.ParseInt(fields[1], 10, 64)
		used, err2 := strconv.ParseInt(fields[2], 10, 64)
		free, err3 := strconv.ParseInt(fields[3], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return MemoryInfo{}, false
		}

		const bytesPerGB = 1024 * 1024 * 1024
		info := MemoryInfo{
			TotalGB: round2(float64(total) / bytesPerGB),
			UsedGB:  round2(float64(used) / bytesPerGB),
			FreeGB:  round2(float64(free) / bytesPerGB),
		}
		if total > 0 {
			info.Percent = round2(float64(used) / float64(total) * 100)
		}
		return info, true
	}
	return MemoryInfo{}, false
}
