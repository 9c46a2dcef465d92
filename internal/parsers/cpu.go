package parsers

import (
	"bufio"
	"strconv"
	"strings"
)

// CPUCounters holds cumulative jiffies from one /proc/stat read.
type CPUCounters struct {
	Total int64
	Idle  int64
}

// ParseProcStat extracts total and idle jiffies from the aggregate "cpu " line
// of /proc/stat output. Idle includes iowait. Returns ok=false when no usable
// cpu line is present.
func ParseProcStat(output string) (CPUCounters, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			return CPUCounters{}, false
		}

		var counters CPUCounters
		for i := 1; i < len(fields); i++ {
			val, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return CPUCounters{}, false
			}
			counters.Total += val

			// idle is field 4, iowait is field 5
			if i == 4 || i == 5 {
				counters.Idle += val
			}
		}
		return counters, true
	}
	return CPUCounters{}, false
}

// CPUPercent computes usage from two time-separated counter reads:
// (Δtotal − Δidle) / Δtotal × 100, clamped to [0,100]. A non-positive total
// delta yields 0.
func CPUPercent(before, after CPUCounters) float64 {
	totalDelta := after.Total - before.Total
	if totalDelta <= 0 {
		return 0.0
	}
	idleDelta := after.Idle - before.Idle

	percent := float64(totalDelta-idleDelta) / float64(totalDelta) * 100
	if percent < 0 {
		return 0.0
	}
	if percent > 100 {
		return 100.0
	}
	return percent
}

// ParseTopCPU extracts CPU usage from `top -bn1` output as 100 minus the idle
// percentage. This is the fallback sampling method for hosts without a
// readable /proc/stat. Returns ok=false when no Cpu(s) line is found.
func ParseTopCPU(output string) (float64, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "Cpu(s)") {
			continue
		}

		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if !strings.HasSuffix(part, "id") {
				continue
			}
			fields := strings.Fields(part)
			if len(fields) < 1 {
				continue
			}
			idle, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
			if err != nil {
				continue
			}
			percent := 100 - idle
			if percent < 0 {
				percent = 0
			}
			if percent > 100 {
				percent = 100
			}
			return percent, true
		}
	}
	return 0.0, false
}
