package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcStat(t *testing.T) {
	output := `cpu  100 0 100 700 100 0 0 0 0 0
cpu0 50 0 50 350 50 0 0 0 0 0
intr 12345
`
	counters, ok := ParseProcStat(output)
	require.True(t, ok)
	assert.Equal(t, int64(1000), counters.Total)
	assert.Equal(t, int64(800), counters.Idle)
}

func TestParseProcStatRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "empty", output: ""},
		{name: "no aggregate line", output: "cpu0 1 2 3 4 5\n"},
		{name: "too few fields", output: "cpu 1 2 3\n"},
		{name: "non numeric field", output: "cpu 1 2 x 4 5 6 7 8\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseProcStat(tt.output)
			assert.False(t, ok)
		})
	}
}

func TestCPUPercent(t *testing.T) {
	tests := []struct {
		name   string
		before CPUCounters
		after  CPUCounters
		want   float64
	}{
		{
			name:   "quarter busy",
			before: CPUCounters{Total: 1000, Idle: 800},
			after:  CPUCounters{Total: 2000, Idle: 1550},
			want:   25.0,
		},
		{
			name:   "fully idle",
			before: CPUCounters{Total: 1000, Idle: 800},
			after:  CPUCounters{Total: 2000, Idle: 1800},
			want:   0.0,
		},
		{
			name:   "no elapsed time yields zero",
			before: CPUCounters{Total: 1000, Idle: 800},
			after:  CPUCounters{Total: 1000, Idle: 800},
			want:   0.0,
		},
		{
			name:   "counter wrap yields zero",
			before: CPUCounters{Total: 2000, Idle: 1800},
			after:  CPUCounters{Total: 1000, Idle: 800},
			want:   0.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CPUPercent(tt.before, tt.after), 0.001)
		})
	}
}

func TestParseTopCPU(t *testing.T) {
	output := `top - 14:21:02 up 12 days,  3:01,  1 user,  load average: 0.52, 0.58, 0.59
Tasks: 312 total,   1 running, 311 sleeping,   0 stopped,   0 zombie
%Cpu(s):  7.1 us,  2.3 sy,  0.0 ni, 89.6 id,  0.8 wa,  0.0 hi,  0.2 si,  0.0 st
MiB Mem :  31992.9 total,   2120.4 free
`
	percent, ok := ParseTopCPU(output)
	require.True(t, ok)
	assert.InDelta(t, 10.4, percent, 0.001)
}

func TestParseTopCPUNoCpuLine(t *testing.T) {
	_, ok := ParseTopCPU("Tasks: 312 total\n")
	assert.False(t, ok)
}
