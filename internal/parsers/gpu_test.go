package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGPURows(t *testing.T) {
	output := `0, NVIDIA GeForce RTX 4090, 24564, 12282, 87, 61
1, NVIDIA GeForce RTX 4090, 24564, 0, 0, 35
`
	samples := ParseGPURows(output)
	require.Len(t, samples, 2)

	assert.Equal(t, 0, samples[0].Index)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", samples[0].Name)
	assert.InDelta(t, 24564, samples[0].MemoryTotalMB, 0.01)
	assert.InDelta(t, 12282, samples[0].MemoryUsedMB, 0.01)
	assert.InDelta(t, 50.0, samples[0].MemoryPercent, 0.01)
	assert.InDelta(t, 87.0, samples[0].UtilPercent, 0.01)
	assert.InDelta(t, 61.0, samples[0].Temperature, 0.01)

	assert.Equal(t, 1, samples[1].Index)
	assert.Zero(t, samples[1].MemoryPercent)
}

func TestParseGPURowsAbsentHardware(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "empty output", output: ""},
		{name: "whitespace only", output: "  \n "},
		{name: "command not found", output: "bash: nvidia-smi: command not found"},
		{name: "driver failure", output: "NVIDIA-SMI has failed because it couldn't communicate with the NVIDIA driver."},
		{name: "no devices", output: "No devices were found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ParseGPURows(tt.output))
		})
	}
}

func TestParseGPURowsSkipsMalformedLines(t *testing.T) {
	output := `0, RTX A6000, 49140, 1000, 5, 40
garbage line
x, RTX A6000, 49140, 1000, 5, 40
`
	samples := ParseGPURows(output)
	require.Len(t, samples, 1)
	assert.Equal(t, 0, samples[0].Index)
}

func TestParseGPURowsNAFields(t *testing.T) {
	samples := ParseGPURows("0, Tesla K80, 11441, 100, [N/A], [N/A]\n")
	require.Len(t, samples, 1)
	assert.Zero(t, samples[0].UtilPercent)
	assert.Zero(t, samples[0].Temperature)
}
