package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemory(t *testing.T) {
	output := `              total        used        free      shared  buff/cache   available
Mem:    33675735040 16837867520  8418933760   123456789  8418933760 15000000000
Swap:    2147479552           0  2147479552
`
	info, ok := ParseMemory(output)
	require.True(t, ok)
	assert.InDelta(t, 31.36, info.TotalGB, 0.01)
	assert.InDelta(t, 15.68, info.UsedGB, 0.01)
	assert.InDelta(t, 7.84, info.FreeGB, 0.01)
	assert.InDelta(t, 50.0, info.Percent, 0.01)
}

func TestParseMemoryBadInput(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "empty", output: ""},
		{name: "no mem row", output: "Swap: 1 2 3\n"},
		{name: "too few fields", output: "Mem: 100 50\n"},
		{name: "non numeric", output: "Mem: a b c\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseMemory(tt.output)
			assert.False(t, ok)
		})
	}
}

func TestParseMemoryZeroTotal(t *testing.T) {
	info, ok := ParseMemory("Mem: 0 0 0\n")
	require.True(t, ok)
	assert.Zero(t, info.Percent)
}
