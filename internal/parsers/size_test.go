package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{
			name:  "gigabytes pass through",
			input: "100G",
			want:  100.0,
		},
		{
			name:  "terabytes scale up",
			input: "1.5T",
			want:  1536.0,
		},
		{
			name:  "megabytes scale down",
			input: "500M",
			want:  0.48828125,
		},
		{
			name:  "kilobytes scale down",
			input: "1024K",
			want:  0.0009765625,
		},
		{
			name:  "petabytes",
			input: "2P",
			want:  2 * 1024 * 1024,
		},
		{
			name:  "bare number treated as bytes",
			input: "1073741824",
			want:  1.0,
		},
		{
			name:  "trailing B suffix accepted",
			input: "10GB",
			want:  10.0,
		},
		{
			name:  "lowercase normalized",
			input: "1.5t",
			want:  1536.0,
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  100G ",
			want:  100.0,
		},
		{
			name:  "garbage yields zero",
			input: "bogus",
			want:  0.0,
		},
		{
			name:  "empty yields zero",
			input: "",
			want:  0.0,
		},
		{
			name:  "negative not matched",
			input: "-5G",
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseSize(tt.input), 1e-9)
		})
	}
}
