package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMountPathsAreQuoted(t *testing.T) {
	tests := []struct {
		name  string
		build func(string) string
		mount string
		want  string
	}{
		{
			name:  "du quotes the mount and keeps the glob outside",
			build: directorySizesCmd,
			mount: "/data",
			want:  "du -s '/data'/* 2>/dev/null | sort -rn",
		},
		{
			name:  "stat quotes the mount",
			build: directoryOwnersCmd,
			mount: "/data",
			want:  "stat -c '%U %n' '/data'/* 2>/dev/null",
		},
		{
			name:  "spaces stay inside the quotes",
			build: directorySizesCmd,
			mount: "/mnt/my volume",
			want:  "du -s '/mnt/my volume'/* 2>/dev/null | sort -rn",
		},
		{
			name:  "shell metacharacters are inert",
			build: fileTypeScanCmd,
			mount: "/data;$(reboot)",
			want:  "find '/data;$(reboot)' -xdev -type f -printf '%s\\t%p\\n' 2>/dev/null",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.build(tt.mount))
		})
	}
}

func TestLargeFilesScanCmd(t *testing.T) {
	got := largeFilesScanCmd("/data", 50)
	assert.Contains(t, got, "find '/data' -xdev")
	assert.Contains(t, got, "sort -rn")
	assert.Contains(t, got, "head -50")
}

func TestGPUCommandsKeepColumnOrder(t *testing.T) {
	for _, cmd := range gpuCommands {
		assert.Contains(t, cmd, "index,name,memory.total,memory.used,utilization.gpu,temperature.gpu")
		assert.Contains(t, cmd, "csv,noheader,nounits")
	}
}
