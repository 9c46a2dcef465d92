package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiskTable = `Filesystem     Type      Size  Used Avail Use% Mounted on
/dev/nvme0n1p2 ext4      916G  412G  458G  48% /
/dev/sda1      ext4      3.6T  2.9T  520G  86% /data
/dev/sdb1      xfs       100G   20G   80G  20% /scratch
tmpfs          tmpfs      16G  1.2M   16G   1% /run
devtmpfs       devtmpfs   16G     0   16G   0% /dev
/dev/nvme0n1p1 vfat      511M  6.1M  505M   2% /boot/efi
/dev/loop3     squashfs   64M   64M     0 100% /snap/core20/1828
`

func TestParseDiskTable(t *testing.T) {
	t.Run("size threshold without allow list", func(t *testing.T) {
		entries, allMounts := ParseDiskTable(sampleDiskTable, nil, 250)

		require.Len(t, entries, 2)
		assert.Equal(t, "/", entries[0].MountPoint)
		assert.Equal(t, "/data", entries[1].MountPoint)

		// /scratch survives filtering but misses the size floor; it still
		// shows up as an available mount.
		assert.Equal(t, []string{"/", "/data", "/scratch"}, allMounts)
	})

	t.Run("allow list overrides size threshold", func(t *testing.T) {
		entries, _ := ParseDiskTable(sampleDiskTable, []string{"/scratch"}, 250)

		require.Len(t, entries, 1)
		assert.Equal(t, "/scratch", entries[0].MountPoint)
		assert.InDelta(t, 100.0, entries[0].TotalGB, 0.01)
		assert.InDelta(t, 20.0, entries[0].UsePercent, 0.01)
	})

	t.Run("allow list matching nothing keeps mounts list", func(t *testing.T) {
		entries, allMounts := ParseDiskTable(sampleDiskTable, []string{"/nonexistent"}, 250)

		assert.Empty(t, entries)
		assert.Equal(t, []string{"/", "/data", "/scratch"}, allMounts)
	})

	t.Run("virtual and boot mounts never appear", func(t *testing.T) {
		_, allMounts := ParseDiskTable(sampleDiskTable, nil, 0)

		assert.NotContains(t, allMounts, "/run")
		assert.NotContains(t, allMounts, "/dev")
		assert.NotContains(t, allMounts, "/boot/efi")
		assert.NotContains(t, allMounts, "/snap/core20/1828")
	})

	t.Run("values are parsed and rounded", func(t *testing.T) {
		entries, _ := ParseDiskTable(sampleDiskTable, nil, 250)

		data := entries[1]
		assert.Equal(t, "/dev/sda1", data.Device)
		assert.Equal(t, "ext4", data.Filesystem)
		assert.InDelta(t, 3686.4, data.TotalGB, 0.01)
		assert.InDelta(t, 2969.6, data.UsedGB, 0.01)
		assert.InDelta(t, 520.0, data.FreeGB, 0.01)
		assert.InDelta(t, 86.0, data.UsePercent, 0.01)
	})

	t.Run("unparseable use percent defaults to zero", func(t *testing.T) {
		table := "Filesystem Type Size Used Avail Use% Mounted on\n" +
			"/dev/sda1 ext4 500G 100G 400G ?? /big\n"
		entries, _ := ParseDiskTable(table, nil, 250)

		require.Len(t, entries, 1)
		assert.Zero(t, entries[0].UsePercent)
	})

	t.Run("short rows and empty input are tolerated", func(t *testing.T) {
		entries, allMounts := ParseDiskTable("", nil, 250)
		assert.Empty(t, entries)
		assert.Empty(t, allMounts)

		entries, _ = ParseDiskTable("header\n/dev/sda1 ext4 500G\n", nil, 250)
		assert.Empty(t, entries)
	})
}
