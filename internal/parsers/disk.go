package parsers

import (
	"strconv"
	"strings"
)

// DiskEntry is one row of a parsed disk table.
type DiskEntry struct {
	Device     string
	Filesystem string
	MountPoint string
	TotalGB    float64
	UsedGB     float64
	FreeGB     float64
	UsePercent float64
}

// virtualFilesystems are pseudo filesystems never worth tracking.
var virtualFilesystems = map[string]bool{
	"tmpfs":    true,
	"devtmpfs": true,
	"efivarfs": true,
	"squashfs": true,
	"overlay":  true,
}

// skipMount reports whether a mount point is a boot/EFI/snapshot path.
func skipMount(mountPoint string) bool {
	if mountPoint == "/boot" || mountPoint == "/boot/efi" {
		return true
	}
	return strings.HasPrefix(mountPoint, "/snap")
}

// ParseDiskTable parses `df -hT` style output: device, filesystem type,
// total/used/free size, use-percent, and mount point per row, header skipped.
//
// Virtual-filesystem rows and boot/EFI/snapshot mounts are dropped entirely.
// Every remaining mount point is recorded in allMountPoints regardless of the
// selection policy, so callers can hint at what was available. Selection: a
// non-empty allowList keeps exactly the listed mounts and ignores the size
// threshold; otherwise only mounts with total >= minSizeGB are kept.
// A use-percent that fails to parse defaults to 0.
func ParseDiskTable(rawTable string, allowList []string, minSizeGB float64) (entries []DiskEntry, allMountPoints []string) {
	allowed := make(map[string]bool, len(allowList))
	for _, m := range allowList {
		if m = strings.TrimSpace(m); m != "" {
			allowed[m] = true
		}
	}

	lines := strings.Split(strings.TrimSpace(rawTable), "\n")
	if len(lines) < 2 {
		return nil, nil
	}

	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 7 {
			continue
		}

		device := fields[0]
		filesystem := fields[1]
		mountPoint := fields[6]

		if virtualFilesystems[filesystem] {
			continue
		}
		if skipMount(mountPoint) {
			continue
		}

		totalGB := ParseSize(fields[2])
		allMountPoints = append(allMountPoints, mountPoint)

		if len(allowed) > 0 {
			if !allowed[mountPoint] {
				continue
			}
		} else if totalGB < minSizeGB {
			continue
		}

		usePercent, err := strconv.ParseFloat(strings.TrimSuffix(fields[5], "%"), 64)
		if err != nil || usePercent < 0 {
			usePercent = 0.0
		}

		entries = append(entries, DiskEntry{
			Device:     device,
			Filesystem: filesystem,
			MountPoint: mountPoint,
			TotalGB:    round2(totalGB),
			UsedGB:     round2(ParseSize(fields[3])),
			FreeGB:     round2(ParseSize(fields[4])),
			UsePercent: usePercent,
		})
	}

	return entries, allMountPoints
}
