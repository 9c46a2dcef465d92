// Package collector runs the remote commands that sample disk, directory,
// CPU, memory, and GPU state across the fleet and lands the results in the
// store.
package collector

import (
	"fmt"

	"github.com/spacefleet/spacefleet/internal/util"
)

// diskTableCmd lists every mounted filesystem with human-readable sizes and
// the filesystem type column the parser filters on.
const diskTableCmd = "df -hT"

// cpuSampleCmd reads /proc/stat twice one second apart in a single round
// trip. The parser diffs the two snapshots for a real utilization figure.
const cpuSampleCmd = "cat /proc/stat; sleep 1; echo '---'; cat /proc/stat"

// cpuFallbackCmd is used when /proc/stat isn't readable (containers, BSDs
// with procfs quirks). Less accurate: top's figure is since-boot on some
// builds.
const cpuFallbackCmd = "top -bn1 | head -5"

const memoryCmd = "free -b"

// gpuQueryArgs keeps the CSV column order the GPU parser expects.
const gpuQueryArgs = "--query-gpu=index,name,memory.total,memory.used,utilization.gpu,temperature.gpu --format=csv,noheader,nounits"

// gpuCommands are tried in order; PATH lookups fail on hosts where cron-like
// environments strip /usr/bin.
var gpuCommands = []string{
	"nvidia-smi " + gpuQueryArgs,
	"/usr/bin/nvidia-smi " + gpuQueryArgs,
	"/usr/local/bin/nvidia-smi " + gpuQueryArgs,
}

// directorySizesCmd sums each top-level entry under a mount in kilobytes,
// biggest first. The mount path is shell-quoted; the glob stays outside the
// quotes so it still expands.
func directorySizesCmd(mount string) string {
	return fmt.Sprintf("du -s %s/* 2>/dev/null | sort -rn", util.ShellQuote(mount))
}

// directoryOwnersCmd emits "owner path" for each top-level entry, joined with
// the size output by path.
func directoryOwnersCmd(mount string) string {
	return fmt.Sprintf("stat -c '%%U %%n' %s/* 2>/dev/null", util.ShellQuote(mount))
}

// fileTypeScanCmd streams "<bytes>\t<path>" for every regular file on the
// mount's own device. Aggregation by extension happens client-side.
func fileTypeScanCmd(mount string) string {
	return fmt.Sprintf("find %s -xdev -type f -printf '%%s\\t%%p\\n' 2>/dev/null",
		util.ShellQuote(mount))
}

// largeFilesScanCmd ranks files by size remotely so only the top slice
// crosses the wire.
func largeFilesScanCmd(mount string, limit int) string {
	return fmt.Sprintf(
		"find %s -xdev -type f -printf '%%s\\t%%u\\t%%TY-%%Tm-%%Td %%TH:%%TM\\t%%p\\n' 2>/dev/null | sort -rn | head -%d",
		util.ShellQuote(mount), limit)
}
