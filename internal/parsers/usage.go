package parsers

import (
	"math"
	"strconv"
	"strings"
)

// DirectoryUsage is the size and ownership of one directory under a mount.
type DirectoryUsage struct {
	Directory string
	Owner     *string // nil when no ownership entry matched
	UsedGB    float64
}

// ParseDirectoryUsage joins per-directory `du -s` sizes (KB) with a
// `stat -c '%U %n'` ownership lookup by exact path match. Directories under
// 1 GB are dropped. A directory with no matching ownership entry gets a nil
// owner rather than failing.
func ParseDirectoryUsage(sizeOutput, ownerOutput string) []DirectoryUsage {
	owners := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(ownerOutput), "\n") {
		parts := strings.SplitN(line, " ", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			owners[parts[1]] = parts[0]
		}
	}

	var usages []DirectoryUsage
	for _, line := range strings.Split(strings.TrimSpace(sizeOutput), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		sizeKB, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}

		sizeGB := float64(sizeKB) / (1024 * 1024)
		if sizeGB < 1 {
			continue
		}

		directory := parts[1]
		var owner *string
		if o, ok := owners[directory]; ok {
			owner = &o
		}

		usages = append(usages, DirectoryUsage{
			Directory: directory,
			Owner:     owner,
			UsedGB:    round2(sizeGB),
		})
	}

	return usages
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
