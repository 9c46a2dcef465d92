package parsers

import (
	"sort"
	"strconv"
	"strings"
)

// FileTypeStat aggregates disk usage for one file extension.
type FileTypeStat struct {
	Extension string  `json:"extension"`
	Count     int     `json:"count"`
	TotalGB   float64 `json:"total_gb"`
}

// LargeFile is one entry of a top-N large file scan.
type LargeFile struct {
	Path     string  `json:"path"`
	Owner    string  `json:"owner"`
	SizeGB   float64 `json:"size_gb"`
	Modified string  `json:"modified"`
}

const noExtension = "no extension"

// fileExtension extracts the lowercase suffix after the last dot. Dotless
// names and implausibly long suffixes (>10 chars, usually dotted version
// strings) bucket as "no extension".
func fileExtension(path string) string {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}

	dot := strings.LastIndex(base, ".")
	if dot <= 0 || dot == len(base)-1 {
		return noExtension
	}

	ext := strings.ToLower(base[dot+1:])
	if len(ext) > 10 {
		return noExtension
	}
	return ext
}

// ParseFileTypeHistogram aggregates a size-sorted file listing into per-
// extension totals, largest first. Each input line is "<bytes>\t<path>";
// malformed lines are skipped.
func ParseFileTypeHistogram(output string) []FileTypeStat {
	totals := make(map[string]*FileTypeStat)

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) < 2 {
			continue
		}

		sizeBytes, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			continue
		}

		ext := fileExtension(parts[1])
		stat, ok := totals[ext]
		if !ok {
			stat = &FileTypeStat{Extension: ext}
			totals[ext] = stat
		}
		stat.Count++
		stat.TotalGB += float64(sizeBytes) / (1024 * 1024 * 1024)
	}

	stats := make([]FileTypeStat, 0, len(totals))
	for _, stat := range totals {
		stat.TotalGB = round2(stat.TotalGB)
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalGB != stats[j].TotalGB {
			return stats[i].TotalGB > stats[j].TotalGB
		}
		return stats[i].Extension < stats[j].Extension
	})
	return stats
}

// ParseTopLargeFiles parses a pre-ranked large-file listing. Each input line
// is "<bytes>\t<owner>\t<modified>\t<path>"; at most limit entries are kept
// (0 means no limit). Malformed lines are skipped.
func ParseTopLargeFiles(output string, limit int) []LargeFile {
	var files []LargeFile
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) < 4 {
			continue
		}

		sizeBytes, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			continue
		}

		files = append(files, LargeFile{
			SizeGB:   round2(float64(sizeBytes) / (1024 * 1024 * 1024)),
			Owner:    parts[1],
			Modified: parts[2],
			Path:     parts[3],
		})

		if limit > 0 && len(files) >= limit {
			break
		}
	}
	return files
}
