package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExtension(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "simple", path: "/data/video.mp4", want: "mp4"},
		{name: "uppercase normalized", path: "/data/ARCHIVE.TAR", want: "tar"},
		{name: "last dot wins", path: "/data/backup.tar.gz", want: "gz"},
		{name: "dotless name", path: "/data/README", want: "no extension"},
		{name: "hidden file", path: "/home/alice/.bashrc", want: "no extension"},
		{name: "trailing dot", path: "/data/weird.", want: "no extension"},
		{name: "overlong suffix", path: "/data/lib.so.1.2.3-custom-build", want: "no extension"},
		{name: "dot only in directory", path: "/data/v1.2/binary", want: "no extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fileExtension(tt.path))
		})
	}
}

func TestParseFileTypeHistogram(t *testing.T) {
	output := "10737418240\t/data/movies/a.mkv\n" + // 10 GB
		"5368709120\t/data/movies/b.mkv\n" + // 5 GB
		"2147483648\t/data/backup.tar\n" + // 2 GB
		"1073741824\t/data/README\n" + // 1 GB
		"bad\t/data/skip.me\n" +
		"no-tab-line\n"

	stats := ParseFileTypeHistogram(output)
	require.Len(t, stats, 3)

	assert.Equal(t, "mkv", stats[0].Extension)
	assert.Equal(t, 2, stats[0].Count)
	assert.InDelta(t, 15.0, stats[0].TotalGB, 0.01)

	assert.Equal(t, "tar", stats[1].Extension)
	assert.InDelta(t, 2.0, stats[1].TotalGB, 0.01)

	assert.Equal(t, "no extension", stats[2].Extension)
	assert.InDelta(t, 1.0, stats[2].TotalGB, 0.01)
}

func TestParseFileTypeHistogramEmpty(t *testing.T) {
	assert.Empty(t, ParseFileTypeHistogram(""))
}

func TestParseTopLargeFiles(t *testing.T) {
	output := "10737418240\troot\t2026-07-01 03:12\t/data/movies/a.mkv\n" +
		"5368709120\talice\t2026-06-12 19:44\t/data/datasets/train.bin\n" +
		"2147483648\tbob\t2026-05-30 08:00\t/data/backup.tar\n"

	files := ParseTopLargeFiles(output, 2)
	require.Len(t, files, 2)

	assert.Equal(t, "/data/movies/a.mkv", files[0].Path)
	assert.Equal(t, "root", files[0].Owner)
	assert.Equal(t, "2026-07-01 03:12", files[0].Modified)
	assert.InDelta(t, 10.0, files[0].SizeGB, 0.01)

	assert.Equal(t, "alice", files[1].Owner)
}

func TestParseTopLargeFilesUnlimited(t *testing.T) {
	output := "1073741824\troot\t2026-01-01 00:00\t/a\n" +
		"1073741824\troot\t2026-01-01 00:00\t/b\n"
	assert.Len(t, ParseTopLargeFiles(output, 0), 2)
}

func TestParseTopLargeFilesMalformed(t *testing.T) {
	output := "1073741824\troot\t/missing/field\n" +
		"bad\troot\t2026-01-01 00:00\t/a\n"
	assert.Empty(t, ParseTopLargeFiles(output, 0))
}
