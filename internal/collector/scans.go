package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/spacefleet/spacefleet/internal/parsers"
	"github.com/spacefleet/spacefleet/internal/store"
	"github.com/spacefleet/spacefleet/pkg/sshutil"
)

// ScanFileTypes walks a whole mount and aggregates file sizes by extension.
// This is the expensive scan behind the analysis cache; it runs under the
// extended command timeout.
func (c *Collector) ScanFileTypes(ctx context.Context, t store.Target, mount string) ([]parsers.FileTypeStat, error) {
	runner, err := c.dial(targetConfig(t), sshutil.DefaultConnectTimeout)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	stdout, stderr, code, err := runner.Run(fileTypeScanCmd(mount), commandBudget(ctx, sshutil.ScanCommandTimeout))
	if err != nil {
		return nil, err
	}
	// find exits non-zero on unreadable subtrees but still emits the rest.
	if code != 0 && len(stdout) == 0 {
		return nil, fmt.Errorf("file type scan of %s on %s failed: %s",
			mount, t.Name, strings.TrimSpace(string(stderr)))
	}
	return parsers.ParseFileTypeHistogram(string(stdout)), nil
}

// ScanLargeFiles returns the biggest files on a mount, ranked remotely so
// only the top slice crosses the wire.
func (c *Collector) ScanLargeFiles(ctx context.Context, t store.Target, mount string, limit int) ([]parsers.LargeFile, error) {
	if limit <= 0 {
		limit = c.cfg.Analysis.TopLargeFiles
	}

	runner, err := c.dial(targetConfig(t), sshutil.DefaultConnectTimeout)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	stdout, stderr, code, err := runner.Run(largeFilesScanCmd(mount, limit), commandBudget(ctx, sshutil.ScanCommandTimeout))
	if err != nil {
		return nil, err
	}
	if code != 0 && len(stdout) == 0 {
		return nil, fmt.Errorf("large file scan of %s on %s failed: %s",
			mount, t.Name, strings.TrimSpace(string(stderr)))
	}
	return parsers.ParseTopLargeFiles(string(stdout), limit), nil
}
