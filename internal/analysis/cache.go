// Package analysis serves expensive whole-mount scan results through a
// TTL-gated cache. Reads are always served from the store; stale entries
// trigger at most one background refresh per cache key.
package analysis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/spacefleet/spacefleet/internal/config"
	"github.com/spacefleet/spacefleet/internal/errors"
	"github.com/spacefleet/spacefleet/internal/logger"
	"github.com/spacefleet/spacefleet/internal/parsers"
	"github.com/spacefleet/spacefleet/internal/store"
)

// Scanner runs the remote scans the cache is built on. The collector
// satisfies it; tests substitute scripted results.
type Scanner interface {
	ScanFileTypes(ctx context.Context, t store.Target, mount string) ([]parsers.FileTypeStat, error)
	ScanLargeFiles(ctx context.Context, t store.Target, mount string, limit int) ([]parsers.LargeFile, error)
}

// Result is what a cache read hands back: the stored payload (possibly
// empty when no scan has ever completed) plus its freshness state.
type Result struct {
	DataJSON    string
	CollectedAt *time.Time
	Refreshing  bool
	Stale       bool
	ScanError   string
}

// Cache coordinates cached scans per (target, mount, kind).
type Cache struct {
	store   *store.Store
	scanner Scanner
	cfg     *config.Config
	log     logger.Logger
	wg      sync.WaitGroup
}

func NewCache(st *store.Store, scanner Scanner, cfg *config.Config, log logger.Logger) *Cache {
	if log == nil {
		log = logger.Noop()
	}
	return &Cache{store: st, scanner: scanner, cfg: cfg, log: log}
}

// Get returns the cached scan for a target's mount. When the entry is stale
// (never collected, or older than the TTL) and no refresh is in flight, a
// background refresh is started; the stale payload is returned immediately
// either way.
func (c *Cache) Get(ctx context.Context, targetName, mount, kind string) (*Result, error) {
	target, err := c.store.GetTarget(ctx, targetName)
	if err != nil {
		return nil, err
	}
	if err := c.validateMount(ctx, target.ID, mount); err != nil {
		return nil, err
	}

	entry, err := c.store.GetOrCreateCache(ctx, target.ID, mount, kind)
	if err != nil {
		return nil, err
	}

	stale := entry.CollectedAt == nil || time.Since(*entry.CollectedAt) > c.cfg.Analysis.TTL
	refreshing := entry.Refreshing

	if stale && !refreshing {
		claimed, err := c.store.ClaimRefresh(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
		if claimed {
			refreshing = true
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.refresh(*target, entry.ID, mount, kind)
			}()
		} else {
			// Another request claimed the refresh between our read and
			// the update.
			refreshing = true
		}
	}

	return &Result{
		DataJSON:    entry.DataJSON,
		CollectedAt: entry.CollectedAt,
		Refreshing:  refreshing,
		Stale:       stale,
		ScanError:   entry.Error,
	}, nil
}

// Wait blocks until every refresh this cache has started is finished. Short
// lived callers that exit after a Get must wait so claimed refreshes land
// instead of dying with the process.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Peek reads the cache entry without scheduling a refresh, no matter how
// stale it is.
func (c *Cache) Peek(ctx context.Context, targetName, mount, kind string) (*Result, error) {
	target, err := c.store.GetTarget(ctx, targetName)
	if err != nil {
		return nil, err
	}
	if err := c.validateMount(ctx, target.ID, mount); err != nil {
		return nil, err
	}

	entry, err := c.store.GetOrCreateCache(ctx, target.ID, mount, kind)
	if err != nil {
		return nil, err
	}
	return &Result{
		DataJSON:    entry.DataJSON,
		CollectedAt: entry.CollectedAt,
		Refreshing:  entry.Refreshing,
		Stale:       entry.CollectedAt == nil || time.Since(*entry.CollectedAt) > c.cfg.Analysis.TTL,
		ScanError:   entry.Error,
	}, nil
}

// ForceRefresh scans synchronously and overwrites the cache entry, ignoring
// both the TTL and any in-flight background refresh.
func (c *Cache) ForceRefresh(ctx context.Context, targetName, mount, kind string) (*Result, error) {
	target, err := c.store.GetTarget(ctx, targetName)
	if err != nil {
		return nil, err
	}
	if err := c.validateMount(ctx, target.ID, mount); err != nil {
		return nil, err
	}

	entry, err := c.store.GetOrCreateCache(ctx, target.ID, mount, kind)
	if err != nil {
		return nil, err
	}

	dataJSON, err := c.scan(ctx, *target, mount, kind)
	if err != nil {
		if ferr := c.store.FailRefresh(ctx, entry.ID, err.Error()); ferr != nil {
			c.log.Error("recording scan failure: %v", ferr)
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := c.store.CompleteRefresh(ctx, entry.ID, dataJSON, now); err != nil {
		return nil, err
	}
	return &Result{DataJSON: dataJSON, CollectedAt: &now}, nil
}

// refresh runs detached from the request that triggered it; the scan keeps
// going even if the caller has gone away.
func (c *Cache) refresh(target store.Target, entryID int64, mount, kind string) {
	ctx := context.Background()

	dataJSON, err := c.scan(ctx, target, mount, kind)
	if err != nil {
		c.log.Error("background %s scan of %s on %s: %v", kind, mount, target.Name, err)
		if ferr := c.store.FailRefresh(ctx, entryID, err.Error()); ferr != nil {
			c.log.Error("recording scan failure: %v", ferr)
		}
		return
	}
	if err := c.store.CompleteRefresh(ctx, entryID, dataJSON, time.Now().UTC()); err != nil {
		c.log.Error("storing %s scan of %s on %s: %v", kind, mount, target.Name, err)
	}
}

func (c *Cache) scan(ctx context.Context, target store.Target, mount, kind string) (string, error) {
	var payload any
	switch kind {
	case store.KindFileTypes:
		stats, err := c.scanner.ScanFileTypes(ctx, target, mount)
		if err != nil {
			return "", err
		}
		payload = stats
	case store.KindLargeFiles:
		files, err := c.scanner.ScanLargeFiles(ctx, target, mount, c.cfg.Analysis.TopLargeFiles)
		if err != nil {
			return "", err
		}
		payload = files
	default:
		return "", errors.New(errors.ErrCache, "Unknown analysis kind: "+kind,
			"Valid kinds are file_types and large_files.")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// validateMount refuses mount paths the target's last collection never saw.
// The path ends up embedded in remote commands, so unknown values are
// rejected outright rather than quoted and hoped for.
func (c *Cache) validateMount(ctx context.Context, serverID int64, mount string) error {
	known, err := c.store.KnownMounts(ctx, serverID)
	if err != nil {
		return err
	}
	for _, m := range known {
		if m == mount {
			return nil
		}
	}
	return errors.New(errors.ErrCache,
		"Mount "+mount+" isn't known for this target",
		"Run a collection first; only discovered mount points can be scanned.")
}
