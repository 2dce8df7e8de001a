// Package cache implements the APOD entry cache: the on-disk store shared
// between the app and widget processes, the sorted in-memory index over it,
// and the manager that decides between serving a cached entry and fetching
// a fresh one.
package cache

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jbandes/spacepod-go/internal/core"
	"github.com/jbandes/spacepod-go/internal/entry"
)

// APIClient is the slice of the APOD client the manager needs.
type APIClient interface {
	LatestEntries(ctx context.Context, startDate core.YearMonthDay) ([]entry.RawEntry, error)
	DownloadAsset(ctx context.Context, url string) (string, error)
}

// Manager orchestrates cache lookups and upstream fetches.
//
// LoadLatest serves the cached entry whenever the staleness policy allows,
// and otherwise runs the full pipeline: fetch metadata, resolve the asset's
// displayable image, download it, validate it, persist both files, and
// rebuild the index. Concurrent calls within the process coalesce onto a
// single in-flight fetch.
type Manager struct {
	client        APIClient
	oembed        entry.OEmbedLookup
	store         *Store
	checkInterval time.Duration
	logger        zerolog.Logger

	group singleflight.Group
	now   func() time.Time
}

// NewManager wires a manager from its collaborators. A zero checkInterval
// selects the default poll interval.
func NewManager(client APIClient, oembed entry.OEmbedLookup, store *Store, checkInterval time.Duration, logger zerolog.Logger) *Manager {
	if checkInterval <= 0 {
		checkInterval = core.DefaultCheckInterval
	}
	return &Manager{
		client:        client,
		oembed:        oembed,
		store:         store,
		checkInterval: checkInterval,
		logger:        logger,
		now:           time.Now,
	}
}

// Store returns the underlying store.
func (m *Manager) Store() *Store {
	return m.store
}

// LoadLatest returns the most recent entry, from cache when fresh enough,
// otherwise from the network. Failures are terminal for the attempt; the
// manager never retries on its own.
func (m *Manager) LoadLatest(ctx context.Context) (entry.Entry, error) {
	idx, err := m.store.Load()
	if err != nil {
		return entry.Entry{}, err
	}

	if latest, ok := idx.Latest(); ok {
		stale, err := m.isStale(latest)
		if err != nil {
			return entry.Entry{}, err
		}
		if !stale {
			m.logger.Debug().Str("date", latest.Date.String()).Msg("serving cached entry")
			return latest, nil
		}
	}

	// Coalesce concurrent callers onto one fetch. The fetch itself is
	// detached from the triggering caller's cancellation: once started, it
	// runs to completion so the cache ends up populated exactly once.
	v, err, _ := m.group.Do("latest", func() (interface{}, error) {
		return m.fetchLatest(context.WithoutCancel(ctx))
	})
	if err != nil {
		return entry.Entry{}, err
	}
	return v.(entry.Entry), nil
}

// isStale applies the staleness policy to the cached latest entry. The
// entry is stale only when the next calendar day after it has begun in the
// reference time zone AND the last successful check is older than the poll
// interval. Requiring both avoids hammering the API around midnight while
// the upstream has not published yet.
func (m *Manager) isStale(latest entry.Entry) (bool, error) {
	now := m.now()
	if latest.Date.IsCurrent(now) {
		return false, nil
	}
	if now.Before(latest.Date.NextDayStart()) {
		return false, nil
	}

	lastChecked, ok, err := m.store.LastChecked()
	if err != nil {
		return false, err
	}
	if ok && now.Sub(lastChecked) <= m.checkInterval {
		m.logger.Debug().Time("last_checked", lastChecked).Msg("checked recently, serving cached entry")
		return false, nil
	}
	return true, nil
}

// fetchLatest runs the network path of LoadLatest: fetch, parse, resolve,
// download, validate, persist, refresh.
func (m *Manager) fetchLatest(ctx context.Context) (entry.Entry, error) {
	// Request a range starting from yesterday rather than today: early in
	// the day the upstream reports "no data available" for the current
	// date. The last element of the response is the latest entry.
	startDate := core.YMDFromTime(m.now()).AddDays(-1)

	raws, err := m.client.LatestEntries(ctx, startDate)
	if err != nil {
		return entry.Entry{}, err
	}

	e, err := entry.FromRaw(raws[len(raws)-1])
	if err != nil {
		return entry.Entry{}, err
	}

	imageURL, err := entry.ResolveImageURL(ctx, e.Asset, m.oembed)
	if err != nil {
		return entry.Entry{}, err
	}

	tmpPath, err := m.client.DownloadAsset(ctx, imageURL)
	if err != nil {
		return entry.Entry{}, err
	}

	// Validate before the store is touched: a corrupt partial download
	// must never land in the permanent cache.
	if err := entry.ValidateImageFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return entry.Entry{}, err
	}

	metadata, err := e.EncodeMetadata()
	if err != nil {
		os.Remove(tmpPath)
		return entry.Entry{}, err
	}

	if err := m.store.Write(e, metadata, tmpPath); err != nil {
		os.Remove(tmpPath)
		return entry.Entry{}, err
	}

	// Rebuild the index so subsequent calls in this process see the new
	// entry (and any pruning that happened meanwhile).
	if _, err := m.store.Load(); err != nil {
		return entry.Entry{}, err
	}

	m.logger.Info().Str("date", e.Date.String()).Str("title", e.Title).Msg("cached new entry")
	return e, nil
}

// ClearCache deletes the entire store directory. Debug use only.
func (m *Manager) ClearCache() error {
	return m.store.Clear()
}
