// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package access

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/talentgate/talentgate/internal/models"
)

// LicenseFetcher is the slice of the platform client the directory needs.
type LicenseFetcher interface {
	MyModules(ctx context.Context) ([]models.License, error)
}

// Directory is the single-writer cache of the tenant's licenses. Readers
// (navigation, feature gate) take snapshots; only the directory itself and
// the lifecycle controller's Invalidate calls mutate its state.
//
// Snapshot always refetches (zero retention), deduplicating concurrent
// callers through singleflight so a burst of gate checks costs one round
// trip. The last successful fetch is kept for advisory display only.
type Directory struct {
	fetcher LicenseFetcher

	mu         sync.RWMutex
	licenses   []models.License
	loaded     bool
	generation uint64

	subsMu sync.Mutex
	subs   map[int]chan struct{}
	nextID int

	group singleflight.Group
}

func NewDirectory(fetcher LicenseFetcher) *Directory {
	return &Directory{
		fetcher: fetcher,
		subs:    make(map[int]chan struct{}),
	}
}

// Snapshot fetches the current license set. On error it returns a nil
// slice, which the evaluator treats as deny (fail-closed); no stale allow
// is served from a previous fetch.
func (d *Directory) Snapshot(ctx context.Context) ([]models.License, error) {
	d.mu.RLock()
	gen := d.generation
	d.mu.RUnlock()

	// Keyed by generation so an Invalidate during an in-flight fetch forces
	// the next caller onto a fresh round trip instead of the stale result.
	key := strconv.FormatUint(gen, 10)

	result, err, _ := d.group.Do(key, func() (any, error) {
		licenses, err := d.fetcher.MyModules(ctx)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		if d.generation == gen {
			d.licenses = licenses
			d.loaded = true
		}
		d.mu.Unlock()

		d.notify()
		return licenses, nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("license directory fetch failed, denying access")
		return nil, err
	}

	return result.([]models.License), nil
}

// Cached returns the last successfully fetched license set and whether any
// fetch has succeeded. Advisory only; gate decisions go through Snapshot.
func (d *Directory) Cached() ([]models.License, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.loaded {
		return nil, false
	}
	out := make([]models.License, len(d.licenses))
	copy(out, d.licenses)
	return out, true
}

// Invalidate drops the cached set and bumps the generation so the next
// Snapshot observes post-mutation state. Called by the lifecycle controller
// after every confirmed mutation.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.licenses = nil
	d.loaded = false
	d.generation++
	d.mu.Unlock()

	d.notify()
}

// Subscribe returns a channel that receives a signal whenever the directory
// changes (refresh or invalidation). Consumers re-derive their view; they
// never receive license data through the channel.
func (d *Directory) Subscribe() (<-chan struct{}, func()) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()

	id := d.nextID
	d.nextID++

	ch := make(chan struct{}, 1)
	d.subs[id] = ch

	cancel := func() {
		d.subsMu.Lock()
		defer d.subsMu.Unlock()
		delete(d.subs, id)
	}
	return ch, cancel
}

func (d *Directory) notify() {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()

	for _, ch := range d.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
