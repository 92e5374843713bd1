// Package loader resolves sefer documents through the tiered cache.
//
// Resolution order is strictly memory -> persistent cache -> document
// store. Faster tiers are populated on the way back, and the
// text-correction pass is applied to every document entering memory, so
// the memory tier only ever holds corrected documents. Only a document
// store failure propagates to the caller; cache population is
// best-effort.
//
// Concurrent Resolve calls for the same identifier are not deduplicated;
// each call walks the tiers independently. Callers needing at-most-once
// semantics coordinate externally (the prefetch scheduler and the search
// coordinator both serialize their walks).
package loader

import (
	"context"

	"github.com/torahstudy/limud/core/cache"
	"github.com/torahstudy/limud/core/cachedb"
	"github.com/torahstudy/limud/core/errors"
	"github.com/torahstudy/limud/core/store"
	"github.com/torahstudy/limud/core/textfix"
	"github.com/torahstudy/limud/core/torah"
	"github.com/torahstudy/limud/internal/logging"
)

// PersistentCache is the persistent tier as the loader sees it. Get
// resolves to (nil, nil) on a miss; Put is best-effort and silent.
// *cachedb.SeferCache is the production implementation.
type PersistentCache interface {
	Get(ctx context.Context, seferID int) (*torah.Sefer, error)
	Put(ctx context.Context, seferID int, sefer *torah.Sefer)
}

var _ PersistentCache = (*cachedb.SeferCache)(nil)

// Loader resolves sefarim through the cache tiers. It exclusively owns
// write access to both tiers.
type Loader struct {
	mem *cache.SeferCache
	db  PersistentCache
	src store.Store
}

// New creates a loader with a fresh, empty in-memory tier.
// The persistent tier may be nil, in which case resolution goes straight
// from memory to the document store.
func New(db PersistentCache, src store.Store) *Loader {
	return &Loader{
		mem: cache.NewSeferCache(),
		db:  db,
		src: src,
	}
}

// Resolve returns the sefer with the given identifier, checking memory,
// then the persistent cache, then the document store. A store failure
// is returned as-is; the UI decides how to surface it.
func (l *Loader) Resolve(ctx context.Context, seferID int) (*torah.Sefer, error) {
	if !torah.ValidSeferID(seferID) {
		return nil, errors.NewValidation("sefer_id", "must be between 1 and 5")
	}

	// Tier 1: memory. Hit returns immediately, no side effects.
	if sefer, ok := l.mem.Get(seferID); ok {
		logging.CacheEvent("hit", seferID, "tier", "memory")
		return sefer, nil
	}

	// Tier 2: persistent cache. Correct the text before it enters memory.
	if l.db != nil {
		cached, err := l.db.Get(ctx, seferID)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			fixed := textfix.FixSefer(cached)
			l.mem.Put(seferID, fixed)
			return fixed, nil
		}
	}

	// Tier 3: document store. Populate both tiers on success.
	sefer, err := l.src.LoadSefer(ctx, seferID)
	if err != nil {
		logging.Error("sefer load failed", "sefer_id", seferID, "error", err)
		return nil, errors.Wrapf(err, "load sefer %d", seferID)
	}
	fixed := textfix.FixSefer(sefer)
	l.mem.Put(seferID, fixed)
	if l.db != nil {
		l.db.Put(ctx, seferID, fixed)
	}
	logging.CacheEvent("resolve", seferID, "tier", "store")
	return fixed, nil
}

// Resident reports whether a sefer is already in the memory tier.
func (l *Loader) Resident(seferID int) bool {
	return l.mem.Has(seferID)
}

// ResolveAll resolves every sefer in the corpus in ascending order,
// returning the documents that loaded successfully indexed by position.
// Individual failures are logged and leave a nil slot; a partial corpus
// is acceptable to every consumer of this method.
func (l *Loader) ResolveAll(ctx context.Context) []*torah.Sefer {
	sefarim := make([]*torah.Sefer, 0, torah.SeferCount)
	for _, seferID := range torah.SeferIDs() {
		if ctx.Err() != nil {
			break
		}
		sefer, err := l.Resolve(ctx, seferID)
		if err != nil {
			logging.Warn("corpus warm-up failed for sefer", "sefer_id", seferID, "error", err)
			continue
		}
		sefarim = append(sefarim, sefer)
	}
	return sefarim
}

// MemStats returns statistics for the in-memory tier.
func (l *Loader) MemStats() cache.Stats {
	return l.mem.Stats()
}

// ClearMemory drops the in-memory tier. Intended for diagnostics.
func (l *Loader) ClearMemory() {
	l.mem.Clear()
}
