// Package cachedb provides the persistent local cache tier for sefer
// documents, backed by SQLite.
//
// Each record stores the full parsed document as xz-compressed JSON
// together with a write timestamp, a schema-version tag, and a BLAKE3
// checksum of the uncompressed payload. A record is valid only while
// younger than the TTL and written under the current schema version;
// anything else is treated as absent and purged on read.
//
// The cache fails closed: read-side problems (corrupt payload, schema
// drift, expiry) resolve to a miss, and write-side problems are logged
// and swallowed. The corpus always remains loadable from the document
// store, so persistence here is strictly best-effort.
package cachedb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/torahstudy/limud/core/errors"
	"github.com/torahstudy/limud/core/sqlite"
	"github.com/torahstudy/limud/core/store"
	"github.com/torahstudy/limud/core/torah"
	"github.com/torahstudy/limud/internal/logging"
)

const (
	// SchemaVersion tags every record; bump to invalidate all cached copies.
	SchemaVersion = "1.0.0"

	// DefaultTTL is how long a cached sefer stays valid.
	DefaultTTL = 7 * 24 * time.Hour
)

const schema = `
CREATE TABLE IF NOT EXISTS sefarim (
	sefer_id  INTEGER PRIMARY KEY,
	payload   BLOB    NOT NULL,
	checksum  TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	version   TEXT    NOT NULL
);`

// Injectable clock for TTL tests.
var timeNow = time.Now

// SeferCache is a SQLite-backed persistent cache for sefer documents.
type SeferCache struct {
	db  *sql.DB
	ttl time.Duration
}

// Stats describes the persisted cache contents.
type Stats struct {
	CachedCount int   `json:"cached_count"`
	TotalBytes  int64 `json:"total_bytes"`
	OldestMs    int64 `json:"oldest_cache"`
}

// Open opens (creating if needed) a sefer cache at the given path.
func Open(path string) (*SeferCache, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("migrate", path, err)
	}
	return &SeferCache{db: db, ttl: DefaultTTL}, nil
}

// OpenWithTTL opens a sefer cache with a non-default TTL.
func OpenWithTTL(path string, ttl time.Duration) (*SeferCache, error) {
	c, err := Open(path)
	if err != nil {
		return nil, err
	}
	c.ttl = ttl
	return c, nil
}

// Close releases the underlying database handle.
func (c *SeferCache) Close() error {
	return c.db.Close()
}

// Get returns the cached sefer for the given identifier, or nil if the
// record is absent, expired, written under an old schema version, or
// corrupt. Invalid records are deleted as a side effect. Get never
// returns an error to the caller except for context cancellation; all
// other failures resolve to a miss.
func (c *SeferCache) Get(ctx context.Context, seferID int) (*torah.Sefer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		payload   []byte
		checksum  string
		timestamp int64
		version   string
	)
	row := c.db.QueryRowContext(ctx,
		`SELECT payload, checksum, timestamp, version FROM sefarim WHERE sefer_id = ?`, seferID)
	switch err := row.Scan(&payload, &checksum, &timestamp, &version); {
	case err == sql.ErrNoRows:
		logging.CacheEvent("miss", seferID, "tier", "db")
		return nil, nil
	case err != nil:
		logging.Warn("cache read failed", "sefer_id", seferID, "error", err)
		return nil, nil
	}

	if reject := c.validate(seferID, timestamp, version); reject != nil {
		logging.CacheEvent("purge", seferID, "tier", "db", "reason", reject.Reason)
		c.delete(ctx, seferID)
		return nil, nil
	}

	sefer, err := decodePayload(payload, checksum)
	if err != nil {
		logging.Warn("cache record corrupt", "sefer_id", seferID, "error", err)
		c.delete(ctx, seferID)
		return nil, nil
	}

	age := timeNow().Sub(time.UnixMilli(timestamp))
	logging.CacheEvent("hit", seferID, "tier", "db", "age_m", int(age.Minutes()))
	return sefer, nil
}

// validate checks TTL and schema version of a record.
func (c *SeferCache) validate(seferID int, timestamp int64, version string) *errors.CacheError {
	if version != SchemaVersion {
		return errors.NewCache(seferID, "schema version "+version, errors.ErrVersionMismatch)
	}
	if timeNow().Sub(time.UnixMilli(timestamp)) > c.ttl {
		return errors.NewCache(seferID, "ttl expired", errors.ErrExpired)
	}
	return nil
}

// Put upserts the sefer with the current timestamp and schema version.
// Failures are logged and swallowed; cache population is best-effort and
// must never prevent the caller from using the resolved document.
func (c *SeferCache) Put(ctx context.Context, seferID int, sefer *torah.Sefer) {
	payload, checksum, err := encodePayload(sefer)
	if err != nil {
		logging.Warn("cache encode failed", "sefer_id", seferID, "error", err)
		return
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO sefarim (sefer_id, payload, checksum, timestamp, version)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(sefer_id) DO UPDATE SET
		   payload = excluded.payload,
		   checksum = excluded.checksum,
		   timestamp = excluded.timestamp,
		   version = excluded.version`,
		seferID, payload, checksum, timeNow().UnixMilli(), SchemaVersion)
	if err != nil {
		logging.Warn("cache write failed", "sefer_id", seferID, "error", err)
		return
	}
	logging.CacheEvent("store", seferID, "tier", "db", "bytes", len(payload))
}

// Has reports whether a valid (non-expired, current-version) record
// exists without decoding its payload.
func (c *SeferCache) Has(ctx context.Context, seferID int) bool {
	var (
		timestamp int64
		version   string
	)
	row := c.db.QueryRowContext(ctx,
		`SELECT timestamp, version FROM sefarim WHERE sefer_id = ?`, seferID)
	if err := row.Scan(&timestamp, &version); err != nil {
		return false
	}
	return c.validate(seferID, timestamp, version) == nil
}

// Delete removes the record for the given sefer.
func (c *SeferCache) Delete(ctx context.Context, seferID int) {
	c.delete(ctx, seferID)
}

func (c *SeferCache) delete(ctx context.Context, seferID int) {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM sefarim WHERE sefer_id = ?`, seferID); err != nil {
		logging.Warn("cache delete failed", "sefer_id", seferID, "error", err)
	}
}

// Clear removes all records. Used for diagnostics and reset only.
func (c *SeferCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM sefarim`); err != nil {
		return errors.Wrap(err, "clear sefer cache")
	}
	logging.Info("sefer cache cleared")
	return nil
}

// Stats returns cache statistics for diagnostics.
func (c *SeferCache) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0), COALESCE(MIN(timestamp), 0) FROM sefarim`)
	if err := row.Scan(&s.CachedCount, &s.TotalBytes, &s.OldestMs); err != nil {
		return Stats{}, errors.Wrap(err, "read cache stats")
	}
	return s, nil
}

// ProgressFunc reports preload progress after each sefer is handled.
type ProgressFunc func(current, total int)

// PreloadAll warms the cache for every sefer in the corpus: identifiers
// already validly cached are skipped, the rest are fetched from src and
// stored. A single sefer's failure is logged and the loop continues;
// PreloadAll only fails on context cancellation.
func (c *SeferCache) PreloadAll(ctx context.Context, src store.Store, onProgress ProgressFunc) error {
	ids := torah.SeferIDs()
	total := len(ids)
	for i, seferID := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Has(ctx, seferID) {
			logging.CacheEvent("preload_skip", seferID, "tier", "db")
			if onProgress != nil {
				onProgress(i+1, total)
			}
			continue
		}
		sefer, err := src.LoadSefer(ctx, seferID)
		if err != nil {
			logging.Warn("preload failed", "sefer_id", seferID, "error", err)
			if onProgress != nil {
				onProgress(i+1, total)
			}
			continue
		}
		c.Put(ctx, seferID, sefer)
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}
	return nil
}

// encodePayload serializes a sefer to xz-compressed JSON plus a BLAKE3
// checksum of the uncompressed bytes.
func encodePayload(sefer *torah.Sefer) ([]byte, string, error) {
	raw, err := json.Marshal(sefer)
	if err != nil {
		return nil, "", errors.Wrap(err, "marshal sefer")
	}
	sum := blake3.Sum256(raw)

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, "", errors.Wrap(err, "create xz writer")
	}
	if _, err := w.Write(raw); err != nil {
		return nil, "", errors.Wrap(err, "compress sefer")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "finish compression")
	}
	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}

// decodePayload decompresses, checksums, and parses a stored record.
func decodePayload(payload []byte, checksum string) (*torah.Sefer, error) {
	r, err := xz.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCorrupt, "open xz reader: "+err.Error())
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCorrupt, "decompress: "+err.Error())
	}

	sum := blake3.Sum256(raw)
	if hex.EncodeToString(sum[:]) != checksum {
		return nil, errors.Wrap(errors.ErrCorrupt, "checksum mismatch")
	}

	var sefer torah.Sefer
	if err := json.Unmarshal(raw, &sefer); err != nil {
		return nil, errors.Wrap(errors.ErrCorrupt, "unmarshal: "+err.Error())
	}
	return &sefer, nil
}
