// Package cachestore provides a sortable.IdentityCache over a shared byte
// cache, so several processes ranking the same table see each other's bulk
// shifts.
//
// Rows are encoded with msgpack and stamped with the version token of their
// scope. InvalidateScope replaces the token with a fresh UUID, which makes
// every row cached under the old token stale at once:
//
//	cache := cachestore.New[int64](redisCache, "tasks")
//	ledger := sortable.New[int64](store, cache)
//
// Unlike the process-local sortable.IdentityMap, Get returns a decoded copy
// of the row rather than a shared instance.
package cachestore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/syssam/sortable"
	"github.com/vmihailenco/msgpack/v5"
)

// entry is the cached form of a row.
type entry[K comparable] struct {
	ID      K              `msgpack:"id"`
	Rank    int            `msgpack:"rank"`
	Scope   []any          `msgpack:"scope"`
	Fields  map[string]any `msgpack:"fields"`
	Version string         `msgpack:"version"`
}

// Store is a sortable.IdentityCache over a sortable.Cache.
type Store[K comparable] struct {
	cache sortable.Cache
	table string
	ttl   time.Duration
	log   *slog.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	ttl time.Duration
	log *slog.Logger
}

// WithTTL sets the expiry of cached rows. Version tokens never expire.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithLogger sets the logger reporting cache failures. Get and Put cannot
// return errors, so their failures are logged and treated as misses.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New returns a Store keeping the rows of table in cache.
func New[K comparable](cache sortable.Cache, table string, opts ...Option) *Store[K] {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[K]{cache: cache, table: table, ttl: o.ttl, log: o.log.With("table", table)}
}

var _ sortable.IdentityCache[int64] = (*Store[int64])(nil)

func (s *Store[K]) rowKey(id K) string {
	return sortable.CacheKey{Table: s.table, Kind: "row", Key: fmt.Sprint(id)}.String()
}

func (s *Store[K]) versionKey(scope sortable.Scope) string {
	return sortable.CacheKey{Table: s.table, Kind: "version", Key: scope.Key()}.String()
}

// version returns the current token of scope. A missing token is created when
// create is set, otherwise it reads as "".
func (s *Store[K]) version(ctx context.Context, scope sortable.Scope, create bool) (string, error) {
	b, err := s.cache.Get(ctx, s.versionKey(scope))
	if err != nil {
		return "", err
	}
	if b != nil || !create {
		return string(b), nil
	}
	v := uuid.NewString()
	if err := s.cache.Set(ctx, s.versionKey(scope), []byte(v), 0); err != nil {
		return "", err
	}
	return v, nil
}

// Get implements sortable.IdentityCache.
func (s *Store[K]) Get(ctx context.Context, id K) (*sortable.Record[K], bool) {
	b, err := s.cache.Get(ctx, s.rowKey(id))
	if err != nil {
		s.log.WarnContext(ctx, "cachestore: get failed", "id", id, "error", err)
		return nil, false
	}
	if b == nil {
		return nil, false
	}
	e, err := decode[K](b)
	if err != nil {
		s.log.WarnContext(ctx, "cachestore: decode failed", "id", id, "error", err)
		return nil, false
	}
	v, err := s.version(ctx, e.Scope, false)
	if err != nil {
		s.log.WarnContext(ctx, "cachestore: version lookup failed", "id", id, "error", err)
		return nil, false
	}
	if v == "" || v != e.Version {
		return nil, false
	}
	return sortable.Hydrate(e.ID, e.Rank, e.Scope, e.Fields), true
}

// Put implements sortable.IdentityCache.
func (s *Store[K]) Put(ctx context.Context, rec *sortable.Record[K]) {
	if rec == nil || rec.IsNew() || rec.IsDeleted() {
		return
	}
	v, err := s.version(ctx, rec.Scope(), true)
	if err != nil {
		s.log.WarnContext(ctx, "cachestore: version lookup failed", "id", rec.ID, "error", err)
		return
	}
	b, err := msgpack.Marshal(&entry[K]{
		ID:      rec.ID,
		Rank:    rec.Rank(),
		Scope:   rec.Scope(),
		Fields:  rec.Fields,
		Version: v,
	})
	if err != nil {
		s.log.WarnContext(ctx, "cachestore: encode failed", "id", rec.ID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, s.rowKey(rec.ID), b, s.ttl); err != nil {
		s.log.WarnContext(ctx, "cachestore: set failed", "id", rec.ID, "error", err)
	}
}

// Evict implements sortable.IdentityCache.
func (s *Store[K]) Evict(ctx context.Context, id K) {
	if err := s.cache.Delete(ctx, s.rowKey(id)); err != nil {
		s.log.WarnContext(ctx, "cachestore: delete failed", "id", id, "error", err)
	}
}

// InvalidateScope implements sortable.IdentityCache.
func (s *Store[K]) InvalidateScope(ctx context.Context, scope sortable.Scope) error {
	return s.cache.Set(ctx, s.versionKey(scope), []byte(uuid.NewString()), 0)
}

// Clear implements sortable.IdentityCache.
func (s *Store[K]) Clear(ctx context.Context) error {
	return s.cache.DeletePrefix(ctx, s.table+":")
}

// decode reads an entry. Integers decode as int64 and floats as float64
// whatever their encoded width, so scopes compare by value.
func decode[K comparable](b []byte) (*entry[K], error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	var e entry[K]
	if err := dec.Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}
