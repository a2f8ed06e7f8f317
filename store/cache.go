package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/etnz/registrar"
	"github.com/patrickmn/go-cache"
)

// Importer records books.
type Importer interface {
	Import(ctx context.Context, b *registrar.Books) error
}

// Cache is a read-through cache of books by issuer.
//
// Cached books are shared between callers and must not be modified.
type Cache struct {
	src   Source
	books *cache.Cache
	log   *slog.Logger
}

// NewCache caches the books loaded from src for ttl. A ttl of zero or less
// never expires.
func NewCache(src Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		return &Cache{src: src, books: cache.New(cache.NoExpiration, 0), log: logger}
	}
	return &Cache{src: src, books: cache.New(ttl, 2*ttl), log: logger}
}

// LoadBooks returns the cached books of issuer, loading them from the
// source on a miss.
func (c *Cache) LoadBooks(ctx context.Context, issuer string) (*registrar.Books, error) {
	if cached, found := c.books.Get(issuer); found {
		c.log.Debug("Cache hit for books", "issuer", issuer)
		return cached.(*registrar.Books), nil
	}
	b, err := c.src.LoadBooks(ctx, issuer)
	if err != nil {
		return nil, err
	}
	c.books.Set(issuer, b, cache.DefaultExpiration)
	c.log.Info("Populated books cache", "issuer", issuer)
	return b, nil
}

// Import records b through the source, which must be an Importer, and
// invalidates the issuer.
func (c *Cache) Import(ctx context.Context, b *registrar.Books) error {
	imp, ok := c.src.(Importer)
	if !ok {
		return errReadOnly
	}
	defer c.Invalidate(b.Issuer())
	return imp.Import(ctx, b)
}

// Invalidate drops the cached books of issuer.
func (c *Cache) Invalidate(issuer string) {
	c.books.Delete(issuer)
	c.log.Info("Invalidated books cache", "issuer", issuer)
}
