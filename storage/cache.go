package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedPaletteStorage serves palette reads from an LRU cache in front of
// another PaletteStore. Palettes are immutable once created, so entries
// never go stale.
type CachedPaletteStorage struct {
	next  PaletteStore
	cache *lru.Cache[string, *Palette]
}

// NewCachedPaletteStorage wraps next with a cache holding up to size
// palettes.
func NewCachedPaletteStorage(next PaletteStore, size int) (*CachedPaletteStorage, error) {
	cache, err := lru.New[string, *Palette](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create palette cache: %w", err)
	}
	return &CachedPaletteStorage{next: next, cache: cache}, nil
}

// ListPalettes is not cached.
func (c *CachedPaletteStorage) ListPalettes(ctx context.Context, limit int64) ([]Palette, error) {
	return c.next.ListPalettes(ctx, limit)
}

// GetPalette returns a copy of the cached palette, loading it on a miss.
func (c *CachedPaletteStorage) GetPalette(ctx context.Context, id string) (*Palette, error) {
	if palette, ok := c.cache.Get(id); ok {
		return palette.clone(), nil
	}

	palette, err := c.next.GetPalette(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, palette.clone())
	return palette, nil
}

// CreatePalette stores the palette and caches it.
func (c *CachedPaletteStorage) CreatePalette(ctx context.Context, palette *Palette) error {
	if err := c.next.CreatePalette(ctx, palette); err != nil {
		return err
	}
	c.cache.Add(palette.ID, palette.clone())
	return nil
}

// Len returns the number of cached palettes.
func (c *CachedPaletteStorage) Len() int {
	return c.cache.Len()
}
