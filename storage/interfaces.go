package storage

import (
	"context"
)

// PaletteStore defines the interface for palette storage
type PaletteStore interface {
	ListPalettes(ctx context.Context, limit int64) ([]Palette, error)
	GetPalette(ctx context.Context, id string) (*Palette, error)
	CreatePalette(ctx context.Context, palette *Palette) error
}

var (
	_ PaletteStore = (*PaletteStorage)(nil)
	_ PaletteStore = (*CachedPaletteStorage)(nil)
)
