package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/swatch"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	// PaletteCollection is the MongoDB collection palettes are stored in.
	PaletteCollection = "palettes"

	defaultPaletteLimit = 50
	maxPaletteLimit     = 500
)

// Palette is a named list of color items.
type Palette struct {
	ID        string        `json:"id" bson:"_id"`
	Name      string        `json:"name" bson:"name" validate:"required,max=100"`
	Colors    []swatch.Item `json:"colors" bson:"colors" validate:"required,min=1,max=32,unique=ID,dive"`
	CreatedAt time.Time     `json:"createdAt" bson:"created_at"`
}

// clone returns a deep copy so cached values cannot be modified by callers.
func (p *Palette) clone() *Palette {
	c := *p
	c.Colors = append([]swatch.Item(nil), p.Colors...)
	return &c
}

// PaletteStorage handles palette persistence in MongoDB
type PaletteStorage struct {
	collection func() (*mongo.Collection, error)
	logger     *zap.SugaredLogger
}

// NewPaletteStorage creates palette storage on top of db. Every call
// fails with ErrNotReady until db has verified its connection.
func NewPaletteStorage(db *Database, logger *zap.SugaredLogger) *PaletteStorage {
	return &PaletteStorage{
		collection: func() (*mongo.Collection, error) { return db.Collection(PaletteCollection) },
		logger:     logger,
	}
}

// ListPalettes returns the newest palettes first. limit is clamped to
// [1, 500]; zero or less means 50.
func (ps *PaletteStorage) ListPalettes(ctx context.Context, limit int64) ([]Palette, error) {
	coll, err := ps.collection()
	if err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultPaletteLimit
	case limit > maxPaletteLimit:
		limit = maxPaletteLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list palettes: %w", err)
	}
	defer cursor.Close(ctx)

	palettes := make([]Palette, 0)
	if err := cursor.All(ctx, &palettes); err != nil {
		return nil, fmt.Errorf("failed to decode palettes: %w", err)
	}
	return palettes, nil
}

// GetPalette returns the palette with the given ID or ErrPaletteNotFound.
func (ps *PaletteStorage) GetPalette(ctx context.Context, id string) (*Palette, error) {
	coll, err := ps.collection()
	if err != nil {
		return nil, err
	}

	var palette Palette
	err = coll.FindOne(ctx, bson.M{"_id": id}).Decode(&palette)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrPaletteNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get palette: %w", err)
	}
	return &palette, nil
}

// CreatePalette assigns an ID and creation time and inserts the palette.
func (ps *PaletteStorage) CreatePalette(ctx context.Context, palette *Palette) error {
	coll, err := ps.collection()
	if err != nil {
		return err
	}

	palette.ID = uuid.New().String()
	palette.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := coll.InsertOne(ctx, palette); err != nil {
		return fmt.Errorf("failed to insert palette: %w", err)
	}

	ps.logger.Infow("Palette created", "palette_id", palette.ID, "colors", len(palette.Colors))
	return nil
}
