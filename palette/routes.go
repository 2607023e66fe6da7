// Package palette serves stored palettes and drives the color radio group
// over HTTP.
package palette

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"shopfront/api"
	"shopfront/storage"
	"shopfront/swatch"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Store is the storage the routes need.
type Store interface {
	ListPalettes(ctx context.Context, limit int64) ([]storage.Palette, error)
	GetPalette(ctx context.Context, id string) (*storage.Palette, error)
	CreatePalette(ctx context.Context, palette *storage.Palette) error
}

// Routes is the palette route descriptor.
type Routes struct {
	store     Store
	logger    *zap.SugaredLogger
	validator *validator.Validate
}

// NewRoutes creates the palette routes.
func NewRoutes(store Store, logger *zap.SugaredLogger) *Routes {
	return &Routes{
		store:     store,
		logger:    logger,
		validator: validator.New(),
	}
}

// Mount registers the palette endpoints on r.
func (p *Routes) Mount(r *mux.Router) {
	r.Handle("/palettes", api.HandlerFunc(p.list)).Methods(http.MethodGet)
	r.Handle("/palettes", api.HandlerFunc(p.create)).Methods(http.MethodPost)
	r.Handle("/palettes/{id}", api.HandlerFunc(p.get)).Methods(http.MethodGet)
	r.Handle("/palettes/{id}/swatches", api.HandlerFunc(p.renderSwatches)).Methods(http.MethodGet)
	r.Handle("/palettes/{id}/swatches", api.HandlerFunc(p.selectSwatch)).Methods(http.MethodPost)
}

// storageError maps storage failures to HTTP errors.
func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotReady):
		return api.NewHTTPError(http.StatusServiceUnavailable, "Database not available", err)
	case storage.IsNotFound(err):
		return api.NewHTTPError(http.StatusNotFound, "Palette not found", err)
	default:
		return err
	}
}

func (p *Routes) list(w http.ResponseWriter, r *http.Request) error {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return api.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer", err)
		}
		limit = n
	}

	palettes, err := p.store.ListPalettes(r.Context(), limit)
	if err != nil {
		return storageError(err)
	}
	return api.WriteJSON(w, http.StatusOK, palettes)
}

type createPaletteRequest struct {
	Name   string        `json:"name"`
	Colors []swatch.Item `json:"colors"`
}

func (p *Routes) create(w http.ResponseWriter, r *http.Request) error {
	var req createPaletteRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		return err
	}

	palette := &storage.Palette{Name: req.Name, Colors: req.Colors}
	if err := p.validator.Struct(palette); err != nil {
		return api.NewHTTPError(http.StatusBadRequest, validationMessage(err), err)
	}

	if err := p.store.CreatePalette(r.Context(), palette); err != nil {
		return storageError(err)
	}

	p.logger.Infow("Palette stored",
		"palette_id", palette.ID,
		"request_id", api.GetRequestIDOrDefault(r.Context()))
	return api.WriteJSON(w, http.StatusCreated, palette)
}

// validationMessage names the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "Invalid field '" + fe.Namespace() + "': failed '" + fe.Tag() + "' check"
	}
	return "Invalid palette"
}

func (p *Routes) load(r *http.Request) (*storage.Palette, error) {
	palette, err := p.store.GetPalette(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, storageError(err)
	}
	return palette, nil
}

func (p *Routes) get(w http.ResponseWriter, r *http.Request) error {
	palette, err := p.load(r)
	if err != nil {
		return err
	}
	return api.WriteJSON(w, http.StatusOK, palette)
}
