package catalog

import (
	"errors"
	"net/http"

	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/flags"
	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// maxCatalogBody bounds admin catalog uploads.
const maxCatalogBody = 1 << 20

// Handler exposes the resolved option list and admin publishing.
type Handler struct {
	holder  *Holder
	flags   *flags.Provider
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Holder  *Holder
	Flags   *flags.Provider
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{holder: cfg.Holder, flags: cfg.Flags, service: cfg.Service}
}

// MaterialView is the public shape of an active material.
type MaterialView struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Default bool   `json:"default"`
}

// OptionView is the public shape of an active option.
type OptionView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group,omitempty"`
}

// OptionsResponse lists what can be ordered under one context.
type OptionsResponse struct {
	CatalogVersion string         `json:"catalog_version"`
	Region         string         `json:"region"`
	Materials      []MaterialView `json:"materials"`
	Options        []OptionView   `json:"options"`
}

// Options handles GET /api/v1/options.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	if !h.holder.Ready() || h.flags == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "pricing catalog not loaded", nil)
		return
	}
	ctx, err := h.flags.Snapshot(r.URL.Query().Get("region"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_REGION", "region is not served", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": Describe(h.holder.Current().Resolve(ctx))})
}

// Describe converts a resolved set into its public shape.
func Describe(set pricing.OptionSet) OptionsResponse {
	resp := OptionsResponse{
		CatalogVersion: set.CatalogVersion(),
		Region:         set.Context().Region(),
		Materials:      []MaterialView{},
		Options:        []OptionView{},
	}
	for _, m := range set.Materials() {
		resp.Materials = append(resp.Materials, MaterialView{ID: m.ID, Label: m.Label, Default: m.ID == set.DefaultMaterial()})
	}
	for _, o := range set.Options() {
		resp.Options = append(resp.Options, OptionView{ID: o.ID, Label: o.Label, Group: o.Group})
	}
	return resp
}

// Publish handles POST /api/v1/admin/catalog. The body is a YAML or JSON definition.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	def, err := ParseDefinition(http.MaxBytesReader(w, r.Body, maxCatalogBody))
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CATALOG", err.Error(), nil)
		return
	}
	subject, _ := common.Subject(r.Context())
	cat, err := h.service.Publish(r.Context(), def, subject)
	switch {
	case err == nil:
	case pricing.IsConfiguration(err):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CATALOG", err.Error(), nil)
		return
	case errors.Is(err, ErrReadOnly):
		common.JSONError(w, http.StatusConflict, "CATALOG_READ_ONLY", "catalog source is file based", nil)
		return
	case errors.Is(err, ErrVersionExists):
		common.JSONError(w, http.StatusConflict, "CATALOG_VERSION_EXISTS", "catalog version already published", map[string]string{"version": def.Version})
		return
	default:
		common.WriteError(w, err)
		return
	}
	h.holder.Replace(cat)
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"version": cat.Version()}})
}
