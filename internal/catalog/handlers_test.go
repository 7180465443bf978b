package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/common"
	"github.com/noah-isme/banner-pricing/internal/flags"
)

type optionsResponse struct {
	Data catalog.OptionsResponse `json:"data"`
}

func newHolder(t *testing.T) *catalog.Holder {
	t.Helper()
	def, err := catalog.LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)
	cat, err := catalog.Build(def)
	require.NoError(t, err)
	return catalog.NewStaticHolder(cat)
}

func TestOptionsHandler(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{
		Holder: newHolder(t),
		Flags:  flags.NewProvider("us", []string{"eu"}, []string{"lamination"}),
	})

	t.Run("default region", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Options(rr, httptest.NewRequest(http.MethodGet, "/api/v1/options", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp optionsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, "us", resp.Data.Region)
		require.True(t, resp.Data.Materials[0].Default)

		ids := make([]string, 0, len(resp.Data.Options))
		for _, o := range resp.Data.Options {
			ids = append(ids, o.ID)
		}
		require.Contains(t, ids, "wind_slits")
		require.Contains(t, ids, "lamination")
	})

	t.Run("region override hides region-bound options", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Options(rr, httptest.NewRequest(http.MethodGet, "/api/v1/options?region=eu", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp optionsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		for _, o := range resp.Data.Options {
			require.NotEqual(t, "wind_slits", o.ID)
		}
	})

	t.Run("unknown region", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Options(rr, httptest.NewRequest(http.MethodGet, "/api/v1/options?region=mars", nil))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Contains(t, rr.Body.String(), "UNKNOWN_REGION")
	})
}

func TestOptionsHandlerWithoutCatalog(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{Flags: flags.NewProvider("us", nil, nil)})
	rr := httptest.NewRecorder()
	handler.Options(rr, httptest.NewRequest(http.MethodGet, "/api/v1/options", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPublishHandlerReadOnly(t *testing.T) {
	svc := catalog.NewService(catalog.ServiceConfig{Path: "testdata/catalog.yaml"})
	holder := newHolder(t)
	handler := catalog.NewHandler(catalog.HandlerConfig{Holder: holder, Service: svc})

	body, err := json.Marshal(catalog.Definition{Version: "x"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog", strings.NewReader(string(body)))
	req = req.WithContext(common.WithSubject(req.Context(), "ops"))
	rr := httptest.NewRecorder()
	handler.Publish(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	yamlBody := `version: "2027-01-01"
materials:
  - id: m
    label: M
    rate_cents_per_sqft: 100
`
	rr = httptest.NewRecorder()
	handler.Publish(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog", strings.NewReader(yamlBody)))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "2026-10-01", holder.Current().Version())
}
