package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/curation"
	"github.com/ekaya-inc/pattern-catalog/pkg/export"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

type basketFixture struct {
	mux        *http.ServeMux
	sysDefault *models.PatternImplementation
	alt        *models.PatternImplementation
	derImpl    *models.PatternImplementation
	cookies    []*http.Cookie
}

func newBasketFixture(t *testing.T, store curation.Store) *basketFixture {
	t.Helper()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	defs := []*models.PatternDefinition{
		sampleDefinition(),
		{ID: "DER-001", Category: models.CategoryDerivation, Title: "BMI", Problem: "p", WhenToUse: "w"},
	}
	f := &basketFixture{
		sysDefault: &models.PatternImplementation{UUID: uuid.New(), PatternID: "IMP-001", AuthorName: models.SystemDefaultAuthor, SASCode: "sys", Status: models.ImplementationStatusActive, CreatedAt: created},
		alt:        &models.PatternImplementation{UUID: uuid.New(), PatternID: "IMP-001", AuthorID: "alice", AuthorName: "Alice", RCode: "alt", Status: models.ImplementationStatusActive, CreatedAt: created},
		derImpl:    &models.PatternImplementation{UUID: uuid.New(), PatternID: "DER-001", AuthorID: "alice", AuthorName: "Alice", RCode: "bmi", Status: models.ImplementationStatusActive, CreatedAt: created},
	}
	impls := []*models.PatternImplementation{f.sysDefault, f.alt, f.derImpl}

	basketSvc := services.NewBasketService(&services.BasketServiceDeps{
		Definitions:     &mockDefinitionService{defs: defs},
		Implementations: &mockImplementationService{impls: impls},
		Exporter:        &stubExportService{defs: defs, impls: impls},
		Logger:          zap.NewNop(),
	})

	f.mux = http.NewServeMux()
	NewBasketHandler(basketSvc, store, zap.NewNop()).RegisterRoutes(f.mux, newDevAuth(t), noScope)
	return f
}

// do sends a request carrying the cookies collected so far and keeps any new ones.
func (f *basketFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	if fresh := rec.Result().Cookies(); len(fresh) > 0 {
		f.cookies = fresh
	}
	return rec
}

func decodeBasket(t *testing.T, rec *httptest.ResponseRecorder) services.Basket {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    services.Basket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestBasketHandler_CurationFlow(t *testing.T) {
	f := newBasketFixture(t, curation.NewCookieStore("test-secret", time.Hour, false))

	rec := f.do(http.MethodGet, "/api/basket", "")
	require.Equal(t, http.StatusOK, rec.Code)
	basket := decodeBasket(t, rec)
	require.Len(t, basket.Items, 1, "seeded with the single system default")
	assert.Equal(t, f.sysDefault.UUID, basket.Items[0].ImplementationUUID)
	require.NotEmpty(t, f.cookies)
	assert.Equal(t, curation.CookieSessionName, f.cookies[0].Name)

	rec = f.do(http.MethodPut, "/api/basket/imp-001", `{"implementation_uuid":"`+f.alt.UUID.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodPut, "/api/basket/DER-001", `{"implementation_uuid":"`+f.derImpl.UUID.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	basket = decodeBasket(t, rec)
	require.Len(t, basket.Items, 2)
	assert.Equal(t, "IMP-001", basket.Items[0].PatternID)
	assert.Equal(t, f.alt.UUID, basket.Items[0].ImplementationUUID)
	assert.False(t, basket.Items[0].IsSystemDefault)

	rec = f.do(http.MethodPut, "/api/basket/DER-001", `{"implementation_uuid":"`+f.alt.UUID.String()+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "implementation of another pattern")

	rec = f.do(http.MethodPost, "/api/basket/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "pattern-catalog-export.zip")
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
	assert.Equal(t, export.ManifestPath, zr.File[0].Name)

	rec = f.do(http.MethodPost, "/api/basket/IMP-001/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	basket = decodeBasket(t, rec)
	assert.Equal(t, f.sysDefault.UUID, basket.Items[0].ImplementationUUID)
	assert.True(t, basket.Items[0].IsSystemDefault)

	rec = f.do(http.MethodPost, "/api/basket/DER-001/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBasket(t, rec).Items, 1, "no system default removes the entry")

	rec = f.do(http.MethodDelete, "/api/basket/IMP-001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBasket(t, rec).Items)

	rec = f.do(http.MethodGet, "/api/basket", "")
	assert.Empty(t, decodeBasket(t, rec).Items, "an emptied basket is not reseeded")

	rec = f.do(http.MethodPost, "/api/basket/export", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBasketHandler_StoreFailure(t *testing.T) {
	f := newBasketFixture(t, failingStore{err: errors.New("redis: connection refused")})

	rec := f.do(http.MethodGet, "/api/basket", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}

func TestBasketHandler_BasketTooLarge(t *testing.T) {
	f := newBasketFixture(t, failingStore{saveErr: fmt.Errorf("%w: 120 entries", curation.ErrBasketTooLarge)})

	rec := f.do(http.MethodGet, "/api/basket", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "basket_too_large")
}
