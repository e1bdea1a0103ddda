package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"advertisement-service/internal/auth"
	"advertisement-service/internal/config"
	"advertisement-service/internal/delivery/render"
	"advertisement-service/internal/domain"
	"advertisement-service/internal/infrastructure/metrics"
	"advertisement-service/internal/service"
	"advertisement-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	deleted []int64
	updated []int64
}

func (s *stubService) List(context.Context, int, int) (*service.PaginationResult, error) {
	return &service.PaginationResult{Advertisements: []*domain.Advertisement{}, CurrentPage: 1, PageSize: 10}, nil
}

func (s *stubService) Get(_ context.Context, id int64) (*domain.Advertisement, error) {
	return &domain.Advertisement{ID: id, Title: "t", Content: "c"}, nil
}

func (s *stubService) Create(context.Context, domain.AdvertisementInput) (*domain.Advertisement, error) {
	return &domain.Advertisement{ID: 1}, nil
}

func (s *stubService) Update(_ context.Context, id int64, _ domain.AdvertisementInput) (*domain.Advertisement, error) {
	s.updated = append(s.updated, id)
	return &domain.Advertisement{ID: id}, nil
}

func (s *stubService) Delete(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestRouter(t *testing.T, svc service.AdvertisementService) *chi.Mux {
	t.Helper()

	renderer, err := render.New()
	require.NoError(t, err)

	loggers := logger.NewDiscard()
	r := chi.NewRouter()
	SetupMiddleware(r, loggers, config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})
	SetupAdvertisementRoutes(r, svc, renderer, auth.AllowAll{}, loggers, metrics.NewHandlerMetrics(prometheus.NewRegistry()))
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestIDConstraint(t *testing.T) {
	r := newTestRouter(t, &stubService{})

	for _, path := range []string{"/advertisement/0", "/advertisement/-1", "/advertisement/abc", "/advertisement/012"} {
		rr := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/advertisement/12", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMethodOverrideFormField(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/advertisement/5/delete", strings.NewReader(url.Values{"_method": {"DELETE"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(r, req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, []int64{5}, svc.deleted)
}

func TestMethodOverrideKeepsFormFields(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(t, svc)

	body := url.Values{"_method": {"put"}, "title": {"New"}, "content": {"Body"}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/advertisement/6/edit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(r, req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, []int64{6}, svc.updated)
}

func TestMethodOverrideHeader(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/advertisement/7/delete", nil)
	req.Header.Set(methodOverrideHeader, "DELETE")
	rr := serve(r, req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, []int64{7}, svc.deleted)
}

func TestMethodOverrideIgnoresOtherMethods(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/advertisement/7/delete", strings.NewReader("_method=PATCH"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(r, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Empty(t, svc.deleted)
}

func TestRequestIDHeader(t *testing.T) {
	r := newTestRouter(t, &stubService{})

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "6f1c7a52-3f7e-4a43-9d7e-2b1b0c9e8a11")
	rr = serve(r, req)
	assert.Equal(t, "6f1c7a52-3f7e-4a43-9d7e-2b1b0c9e8a11", rr.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "not-a-uuid")
	rr = serve(r, req)
	assert.NotEqual(t, "not-a-uuid", rr.Header().Get(requestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodOptions, "/advertisement/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := serve(r, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
