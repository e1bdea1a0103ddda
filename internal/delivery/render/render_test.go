package render

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"advertisement-service/internal/domain"
	"advertisement-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAd() *domain.Advertisement {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Advertisement{ID: 5, Title: "Kayak <2 seats>", Content: "Green", CreatedAt: at, UpdatedAt: at}
}

func TestWantsJSON(t *testing.T) {
	cases := []struct {
		accept, contentType string
		want                bool
	}{
		{accept: "", want: false},
		{accept: "text/html,application/xhtml+xml,*/*;q=0.8", want: false},
		{accept: "application/json", want: true},
		{accept: "application/json, text/plain, */*", want: true},
		{contentType: "application/json; charset=utf-8", want: true},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.accept != "" {
			req.Header.Set("Accept", tc.accept)
		}
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		assert.Equal(t, tc.want, WantsJSON(req), "accept=%q content-type=%q", tc.accept, tc.contentType)
	}
}

func TestRenderIndexHTML(t *testing.T) {
	n, err := New()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/advertisement/", nil)
	n.Render(rr, req, http.StatusOK, ViewIndex, ViewData{
		Flash: "Action completed successfully.",
		Page: &service.PaginationResult{
			Advertisements: []*domain.Advertisement{sampleAd()},
			TotalCount:     1, CurrentPage: 1, PageSize: 10, TotalPages: 1,
		},
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	assert.Contains(t, body, "Action completed successfully.")
	assert.Contains(t, body, "Kayak &lt;2 seats&gt;")
	assert.Contains(t, body, `href="/advertisement/5/edit"`)
}

func TestRenderFormWithErrorsHTML(t *testing.T) {
	n, err := New()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/advertisement/create", nil)
	n.Render(rr, req, http.StatusOK, ViewCreate, ViewData{
		Form: &Form{
			Action: "/advertisement/create",
			Method: http.MethodPost,
			Values: domain.AdvertisementInput{Content: "kept"},
			Errors: domain.ValidationErrors{{Field: "title", Message: "This value should not be blank."}},
		},
	})

	body := rr.Body.String()
	assert.Contains(t, body, "This value should not be blank.")
	assert.Contains(t, body, ">kept</textarea>")
}

func TestRenderEditJSON(t *testing.T) {
	n, err := New()
	require.NoError(t, err)

	ad := sampleAd()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/advertisement/5/edit", nil)
	req.Header.Set("Accept", "application/json")
	n.Render(rr, req, http.StatusOK, ViewEdit, ViewData{
		Advertisement: ad,
		Form: &Form{
			Values: domain.AdvertisementInput{Title: "", Content: "x"},
			Errors: domain.ValidationErrors{{Field: "title", Message: "This value should not be blank."}},
		},
	})

	var body struct {
		Advertisement domain.Advertisement `json:"advertisement"`
		Version       string               `json:"version"`
		Form          struct {
			Errors []domain.FieldError `json:"errors"`
		} `json:"form"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 5, body.Advertisement.ID)
	assert.Equal(t, ad.Version(), body.Version)
	require.Len(t, body.Form.Errors, 1)
	assert.Equal(t, "title", body.Form.Errors[0].Field)
}

func TestRenderErrorHTMLAndJSON(t *testing.T) {
	n, err := New()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	n.RenderError(rr, httptest.NewRequest(http.MethodGet, "/advertisement/9", nil), http.StatusNotFound, "advertisement not found")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "advertisement not found")

	req := httptest.NewRequest(http.MethodGet, "/advertisement/9", nil)
	req.Header.Set("Accept", "application/json")
	rr = httptest.NewRecorder()
	n.RenderError(rr, req, http.StatusNotFound, "advertisement not found")
	assert.JSONEq(t, `{"error":"advertisement not found"}`, rr.Body.String())
}
