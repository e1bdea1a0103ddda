package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"advertisement-service/internal/domain"

	"github.com/go-chi/chi/v5"
)

const maxFormMemory = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// decodeInput reads the advertisement fields from a JSON body or from form fields.
// Form fields may be flat (title) or nested the way HTML form builders name them
// (advertisement[title]).
func decodeInput(w http.ResponseWriter, r *http.Request) (domain.AdvertisementInput, error) {
	var input domain.AdvertisementInput

	r.Body = http.MaxBytesReader(w, r.Body, maxFormMemory)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return input, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		return input, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return input, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return input, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
	}

	input.Title = formValue(r, "title")
	input.Content = formValue(r, "content")
	input.Version = formValue(r, "version")
	return input, nil
}

func formValue(r *http.Request, field string) string {
	if v, ok := r.PostForm[field]; ok && len(v) > 0 {
		return v[0]
	}
	return r.PostForm.Get("advertisement[" + field + "]")
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseIntQuery(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
