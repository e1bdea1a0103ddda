package router

import (
	"net/http"
	"strings"
	"time"

	"advertisement-service/internal/config"
	"advertisement-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

const (
	methodOverrideField  = "_method"
	methodOverrideHeader = "X-HTTP-Method-Override"
	requestIDHeader      = "X-Request-ID"
)

func SetupMiddleware(r *chi.Mux, loggers *logger.Loggers, corsCfg config.CORSConfig) {
	r.Use(RequestLogger(loggers), middleware.Recoverer)

	if len(corsCfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsCfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", methodOverrideHeader, requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(MethodOverride)
}

// MethodOverride lets HTML forms, which can only POST, reach PUT and DELETE routes.
// It must run before routing.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			override := r.Header.Get(methodOverrideHeader)
			if override == "" && isFormRequest(r) {
				override = r.PostFormValue(methodOverrideField)
			}

			switch m := strings.ToUpper(override); m {
			case http.MethodPut, http.MethodDelete:
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isFormRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// RequestLogger tags every request with an ID and logs its outcome once it completes.
func RequestLogger(loggers *logger.Loggers) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			startTime := time.Now()

			defer func() {
				attrs := []any{
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(startTime),
				}
				if ww.Status() >= http.StatusInternalServerError {
					loggers.ErrorLogger.Error("request failed", attrs...)
					return
				}
				loggers.InfoLogger.Info("request completed", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
