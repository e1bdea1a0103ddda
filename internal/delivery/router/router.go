package router

import (
	"net/http"

	"advertisement-service/internal/auth"
	"advertisement-service/internal/delivery/handler"
	"advertisement-service/internal/delivery/render"
	"advertisement-service/internal/infrastructure/metrics"
	"advertisement-service/internal/service"
	"advertisement-service/pkg/logger"
	"advertisement-service/pkg/utils"

	"github.com/go-chi/chi/v5"
)

const idPattern = "{id:[1-9][0-9]*}"

func SetupAdvertisementRoutes(
	r *chi.Mux,
	advertisementService service.AdvertisementService,
	renderer render.Renderer,
	checker auth.Checker,
	loggers *logger.Loggers,
	metrics *metrics.HandlerMetrics,
) {
	h := handler.NewAdvertisementHandler(advertisementService, renderer, checker, loggers, metrics)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		renderer.RenderError(w, req, http.StatusNotFound, "page not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		renderer.RenderError(w, req, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/advertisement", func(r chi.Router) {
		r.Get("/", h.List)

		r.Get("/create", h.Create)
		r.Post("/create", h.Create)

		r.Get("/"+idPattern, h.Show)

		r.Get("/"+idPattern+"/edit", h.Edit)
		r.Put("/"+idPattern+"/edit", h.Edit)

		r.Get("/"+idPattern+"/delete", h.Delete)
		r.Delete("/"+idPattern+"/delete", h.Delete)
	})
}
