package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"advertisement-service/internal/auth"
	"advertisement-service/internal/delivery/render"
	"advertisement-service/internal/domain"
	"advertisement-service/internal/infrastructure/metrics"
	"advertisement-service/internal/service"
	"advertisement-service/pkg/logger"
	"advertisement-service/pkg/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ListPath is where every successful write redirects to.
const ListPath = "/advertisement/"

type AdvertisementHandler struct {
	service  service.AdvertisementService
	renderer render.Renderer
	auth     auth.Checker
	logger   *logger.Loggers
	metrics  *metrics.HandlerMetrics
	tracer   trace.Tracer
}

func NewAdvertisementHandler(
	service service.AdvertisementService,
	renderer render.Renderer,
	checker auth.Checker,
	logger *logger.Loggers,
	metrics *metrics.HandlerMetrics,
) *AdvertisementHandler {
	if checker == nil {
		checker = auth.AllowAll{}
	}
	return &AdvertisementHandler{
		service:  service,
		renderer: renderer,
		auth:     checker,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("advertisement-service/handler"),
	}
}

func (h *AdvertisementHandler) observe(method, endpoint string, startTime time.Time, status *string) {
	duration := time.Since(startTime).Seconds()
	h.metrics.RequestCount.WithLabelValues(method, endpoint, *status).Inc()
	h.metrics.RequestDuration.WithLabelValues(method, endpoint, *status).Observe(duration)
}

func (h *AdvertisementHandler) redirectToList(w http.ResponseWriter, r *http.Request) {
	setFlash(w, actionSuccessful)
	http.Redirect(w, r, ListPath, http.StatusFound)
}

func (h *AdvertisementHandler) internalError(w http.ResponseWriter, r *http.Request, span trace.Span, msg string, err error) {
	h.logger.ErrorLogger.Error(msg, utils.Err(err))
	span.RecordError(err)
	h.renderer.RenderError(w, r, http.StatusInternalServerError, "internal server error")
}

func (h *AdvertisementHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "List")
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer h.observe(r.Method, "/advertisement/", startTime, &status)

	page := parseIntQuery(r, "page")
	limit := parseIntQuery(r, "limit")

	span.SetAttributes(
		attribute.Int("advertisements.page", page),
		attribute.Int("advertisements.limit", limit),
	)

	result, err := h.service.List(ctx, page, limit)
	if err != nil {
		status = "error"
		h.internalError(w, r, span, "failed to list advertisements", err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, render.ViewIndex, render.ViewData{
		Flash: popFlash(w, r),
		Page:  result,
	})
}

func (h *AdvertisementHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Show")
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer h.observe(r.Method, "/advertisement/{id}", startTime, &status)

	if err := h.auth.Authorize(r, auth.CapabilityShow); err != nil {
		status = "denied"
		code := http.StatusForbidden
		if errors.Is(err, auth.ErrUnauthenticated) {
			code = http.StatusUnauthorized
		}
		h.renderer.RenderError(w, r, code, err.Error())
		return
	}

	id, err := parseID(r)
	if err != nil {
		status = "not_found"
		h.renderer.RenderError(w, r, http.StatusNotFound, service.ErrNotFound.Error())
		return
	}

	span.SetAttributes(attribute.Int64("advertisement.id", id))

	ad, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidID) {
			status = "not_found"
			h.renderer.RenderError(w, r, http.StatusNotFound, service.ErrNotFound.Error())
			return
		}
		status = "error"
		h.internalError(w, r, span, "failed to get advertisement", err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, render.ViewShow, render.ViewData{Advertisement: ad})
}

func (h *AdvertisementHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Create")
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer h.observe(r.Method, "/advertisement/create", startTime, &status)

	form := &render.Form{Action: "/advertisement/create", Method: http.MethodPost}

	if r.Method == http.MethodGet {
		h.renderer.Render(w, r, http.StatusOK, render.ViewCreate, render.ViewData{Form: form})
		return
	}

	input, err := decodeInput(w, r)
	if err != nil {
		status = "bad_request"
		h.logger.InfoLogger.Info("invalid create payload", utils.Err(err))
		h.renderer.RenderError(w, r, http.StatusBadRequest, "invalid request payload")
		return
	}
	form.Values = input.Normalize()

	span.SetAttributes(attribute.String("advertisement.title", form.Values.Title))

	created, err := h.service.Create(ctx, input)
	if err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			status = "invalid"
			form.Errors = verrs
			h.renderer.Render(w, r, http.StatusOK, render.ViewCreate, render.ViewData{Form: form})
			return
		}
		status = "error"
		h.internalError(w, r, span, "failed to create advertisement", err)
		return
	}

	h.logger.InfoLogger.Info("advertisement created", "advertisement_id", created.ID)
	h.redirectToList(w, r)
}

func (h *AdvertisementHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Edit")
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer h.observe(r.Method, "/advertisement/{id}/edit", startTime, &status)

	id, err := parseID(r)
	if err != nil {
		status = "not_found"
		h.renderer.RenderError(w, r, http.StatusNotFound, service.ErrNotFound.Error())
		return
	}

	span.SetAttributes(attribute.Int64("advertisement.id", id))

	action := "/advertisement/" + strconv.FormatInt(id, 10) + "/edit"

	if r.Method == http.MethodGet {
		ad, err := h.service.Get(ctx, id)
		if err != nil {
			status = h.lookupFailed(w, r, span, err)
			return
		}
		h.renderer.Render(w, r, http.StatusOK, render.ViewEdit, render.ViewData{
			Advertisement: ad,
			Form:          editForm(action, ad),
		})
		return
	}

	input, err := decodeInput(w, r)
	if err != nil {
		status = "bad_request"
		h.logger.InfoLogger.Info("invalid edit payload", utils.Err(err))
		h.renderer.RenderError(w, r, http.StatusBadRequest, "invalid request payload")
		return
	}

	updated, err := h.service.Update(ctx, id, input)
	if err != nil {
		var verrs domain.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			status = "invalid"
			form := &render.Form{Action: action, Method: http.MethodPut, Values: input.Normalize(), Errors: verrs}
			h.renderer.Render(w, r, http.StatusOK, render.ViewEdit, render.ViewData{
				Advertisement: updated,
				Form:          form,
			})
		case errors.Is(err, service.ErrConflict):
			status = "conflict"
			h.renderConflict(w, r, id, action)
		default:
			status = h.lookupFailed(w, r, span, err)
		}
		return
	}

	h.logger.InfoLogger.Info("advertisement updated", "advertisement_id", updated.ID)
	h.redirectToList(w, r)
}

// renderConflict redraws the edit form with the record as it is now, so the user
// can reapply their change on top of it.
func (h *AdvertisementHandler) renderConflict(w http.ResponseWriter, r *http.Request, id int64, action string) {
	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.renderer.RenderError(w, r, http.StatusConflict, service.ErrConflict.Error())
		return
	}
	h.renderer.Render(w, r, http.StatusConflict, render.ViewEdit, render.ViewData{
		Advertisement: current,
		Form:          editForm(action, current),
		Error:         service.ErrConflict.Error(),
	})
}

func (h *AdvertisementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Delete")
	defer span.End()

	startTime := time.Now()
	status := "success"
	defer h.observe(r.Method, "/advertisement/{id}/delete", startTime, &status)

	id, err := parseID(r)
	if err != nil {
		status = "not_found"
		h.renderer.RenderError(w, r, http.StatusNotFound, service.ErrNotFound.Error())
		return
	}

	span.SetAttributes(attribute.Int64("advertisement.id", id))

	if r.Method == http.MethodGet {
		ad, err := h.service.Get(ctx, id)
		if err != nil {
			status = h.lookupFailed(w, r, span, err)
			return
		}
		h.renderer.Render(w, r, http.StatusOK, render.ViewDelete, render.ViewData{Advertisement: ad})
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		status = h.lookupFailed(w, r, span, err)
		return
	}

	h.logger.InfoLogger.Info("advertisement deleted", "advertisement_id", id)
	h.redirectToList(w, r)
}

// lookupFailed answers a failed by-id operation and returns the metrics status.
func (h *AdvertisementHandler) lookupFailed(w http.ResponseWriter, r *http.Request, span trace.Span, err error) string {
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidID) {
		h.renderer.RenderError(w, r, http.StatusNotFound, service.ErrNotFound.Error())
		return "not_found"
	}
	h.internalError(w, r, span, "advertisement operation failed", err)
	return "error"
}

func editForm(action string, ad *domain.Advertisement) *render.Form {
	return &render.Form{
		Action: action,
		Method: http.MethodPut,
		Values: domain.AdvertisementInput{
			Title:   ad.Title,
			Content: ad.Content,
			Version: ad.Version(),
		},
	}
}
