package handler

import (
	"net/http"

	"clinicbook/internal/catalog/service"
	httputil "clinicbook/pkg/http"
	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type CatalogHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

func NewCatalogHandler(service service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		log:     log,
	}
}

func (h *CatalogHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CatalogHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) PutService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var svc model.ServiceDefinition
	if err := httputil.DecodeJSON(r, &svc); err != nil {
		h.writeError(w, "PutService", err)
		return
	}

	saved, err := h.service.PutService(r.Context(), ps.ByName("id"), &svc)
	if err != nil {
		h.writeError(w, "PutService", err)
		return
	}
	h.writeSuccess(w, "PutService", saved)
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	svc, err := h.service.GetService(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetService", err)
		return
	}
	h.writeSuccess(w, "GetService", svc)
}

func (h *CatalogHandler) PutWorkingHours(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var week model.WeeklyHours
	if err := httputil.DecodeJSON(r, &week); err != nil {
		h.writeError(w, "PutWorkingHours", err)
		return
	}

	days, err := h.service.SetWeek(r.Context(), ps.ByName("id"), &week)
	if err != nil {
		h.writeError(w, "PutWorkingHours", err)
		return
	}
	h.writeSuccess(w, "PutWorkingHours", days)
}

func (h *CatalogHandler) GetWorkingHours(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	days, err := h.service.GetWeek(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetWorkingHours", err)
		return
	}
	h.writeSuccess(w, "GetWorkingHours", days)
}

func (h *CatalogHandler) AddTimeOff(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.TimeOffRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "AddTimeOff", err)
		return
	}

	off, err := h.service.AddTimeOff(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "AddTimeOff", err)
		return
	}
	if err := httputil.WriteCreated(w, off); err != nil {
		h.log.Error("failed to write created response", "handler", "AddTimeOff", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) ListTimeOff(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, err := httputil.QueryTime(r, "from")
	if err != nil {
		h.writeError(w, "ListTimeOff", err)
		return
	}
	to, err := httputil.QueryTime(r, "to")
	if err != nil {
		h.writeError(w, "ListTimeOff", err)
		return
	}

	offs, err := h.service.ListTimeOff(r.Context(), ps.ByName("id"), from, to)
	if err != nil {
		h.writeError(w, "ListTimeOff", err)
		return
	}
	h.writeSuccess(w, "ListTimeOff", offs)
}

func (h *CatalogHandler) DeleteTimeOff(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteTimeOff(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteTimeOff", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *CatalogHandler) PutRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var room model.Room
	if err := httputil.DecodeJSON(r, &room); err != nil {
		h.writeError(w, "PutRoom", err)
		return
	}

	saved, err := h.service.PutRoom(r.Context(), ps.ByName("id"), &room)
	if err != nil {
		h.writeError(w, "PutRoom", err)
		return
	}
	h.writeSuccess(w, "PutRoom", saved)
}

func (h *CatalogHandler) GetRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, err := h.service.GetRoom(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetRoom", err)
		return
	}
	h.writeSuccess(w, "GetRoom", room)
}

func (h *CatalogHandler) RegisterRoutes(router *httprouter.Router) {
	router.PUT("/api/v1/services/:id", h.PutService)
	router.GET("/api/v1/services/:id", h.GetService)

	router.PUT("/api/v1/providers/:id/working-hours", h.PutWorkingHours)
	router.GET("/api/v1/providers/:id/working-hours", h.GetWorkingHours)
	router.POST("/api/v1/providers/:id/time-off", h.AddTimeOff)
	router.GET("/api/v1/providers/:id/time-off", h.ListTimeOff)
	router.DELETE("/api/v1/time-off/:id", h.DeleteTimeOff)

	router.PUT("/api/v1/rooms/:id", h.PutRoom)
	router.GET("/api/v1/rooms/:id", h.GetRoom)
}
