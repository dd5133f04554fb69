package handler

import (
	"net/http"

	"clinicbook/internal/appointments/service"
	httputil "clinicbook/pkg/http"
	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AppointmentHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) writeOK(w http.ResponseWriter, handler string) {
	if err := httputil.WriteOK(w); err != nil {
		h.log.Error("failed to write ok response", "handler", handler, "operation", "WriteOK", "error", err)
	}
}

func (h *AppointmentHandler) CreateHold(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.HoldRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateHold", err)
		return
	}

	hold, err := h.service.CreateHold(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CreateHold", err)
		return
	}
	if err := httputil.WriteCreated(w, hold); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateHold", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	conf, err := h.service.Confirm(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}
	h.writeSuccess(w, "Confirm", conf)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := h.service.Cancel(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}
	h.writeOK(w, "Cancel")
}

// CancelByToken serves the patient-facing manage link.
func (h *AppointmentHandler) CancelByToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ManageCancelRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CancelByToken", err)
		return
	}

	if _, err := h.service.CancelByToken(r.Context(), req.Token); err != nil {
		h.writeError(w, "CancelByToken", err)
		return
	}
	h.writeOK(w, "CancelByToken")
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appt, err := h.service.Complete(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}
	h.writeSuccess(w, "Complete", appt)
}

func (h *AppointmentHandler) MarkNoShow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appt, err := h.service.MarkNoShow(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MarkNoShow", err)
		return
	}
	h.writeSuccess(w, "MarkNoShow", appt)
}

func (h *AppointmentHandler) ValidateEdit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var change model.ScheduleChange
	if err := httputil.DecodeJSON(r, &change); err != nil {
		h.writeError(w, "ValidateEdit", err)
		return
	}

	if err := h.service.ValidateEdit(r.Context(), ps.ByName("id"), &change); err != nil {
		h.writeError(w, "ValidateEdit", err)
		return
	}
	h.writeOK(w, "ValidateEdit")
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var change model.ScheduleChange
	if err := httputil.DecodeJSON(r, &change); err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), ps.ByName("id"), &change)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}
	h.writeSuccess(w, "Reschedule", appt)
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appt, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeSuccess(w, "GetByID", appt)
}

func (h *AppointmentHandler) ListByProvider(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	providerID, err := httputil.RequiredQuery(r, "provider_id")
	if err != nil {
		h.writeError(w, "ListByProvider", err)
		return
	}
	from, err := httputil.QueryTime(r, "from")
	if err != nil {
		h.writeError(w, "ListByProvider", err)
		return
	}
	to, err := httputil.QueryTime(r, "to")
	if err != nil {
		h.writeError(w, "ListByProvider", err)
		return
	}

	appts, err := h.service.ListByProvider(r.Context(), providerID, from, to)
	if err != nil {
		h.writeError(w, "ListByProvider", err)
		return
	}
	h.writeSuccess(w, "ListByProvider", appts)
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/holds", h.CreateHold)
	router.POST("/api/v1/manage/cancel", h.CancelByToken)

	router.GET("/api/v1/appointments", h.ListByProvider)
	router.GET("/api/v1/appointments/:id", h.GetByID)
	router.POST("/api/v1/appointments/:id/confirm", h.Confirm)
	router.POST("/api/v1/appointments/:id/cancel", h.Cancel)
	router.POST("/api/v1/appointments/:id/complete", h.Complete)
	router.POST("/api/v1/appointments/:id/no-show", h.MarkNoShow)
	router.POST("/api/v1/appointments/:id/validate-edit", h.ValidateEdit)
	router.PATCH("/api/v1/appointments/:id/schedule", h.Reschedule)
}
