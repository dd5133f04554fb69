package handler

import (
	"net/http"

	"clinicbook/internal/availability/service"
	httputil "clinicbook/pkg/http"
	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// GetSlots answers GET /api/v1/availability. Slots are rendered in the
// requested zone.
func (h *AvailabilityHandler) GetSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	lead, err := httputil.QueryInt(r, "lead_minutes")
	if err != nil {
		h.writeError(w, "GetSlots", err)
		return
	}
	values := r.URL.Query()
	q := &model.AvailabilityQuery{
		ProviderID:  values.Get("provider_id"),
		ServiceID:   values.Get("service_id"),
		Date:        values.Get("date"),
		TimeZone:    values.Get("zone"),
		LeadMinutes: lead,
	}

	resp, err := h.service.Slots(r.Context(), q)
	if err != nil {
		h.writeError(w, "GetSlots", err)
		return
	}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.GetSlots)
}
