package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clinicbook/internal/appointments/repository"
	"clinicbook/internal/appointments/service"
	"clinicbook/internal/appointments/validator"
	catalogrepo "clinicbook/internal/catalog/repository"
	"clinicbook/pkg/config"
	"clinicbook/pkg/logger"
	"clinicbook/pkg/model"
	"clinicbook/pkg/token"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2030-01-07 is a Monday far enough ahead that the wall clock never
// reaches it during a test run.
const day = "2030-01-07"

func newRouter(t *testing.T) *httprouter.Router {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	catalog := catalogrepo.NewMemoryCatalogRepository()
	require.NoError(t, catalog.UpsertService(ctx, &model.ServiceDefinition{
		ID: "svc-40", Name: "Physio", DurationMinutes: 40, SlotStepMinutes: 40, IsActive: true,
	}))
	require.NoError(t, catalog.ReplaceWorkingHours(ctx, "prov-1", []*model.WorkingHours{
		{ProviderID: "prov-1", Weekday: int(time.Monday), IsOpen: true, StartLocal: "09:00", EndLocal: "17:00"},
	}))

	cfg := &config.Config{
		Log:             log,
		DefaultTimeZone: "UTC",
		HoldTTL:         15 * time.Minute,
		MaxListRange:    31 * 24 * time.Hour,
		PublicBaseURL:   "https://clinic.example",
	}
	svc := service.NewAppointmentService(
		repository.NewMemoryAppointmentRepository(),
		catalog,
		validator.NewAppointmentValidator(log),
		token.NewManager("0123456789abcdef0123456789abcdef", time.Hour),
		nil,
		nil,
		cfg,
	)

	router := httprouter.New()
	NewAppointmentHandler(svc, log).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func holdBody(start string) string {
	return `{"provider_id":"prov-1","service_id":"svc-40","start_local":"` + day + "T" + start +
		`","customer":{"name":"Dana Levi","phone":"+972531234567"}}`
}

func createHold(t *testing.T, router http.Handler, start string) string {
	t.Helper()
	rec := do(router, http.MethodPost, "/api/v1/holds", holdBody(start))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data model.HoldResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AppointmentID)
	return body.Data.AppointmentID
}

func confirm(t *testing.T, router http.Handler, id string) model.Confirmation {
	t.Helper()
	rec := do(router, http.MethodPost, "/api/v1/appointments/"+id+"/confirm",
		`{"patient":{"name":"Noa Levi","phone":"+972549876543"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data model.Confirmation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestHoldAndConfirm(t *testing.T) {
	router := newRouter(t)
	id := createHold(t, router, "10:00")

	rec := do(router, http.MethodPost, "/api/v1/holds", holdBody("10:20"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"SLOT_TAKEN"`)

	conf := confirm(t, router, id)
	assert.Equal(t, model.StatusConfirmed, conf.Appointment.Status)
	assert.True(t, strings.HasPrefix(conf.ManageURL, "https://clinic.example/manage?token="))

	rec = do(router, http.MethodGet, "/api/v1/appointments/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)
}

func TestCreateHold_BadRequests(t *testing.T) {
	router := newRouter(t)

	rec := do(router, http.MethodPost, "/api/v1/holds", `{"provider_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/holds",
		`{"provider_id":"prov-1","service_id":"svc-40","start_local":"tomorrow","customer":{"name":"Dana","phone":"nope"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "start_local")
	assert.Contains(t, rec.Body.String(), "customer.phone")

	rec = do(router, http.MethodPost, "/api/v1/holds", strings.Replace(holdBody("10:00"), "svc-40", "svc-x", 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelRoutes(t *testing.T) {
	router := newRouter(t)
	id := createHold(t, router, "10:00")
	conf := confirm(t, router, id)

	rec := do(router, http.MethodPost, "/api/v1/manage/cancel", `{"token":"forged"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/manage/cancel", `{"token":"`+conf.ManageToken+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = do(router, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code, "cancelling twice succeeds")

	rec = do(router, http.MethodPost, "/api/v1/appointments/"+id+"/confirm",
		`{"patient":{"name":"Noa Levi","phone":"+972549876543"}}`)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestCloseRoutes(t *testing.T) {
	router := newRouter(t)
	done := createHold(t, router, "10:00")
	confirm(t, router, done)
	missed := createHold(t, router, "11:00")
	confirm(t, router, missed)

	rec := do(router, http.MethodPost, "/api/v1/appointments/"+done+"/complete", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)

	rec = do(router, http.MethodPost, "/api/v1/appointments/"+missed+"/no-show", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"no_show"`)

	rec = do(router, http.MethodPost, "/api/v1/appointments/"+done+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/appointments/unknown/complete", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleRoutes(t *testing.T) {
	router := newRouter(t)
	first := createHold(t, router, "10:00")
	confirm(t, router, first)
	second := createHold(t, router, "11:00")
	confirm(t, router, second)

	rec := do(router, http.MethodPost, "/api/v1/appointments/"+first+"/validate-edit",
		`{"start_local":"`+day+`T10:20"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = do(router, http.MethodPost, "/api/v1/appointments/"+first+"/validate-edit",
		`{"start_local":"`+day+`T10:40"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPatch, "/api/v1/appointments/"+first+"/schedule",
		`{"start_local":"`+day+`T13:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"start_time":"`+day+`T13:00:00Z"`)
}

func TestListByProvider(t *testing.T) {
	router := newRouter(t)
	createHold(t, router, "10:00")
	createHold(t, router, "12:00")

	rec := do(router, http.MethodGet,
		"/api/v1/appointments?provider_id=prov-1&from="+day+"T00:00:00Z&to="+day+"T23:59:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data []model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)

	rec = do(router, http.MethodGet, "/api/v1/appointments?provider_id=prov-1&from=yesterday&to="+day+"T23:59:00Z", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
