package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"clinicbook/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogging_PropagatesRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected inbound id to be kept, got ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" || len(seen) != 32 {
		t.Errorf("expected generated id, got %q", seen)
	}
}

func TestLevelFor(t *testing.T) {
	tests := map[int]slog.Level{
		http.StatusOK:                  slog.LevelInfo,
		http.StatusNotFound:            slog.LevelInfo,
		http.StatusConflict:            slog.LevelWarn,
		http.StatusGone:                slog.LevelWarn,
		http.StatusInternalServerError: slog.LevelError,
	}
	for status, want := range tests {
		if got := levelFor(status); got != want {
			t.Errorf("levelFor(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	limiter := NewClientRateLimiter(2, time.Minute, nil, logger.Nop())
	defer limiter.Stop()
	h := RateLimit(limiter)(okHandler())

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if call("10.0.0.1") != http.StatusOK || call("10.0.0.1") != http.StatusOK {
		t.Fatal("burst should allow two requests")
	}
	if code := call("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
	if code := call("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client must not be limited, got %d", code)
	}
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	limiter := NewClientRateLimiter(1, time.Minute, nil, logger.Nop())
	defer limiter.Stop()
	limiter.Allow("a")

	limiter.evictIdle(time.Now().Add(2 * time.Minute))

	if len(limiter.clients) != 0 {
		t.Errorf("expected idle client evicted, %d left", len(limiter.clients))
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Errorf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.5" {
		t.Errorf("expected first forwarded hop, got %q", got)
	}
}

func TestIdempotency_ReplaysWithinSameEndpoint(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()
	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"n":%d}`, n)
	}))

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Idempotency-Key", "k1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("/api/v1/holds")
	second := send("/api/v1/holds")
	other := send("/api/v1/appointments/a/cancel")

	if second.Body.String() != first.Body.String() || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Errorf("expected replay, got %q", second.Body.String())
	}
	if other.Body.String() == first.Body.String() {
		t.Error("same key on another path must not replay")
	}
	if calls != 2 {
		t.Errorf("expected 2 handler calls, got %d", calls)
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()
	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/holds", nil)
		req.Header.Set("Idempotency-Key", "k1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 {
		t.Errorf("expected conflict to be retried, got %d calls", calls)
	}
}

func TestIdempotency_RejectsReuseWithDifferentBody(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/holds", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "k1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(`{"start_local":"2025-03-03T09:00"}`); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if code := send(`{"start_local":"2025-03-03T10:00"}`); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a reused key, got %d", code)
	}
}

func TestIdempotency_InFlightDuplicateConflicts(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()
	entered := make(chan struct{})
	release := make(chan struct{})
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/holds", nil)
		req.Header.Set("Idempotency-Key", "k1")
		return req
	}

	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newReq())
		done <- rec.Code
	}()
	<-entered

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newReq())
	close(release)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while the first request runs, got %d", rec.Code)
	}
	if code := <-done; code != http.StatusCreated {
		t.Errorf("expected first request to succeed, got %d", code)
	}
}

func TestIdempotencyStore_KeysExpire(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if _, state := store.Claim("k", "f"); state != IdempotencyNew {
		t.Fatalf("expected new claim, got %v", state)
	}
	store.Complete("k", &CachedResponse{StatusCode: http.StatusCreated})
	if _, state := store.Claim("k", "f"); state != IdempotencyReplay {
		t.Errorf("expected replay, got %v", state)
	}

	now = now.Add(2 * time.Minute)
	store.evictExpired()
	if _, state := store.Claim("k", "other"); state != IdempotencyNew {
		t.Errorf("expected expired key to be claimable, got %v", state)
	}
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Nop())(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{name: "json post", method: http.MethodPost, body: "{}", contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "form post", method: http.MethodPost, body: "a=b", contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
		{name: "bodiless post", method: http.MethodPost, want: http.StatusOK},
		{name: "get", method: http.MethodGet, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.body == "" {
				req = httptest.NewRequest(tt.method, "/", nil)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(4)(okHandler())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"TIMEOUT"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestRequestTimeout_ReraisesHandlerPanic(t *testing.T) {
	h := Recovery(logger.Nop())(RequestTimeout(time.Second)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"INTERNAL_ERROR"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestRequestTimeout_HandlerHeadersStayBufferedAfterDeadline(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	h := RequestTimeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(finished)
		<-r.Context().Done()
		<-release
		w.Header().Set("X-Late", "1")
		if _, err := w.Write([]byte("late")); err != http.ErrHandlerTimeout {
			t.Errorf("expected ErrHandlerTimeout, got %v", err)
		}
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	close(release)
	<-finished

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
	if rec.Header().Get("X-Late") != "" {
		t.Errorf("late header leaked into the response")
	}
}

func TestRequestTimeout_CopiesHeadersOnFirstWrite(t *testing.T) {
	h := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Trace", "abc")
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if rec.Header().Get("X-Trace") != "abc" {
		t.Errorf("expected X-Trace header, got %q", rec.Header().Get("X-Trace"))
	}
}
