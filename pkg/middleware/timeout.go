package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "clinicbook/pkg/errors"
	httputil "clinicbook/pkg/http"
)

// deadlineWriter lets exactly one of the handler and the deadline own the
// response. Once the deadline fires, handler writes fail with
// http.ErrHandlerTimeout. Headers are buffered in h until the handler's
// first write so the deadline path never shares a map with the handler.
type deadlineWriter struct {
	w        http.ResponseWriter
	h        http.Header
	mu       sync.Mutex
	started  bool
	deadline bool
}

func newDeadlineWriter(w http.ResponseWriter) *deadlineWriter {
	return &deadlineWriter{w: w, h: make(http.Header)}
}

func (dw *deadlineWriter) Header() http.Header { return dw.h }

// start must be called with mu held.
func (dw *deadlineWriter) start() bool {
	if dw.deadline {
		return false
	}
	if !dw.started {
		dst := dw.w.Header()
		for k, vv := range dw.h {
			dst[k] = vv
		}
		dw.started = true
	}
	return true
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.start() {
		dw.w.WriteHeader(code)
	}
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if !dw.start() {
		return 0, http.ErrHandlerTimeout
	}
	return dw.w.Write(b)
}

// expire writes the timeout error unless the handler already started its
// response.
func (dw *deadlineWriter) expire() {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if !dw.started {
		_ = httputil.WriteError(dw.w, apperrors.Timeout("Request timed out"))
	}
	dw.deadline = true
}

// RequestTimeout bounds each request by timeout. Handlers see the deadline
// through r.Context(); if nothing was written when it passes the client gets
// a 504 TIMEOUT error. A panic in the handler is re-raised on the serving
// goroutine so an outer Recovery can answer it.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := newDeadlineWriter(w)
			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						panicked <- rec
					}
				}()
				next.ServeHTTP(dw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case rec := <-panicked:
				panic(rec)
			case <-done:
			case <-ctx.Done():
				dw.expire()
			}
		})
	}
}
