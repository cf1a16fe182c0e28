package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/memechain/pkg/logger"
)

// maxCapturedBody bounds how much of an error body is kept for logging
const maxCapturedBody = 4 << 10

// bodyCapture keeps the start of error response bodies
type bodyCapture struct {
	chimiddleware.WrapResponseWriter
	buf bytes.Buffer
}

func (c *bodyCapture) Write(b []byte) (int, error) {
	if c.Status() >= http.StatusBadRequest && c.buf.Len() < maxCapturedBody {
		c.buf.Write(b[:min(len(b), maxCapturedBody-c.buf.Len())])
	}
	return c.WrapResponseWriter.Write(b)
}

// failureAttrs pulls the error text and, for failed flows, the classified category and
// failing step out of a JSON error body
func failureAttrs(body []byte) []any {
	var obj struct {
		Error    string `json:"error"`
		Category string `json:"category"`
		Step     string `json:"step"`
	}
	if json.Unmarshal(body, &obj) != nil || obj.Error == "" {
		return nil
	}

	attrs := []any{"error", obj.Error}
	if obj.Category != "" {
		attrs = append(attrs, "category", obj.Category, "step", obj.Step)
	}
	return attrs
}

// routePattern returns the matched chi pattern so requests to one endpoint group in logs
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// Logger logs one line per request. Client errors log at warn and server errors at error,
// with the response's error text attached.
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bc := &bodyCapture{WrapResponseWriter: chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)}
			start := time.Now()

			// Propagate chi's request ID into our typed context key
			if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
				r = r.WithContext(context.WithValue(r.Context(), logger.RequestIDKey, reqID))
			}

			defer func() {
				status := bc.Status()
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"route", routePattern(r),
					"remote_addr", r.RemoteAddr,
					"status", status,
					"bytes", bc.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
				}
				if status >= http.StatusBadRequest {
					attrs = append(attrs, failureAttrs(bc.buf.Bytes())...)
				}

				reqLog := log.WithContext(r.Context())
				switch {
				case status >= http.StatusInternalServerError:
					reqLog.Error("HTTP request", attrs...)
				case status >= http.StatusBadRequest:
					reqLog.Warn("HTTP request", attrs...)
				default:
					reqLog.Info("HTTP request", attrs...)
				}
			}()

			next.ServeHTTP(bc, r)
		})
	}
}
