package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/netrasat/groundcore/internal/logger"
)

// Roles allowed to drive station lifecycle operations.
var operatorRoles = map[string]bool{
	"SUPER_ADMIN":      true,
	"ADMIN":            true,
	"MISSION_OPERATOR": true,
}

// requireOperator gates a route on the X-User-Roles header, a comma-separated
// role list set by the authenticating proxy. A missing header is 401; a header
// with no operator role is 403.
func requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-User-Roles")
		if header == "" {
			Unauthorized(w, "X-User-Roles header required")
			return
		}

		for _, role := range strings.Split(header, ",") {
			if operatorRoles[strings.TrimSpace(role)] {
				next.ServeHTTP(w, r)
				return
			}
		}

		logger.Warn("operator role check failed",
			logger.ClientIP(r.RemoteAddr), logger.Roles(header))
		Forbidden(w, "Operator role required")
	})
}

// requestLogger logs requests using the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.TraceID(requestID),
			logger.URL(r.Method+" "+r.URL.Path),
			logger.ClientIP(r.RemoteAddr),
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			logger.TraceID(requestID),
			logger.URL(r.Method+" "+r.URL.Path),
			logger.Status(ww.Status()),
			logger.Bytes(ww.BytesWritten()),
			logger.DurationMs(float64(time.Since(start).Microseconds())/1000),
		)
	})
}
