package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/docqa/idgen"
	"github.com/hazyhaar/docqa/kit"
)

// RequestID returns middleware that tags each request with a short id and
// injects it into the context, the X-Request-ID response header, and a
// per-request structured logger derived from base. Incoming X-Request-ID
// headers are honored so upstream proxies can correlate.
func RequestID(base *slog.Logger) func(http.Handler) http.Handler {
	ids := idgen.Prefixed("req_", idgen.NanoID(8))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = ids()
			}

			ctx := kit.WithRequestID(r.Context(), requestID)
			w.Header().Set("X-Request-ID", requestID)

			logger := base.With(
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx = context.WithValue(ctx, LoggerKey, logger)
			logger.Info("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
