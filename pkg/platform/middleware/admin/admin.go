// Package admin gates operator-only routes such as namespace registration.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "feedlog/pkg/domain-errors"
	"feedlog/pkg/platform/httputil"
	"feedlog/pkg/requestcontext"
)

const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken answers 401 unless X-Admin-Token equals token. With an
// empty token the middleware is a no-op and the routes are open.
func RequireAdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(HeaderAdminToken)), want) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "registration token rejected", append(requestcontext.LogAttrs(ctx), "path", r.URL.Path)...)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
		})
	}
}
