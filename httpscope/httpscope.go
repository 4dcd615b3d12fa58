// Package httpscope binds a nasc scope to each HTTP request.
package httpscope

import (
	"context"
	"net/http"

	"github.com/sqamentor/nasc"
	"github.com/sqamentor/nasc/logger"
)

// HeaderScopeID is the response header carrying the request's scope ID.
const HeaderScopeID = "X-Scope-ID"

// Middleware opens a scope for every request, stores it in the request
// context and disposes it once the handler returns or panics. Disposal
// errors are logged through the container's logger.
//
//	r := chi.NewRouter()
//	r.Use(httpscope.Middleware(container))
func Middleware(c *nasc.Container) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := c.InScope(r.Context(), func(ctx context.Context, scope *nasc.Scope) error {
				w.Header().Set(HeaderScopeID, scope.ID())
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err != nil {
				c.Logger().Warn("request scope disposal failed", logger.Fields(
					"method", r.Method,
					"path", r.URL.Path,
					logger.FieldError, err,
				))
			}
		})
	}
}

// FromRequest returns the scope opened for r, or nil outside Middleware.
func FromRequest(r *http.Request) *nasc.Scope {
	return nasc.ScopeFromContext(r.Context())
}

// Resolve resolves T in the scope of r.
//
//	repo, err := httpscope.Resolve[UserRepository](r)
func Resolve[T any](r *http.Request) (T, error) {
	scope := FromRequest(r)
	if scope == nil {
		var zero T
		return zero, &nasc.ScopeError{Key: nasc.TypeKey[T](), Reason: "request has no scope"}
	}
	return nasc.Resolve[T](scope)
}
