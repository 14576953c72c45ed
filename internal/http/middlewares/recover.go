package middlewares

import (
	"net/http"

	"authrelay/internal/http/helpers"
	"authrelay/internal/observability/logger"
)

// WithRecover turns handler panics into a logged 500 instead of killing the
// connection. Must sit outermost in the chain.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("handler panic",
					logger.Component("http"),
					logger.Path(r.URL.Path),
					logger.String("panic", toString(rec)),
				)
				helpers.WriteError(w, helpers.ErrInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}
