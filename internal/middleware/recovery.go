package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/vandreio/tourbook/internal/utils"
)

// Recovery is a middleware that recovers from panics and returns a 500 Internal Server Error
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					utils.LogPanic(err, debug.Stack())
					utils.Error(w, utils.NewInternalServerError(nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
