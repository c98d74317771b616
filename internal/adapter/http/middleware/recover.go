package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

func (app *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				err := fmt.Errorf("panic: %v", p)
				ctx := wrap.WithAction(r.Context(), "http_panic_recovered")
				app.log.Error(ctx, "recovered from panic", err, "stack", string(debug.Stack()))

				w.Header().Set("Connection", "close")
				handler.ErrorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
