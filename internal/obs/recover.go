package obs

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mx-paylink/internal/common"
)

// Recoverer turns panics into the generic 500 body and logs the stack.
type Recoverer struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware.
func (rc Recoverer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			message := fmt.Sprint(rec)
			if err, ok := rec.(error); ok {
				message = err.Error()
			}
			rc.Logger.Error().
				Str("path", r.URL.Path).
				Str("panic", message).
				Bytes("stack", debug.Stack()).
				Msg("unhandled_panic")
			common.JSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Something went wrong!",
				"message": message,
			})
		}()
		next.ServeHTTP(w, r)
	})
}
