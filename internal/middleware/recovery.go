package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"applicationaccess/pkg/accesserrors"
)

// Recovery middleware converts panics into Internal AccessError responses
// instead of a bare connection reset.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := GetRequestIDFromRequest(r)
					logger.Error("panic recovered",
						zap.String("requestId", requestID),
						zap.Any("panic", err),
						zap.String("stack", string(debug.Stack())),
					)
					if w.Header().Get("Content-Type") == "" {
						writeError(w, accesserrors.Internal("internal server error").WithAttribute("requestId", requestID))
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RecoveryWithHandler allows custom handling of panics.
func RecoveryWithHandler(logger *zap.Logger, handler func(w http.ResponseWriter, r *http.Request, err any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := GetRequestIDFromRequest(r)
					logger.Error("panic recovered",
						zap.String("requestId", requestID),
						zap.Any("panic", err),
						zap.String("stack", string(debug.Stack())),
					)
					handler(w, r, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// DefaultPanicHandler is a default panic handler for RecoveryWithHandler.
func DefaultPanicHandler(w http.ResponseWriter, r *http.Request, err any) {
	if w.Header().Get("Content-Type") == "" {
		writeError(w, accesserrors.Internal("internal server error").WithAttribute("requestId", GetRequestIDFromRequest(r)))
	}
}