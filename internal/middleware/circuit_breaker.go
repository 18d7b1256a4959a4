package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"applicationaccess/pkg/accesserrors"
)

// CircuitBreakerConfig holds configuration for the cluster-wide trip switch
// (§5): it wraps the node's inbound HTTP handlers, and once their responses
// fail (status 500 or above) past FailureThreshold, the switch trips and
// every further request fails fast with ServiceUnavailable instead of
// queueing behind a timeout.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for the trip
// switch.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// CircuitBreaker builds an HTTP middleware wrapping requests in a
// gobreaker.CircuitBreaker, tripping to ServiceUnavailable per §5.
func CircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := cb.Execute(func() (any, error) {
				wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
				next.ServeHTTP(wrapper, r)
				if wrapper.statusCode >= 500 {
					return nil, http.ErrAbortHandler
				}
				return nil, nil
			})

			if err != nil {
				logger.Warn("circuit breaker rejected request",
					zap.String("name", config.Name),
					zap.Error(err),
				)
				var ae *accesserrors.AccessError
				switch err {
				case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
					ae = accesserrors.ServiceUnavailable("service temporarily unavailable")
				default:
					ae = accesserrors.Internal("service error")
				}
				writeError(w, ae)
			}
		})
	}
}

func writeError(w http.ResponseWriter, ae *accesserrors.AccessError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":       ae.Code,
		"message":    ae.Message,
		"target":     ae.Target,
		"attributes": ae.Attributes,
	})
}

// responseWrapper wraps http.ResponseWriter to capture the status code.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
