package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

// New limits requests per client IP to rate, formatted like "10-M" or
// "100-H". Each call owns a separate in-memory counter.
func New(rate string) (echo.MiddlewareFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse %q: %w", rate, err)
	}
	instance := limiter.New(memory.NewStore(), r)

	mw := stdlib.NewMiddleware(instance,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, req *http.Request) {
			logging.FromContext(req.Context()).Warn("rate_limited", "status", http.StatusTooManyRequests, "path", req.URL.Path)
			writeEnvelope(w, http.StatusTooManyRequests, "Too many requests, please slow down")
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, req *http.Request, err error) {
			logging.FromContext(req.Context()).Error("rate_limit_error", "status", http.StatusInternalServerError, "error", err)
			writeEnvelope(w, http.StatusInternalServerError, "An unexpected error occurred")
		}),
	)
	return echo.WrapMiddleware(mw.Handler), nil
}

func writeEnvelope(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(transport.Fail(msg, nil))
}
