package httpapi

import (
	"net/http"

	"github.com/dowdarts/aadsstatsscrapper/internal/platform/logging"
)

func NewRouter(handler *Handler, logger *logging.Logger, corsAllowedOrigins []string) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler)
	registerIngestionRoutes(mux, handler)
	registerStandingsRoutes(mux, handler)

	return RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, mux)))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered", "panic", rec)
				writeInternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
