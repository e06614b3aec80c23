package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/jsamuelsen11/todo-service/internal/platform/config"
)

// CORS returns middleware that answers cross-origin preflight requests and
// adds Access-Control-* headers for the configured origins. Any request
// header may be sent cross-origin. It must run before routing so that
// OPTIONS preflights never reach the method matcher.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{headerRequestID, headerCorrelationID},
		MaxAge:         int(cfg.MaxAge / time.Second),
	})
}
