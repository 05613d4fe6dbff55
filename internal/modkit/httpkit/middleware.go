package httpkit

import (
	"net/http"

	"pixgeo/internal/platform/config"
	"pixgeo/internal/platform/net/middleware"
)

// CommonStack returns the root middleware stack configured from cfg
// (INSPECT_CORS_ORIGINS, INSPECT_SLOW_REQUEST)
func CommonStack(cfg config.Conf) []func(http.Handler) http.Handler {
	return middleware.Defaults(
		middleware.CORSOptions{AllowedOrigins: cfg.MayCSV("INSPECT_CORS_ORIGINS", nil), MaxAge: 300},
		cfg.MayDuration("INSPECT_SLOW_REQUEST", 0),
	)
}
