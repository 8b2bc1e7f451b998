package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sisilabsai/nexenairis-collab/internal/hub"
	"github.com/sisilabsai/nexenairis-collab/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	r.Get("/tenants/{tenantID}/presence", TenantPresence(h))
	return r
}
