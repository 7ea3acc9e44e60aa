package health

import (
	"net/http"
	"time"

	"github.com/waynai/waynai-go/internal/api"
)

// Handler reports process liveness and which external credentials are
// configured, without ever echoing the credentials themselves.
type Handler struct {
	model             string
	tourKeyConfigured bool
	naverConfigured   bool
}

func NewHandler(model string, tourKeyConfigured, naverConfigured bool) *Handler {
	return &Handler{
		model:             model,
		tourKeyConfigured: tourKeyConfigured,
		naverConfigured:   naverConfigured,
	}
}

// Check handles GET /api/health/check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"status":    "UP",
		"model":     h.model,
		"tourApi":   h.tourKeyConfigured,
		"naverApi":  h.naverConfigured,
		"timestamp": time.Now(),
	})
}
