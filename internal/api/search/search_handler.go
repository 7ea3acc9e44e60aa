package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/waynai/waynai-go/internal/api"
	"github.com/waynai/waynai-go/internal/types"
)

// Ensure implementation satisfies the interface
var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	SearchStream(w http.ResponseWriter, r *http.Request)
}

// HandlerImpl provides the implementation for Handler.
type HandlerImpl struct {
	searchService SearchService
	logger        *slog.Logger
}

func NewHandlerImpl(searchService SearchService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		searchService: searchService,
		logger:        logger,
	}
}

// SearchStream handles POST /api/search/stream: one SSE event per pipeline
// stage, then the terminal result event, then the stream closes.
func (h *HandlerImpl) SearchStream(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	events, err := h.searchService.ProcessSearch(ctx, req)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	h.logger.InfoContext(ctx, "Search stream started", slog.String("query", req.Query))

	for {
		select {
		case event, open := <-events:
			if !open {
				h.logger.InfoContext(ctx, "Search stream completed")
				return
			}
			h.writeEvent(w, flusher, event)

		case <-ctx.Done():
			h.logger.InfoContext(ctx, "Client disconnected during search stream")
			return
		}
	}
}

func (h *HandlerImpl) writeEvent(w http.ResponseWriter, flusher http.Flusher, event types.SearchEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\n", uuid.NewString())
	fmt.Fprintf(w, "event: %s\n", event.Status)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
