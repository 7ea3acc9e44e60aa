package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/waynai/waynai-go/app/observability/metrics"
	"github.com/waynai/waynai-go/internal/api"
	"github.com/waynai/waynai-go/internal/types"
)

// StreamEvent is one SSE frame of a plan stream.
type StreamEvent struct {
	EventID   string    `json:"eventId"`
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventTypeChunk    = "chunk"
	EventTypeComplete = "complete"
	EventTypeError    = "error"
)

type HandlerImpl struct {
	travelService TravelService
	logger        *slog.Logger
}

func NewHandlerImpl(travelService TravelService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		travelService: travelService,
		logger:        logger,
	}
}

type planRequest struct {
	Query string `json:"query"`
}

// GeneratePlan streams a travel plan for the query over SSE. The query comes
// from the `query` parameter on GET or a JSON body on POST.
func (h *HandlerImpl) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	h.servePlan(w, r, h.travelService.GeneratePlan)
}

// GeneratePlanWithSearch streams a plan, running the supplementary blog
// search when classification yields no structured intent.
func (h *HandlerImpl) GeneratePlanWithSearch(w http.ResponseWriter, r *http.Request) {
	h.servePlan(w, r, h.travelService.GeneratePlanWithSearch)
}

func (h *HandlerImpl) servePlan(w http.ResponseWriter, r *http.Request, generate func(context.Context, string) (<-chan types.StreamChunk, error)) {
	query, ok := h.extractQuery(w, r)
	if !ok {
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

	ctx := r.Context()
	stream, err := generate(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to start plan stream", slog.Any("error", err))
		writeSSEEvent(w, flusher, StreamEvent{
			EventID:   uuid.NewString(),
			Type:      EventTypeError,
			Error:     "여행 계획 생성을 시작할 수 없습니다",
			Timestamp: time.Now(),
		})
		return
	}

	h.logger.InfoContext(ctx, "Travel plan stream started", slog.String("query", query))
	start := time.Now()

	for {
		select {
		case chunk, open := <-stream:
			if !open {
				writeSSEEvent(w, flusher, StreamEvent{
					EventID:   uuid.NewString(),
					Type:      EventTypeComplete,
					Timestamp: time.Now(),
				})
				if m := metrics.Maybe(); m != nil {
					m.PlanRequestsTotal.Add(ctx, 1)
					m.PlanDurationSeconds.Record(ctx, time.Since(start).Seconds())
				}
				h.logger.InfoContext(ctx, "Travel plan stream completed")
				return
			}
			writeSSEEvent(w, flusher, StreamEvent{
				EventID:   uuid.NewString(),
				Type:      EventTypeChunk,
				Content:   chunk.Text,
				Timestamp: time.Now(),
			})

		case <-ctx.Done():
			h.logger.InfoContext(ctx, "Client disconnected during plan stream")
			return
		}
	}
}

func (h *HandlerImpl) extractQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method == http.MethodGet {
		query := r.URL.Query().Get("query")
		if query == "" {
			api.ErrorResponse(w, r, http.StatusBadRequest, "query parameter is required")
			return "", false
		}
		return query, true
	}

	var req planRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	if req.Query == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "query is required")
		return "", false
	}
	return req.Query, true
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\n", event.EventID)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
