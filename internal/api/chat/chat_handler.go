package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/waynai/waynai-go/internal/api"
	"github.com/waynai/waynai-go/internal/types"
)

// StreamEvent is one SSE frame of a chat stream.
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
	chatService ChatService
	logger      *slog.Logger
}

func NewHandlerImpl(chatService ChatService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		chatService: chatService,
		logger:      logger,
	}
}

// ProcessMessage streams the assistant's answer for one chat turn over SSE.
func (h *HandlerImpl) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "message is required")
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
	stream, err := h.chatService.ProcessMessage(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to start chat stream", slog.Any("error", err))
		h.writeEvent(w, flusher, StreamEvent{
			EventID:   uuid.NewString(),
			Type:      EventTypeError,
			Error:     "채팅 처리를 시작할 수 없습니다",
			Timestamp: time.Now(),
		})
		return
	}

	h.logger.InfoContext(ctx, "Chat stream started", slog.String("sessionId", req.SessionID))

	for {
		select {
		case chunk, open := <-stream:
			if !open {
				h.writeEvent(w, flusher, StreamEvent{
					EventID:   uuid.NewString(),
					Type:      EventTypeComplete,
					Timestamp: time.Now(),
				})
				h.logger.InfoContext(ctx, "Chat stream completed", slog.String("sessionId", req.SessionID))
				return
			}
			h.writeEvent(w, flusher, StreamEvent{
				EventID:   uuid.NewString(),
				Type:      EventTypeChunk,
				Content:   chunk.Text,
				Timestamp: time.Now(),
			})

		case <-ctx.Done():
			h.logger.InfoContext(ctx, "Client disconnected during chat stream", slog.String("sessionId", req.SessionID))
			return
		}
	}
}

func (h *HandlerImpl) writeEvent(w http.ResponseWriter, flusher http.Flusher, event StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\n", event.EventID)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
