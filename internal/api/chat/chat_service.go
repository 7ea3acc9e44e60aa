package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waynai/waynai-go/internal/api/aggregator"
	generativeAI "github.com/waynai/waynai-go/internal/api/generative_ai"
	"github.com/waynai/waynai-go/internal/prompts"
	"github.com/waynai/waynai-go/internal/types"
)

const noHistoryMarker = "이전 대화가 없습니다."

// Ensure implementation satisfies the interface
var _ ChatService = (*ChatServiceImpl)(nil)

// ChatService answers conversational travel questions. History is supplied
// by the caller per request; nothing is stored server-side.
type ChatService interface {
	ProcessMessage(ctx context.Context, req types.ChatRequest) (<-chan types.StreamChunk, error)
}

// ChatServiceImpl provides the implementation for ChatService.
type ChatServiceImpl struct {
	aggregator  aggregator.AggregatorService
	prompts     *prompts.Store
	stage       *generativeAI.GenerationStage
	logger      *slog.Logger
	temperature float32
	maxTokens   int32
}

func NewChatService(agg aggregator.AggregatorService, store *prompts.Store, stage *generativeAI.GenerationStage, temperature float32, maxTokens int32, logger *slog.Logger) *ChatServiceImpl {
	return &ChatServiceImpl{
		aggregator:  agg,
		prompts:     store,
		stage:       stage,
		logger:      logger,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// ProcessMessage builds the chat prompt from history plus retrieved reference
// material and streams the answer.
func (s *ChatServiceImpl) ProcessMessage(ctx context.Context, req types.ChatRequest) (<-chan types.StreamChunk, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "ProcessMessage", trace.WithAttributes(
		attribute.String("sessionId", req.SessionID),
		attribute.Int("previousTurns", len(req.PreviousTurns)),
	))
	defer span.End()

	block := s.aggregator.BuildForChat(ctx, req.RegionCode, req.SubRegionCode, req.Keyword)

	prompt, err := s.prompts.Render(prompts.KeyChat, map[string]string{
		"query":     req.Message,
		"multiturn": formatMultiturn(req.PreviousTurns),
		"context":   block.Text(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Prompt template missing")
		return nil, fmt.Errorf("building chat prompt: %w", err)
	}

	s.logger.InfoContext(ctx, "Chat prompt assembled",
		slog.String("sessionId", req.SessionID),
		slog.Int("promptLength", len(prompt)))

	span.SetStatus(codes.Ok, "Chat generation started")
	return s.stage.GenerateStream(ctx, types.GenerationRequest{
		Prompt:      prompt,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}), nil
}

// formatMultiturn renders the caller-supplied history in the 사용자/상담사
// dialogue form the chat template expects.
func formatMultiturn(turns []types.ChatTurn) string {
	if len(turns) == 0 {
		return noHistoryMarker
	}
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		speaker := "상담사"
		if turn.Role == types.RoleUser {
			speaker = "사용자"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, turn.Content))
	}
	return strings.Join(lines, "\n")
}
