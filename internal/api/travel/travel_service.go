package travel

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waynai/waynai-go/internal/api/aggregator"
	generativeAI "github.com/waynai/waynai-go/internal/api/generative_ai"
	"github.com/waynai/waynai-go/internal/api/intent"
	"github.com/waynai/waynai-go/internal/prompts"
	"github.com/waynai/waynai-go/internal/types"
)

// Ensure implementation satisfies the interface
var _ TravelService = (*TravelServiceImpl)(nil)

// TravelService generates streamed travel plans from free-text queries. The
// returned channel always terminates: degraded upstream stages surface as
// degraded content, and the only errors returned are configuration defects.
type TravelService interface {
	GeneratePlan(ctx context.Context, query string) (<-chan types.StreamChunk, error)
	GeneratePlanWithSearch(ctx context.Context, query string) (<-chan types.StreamChunk, error)
}

// TravelServiceImpl provides the implementation for TravelService.
type TravelServiceImpl struct {
	classifier  intent.ClassifierService
	aggregator  aggregator.AggregatorService
	prompts     *prompts.Store
	stage       *generativeAI.GenerationStage
	logger      *slog.Logger
	temperature float32
	maxTokens   int32
}

func NewTravelService(classifier intent.ClassifierService, agg aggregator.AggregatorService, store *prompts.Store, stage *generativeAI.GenerationStage, temperature float32, maxTokens int32, logger *slog.Logger) *TravelServiceImpl {
	return &TravelServiceImpl{
		classifier:  classifier,
		aggregator:  agg,
		prompts:     store,
		stage:       stage,
		logger:      logger,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// GeneratePlan runs the full pipeline for one query: classify, aggregate,
// build the prompt, stream the plan.
func (s *TravelServiceImpl) GeneratePlan(ctx context.Context, query string) (<-chan types.StreamChunk, error) {
	ctx, span := otel.Tracer("TravelService").Start(ctx, "GeneratePlan", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	classified, err := s.classifier.Analyze(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Classification configuration error")
		return nil, err
	}
	return s.generate(ctx, span, types.IntentWithSearch{Intent: classified})
}

// GeneratePlanWithSearch additionally runs the supplementary blog search for
// queries that classify as General.
func (s *TravelServiceImpl) GeneratePlanWithSearch(ctx context.Context, query string) (<-chan types.StreamChunk, error) {
	ctx, span := otel.Tracer("TravelService").Start(ctx, "GeneratePlanWithSearch", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	classified, err := s.classifier.AnalyzeWithSearch(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Classification configuration error")
		return nil, err
	}
	return s.generate(ctx, span, classified)
}

func (s *TravelServiceImpl) generate(ctx context.Context, span trace.Span, classified types.IntentWithSearch) (<-chan types.StreamChunk, error) {
	block := s.aggregator.BuildFromIntent(ctx, classified)

	prompt, err := s.prompts.Render(prompts.KeyTravelPlan, map[string]string{
		"intent":  formatIntentInfo(classified),
		"context": block.Text(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Prompt template missing")
		return nil, fmt.Errorf("building travel plan prompt: %w", err)
	}

	s.logger.InfoContext(ctx, "Travel plan prompt assembled",
		slog.String("category", string(classified.Intent.Category)),
		slog.Int("promptLength", len(prompt)),
		slog.Int("contextGroups", len(block.Groups)))

	span.SetAttributes(attribute.Int("context.groups", len(block.Groups)))
	span.SetStatus(codes.Ok, "Plan generation started")
	return s.stage.GenerateStream(ctx, types.GenerationRequest{
		Prompt:      prompt,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}), nil
}

// formatIntentInfo renders the classified intent as the one-line summary the
// plan template embeds.
func formatIntentInfo(classified types.IntentWithSearch) string {
	keyword := "없음"
	if classified.Intent.Keyword != "" {
		keyword = classified.Intent.Keyword
	}
	areaName := "없음"
	if classified.Intent.Area != nil {
		areaName = classified.Intent.Area.Name
	}
	info := fmt.Sprintf("의도: %s, 키워드: %s, 지역: %s", classified.Intent.Category, keyword, areaName)
	if classified.HasBlogSearch && classified.BlogResult != nil {
		info += fmt.Sprintf(", 네이버 검색 결과: %d개", classified.BlogResult.Total)
	}
	return info
}
