package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waynai/waynai-go/internal/api/area"
	"github.com/waynai/waynai-go/internal/api/blog"
	generativeAI "github.com/waynai/waynai-go/internal/api/generative_ai"
	"github.com/waynai/waynai-go/internal/prompts"
	"github.com/waynai/waynai-go/internal/types"
)

const (
	fallbackConfidence = 0.5

	reasonServiceError = "AI 서비스 일시적 오류로 인한 기본 응답"
	reasonParseError   = "응답 파싱 오류로 인한 기본 응답"
)

// defaultAreaHint grounds extraction failures to 부산 해운대구.
var defaultAreaHint = types.AreaHint{AreaName: "부산", SubRegionName: "해운대구"}

// Ensure implementation satisfies the interface
var _ ClassifierService = (*ClassifierServiceImpl)(nil)

// ClassifierService turns free-text travel queries into structured intents.
// Classification never fails at runtime: model errors, error envelopes in
// otherwise-OK responses, and unparseable output all degrade to a General
// intent with 0.5 confidence. The only errors returned are configuration
// defects (missing prompt template).
type ClassifierService interface {
	Analyze(ctx context.Context, query string) (types.Intent, error)
	AnalyzeWithSearch(ctx context.Context, query string) (types.IntentWithSearch, error)
	ExtractAreaHints(ctx context.Context, query string) ([]types.AreaHint, error)
}

// ClassifierServiceImpl provides the implementation for ClassifierService.
type ClassifierServiceImpl struct {
	generator generativeAI.Generator
	prompts   *prompts.Store
	areas     *area.Index
	blog      blog.Searcher
	logger    *slog.Logger
}

func NewClassifierService(generator generativeAI.Generator, store *prompts.Store, areas *area.Index, blogSearcher blog.Searcher, logger *slog.Logger) *ClassifierServiceImpl {
	return &ClassifierServiceImpl{
		generator: generator,
		prompts:   store,
		areas:     areas,
		blog:      blogSearcher,
		logger:    logger,
	}
}

// Analyze classifies one query. The prompt embeds the full area reference
// table so the model grounds codes against real rows.
func (s *ClassifierServiceImpl) Analyze(ctx context.Context, query string) (types.Intent, error) {
	ctx, span := otel.Tracer("ClassifierService").Start(ctx, "Analyze", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	prompt, err := s.prompts.Render(prompts.KeyIntentAnalysis, map[string]string{
		"query":    query,
		"areaData": s.formatAreaData(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Prompt template missing")
		return types.Intent{}, fmt.Errorf("building intent prompt: %w", err)
	}

	response, err := s.generator.GenerateText(ctx, types.GenerationRequest{Prompt: prompt})
	if err != nil {
		s.logger.WarnContext(ctx, "Intent model call failed, using default intent", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Ok, "Degraded to default intent")
		return fallbackIntent(reasonServiceError), nil
	}

	// Upstream failures sometimes arrive as an error envelope inside an
	// otherwise successful response body.
	if strings.Contains(response, `"error"`) && strings.Contains(response, `"status"`) {
		s.logger.WarnContext(ctx, "Intent response carried error envelope, using default intent")
		span.SetStatus(codes.Ok, "Degraded to default intent")
		return fallbackIntent(reasonServiceError), nil
	}

	result, err := parseIntent(CleanModelJSON(response))
	if err != nil {
		s.logger.WarnContext(ctx, "Intent response unparseable, using default intent", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Ok, "Degraded to default intent")
		return fallbackIntent(reasonParseError), nil
	}

	span.SetAttributes(
		attribute.String("intent.category", string(result.Category)),
		attribute.Float64("intent.confidence", result.Confidence),
	)
	span.SetStatus(codes.Ok, "Intent classified")
	return result, nil
}

// AnalyzeWithSearch classifies the query and, when classification yields a
// General intent, runs a supplementary blog search so the pipeline still has
// something concrete to ground the answer on. A failed blog search leaves
// the intent untouched.
func (s *ClassifierServiceImpl) AnalyzeWithSearch(ctx context.Context, query string) (types.IntentWithSearch, error) {
	ctx, span := otel.Tracer("ClassifierService").Start(ctx, "AnalyzeWithSearch", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	result, err := s.Analyze(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Classification failed")
		return types.IntentWithSearch{}, err
	}

	out := types.IntentWithSearch{Intent: result}
	if result.Category != types.IntentGeneral {
		span.SetStatus(codes.Ok, "Structured intent, no blog search")
		return out, nil
	}

	blogResult, err := s.blog.Search(ctx, query)
	if err != nil {
		s.logger.WarnContext(ctx, "Blog search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Ok, "General intent without blog results")
		return out, nil
	}

	out.BlogResult = blogResult
	out.HasBlogSearch = true
	span.SetAttributes(attribute.Int("blog.total", blogResult.Total))
	span.SetStatus(codes.Ok, "General intent with blog results")
	return out, nil
}

// ExtractAreaHints runs the dedicated area-extraction call used by the
// free-text search pipeline. Extraction follows the same degradation policy
// as classification: any failure yields the single default area.
func (s *ClassifierServiceImpl) ExtractAreaHints(ctx context.Context, query string) ([]types.AreaHint, error) {
	ctx, span := otel.Tracer("ClassifierService").Start(ctx, "ExtractAreaHints", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	prompt, err := s.prompts.Render(prompts.KeyAreaExtraction, map[string]string{
		"query": query,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Prompt template missing")
		return nil, fmt.Errorf("building area extraction prompt: %w", err)
	}

	response, err := s.generator.GenerateText(ctx, types.GenerationRequest{Prompt: prompt})
	if err != nil {
		s.logger.WarnContext(ctx, "Area extraction failed, using default area", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Ok, "Degraded to default area")
		return []types.AreaHint{defaultAreaHint}, nil
	}

	hints, err := parseAreaHints(CleanModelJSON(response))
	if err != nil || len(hints) == 0 {
		if err != nil {
			s.logger.WarnContext(ctx, "Area extraction unparseable, using default area", slog.Any("error", err))
			span.RecordError(err)
		}
		span.SetStatus(codes.Ok, "Degraded to default area")
		return []types.AreaHint{defaultAreaHint}, nil
	}

	span.SetAttributes(attribute.Int("hints", len(hints)))
	span.SetStatus(codes.Ok, "Areas extracted")
	return hints, nil
}

// formatAreaData serializes the reference table grouped by region for prompt
// embedding.
func (s *ClassifierServiceImpl) formatAreaData() string {
	var sb strings.Builder
	currentRegion := ""
	for _, c := range s.areas.All() {
		if c.RegionName != currentRegion {
			if currentRegion != "" {
				sb.WriteString("\n")
			}
			currentRegion = c.RegionName
			fmt.Fprintf(&sb, "지역: %s (코드: %s)\n", c.RegionName, c.RegionCode)
		}
		fmt.Fprintf(&sb, "  - %s (코드: %s)\n", c.SubRegionName, c.SubRegionCode)
	}
	if sb.Len() == 0 {
		return "지역 데이터를 불러올 수 없습니다."
	}
	return sb.String()
}

func fallbackIntent(reason string) types.Intent {
	return types.Intent{
		Category:   types.IntentGeneral,
		Confidence: fallbackConfidence,
		Reason:     reason,
	}
}
