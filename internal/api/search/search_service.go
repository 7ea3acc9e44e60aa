package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waynai/waynai-go/internal/api/aggregator"
	generativeAI "github.com/waynai/waynai-go/internal/api/generative_ai"
	"github.com/waynai/waynai-go/internal/api/intent"
	"github.com/waynai/waynai-go/internal/pipeline"
	"github.com/waynai/waynai-go/internal/prompts"
	"github.com/waynai/waynai-go/internal/types"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"

	stepResult = "course_generation"
	stepError  = "error"
)

// Ensure implementation satisfies the interface
var _ SearchService = (*SearchServiceImpl)(nil)

// SearchService runs the progressive search pipeline: area extraction,
// tourist context retrieval and plan generation, emitting one status event
// per stage transition followed by a terminal event carrying the result.
type SearchService interface {
	ProcessSearch(ctx context.Context, req types.SearchRequest) (<-chan types.SearchEvent, error)
}

// SearchServiceImpl provides the implementation for SearchService.
type SearchServiceImpl struct {
	classifier   intent.ClassifierService
	aggregator   aggregator.AggregatorService
	prompts      *prompts.Store
	generator    generativeAI.Generator
	logger       *slog.Logger
	stageTimeout time.Duration
}

func NewSearchService(classifier intent.ClassifierService, agg aggregator.AggregatorService, store *prompts.Store, generator generativeAI.Generator, stageTimeout time.Duration, logger *slog.Logger) *SearchServiceImpl {
	return &SearchServiceImpl{
		classifier:   classifier,
		aggregator:   agg,
		prompts:      store,
		generator:    generator,
		logger:       logger,
		stageTimeout: stageTimeout,
	}
}

// ProcessSearch validates the request and starts the pipeline. The returned
// channel delivers processing events per stage and closes after the terminal
// completed or error event.
func (s *SearchServiceImpl) ProcessSearch(ctx context.Context, req types.SearchRequest) (<-chan types.SearchEvent, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if req.Days < 1 {
		req.Days = 1
	}

	events := make(chan types.SearchEvent, 8)
	go s.run(ctx, req, events)
	return events, nil
}

func (s *SearchServiceImpl) run(ctx context.Context, req types.SearchRequest, events chan<- types.SearchEvent) {
	defer close(events)

	ctx, span := otel.Tracer("SearchService").Start(ctx, "ProcessSearch", trace.WithAttributes(
		attribute.String("query", req.Query),
		attribute.Int("days", req.Days),
	))
	defer span.End()

	var progress []string

	send := func(status, message, step string, data any) {
		event := types.SearchEvent{
			Status:    status,
			Message:   message,
			Step:      step,
			Data:      data,
			Timestamp: time.Now(),
			Progress:  append([]string(nil), progress...),
		}
		select {
		case events <- event:
		case <-ctx.Done():
		}
	}

	runner := pipeline.NewRunner(func(event pipeline.StatusEvent) {
		// Failed stages are reported once, by fail, as the terminal error
		// event; forwarding them here would duplicate the error frame.
		if event.Stage == pipeline.StageFailed {
			return
		}
		send(StatusProcessing, event.Message, string(event.Stage), nil)
	}, s.stageTimeout, s.logger)

	runner.Emit(ctx, pipeline.StageStart, "검색을 시작합니다", nil)

	combined := req.Query
	if req.Destination != "" {
		combined = req.Query + " " + req.Destination
	}

	var hints []types.AreaHint
	err := runner.Run(ctx, pipeline.StageClassify, "사용자 입력 분석 및 지역 정보 추출 중...", func(ctx context.Context) error {
		var err error
		hints, err = s.classifier.ExtractAreaHints(ctx, combined)
		if err != nil {
			return err
		}
		progress = append(progress, fmt.Sprintf("지역 정보 추출 완료: %d개 지역", len(hints)))
		return nil
	})
	if err != nil {
		s.fail(ctx, span, send, err)
		return
	}

	var block types.ContextBlock
	err = runner.Run(ctx, pipeline.StageAggregate, "관광지 정보 검색 중...", func(ctx context.Context) error {
		block = s.aggregator.BuildFromAreaHints(ctx, req.Query, hints)
		progress = append(progress, "관광지 정보 검색 완료")
		return nil
	})
	if err != nil {
		s.fail(ctx, span, send, err)
		return
	}

	var prompt string
	err = runner.Run(ctx, pipeline.StageBuildPrompt, "여행 계획 프롬프트 구성 중...", func(ctx context.Context) error {
		var err error
		prompt, err = s.prompts.Render(prompts.KeyTravelGuide, map[string]string{
			"query":   formatRequestSummary(req, hints),
			"context": block.Text(),
		})
		return err
	})
	if err != nil {
		s.fail(ctx, span, send, err)
		return
	}

	var result any
	err = runner.Run(ctx, pipeline.StageGenerate, "AI 기반 여행 계획 생성 중...", func(ctx context.Context) error {
		text, genErr := s.generator.GenerateText(ctx, types.GenerationRequest{Prompt: prompt})
		if genErr != nil || strings.TrimSpace(text) == "" {
			if genErr != nil {
				s.logger.WarnContext(ctx, "Plan generation failed, using default plan", slog.Any("error", genErr))
				span.RecordError(genErr)
			}
			result = defaultPlan(req, hints)
		} else {
			result = text
		}
		progress = append(progress, "AI 기반 여행 계획 생성 완료")
		return nil
	})
	if err != nil {
		s.fail(ctx, span, send, err)
		return
	}

	runner.Emit(ctx, pipeline.StageEmit, "결과 전송 중...", nil)
	send(StatusCompleted, "검색 완료", stepResult, result)
	runner.Emit(ctx, pipeline.StageDone, "검색이 완료되었습니다", nil)
	span.SetStatus(codes.Ok, "Search completed")
}

func (s *SearchServiceImpl) fail(ctx context.Context, span trace.Span, send func(status, message, step string, data any), err error) {
	s.logger.ErrorContext(ctx, "Search pipeline aborted", slog.Any("error", err))
	span.RecordError(err)
	span.SetStatus(codes.Error, "Search pipeline aborted")
	send(StatusError, "검색 처리 중 오류가 발생했습니다: "+err.Error(), stepError, nil)
}

func formatRequestSummary(req types.SearchRequest, hints []types.AreaHint) string {
	var areas []string
	for _, hint := range hints {
		label := hint.AreaName
		if hint.SubRegionName != "" {
			label = hint.AreaName + " " + hint.SubRegionName
		}
		areas = append(areas, label)
	}
	targetAreas := strings.Join(areas, ", ")
	if targetAreas == "" {
		targetAreas = "미정"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "원본 요청: %s\n", req.Query)
	fmt.Fprintf(&sb, "목적 지역: %s\n", targetAreas)
	fmt.Fprintf(&sb, "여행 일수: %d일 (%s)", req.Days, durationText(req.Days))
	if req.Theme != "" {
		fmt.Fprintf(&sb, "\n테마: %s", req.Theme)
	}
	if req.Budget != "" {
		fmt.Fprintf(&sb, "\n예산: %s", req.Budget)
	}
	if req.Transportation != "" {
		fmt.Fprintf(&sb, "\n교통수단: %s", req.Transportation)
	}
	if req.TravelStyle != "" {
		fmt.Fprintf(&sb, "\n여행 스타일: %s", req.TravelStyle)
	}
	return sb.String()
}

func durationText(days int) string {
	if days <= 1 {
		return "당일치기"
	}
	return fmt.Sprintf("%d박%d일", days-1, days)
}

// defaultPlan is the generic itinerary returned when the model produces
// nothing usable. It still carries the requested number of days.
func defaultPlan(req types.SearchRequest, hints []types.AreaHint) map[string]any {
	destination := req.Destination
	if destination == "" && len(hints) > 0 {
		destination = hints[0].AreaName
		if hints[0].SubRegionName != "" {
			destination += " " + hints[0].SubRegionName
		}
	}
	if destination == "" {
		destination = "부산 해운대구"
	}

	itinerary := make([]map[string]any, 0, req.Days)
	for day := 1; day <= req.Days; day++ {
		entry := map[string]any{
			"day":   day,
			"title": fmt.Sprintf("%d일차", day),
		}
		switch {
		case day == 1:
			entry["overview"] = "도착 및 주요 관광지 방문"
			entry["activities"] = []string{"도착", "주요 관광지 방문", "저녁 식사"}
			entry["spots"] = []string{"역", "주요 관광지", "맛집"}
		case day == req.Days:
			entry["overview"] = "마지막 관광지 방문 및 출발"
			entry["activities"] = []string{"아침 식사", "마지막 관광지 방문", "출발"}
			entry["spots"] = []string{"호텔", "마지막 관광지", "역"}
		default:
			entry["overview"] = "추가 관광지 방문"
			entry["activities"] = []string{"아침 식사", "추가 관광지 방문", "저녁 식사"}
			entry["spots"] = []string{"호텔", "추가 관광지", "맛집"}
		}
		itinerary = append(itinerary, entry)
	}

	accommodation := "당일 여행"
	if req.Days > 1 {
		accommodation = "호텔"
	}

	return map[string]any{
		"type":           "travel_plan",
		"destination":    destination,
		"duration":       durationText(req.Days),
		"summary":        fmt.Sprintf("%s에 대한 %d일간의 기본 여행 계획입니다.", req.Query, req.Days),
		"budget":         fmt.Sprintf("%d만원", req.Days*15),
		"itinerary":      itinerary,
		"tips":           []string{"교통카드 준비", "편안한 신발 착용", "카메라 준비"},
		"transportation": "지하철 및 버스",
		"accommodation":  accommodation,
	}
}
