package course

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
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

const (
	tipsTemperature float32 = 0.8
	tipsMaxTokens   int32   = 500
	maxTips                 = 5
)

var numberedLine = regexp.MustCompile(`^\d+\.\s*`)

var defaultTips = []string{"교통카드 준비", "편안한 신발 착용", "카메라 준비"}

// Ensure implementation satisfies the interface
var _ CourseService = (*CourseServiceImpl)(nil)

// CourseService generates structured multi-day tour courses. A generated
// course always carries exactly the requested number of day plans: model
// output with missing days is padded with generic fallback plans, and a
// failed model call degrades to an entirely generic course.
type CourseService interface {
	GenerateCourse(ctx context.Context, req types.TourCourseRequest) (*types.TourCourse, error)
	GenerateTips(ctx context.Context, req types.TourCourseRequest) []string
}

// CourseServiceImpl provides the implementation for CourseService.
type CourseServiceImpl struct {
	aggregator aggregator.AggregatorService
	prompts    *prompts.Store
	generator  generativeAI.Generator
	logger     *slog.Logger
}

func NewCourseService(agg aggregator.AggregatorService, store *prompts.Store, generator generativeAI.Generator, logger *slog.Logger) *CourseServiceImpl {
	return &CourseServiceImpl{
		aggregator: agg,
		prompts:    store,
		generator:  generator,
		logger:     logger,
	}
}

// GenerateCourse builds a course from retrieved spot context plus the model.
// Only validation and configuration problems surface as errors.
func (s *CourseServiceImpl) GenerateCourse(ctx context.Context, req types.TourCourseRequest) (*types.TourCourse, error) {
	ctx, span := otel.Tracer("CourseService").Start(ctx, "GenerateCourse", trace.WithAttributes(
		attribute.String("destination", req.Destination),
		attribute.Int("days", req.Days),
	))
	defer span.End()

	if err := validateRequest(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid course request")
		return nil, err
	}

	courseID := newCourseID()

	block := s.aggregator.BuildFromAreaHints(ctx, req.Theme, []types.AreaHint{
		{AreaName: req.Destination},
	})

	prompt, err := s.prompts.Render(prompts.KeyCourseGeneration, map[string]string{
		"context": block.Text(),
		"request": formatRequestInfo(req),
		"days":    fmt.Sprintf("%d", req.Days),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Prompt template missing")
		return nil, fmt.Errorf("building course prompt: %w", err)
	}

	response, err := s.generator.GenerateText(ctx, types.GenerationRequest{Prompt: prompt})
	if err != nil {
		s.logger.WarnContext(ctx, "Course model call failed, using generic course", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Ok, "Degraded to generic course")
		return s.genericCourse(req, courseID), nil
	}

	generated, err := parseCourseResponse(intent.CleanModelJSON(response), req, courseID)
	if err != nil {
		s.logger.WarnContext(ctx, "Course response unparseable, using generic course", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Ok, "Degraded to generic course")
		return s.genericCourse(req, courseID), nil
	}

	s.normalizeDayPlans(generated, req)
	span.SetAttributes(attribute.String("courseId", courseID))
	span.SetStatus(codes.Ok, "Course generated")
	return generated, nil
}

// GenerateTips produces up to five one-line travel tips. Failures fall back
// to fixed tips, extended with theme-specific entries.
func (s *CourseServiceImpl) GenerateTips(ctx context.Context, req types.TourCourseRequest) []string {
	ctx, span := otel.Tracer("CourseService").Start(ctx, "GenerateTips", trace.WithAttributes(
		attribute.String("destination", req.Destination),
		attribute.String("theme", req.Theme),
	))
	defer span.End()

	transportation := req.Transportation
	if transportation == "" {
		transportation = "미정"
	}
	travelStyle := req.TravelStyle
	if travelStyle == "" {
		travelStyle = "일반"
	}

	prompt, err := s.prompts.Render(prompts.KeyTravelTips, map[string]string{
		"destination":    req.Destination,
		"theme":          req.Theme,
		"days":           fmt.Sprintf("%d", req.Days),
		"transportation": transportation,
		"travelStyle":    travelStyle,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Tips template missing, using default tips", slog.Any("error", err))
		span.RecordError(err)
		return s.fallbackTips(req.Theme)
	}

	response, err := s.generator.GenerateText(ctx, types.GenerationRequest{
		Prompt:      prompt,
		Temperature: tipsTemperature,
		MaxTokens:   tipsMaxTokens,
	})
	if err != nil || strings.TrimSpace(response) == "" {
		if err != nil {
			s.logger.WarnContext(ctx, "Tips model call failed, using default tips", slog.Any("error", err))
			span.RecordError(err)
		}
		span.SetStatus(codes.Ok, "Degraded to default tips")
		return s.fallbackTips(req.Theme)
	}

	tips := parseTips(response)
	if len(tips) == 0 {
		span.SetStatus(codes.Ok, "Degraded to default tips")
		return s.fallbackTips(req.Theme)
	}
	span.SetAttributes(attribute.Int("tips", len(tips)))
	span.SetStatus(codes.Ok, "Tips generated")
	return tips
}

func validateRequest(req types.TourCourseRequest) error {
	if strings.TrimSpace(req.Destination) == "" {
		return fmt.Errorf("destination is required")
	}
	if req.Days < 1 {
		return fmt.Errorf("days must be at least 1, got %d", req.Days)
	}
	return nil
}

func newCourseID() string {
	return fmt.Sprintf("course-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func formatRequestInfo(req types.TourCourseRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- 목적지: %s\n", req.Destination)
	fmt.Fprintf(&sb, "- 여행 일수: %d일\n", req.Days)
	fmt.Fprintf(&sb, "- 테마: %s\n", req.Theme)
	if req.Budget != "" {
		fmt.Fprintf(&sb, "- 예산: %s\n", req.Budget)
	}
	if req.Transportation != "" {
		fmt.Fprintf(&sb, "- 교통수단: %s\n", req.Transportation)
	}
	if len(req.Interests) > 0 {
		fmt.Fprintf(&sb, "- 관심사: %s\n", strings.Join(req.Interests, ", "))
	}
	if req.Accommodation != "" {
		fmt.Fprintf(&sb, "- 숙박: %s\n", req.Accommodation)
	}
	if req.TravelStyle != "" {
		fmt.Fprintf(&sb, "- 여행 스타일: %s\n", req.TravelStyle)
	}
	if req.SpecialRequirements != "" {
		fmt.Fprintf(&sb, "- 특별 요청사항: %s\n", req.SpecialRequirements)
	}
	return sb.String()
}

type wireSpotVisit struct {
	SpotName  string `json:"spotName"`
	VisitTime string `json:"visitTime"`
	Duration  int    `json:"duration"`
	Activity  string `json:"activity"`
	Notes     string `json:"notes"`
}

type wireDayPlan struct {
	DayNumber      int             `json:"dayNumber"`
	DayTitle       string          `json:"dayTitle"`
	Overview       string          `json:"overview"`
	Spots          []wireSpotVisit `json:"spots"`
	Transportation string          `json:"transportation"`
	Accommodation  string          `json:"accommodation"`
	Meals          string          `json:"meals"`
	EstimatedCost  string          `json:"estimatedCost"`
	Tips           string          `json:"tips"`
}

type wireCourse struct {
	Title              string        `json:"title"`
	Summary            string        `json:"summary"`
	DayPlans           []wireDayPlan `json:"dayPlans"`
	EstimatedBudget    string        `json:"estimatedBudget"`
	TransportationInfo string        `json:"transportationInfo"`
	AccommodationInfo  string        `json:"accommodationInfo"`
	Tips               []string      `json:"tips"`
	WeatherInfo        string        `json:"weatherInfo"`
}

func parseCourseResponse(cleaned string, req types.TourCourseRequest, courseID string) (*types.TourCourse, error) {
	var wire wireCourse
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("decoding course response: %w", err)
	}
	if wire.Title == "" || len(wire.DayPlans) == 0 {
		return nil, fmt.Errorf("course response missing title or day plans")
	}

	course := &types.TourCourse{
		CourseID:           courseID,
		Title:              wire.Title,
		Destination:        req.Destination,
		TotalDays:          req.Days,
		Theme:              req.Theme,
		Summary:            wire.Summary,
		CreatedAt:          time.Now(),
		EstimatedBudget:    wire.EstimatedBudget,
		TransportationInfo: wire.TransportationInfo,
		AccommodationInfo:  wire.AccommodationInfo,
		Tips:               wire.Tips,
		WeatherInfo:        wire.WeatherInfo,
	}
	for _, wd := range wire.DayPlans {
		plan := types.DayPlan{
			DayNumber:      wd.DayNumber,
			DayTitle:       wd.DayTitle,
			Overview:       wd.Overview,
			Transportation: wd.Transportation,
			Accommodation:  wd.Accommodation,
			Meals:          wd.Meals,
			EstimatedCost:  wd.EstimatedCost,
			Tips:           wd.Tips,
		}
		for i, ws := range wd.Spots {
			plan.Spots = append(plan.Spots, types.SpotVisit{
				Spot:      types.SpotRecord{Name: ws.SpotName},
				VisitTime: ws.VisitTime,
				Duration:  ws.Duration,
				Activity:  ws.Activity,
				Notes:     ws.Notes,
				Order:     i + 1,
			})
		}
		course.DayPlans = append(course.DayPlans, plan)
	}
	return course, nil
}

// normalizeDayPlans enforces the exact-day-count guarantee: extra plans are
// dropped, missing ones are padded with generic content, and day numbers are
// renumbered sequentially.
func (s *CourseServiceImpl) normalizeDayPlans(course *types.TourCourse, req types.TourCourseRequest) {
	if len(course.DayPlans) > req.Days {
		course.DayPlans = course.DayPlans[:req.Days]
	}
	for day := len(course.DayPlans) + 1; day <= req.Days; day++ {
		course.DayPlans = append(course.DayPlans, genericDayPlan(day, req))
	}
	for i := range course.DayPlans {
		course.DayPlans[i].DayNumber = i + 1
		if course.DayPlans[i].DayTitle == "" {
			course.DayPlans[i].DayTitle = fmt.Sprintf("%s %d일차", req.Destination, i+1)
		}
	}
	course.TotalDays = req.Days
}

// genericCourse is the full fallback used when the model cannot produce a
// usable course. It still honors the requested day count.
func (s *CourseServiceImpl) genericCourse(req types.TourCourseRequest, courseID string) *types.TourCourse {
	plans := make([]types.DayPlan, 0, req.Days)
	for day := 1; day <= req.Days; day++ {
		plans = append(plans, genericDayPlan(day, req))
	}

	transportation := req.Transportation
	if transportation == "" {
		transportation = "지하철 및 버스 이용"
	}
	accommodation := req.Accommodation
	if accommodation == "" {
		accommodation = "호텔 또는 게스트하우스"
	}

	return &types.TourCourse{
		CourseID:           courseID,
		Title:              fmt.Sprintf("%s %s 탐방 %d일 코스", req.Destination, req.Theme, req.Days),
		Destination:        req.Destination,
		TotalDays:          req.Days,
		Theme:              req.Theme,
		Summary:            fmt.Sprintf("%s의 %s 테마로 %d일간 즐길 수 있는 관광 코스입니다.", req.Destination, req.Theme, req.Days),
		DayPlans:           plans,
		CreatedAt:          time.Now(),
		EstimatedBudget:    "30만원",
		TransportationInfo: transportation,
		AccommodationInfo:  accommodation,
		Tips:               defaultTips,
		WeatherInfo:        "계절에 따라 적절한 옷차림 필요",
	}
}

func genericDayPlan(day int, req types.TourCourseRequest) types.DayPlan {
	return types.DayPlan{
		DayNumber:      day,
		DayTitle:       fmt.Sprintf("%s %d일차", req.Destination, day),
		Overview:       fmt.Sprintf("%s의 %s 명소들을 탐방하는 %d일차입니다.", req.Destination, req.Theme, day),
		Spots:          []types.SpotVisit{},
		Transportation: "지하철 및 버스",
		Accommodation:  "호텔",
		Meals:          "아침: 호텔, 점심: 현지 맛집, 저녁: 현지 맛집",
		EstimatedCost:  "10만원",
		Tips:           "편안한 신발 착용, 충분한 휴식 취하기",
	}
}

func (s *CourseServiceImpl) fallbackTips(theme string) []string {
	tips := append([]string{}, defaultTips...)
	switch theme {
	case "자연":
		tips = append(tips, "야외 활동용 의류 준비", "충분한 물 준비")
	case "문화":
		tips = append(tips, "문화재 관람 예절 준수", "사전 예약 확인")
	}
	return tips
}

// parseTips extracts numbered one-line tips from model output. Unnumbered
// non-empty lines are accepted until the cap is reached.
func parseTips(response string) []string {
	var tips []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if numberedLine.MatchString(line) {
			if tip := strings.TrimSpace(numberedLine.ReplaceAllString(line, "")); tip != "" {
				tips = append(tips, tip)
			}
		} else if len(tips) < maxTips {
			tips = append(tips, line)
		}
	}
	return tips
}
