package tourist

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waynai/waynai-go/app/observability/metrics"
	"github.com/waynai/waynai-go/internal/api/area"
	"github.com/waynai/waynai-go/internal/types"
)

const (
	// 부산광역시 해운대구, used whenever no area can be resolved.
	DefaultRegionCode    = "26"
	DefaultSubRegionCode = "26350"
	defaultRegionName    = "부산광역시"
	defaultSubRegionName = "해운대구"

	defaultPageSize = 20
)

var (
	regionCodePattern    = regexp.MustCompile(`^\d{2}$`)
	subRegionCodePattern = regexp.MustCompile(`^\d{5}$`)
)

// ValidRegionCode reports whether s is a well-formed 2-digit region code.
func ValidRegionCode(s string) bool { return regionCodePattern.MatchString(s) }

// ValidSubRegionCode reports whether s is a well-formed 5-digit sub-region code.
func ValidSubRegionCode(s string) bool { return subRegionCodePattern.MatchString(s) }

// Retriever is the provider call contract. *Client satisfies it; tests and
// the aggregator substitute fakes.
type Retriever interface {
	AreaBasedList(ctx context.Context, regionCode, subRegionCode, baseYm string, numOfRows int) ([]types.SpotRecord, error)
	SearchKeyword(ctx context.Context, keyword, regionCode, subRegionCode, baseYm string, numOfRows int) ([]types.SpotRecord, error)
}

var _ Retriever = (*Client)(nil)

// Ensure implementation satisfies the interface
var _ TouristService = (*TouristServiceImpl)(nil)

// TouristService is the retrieval contract used by the aggregator and the
// lookup handlers. Provider failures never surface as errors: every lookup
// returns at least a synthesized placeholder record.
type TouristService interface {
	AreaBasedSpots(ctx context.Context, regionCode, subRegionCode string) ([]types.SpotRecord, error)
	KeywordSpots(ctx context.Context, keyword, regionCode, subRegionCode string) ([]types.SpotRecord, error)
	RandomAreaSpots(ctx context.Context) (types.AreaRef, []types.SpotRecord, error)
	RandomSubRegionSpots(ctx context.Context, regionCode string) (types.AreaRef, []types.SpotRecord, error)
}

// TouristServiceImpl provides the implementation for TouristService.
type TouristServiceImpl struct {
	retriever Retriever
	areas     *area.Index
	cache     *gocache.Cache
	logger    *slog.Logger
	pageSize  int
}

func NewTouristService(retriever Retriever, areas *area.Index, cacheTTL time.Duration, pageSize int, logger *slog.Logger) *TouristServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &TouristServiceImpl{
		retriever: retriever,
		areas:     areas,
		cache:     gocache.New(cacheTTL, 2*cacheTTL),
		logger:    logger,
		pageSize:  pageSize,
	}
}

// AreaBasedSpots returns notable spots for the given codes. Empty codes fall
// back to the default area; malformed codes are rejected.
func (s *TouristServiceImpl) AreaBasedSpots(ctx context.Context, regionCode, subRegionCode string) ([]types.SpotRecord, error) {
	ctx, span := otel.Tracer("TouristService").Start(ctx, "AreaBasedSpots", trace.WithAttributes(
		attribute.String("areaCd", regionCode),
		attribute.String("signguCd", subRegionCode),
	))
	defer span.End()

	regionCode, subRegionCode, err := s.normalizeCodes(regionCode, subRegionCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid area codes")
		return nil, err
	}

	cacheKey := fmt.Sprintf("area:%s:%s", regionCode, subRegionCode)
	if cached, found := s.cache.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Served from cache")
		return cached.([]types.SpotRecord), nil
	}

	start := time.Now()
	records, err := s.retriever.AreaBasedList(ctx, regionCode, subRegionCode, BaseYm(time.Now()), s.pageSize)
	recordRetrieval(ctx, start, err)
	if err != nil || len(records) == 0 {
		if err != nil {
			s.logger.WarnContext(ctx, "Area lookup failed, substituting placeholder",
				slog.String("areaCd", regionCode), slog.Any("error", err))
			span.RecordError(err)
		}
		span.SetStatus(codes.Ok, "Placeholder substituted")
		return s.placeholderRecords(regionCode, subRegionCode), nil
	}

	s.cache.SetDefault(cacheKey, records)
	span.SetAttributes(attribute.Int("records", len(records)))
	span.SetStatus(codes.Ok, "Spots retrieved")
	return records, nil
}

// KeywordSpots returns spots related to the search term, scoped to an area.
func (s *TouristServiceImpl) KeywordSpots(ctx context.Context, keyword, regionCode, subRegionCode string) ([]types.SpotRecord, error) {
	ctx, span := otel.Tracer("TouristService").Start(ctx, "KeywordSpots", trace.WithAttributes(
		attribute.String("keyword", keyword),
		attribute.String("areaCd", regionCode),
	))
	defer span.End()

	if keyword == "" {
		err := fmt.Errorf("keyword must not be empty")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty keyword")
		return nil, err
	}

	regionCode, subRegionCode, err := s.normalizeCodes(regionCode, subRegionCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid area codes")
		return nil, err
	}

	cacheKey := fmt.Sprintf("keyword:%s:%s:%s", keyword, regionCode, subRegionCode)
	if cached, found := s.cache.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Served from cache")
		return cached.([]types.SpotRecord), nil
	}

	start := time.Now()
	records, err := s.retriever.SearchKeyword(ctx, keyword, regionCode, subRegionCode, BaseYm(time.Now()), s.pageSize)
	recordRetrieval(ctx, start, err)
	if err != nil || len(records) == 0 {
		if err != nil {
			s.logger.WarnContext(ctx, "Keyword lookup failed, substituting placeholder",
				slog.String("keyword", keyword), slog.Any("error", err))
			span.RecordError(err)
		}
		span.SetStatus(codes.Ok, "Placeholder substituted")
		return s.placeholderRecords(regionCode, subRegionCode), nil
	}

	s.cache.SetDefault(cacheKey, records)
	span.SetAttributes(attribute.Int("records", len(records)))
	span.SetStatus(codes.Ok, "Spots retrieved")
	return records, nil
}

// RandomAreaSpots picks a random sub-region from the index and returns its
// spots together with the chosen area.
func (s *TouristServiceImpl) RandomAreaSpots(ctx context.Context) (types.AreaRef, []types.SpotRecord, error) {
	var ref types.AreaRef
	if s.areas.Len() > 0 {
		ref = s.areas.RandomArea()
	} else {
		ref = types.AreaRef{
			Name: defaultRegionName,
			Code: DefaultRegionCode,
			SubRegion: &types.SubRegionRef{
				Name: defaultSubRegionName,
				Code: DefaultSubRegionCode,
			},
		}
	}
	records, err := s.AreaBasedSpots(ctx, ref.Code, ref.SubRegion.Code)
	return ref, records, err
}

// RandomSubRegionSpots picks a random sub-region inside one region.
func (s *TouristServiceImpl) RandomSubRegionSpots(ctx context.Context, regionCode string) (types.AreaRef, []types.SpotRecord, error) {
	if !ValidRegionCode(regionCode) {
		return types.AreaRef{}, nil, fmt.Errorf("invalid region code %q", regionCode)
	}
	ref, err := s.areas.RandomSubRegion(regionCode)
	if err != nil {
		return types.AreaRef{}, nil, fmt.Errorf("no sub-regions for region code %q: %w", regionCode, err)
	}
	records, err := s.AreaBasedSpots(ctx, ref.Code, ref.SubRegion.Code)
	return ref, records, err
}

func (s *TouristServiceImpl) normalizeCodes(regionCode, subRegionCode string) (string, string, error) {
	if regionCode == "" {
		regionCode = DefaultRegionCode
	}
	if subRegionCode == "" {
		subRegionCode = DefaultSubRegionCode
	}
	if !ValidRegionCode(regionCode) {
		return "", "", fmt.Errorf("invalid region code %q: want 2 digits", regionCode)
	}
	if !ValidSubRegionCode(subRegionCode) {
		return "", "", fmt.Errorf("invalid sub-region code %q: want 5 digits", subRegionCode)
	}
	return regionCode, subRegionCode, nil
}

// placeholderRecords synthesizes one representative record so downstream
// context blocks always have content.
func (s *TouristServiceImpl) placeholderRecords(regionCode, subRegionCode string) []types.SpotRecord {
	regionName := defaultRegionName
	subRegionName := defaultSubRegionName
	if ref, err := s.areas.ByCode(subRegionCode); err == nil {
		regionName = ref.Name
		if ref.SubRegion != nil {
			subRegionName = ref.SubRegion.Name
		}
	}
	return []types.SpotRecord{
		{
			HubName:        regionName + " 대표 관광지",
			Name:           regionName + " 대표 관광지",
			RegionCode:     regionCode,
			RegionName:     regionName,
			SubRegionCode:  subRegionCode,
			SubRegionName:  subRegionName,
			CategoryLarge:  "관광지",
			CategoryMedium: "문화관광",
			CategorySmall:  "문화시설",
			Rank:           "1",
		},
	}
}

// BaseYm formats the month preceding now as yyyyMM, the reference month the
// provider expects.
func BaseYm(now time.Time) string {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return firstOfMonth.AddDate(0, 0, -1).Format("200601")
}

func recordRetrieval(ctx context.Context, start time.Time, err error) {
	m := metrics.Maybe()
	if m == nil {
		return
	}
	m.RetrievalDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		m.RetrievalErrorsTotal.Add(ctx, 1)
	}
}
