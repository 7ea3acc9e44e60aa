package aggregator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/waynai/waynai-go/internal/api/area"
	"github.com/waynai/waynai-go/internal/api/blog"
	"github.com/waynai/waynai-go/internal/api/tourist"
	"github.com/waynai/waynai-go/internal/types"
)

const (
	defaultCallTimeout = 5 * time.Second

	// Keyword lookups without a resolved area are scoped to 서울 구로구.
	keywordDefaultRegionCode    = "11"
	keywordDefaultSubRegionCode = "11530"

	labelAreaSpots    = "지역 관광지 정보"
	labelRandomSpots  = "지역 관광지 정보 (무작위)"
	labelKeywordSpots = "키워드 기반 연관 관광지 정보"
	labelBlogSearch   = "네이버 블로그 검색 결과"
	labelChatArea     = "관광지 정보"
	labelChatKeyword  = "연관 관광지 정보"
)

// Ensure implementation satisfies the interface
var _ AggregatorService = (*AggregatorServiceImpl)(nil)

// AggregatorService assembles the retrieval context for one request. Every
// retrieval call runs concurrently with its own timeout; one failing source
// never aborts assembly, and group order follows input order rather than
// completion order.
type AggregatorService interface {
	BuildFromIntent(ctx context.Context, in types.IntentWithSearch) types.ContextBlock
	BuildFromAreaHints(ctx context.Context, query string, hints []types.AreaHint) types.ContextBlock
	BuildForChat(ctx context.Context, regionCode, subRegionCode, keyword string) types.ContextBlock
	DefaultArea() types.AreaRef
}

// AggregatorServiceImpl provides the implementation for AggregatorService.
type AggregatorServiceImpl struct {
	spots       tourist.TouristService
	areas       *area.Index
	logger      *slog.Logger
	callTimeout time.Duration
}

func NewAggregatorService(spots tourist.TouristService, areas *area.Index, callTimeout time.Duration, logger *slog.Logger) *AggregatorServiceImpl {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &AggregatorServiceImpl{
		spots:       spots,
		areas:       areas,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

// BuildFromIntent gathers context for a classified query: blog results when
// the supplementary search ran, area spots when an area was resolved, and
// keyword spots when a keyword was found. An area without a resolved
// sub-region produces a random-spot group instead of a code-scoped one.
func (a *AggregatorServiceImpl) BuildFromIntent(ctx context.Context, in types.IntentWithSearch) types.ContextBlock {
	ctx, span := otel.Tracer("AggregatorService").Start(ctx, "BuildFromIntent", trace.WithAttributes(
		attribute.String("intent.category", string(in.Intent.Category)),
	))
	defer span.End()

	var tasks []groupTask

	if in.HasBlogSearch && in.BlogResult != nil {
		freeform := blog.FormatContext(in.BlogResult)
		tasks = append(tasks, groupTask{
			group: types.ContextGroup{
				Source:   types.SourceBlogSearch,
				Label:    labelBlogSearch,
				Freeform: freeform,
			},
		})
	}

	if ref := in.Intent.Area; ref != nil {
		tasks = append(tasks, a.areaTask(ref))
	}

	if keyword := in.Intent.Keyword; keyword != "" {
		regionCode := keywordDefaultRegionCode
		subRegionCode := keywordDefaultSubRegionCode
		if ref := in.Intent.Area; ref != nil && ref.Code != "" {
			regionCode = ref.Code
			if ref.SubRegion != nil {
				subRegionCode = ref.SubRegion.Code
			}
		}
		tasks = append(tasks, a.keywordTask(keyword, regionCode, subRegionCode, labelKeywordSpots, types.SourceRelatedSpot))
	}

	// Nothing actionable in the intent: substitute one default-area lookup so
	// the prompt still carries concrete spots.
	if in.Intent.Area == nil && in.Intent.Keyword == "" {
		ref := a.DefaultArea()
		subRegionCode := ""
		if ref.SubRegion != nil {
			subRegionCode = ref.SubRegion.Code
		}
		tasks = append(tasks, a.areaBasedTask(ref.Code, subRegionCode, labelRandomSpots))
	}

	block := a.run(ctx, tasks)
	span.SetAttributes(attribute.Int("groups", len(block.Groups)))
	span.SetStatus(codes.Ok, "Context assembled")
	return block
}

// BuildFromAreaHints gathers context for the free-text search pipeline: per
// extracted area, one keyword-scoped group and one area-based group, in hint
// order. Hints that cannot be grounded against the reference table render an
// explicit no-data group.
func (a *AggregatorServiceImpl) BuildFromAreaHints(ctx context.Context, query string, hints []types.AreaHint) types.ContextBlock {
	ctx, span := otel.Tracer("AggregatorService").Start(ctx, "BuildFromAreaHints", trace.WithAttributes(
		attribute.Int("hints", len(hints)),
	))
	defer span.End()

	var tasks []groupTask
	for _, hint := range hints {
		ref, err := a.areas.ResolveHint(hint)
		if err != nil {
			a.logger.Warn("Area hint not found in reference table",
				slog.String("areaName", hint.AreaName), slog.String("signguName", hint.SubRegionName))
			tasks = append(tasks, groupTask{
				group: types.ContextGroup{
					Source: types.SourceAreaBased,
					Label:  hint.AreaName + " 관광지 정보",
				},
			})
			continue
		}

		label := ref.Name
		if ref.SubRegion != nil {
			label += " " + ref.SubRegion.Name
		}
		subRegionCode := ""
		if ref.SubRegion != nil {
			subRegionCode = ref.SubRegion.Code
		}
		tasks = append(tasks, a.keywordTask(query, ref.Code, subRegionCode, label+" 관광지 정보", types.SourceKeywordBased))
		tasks = append(tasks, a.areaBasedTask(ref.Code, subRegionCode, label+" 지역 기반 관광지"))
	}

	block := a.run(ctx, tasks)
	span.SetAttributes(attribute.Int("groups", len(block.Groups)))
	span.SetStatus(codes.Ok, "Context assembled")
	return block
}

// BuildForChat gathers reference material for one chat turn. The caller
// supplies explicit codes rather than a classified intent; absent codes skip
// the area group and keyword lookups fall back to the keyword default area.
func (a *AggregatorServiceImpl) BuildForChat(ctx context.Context, regionCode, subRegionCode, keyword string) types.ContextBlock {
	ctx, span := otel.Tracer("AggregatorService").Start(ctx, "BuildForChat", trace.WithAttributes(
		attribute.String("areaCd", regionCode),
		attribute.String("keyword", keyword),
	))
	defer span.End()

	var tasks []groupTask
	if regionCode != "" && subRegionCode != "" {
		tasks = append(tasks, a.areaBasedTask(regionCode, subRegionCode, labelChatArea))
	}
	if keyword != "" {
		kwRegion := regionCode
		kwSubRegion := subRegionCode
		if kwRegion == "" {
			kwRegion = keywordDefaultRegionCode
		}
		if kwSubRegion == "" {
			kwSubRegion = keywordDefaultSubRegionCode
		}
		tasks = append(tasks, a.keywordTask(keyword, kwRegion, kwSubRegion, labelChatKeyword, types.SourceRelatedSpot))
	}

	block := a.run(ctx, tasks)
	span.SetAttributes(attribute.Int("groups", len(block.Groups)))
	span.SetStatus(codes.Ok, "Context assembled")
	return block
}

// DefaultArea supplies the area used when nothing could be resolved: a random
// reference row, or the fixed 부산 해운대구 pair when the table is empty.
func (a *AggregatorServiceImpl) DefaultArea() types.AreaRef {
	if a.areas != nil && a.areas.Len() > 0 {
		return a.areas.RandomArea()
	}
	return types.AreaRef{
		Name: "부산광역시",
		Code: tourist.DefaultRegionCode,
		SubRegion: &types.SubRegionRef{
			Name: "해운대구",
			Code: tourist.DefaultSubRegionCode,
		},
	}
}

// groupTask is one context group slot plus the retrieval that fills it.
// Tasks without a fetch func are emitted as-is.
type groupTask struct {
	group types.ContextGroup
	fetch func(ctx context.Context) ([]types.SpotRecord, error)
}

func (a *AggregatorServiceImpl) areaTask(ref *types.AreaRef) groupTask {
	if ref.SubRegion == nil {
		return groupTask{
			group: types.ContextGroup{
				Source: types.SourceAreaBased,
				Label:  labelRandomSpots,
				Params: types.QueryParams{RegionCode: ref.Code},
			},
			fetch: func(ctx context.Context) ([]types.SpotRecord, error) {
				_, records, err := a.spots.RandomAreaSpots(ctx)
				return records, err
			},
		}
	}
	return a.areaBasedTask(ref.Code, ref.SubRegion.Code, labelAreaSpots)
}

func (a *AggregatorServiceImpl) areaBasedTask(regionCode, subRegionCode, label string) groupTask {
	return groupTask{
		group: types.ContextGroup{
			Source: types.SourceAreaBased,
			Label:  label,
			Params: types.QueryParams{RegionCode: regionCode, SubRegionCode: subRegionCode},
		},
		fetch: func(ctx context.Context) ([]types.SpotRecord, error) {
			return a.spots.AreaBasedSpots(ctx, regionCode, subRegionCode)
		},
	}
}

// keywordTask queries the relation service. Groups carrying spots related
// to a classified keyword hub are tagged SourceRelatedSpot; query-scoped
// search groups keep SourceKeywordBased.
func (a *AggregatorServiceImpl) keywordTask(keyword, regionCode, subRegionCode, label string, source types.ContextSource) groupTask {
	return groupTask{
		group: types.ContextGroup{
			Source: source,
			Label:  label,
			Params: types.QueryParams{RegionCode: regionCode, SubRegionCode: subRegionCode, Keyword: keyword},
		},
		fetch: func(ctx context.Context) ([]types.SpotRecord, error) {
			return a.spots.KeywordSpots(ctx, keyword, regionCode, subRegionCode)
		},
	}
}

// run executes every task concurrently and merges results back into task
// order. Individual failures leave their group empty; they are rendered as
// explicit no-data groups downstream.
func (a *AggregatorServiceImpl) run(ctx context.Context, tasks []groupTask) types.ContextBlock {
	groups := make([]types.ContextGroup, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		groups[i] = task.group
		if task.fetch == nil {
			continue
		}
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, a.callTimeout)
			defer cancel()

			records, err := task.fetch(callCtx)
			if err != nil {
				a.logger.WarnContext(callCtx, "Context retrieval failed for group",
					slog.String("label", task.group.Label), slog.Any("error", err))
				return nil
			}
			groups[i].Records = records
			return nil
		})
	}
	_ = g.Wait()

	return types.ContextBlock{Groups: groups}
}
