package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waynai/waynai-go/internal/api/area"
	"github.com/waynai/waynai-go/internal/types"
)

const testReferenceCSV = `areaCd,areaNm,signguCd,signguNm
11,서울특별시,11110,종로구
11,서울특별시,11530,구로구
26,부산광역시,26350,해운대구
`

func testAreas(t *testing.T) *area.Index {
	t.Helper()
	idx, err := area.NewIndexFromReader(strings.NewReader(testReferenceCSV))
	require.NoError(t, err)
	return idx
}

// fakeSpots returns canned records per lookup kind and can fail keyword
// lookups to exercise sibling isolation.
type fakeSpots struct {
	mu sync.Mutex

	areaRecords    []types.SpotRecord
	keywordRecords []types.SpotRecord
	keywordErr     error
	areaErr        error

	areaCalls    []string
	keywordCalls []string
}

func (f *fakeSpots) AreaBasedSpots(ctx context.Context, regionCode, subRegionCode string) ([]types.SpotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.areaCalls = append(f.areaCalls, regionCode+"/"+subRegionCode)
	if f.areaErr != nil {
		return nil, f.areaErr
	}
	return f.areaRecords, nil
}

func (f *fakeSpots) KeywordSpots(ctx context.Context, keyword, regionCode, subRegionCode string) ([]types.SpotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywordCalls = append(f.keywordCalls, keyword+"@"+regionCode+"/"+subRegionCode)
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return f.keywordRecords, nil
}

func (f *fakeSpots) RandomAreaSpots(ctx context.Context) (types.AreaRef, []types.SpotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.areaCalls = append(f.areaCalls, "random")
	if f.areaErr != nil {
		return types.AreaRef{}, nil, f.areaErr
	}
	return types.AreaRef{Name: "부산광역시", Code: "26"}, f.areaRecords, nil
}

func (f *fakeSpots) RandomSubRegionSpots(ctx context.Context, regionCode string) (types.AreaRef, []types.SpotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.areaCalls = append(f.areaCalls, "random:"+regionCode)
	return types.AreaRef{Code: regionCode}, f.areaRecords, nil
}

func spot(name string) types.SpotRecord {
	return types.SpotRecord{
		Name:           name,
		RegionCode:     "26",
		RegionName:     "부산광역시",
		SubRegionCode:  "26350",
		SubRegionName:  "해운대구",
		CategoryLarge:  "관광지",
		CategoryMedium: "문화관광",
		CategorySmall:  "문화시설",
		Rank:           "1",
	}
}

func newTestAggregator(t *testing.T, spots *fakeSpots) *AggregatorServiceImpl {
	t.Helper()
	return NewAggregatorService(spots, testAreas(t), 2*time.Second, slog.Default())
}

func TestBuildFromIntentAreaAndKeywordGroups(t *testing.T) {
	spots := &fakeSpots{
		areaRecords:    []types.SpotRecord{spot("해운대해수욕장")},
		keywordRecords: []types.SpotRecord{spot("광안리해수욕장")},
	}
	svc := newTestAggregator(t, spots)

	in := types.IntentWithSearch{
		Intent: types.Intent{
			Category: types.IntentAreaKeyword,
			Keyword:  "해수욕장",
			Area: &types.AreaRef{
				Name: "부산광역시",
				Code: "26",
				SubRegion: &types.SubRegionRef{
					Name: "해운대구",
					Code: "26350",
				},
			},
		},
	}

	block := svc.BuildFromIntent(context.Background(), in)

	require.Len(t, block.Groups, 2)
	assert.Equal(t, "지역 관광지 정보", block.Groups[0].Label)
	assert.Equal(t, types.SourceAreaBased, block.Groups[0].Source)
	assert.Equal(t, "해운대해수욕장", block.Groups[0].Records[0].Name)
	assert.Equal(t, "키워드 기반 연관 관광지 정보", block.Groups[1].Label)
	assert.Equal(t, types.SourceRelatedSpot, block.Groups[1].Source)
	assert.Equal(t, "광안리해수욕장", block.Groups[1].Records[0].Name)

	assert.Equal(t, []string{"26/26350"}, spots.areaCalls)
	assert.Equal(t, []string{"해수욕장@26/26350"}, spots.keywordCalls)
}

func TestBuildFromIntentGroupOrderFollowsInput(t *testing.T) {
	// The area fetch is slower than the keyword fetch; the area group must
	// still come first in the assembled block.
	slowArea := &fakeSpots{
		areaRecords:    []types.SpotRecord{spot("느린지역결과")},
		keywordRecords: []types.SpotRecord{spot("빠른키워드결과")},
	}
	svc := NewAggregatorService(&delayedSpots{inner: slowArea, areaDelay: 50 * time.Millisecond}, testAreas(t), 2*time.Second, slog.Default())

	in := types.IntentWithSearch{
		Intent: types.Intent{
			Category: types.IntentAreaKeyword,
			Keyword:  "맛집",
			Area: &types.AreaRef{
				Name:      "서울특별시",
				Code:      "11",
				SubRegion: &types.SubRegionRef{Name: "종로구", Code: "11110"},
			},
		},
	}

	for range 5 {
		block := svc.BuildFromIntent(context.Background(), in)
		require.Len(t, block.Groups, 2)
		assert.Equal(t, "느린지역결과", block.Groups[0].Records[0].Name)
		assert.Equal(t, "빠른키워드결과", block.Groups[1].Records[0].Name)
	}
}

// delayedSpots wraps a fakeSpots and delays area lookups.
type delayedSpots struct {
	inner     *fakeSpots
	areaDelay time.Duration
}

func (d *delayedSpots) AreaBasedSpots(ctx context.Context, regionCode, subRegionCode string) ([]types.SpotRecord, error) {
	time.Sleep(d.areaDelay)
	return d.inner.AreaBasedSpots(ctx, regionCode, subRegionCode)
}

func (d *delayedSpots) KeywordSpots(ctx context.Context, keyword, regionCode, subRegionCode string) ([]types.SpotRecord, error) {
	return d.inner.KeywordSpots(ctx, keyword, regionCode, subRegionCode)
}

func (d *delayedSpots) RandomAreaSpots(ctx context.Context) (types.AreaRef, []types.SpotRecord, error) {
	return d.inner.RandomAreaSpots(ctx)
}

func (d *delayedSpots) RandomSubRegionSpots(ctx context.Context, regionCode string) (types.AreaRef, []types.SpotRecord, error) {
	return d.inner.RandomSubRegionSpots(ctx, regionCode)
}

func TestBuildFromIntentFailedFetchLeavesSiblingsIntact(t *testing.T) {
	spots := &fakeSpots{
		areaRecords: []types.SpotRecord{spot("경복궁")},
		keywordErr:  errors.New("provider timeout"),
	}
	svc := newTestAggregator(t, spots)

	in := types.IntentWithSearch{
		Intent: types.Intent{
			Category: types.IntentAreaKeyword,
			Keyword:  "한옥마을",
			Area: &types.AreaRef{
				Name:      "서울특별시",
				Code:      "11",
				SubRegion: &types.SubRegionRef{Name: "종로구", Code: "11110"},
			},
		},
	}

	block := svc.BuildFromIntent(context.Background(), in)

	require.Len(t, block.Groups, 2)
	assert.NotEmpty(t, block.Groups[0].Records)
	assert.Empty(t, block.Groups[1].Records)

	text := block.Text()
	assert.Contains(t, text, "경복궁")
	assert.Contains(t, text, "=== 키워드 기반 연관 관광지 정보 ===")
	assert.Contains(t, text, types.NoDataMarker())
}

func TestBuildFromIntentGeneralFallsBackToDefaultArea(t *testing.T) {
	spots := &fakeSpots{areaRecords: []types.SpotRecord{spot("무작위명소")}}
	svc := newTestAggregator(t, spots)

	in := types.IntentWithSearch{
		Intent: types.Intent{Category: types.IntentGeneral, Confidence: 0.5},
	}

	block := svc.BuildFromIntent(context.Background(), in)

	require.Len(t, block.Groups, 1)
	assert.Equal(t, "지역 관광지 정보 (무작위)", block.Groups[0].Label)
	assert.Equal(t, "무작위명소", block.Groups[0].Records[0].Name)
}

func TestBuildFromIntentKeywordWithoutAreaUsesDefaultCodes(t *testing.T) {
	spots := &fakeSpots{keywordRecords: []types.SpotRecord{spot("남산타워")}}
	svc := newTestAggregator(t, spots)

	in := types.IntentWithSearch{
		Intent: types.Intent{Category: types.IntentKeyword, Keyword: "전망대"},
	}

	block := svc.BuildFromIntent(context.Background(), in)

	require.Len(t, block.Groups, 1)
	assert.Equal(t, []string{"전망대@11/11530"}, spots.keywordCalls)
	assert.Equal(t, types.SourceRelatedSpot, block.Groups[0].Source)
	assert.Equal(t, "11", block.Groups[0].Params.RegionCode)
	assert.Equal(t, "11530", block.Groups[0].Params.SubRegionCode)
}

func TestBuildFromIntentBlogGroupComesFirst(t *testing.T) {
	spots := &fakeSpots{keywordRecords: []types.SpotRecord{spot("연관명소")}}
	svc := newTestAggregator(t, spots)

	in := types.IntentWithSearch{
		Intent:        types.Intent{Category: types.IntentKeyword, Keyword: "야경"},
		HasBlogSearch: true,
		BlogResult: &types.BlogSearchResult{
			Total: 3,
			Items: []types.BlogPost{{Title: "부산 야경 명소 추천", Link: "https://blog.example/1"}},
		},
	}

	block := svc.BuildFromIntent(context.Background(), in)

	require.Len(t, block.Groups, 2)
	assert.Equal(t, types.SourceBlogSearch, block.Groups[0].Source)
	assert.Equal(t, "네이버 블로그 검색 결과", block.Groups[0].Label)
	assert.Contains(t, block.Groups[0].Freeform, "부산 야경 명소 추천")
	assert.Equal(t, types.SourceRelatedSpot, block.Groups[1].Source)
}

func TestBuildFromAreaHintsResolvedHintProducesTwoGroups(t *testing.T) {
	spots := &fakeSpots{
		areaRecords:    []types.SpotRecord{spot("해운대해수욕장")},
		keywordRecords: []types.SpotRecord{spot("동백섬")},
	}
	svc := newTestAggregator(t, spots)

	block := svc.BuildFromAreaHints(context.Background(), "부산 바다 여행",
		[]types.AreaHint{{AreaName: "부산광역시", SubRegionName: "해운대구"}})

	require.Len(t, block.Groups, 2)
	assert.Equal(t, "부산광역시 해운대구 관광지 정보", block.Groups[0].Label)
	assert.Equal(t, types.SourceKeywordBased, block.Groups[0].Source)
	assert.Equal(t, "부산광역시 해운대구 지역 기반 관광지", block.Groups[1].Label)
	assert.Equal(t, types.SourceAreaBased, block.Groups[1].Source)
	assert.Equal(t, []string{"부산 바다 여행@26/26350"}, spots.keywordCalls)
	assert.Equal(t, []string{"26/26350"}, spots.areaCalls)
}

func TestBuildFromAreaHintsUnresolvedHintRendersNoData(t *testing.T) {
	spots := &fakeSpots{
		areaRecords:    []types.SpotRecord{spot("해운대해수욕장")},
		keywordRecords: []types.SpotRecord{spot("동백섬")},
	}
	svc := newTestAggregator(t, spots)

	block := svc.BuildFromAreaHints(context.Background(), "여행",
		[]types.AreaHint{
			{AreaName: "아틀란티스"},
			{AreaName: "부산광역시", SubRegionName: "해운대구"},
		})

	require.Len(t, block.Groups, 3)
	assert.Equal(t, "아틀란티스 관광지 정보", block.Groups[0].Label)
	assert.Empty(t, block.Groups[0].Records)

	text := block.Text()
	assert.Contains(t, text, "=== 아틀란티스 관광지 정보 ===")
	assert.Contains(t, text, types.NoDataMarker())
	assert.Contains(t, text, "해운대해수욕장")
}

func TestBuildForChat(t *testing.T) {
	t.Run("area and keyword", func(t *testing.T) {
		spots := &fakeSpots{
			areaRecords:    []types.SpotRecord{spot("해운대해수욕장")},
			keywordRecords: []types.SpotRecord{spot("동백섬")},
		}
		svc := newTestAggregator(t, spots)

		block := svc.BuildForChat(context.Background(), "26", "26350", "산책")

		require.Len(t, block.Groups, 2)
		assert.Equal(t, "관광지 정보", block.Groups[0].Label)
		assert.Equal(t, types.SourceAreaBased, block.Groups[0].Source)
		assert.Equal(t, "연관 관광지 정보", block.Groups[1].Label)
		assert.Equal(t, types.SourceRelatedSpot, block.Groups[1].Source)
		assert.Equal(t, []string{"산책@26/26350"}, spots.keywordCalls)
	})

	t.Run("keyword only uses default codes", func(t *testing.T) {
		spots := &fakeSpots{keywordRecords: []types.SpotRecord{spot("동백섬")}}
		svc := newTestAggregator(t, spots)

		block := svc.BuildForChat(context.Background(), "", "", "산책")

		require.Len(t, block.Groups, 1)
		assert.Equal(t, "연관 관광지 정보", block.Groups[0].Label)
		assert.Equal(t, []string{"산책@11/11530"}, spots.keywordCalls)
	})

	t.Run("no inputs yields empty block", func(t *testing.T) {
		spots := &fakeSpots{}
		svc := newTestAggregator(t, spots)

		block := svc.BuildForChat(context.Background(), "", "", "")

		assert.Empty(t, block.Groups)
		assert.True(t, block.Empty())
		assert.Equal(t, types.NoDataMarker(), block.Text())
	})
}

func TestDefaultAreaFallsBackWhenTableEmpty(t *testing.T) {
	svc := NewAggregatorService(&fakeSpots{}, nil, time.Second, slog.Default())

	ref := svc.DefaultArea()

	assert.Equal(t, "부산광역시", ref.Name)
	assert.Equal(t, "26", ref.Code)
	require.NotNil(t, ref.SubRegion)
	assert.Equal(t, "26350", ref.SubRegion.Code)
}
