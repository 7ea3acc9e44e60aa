package tourist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waynai/waynai-go/internal/api/area"
	"github.com/waynai/waynai-go/internal/types"
)

type fakeRetriever struct {
	records    []types.SpotRecord
	err        error
	areaCalls  int
	queryCalls int
}

func (f *fakeRetriever) AreaBasedList(context.Context, string, string, string, int) ([]types.SpotRecord, error) {
	f.areaCalls++
	return f.records, f.err
}

func (f *fakeRetriever) SearchKeyword(context.Context, string, string, string, string, int) ([]types.SpotRecord, error) {
	f.queryCalls++
	return f.records, f.err
}

func testIndex(t *testing.T) *area.Index {
	t.Helper()
	idx, err := area.NewIndexFromReader(strings.NewReader(
		"areaCd,areaNm,signguCd,signguNm\n" +
			"11,서울특별시,11530,구로구\n" +
			"26,부산광역시,26350,해운대구\n"))
	require.NoError(t, err)
	return idx
}

func newService(t *testing.T, retriever Retriever) *TouristServiceImpl {
	t.Helper()
	return NewTouristService(retriever, testIndex(t), time.Minute, 20, slog.Default())
}

func TestAreaBasedSpotsDefaultsEmptyCodes(t *testing.T) {
	retriever := &fakeRetriever{records: []types.SpotRecord{{Name: "동백섬"}}}
	service := newService(t, retriever)

	records, err := service.AreaBasedSpots(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "동백섬", records[0].Name)
}

func TestAreaBasedSpotsRejectsMalformedCodes(t *testing.T) {
	service := newService(t, &fakeRetriever{})

	tests := []struct {
		name   string
		region string
		sub    string
	}{
		{name: "region too long", region: "261", sub: "26350"},
		{name: "region letters", region: "ab", sub: "26350"},
		{name: "sub-region too short", region: "26", sub: "263"},
		{name: "sub-region letters", region: "26", sub: "abcde"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.AreaBasedSpots(context.Background(), tc.region, tc.sub)
			assert.Error(t, err)
		})
	}
}

func TestAreaBasedSpotsPlaceholderOnProviderFailure(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("provider down")}
	service := newService(t, retriever)

	records, err := service.AreaBasedSpots(context.Background(), "26", "26350")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "부산광역시 대표 관광지", records[0].Name)
	assert.Equal(t, "해운대구", records[0].SubRegionName)
	assert.Equal(t, "관광지", records[0].CategoryLarge)
	assert.Equal(t, "문화관광", records[0].CategoryMedium)
	assert.Equal(t, "문화시설", records[0].CategorySmall)
	assert.Equal(t, "1", records[0].Rank)
}

func TestAreaBasedSpotsPlaceholderOnEmptyResult(t *testing.T) {
	retriever := &fakeRetriever{records: nil}
	service := newService(t, retriever)

	records, err := service.AreaBasedSpots(context.Background(), "11", "11530")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "서울특별시 대표 관광지", records[0].Name)
	assert.Equal(t, "구로구", records[0].SubRegionName)
}

func TestAreaBasedSpotsCachesSuccessOnly(t *testing.T) {
	retriever := &fakeRetriever{records: []types.SpotRecord{{Name: "동백섬"}}}
	service := newService(t, retriever)

	_, err := service.AreaBasedSpots(context.Background(), "26", "26350")
	require.NoError(t, err)
	_, err = service.AreaBasedSpots(context.Background(), "26", "26350")
	require.NoError(t, err)
	assert.Equal(t, 1, retriever.areaCalls)
}

func TestAreaBasedSpotsDoesNotCachePlaceholder(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("provider down")}
	service := newService(t, retriever)

	_, err := service.AreaBasedSpots(context.Background(), "26", "26350")
	require.NoError(t, err)
	_, err = service.AreaBasedSpots(context.Background(), "26", "26350")
	require.NoError(t, err)
	assert.Equal(t, 2, retriever.areaCalls)
}

func TestKeywordSpotsRequiresKeyword(t *testing.T) {
	service := newService(t, &fakeRetriever{})

	_, err := service.KeywordSpots(context.Background(), "", "26", "26350")
	assert.Error(t, err)
}

func TestRandomAreaSpotsUsesIndex(t *testing.T) {
	retriever := &fakeRetriever{records: []types.SpotRecord{{Name: "spot"}}}
	service := newService(t, retriever)

	ref, records, err := service.RandomAreaSpots(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ref.SubRegion)
	assert.Contains(t, []string{"11", "26"}, ref.Code)
	assert.NotEmpty(t, records)
}

func TestRandomSubRegionSpotsValidatesRegion(t *testing.T) {
	service := newService(t, &fakeRetriever{})

	_, _, err := service.RandomSubRegionSpots(context.Background(), "999")
	assert.Error(t, err)

	_, _, err = service.RandomSubRegionSpots(context.Background(), "77")
	assert.Error(t, err)
}

func TestBaseYm(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{now: time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), want: "202506"},
		{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), want: "202412"},
		{now: time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC), want: "202511"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, BaseYm(tc.now))
	}
}
