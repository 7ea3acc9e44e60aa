package blog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waynai/waynai-go/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-id", "test-secret", time.Second, slog.Default()).WithAPIURL(srv.URL)
}

func TestSearchParsesResponse(t *testing.T) {
	var gotQuery, gotID, gotSecret string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotID = r.Header.Get("X-Naver-Client-Id")
		gotSecret = r.Header.Get("X-Naver-Client-Secret")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"total": 2,
			"start": 1,
			"items": [
				{"title": "부산 여행 후기", "link": "https://blog.example/1", "description": "해운대 중심 일정", "bloggername": "여행자", "postdate": "20250810"},
				{"title": "맛집 정리", "link": "https://blog.example/2", "description": "돼지국밥", "bloggername": "먹보", "postdate": "20250811"}
			]
		}`)
	})

	result, err := client.Search(context.Background(), "부산 여행")

	require.NoError(t, err)
	assert.Equal(t, "부산 여행", gotQuery)
	assert.Equal(t, "test-id", gotID)
	assert.Equal(t, "test-secret", gotSecret)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "부산 여행 후기", result.Items[0].Title)
	assert.Equal(t, "여행자", result.Items[0].BloggerName)
}

func TestSearchWithOptionsSendsPaging(t *testing.T) {
	var query map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		fmt.Fprint(w, `{"total": 0, "start": 3, "items": []}`)
	})

	_, err := client.SearchWithOptions(context.Background(), "제주", 5, 3, "date")

	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, query["display"])
	assert.Equal(t, []string{"3"}, query["start"])
	assert.Equal(t, []string{"date"}, query["sort"])
}

func TestSearchNonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessage": "Authentication failed"}`, http.StatusUnauthorized)
	})

	result, err := client.Search(context.Background(), "부산")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "401")
}

func TestSearchMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	})

	result, err := client.Search(context.Background(), "부산")

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestFormatContext(t *testing.T) {
	t.Run("nil and empty results render marker", func(t *testing.T) {
		assert.Equal(t, "네이버 검색 결과가 없습니다.", FormatContext(nil))
		assert.Equal(t, "네이버 검색 결과가 없습니다.", FormatContext(&types.BlogSearchResult{}))
	})

	t.Run("renders fields per post", func(t *testing.T) {
		text := FormatContext(&types.BlogSearchResult{
			Total: 1,
			Items: []types.BlogPost{{
				Title:       "부산 여행 후기",
				Description: "해운대 중심 일정",
				BloggerName: "여행자",
				PostDate:    "20250810",
				Link:        "https://blog.example/1",
			}},
		})

		assert.Contains(t, text, "총 검색 결과: 1개")
		assert.Contains(t, text, "제목: 부산 여행 후기")
		assert.Contains(t, text, "블로거: 여행자")
		assert.Contains(t, text, "링크: https://blog.example/1")
	})

	t.Run("caps at five posts", func(t *testing.T) {
		items := make([]types.BlogPost, 8)
		for i := range items {
			items[i] = types.BlogPost{Title: fmt.Sprintf("글 %d", i+1)}
		}
		text := FormatContext(&types.BlogSearchResult{Total: 8, Items: items})

		assert.Equal(t, 5, strings.Count(text, "제목: "))
		assert.NotContains(t, text, "글 6")
	})
}
