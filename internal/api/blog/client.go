package blog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waynai/waynai-go/internal/types"
)

const (
	defaultAPIURL  = "https://openapi.naver.com/v1/search/blog.json"
	defaultDisplay = 10
	defaultSort    = "sim"

	noResultMarker = "네이버 검색 결과가 없습니다."
)

// Searcher is the blog lookup contract. *Client satisfies it; tests
// substitute fakes.
type Searcher interface {
	Search(ctx context.Context, query string) (*types.BlogSearchResult, error)
}

var _ Searcher = (*Client)(nil)

// Client calls the Naver blog search API.
type Client struct {
	apiURL       string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewClient(clientID, clientSecret string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		apiURL:       defaultAPIURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// WithAPIURL overrides the endpoint, used by tests.
func (c *Client) WithAPIURL(apiURL string) *Client {
	c.apiURL = apiURL
	return c
}

// Search runs a blog search with the default paging and relevance sort.
func (c *Client) Search(ctx context.Context, query string) (*types.BlogSearchResult, error) {
	return c.SearchWithOptions(ctx, query, defaultDisplay, 1, defaultSort)
}

// SearchWithOptions runs a blog search with explicit paging. sort is "sim"
// for relevance or "date" for recency.
func (c *Client) SearchWithOptions(ctx context.Context, query string, display, start int, sort string) (*types.BlogSearchResult, error) {
	ctx, span := otel.Tracer("BlogClient").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("display", display),
	))
	defer span.End()

	if display <= 0 {
		display = defaultDisplay
	}
	if start <= 0 {
		start = 1
	}
	if sort == "" {
		sort = defaultSort
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(display))
	params.Set("start", strconv.Itoa(start))
	params.Set("sort", sort)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to build request")
		return nil, fmt.Errorf("building blog search request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Blog search call failed")
		return nil, fmt.Errorf("calling blog search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read response")
		return nil, fmt.Errorf("reading blog search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("blog search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		c.logger.WarnContext(ctx, "Blog search failed", slog.Int("status", resp.StatusCode))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Non-OK status")
		return nil, err
	}

	var result types.BlogSearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode response")
		return nil, fmt.Errorf("decoding blog search response: %w", err)
	}

	span.SetAttributes(attribute.Int("total", result.Total))
	span.SetStatus(codes.Ok, "Blog search completed")
	return &result, nil
}

// FormatContext renders a search result as the plain text embedded in
// prompts. Only the top five posts are included.
func FormatContext(result *types.BlogSearchResult) string {
	if result == nil || len(result.Items) == 0 {
		return noResultMarker
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "총 검색 결과: %d개\n", result.Total)
	sb.WriteString("주요 검색 결과:\n\n")

	for i, item := range result.Items {
		if i == 5 {
			break
		}
		fmt.Fprintf(&sb, "제목: %s\n", item.Title)
		fmt.Fprintf(&sb, "설명: %s\n", item.Description)
		fmt.Fprintf(&sb, "블로거: %s\n", item.BloggerName)
		fmt.Fprintf(&sb, "작성일: %s\n", item.PostDate)
		fmt.Fprintf(&sb, "링크: %s\n", item.Link)
		sb.WriteString("---\n")
	}
	return sb.String()
}
