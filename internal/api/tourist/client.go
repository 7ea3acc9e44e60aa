package tourist

import (
	"context"
	"encoding/json"
	"errors"
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
	defaultBaseURL = "https://apis.data.go.kr/B551011/TarRlteTarService1"
	mobileOS       = "WEB"
	mobileApp      = "WaynAI"
)

// Provider-specific error sentinels that arrive inside HTTP 200 bodies.
var errorSentinels = []string{
	"SERVICE_KEY_IS_NOT_REGISTERED_ERROR",
	"SERVICE ERROR",
}

// ErrProviderUnavailable marks a provider response that carried an error
// sentinel or otherwise could not be used. Callers substitute placeholder
// records instead of surfacing it to the user.
var ErrProviderUnavailable = errors.New("tourist: provider unavailable")

// Client talks to the TourAPI 지역기반 관광지 relation service.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(serviceKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    defaultBaseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithBaseURL overrides the provider endpoint, used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// AreaBasedList fetches notable spots for one region/sub-region pair.
func (c *Client) AreaBasedList(ctx context.Context, regionCode, subRegionCode, baseYm string, numOfRows int) ([]types.SpotRecord, error) {
	ctx, span := otel.Tracer("TouristClient").Start(ctx, "AreaBasedList", trace.WithAttributes(
		attribute.String("areaCd", regionCode),
		attribute.String("signguCd", subRegionCode),
	))
	defer span.End()

	params := c.baseParams(baseYm, numOfRows)
	params.Set("areaCd", regionCode)
	params.Set("sigunguCd", subRegionCode)

	records, err := c.call(ctx, "areaBasedList1", params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Area based lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	span.SetStatus(codes.Ok, "Area based lookup completed")
	return records, nil
}

// SearchKeyword fetches spots related to a search term, scoped to an area.
func (c *Client) SearchKeyword(ctx context.Context, keyword, regionCode, subRegionCode, baseYm string, numOfRows int) ([]types.SpotRecord, error) {
	ctx, span := otel.Tracer("TouristClient").Start(ctx, "SearchKeyword", trace.WithAttributes(
		attribute.String("keyword", keyword),
		attribute.String("areaCd", regionCode),
	))
	defer span.End()

	params := c.baseParams(baseYm, numOfRows)
	params.Set("keyword", keyword)
	params.Set("areaCd", regionCode)
	if subRegionCode != "" {
		params.Set("sigunguCd", subRegionCode)
	}

	records, err := c.call(ctx, "searchKeyword1", params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Keyword lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	span.SetStatus(codes.Ok, "Keyword lookup completed")
	return records, nil
}

func (c *Client) baseParams(baseYm string, numOfRows int) url.Values {
	params := url.Values{}
	params.Set("serviceKey", c.serviceKey)
	params.Set("MobileOS", mobileOS)
	params.Set("MobileApp", mobileApp)
	params.Set("baseYm", baseYm)
	params.Set("numOfRows", strconv.Itoa(numOfRows))
	params.Set("pageNo", "1")
	params.Set("_type", "json")
	return params
}

func (c *Client) call(ctx context.Context, operation string, params url.Values) ([]types.SpotRecord, error) {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, operation, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building provider request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling provider %s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrProviderUnavailable, operation, resp.StatusCode)
	}

	// The provider reports key and service failures inside 200 bodies.
	text := string(body)
	for _, sentinel := range errorSentinels {
		if strings.Contains(text, sentinel) {
			c.logger.WarnContext(ctx, "Provider returned error sentinel",
				slog.String("operation", operation), slog.String("sentinel", sentinel))
			return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, sentinel)
		}
	}

	records, err := parseEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return records, nil
}

type wireEnvelope struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			// Items is an object with an item array when data exists and an
			// empty string when it does not.
			Items      json.RawMessage `json:"items"`
			TotalCount int             `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

type wireItem struct {
	HubName        string `json:"tAtsNm"`
	Name           string `json:"rlteTatsNm"`
	RegionCode     string `json:"rlteRegnCd"`
	RegionName     string `json:"rlteRegnNm"`
	SubRegionCode  string `json:"rlteSignguCd"`
	SubRegionName  string `json:"rlteSignguNm"`
	CategoryLarge  string `json:"rlteCtgryLclsNm"`
	CategoryMedium string `json:"rlteCtgryMclsNm"`
	CategorySmall  string `json:"rlteCtgrySclsNm"`
	Rank           string `json:"rlteRank"`
}

func parseEnvelope(body []byte) ([]types.SpotRecord, error) {
	var envelope wireEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding provider envelope: %w", err)
	}

	if code := envelope.Response.Header.ResultCode; code != "" && code != "0000" {
		return nil, fmt.Errorf("provider result %s: %s", code, envelope.Response.Header.ResultMsg)
	}

	items := envelope.Response.Body.Items
	if len(items) == 0 || items[0] != '{' {
		return nil, nil
	}

	var wrapper struct {
		Item []wireItem `json:"item"`
	}
	if err := json.Unmarshal(items, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding provider items: %w", err)
	}

	records := make([]types.SpotRecord, 0, len(wrapper.Item))
	for _, item := range wrapper.Item {
		records = append(records, types.SpotRecord{
			HubName:        item.HubName,
			Name:           item.Name,
			RegionCode:     item.RegionCode,
			RegionName:     item.RegionName,
			SubRegionCode:  item.SubRegionCode,
			SubRegionName:  item.SubRegionName,
			CategoryLarge:  item.CategoryLarge,
			CategoryMedium: item.CategoryMedium,
			CategorySmall:  item.CategorySmall,
			Rank:           item.Rank,
		})
	}
	return records, nil
}
