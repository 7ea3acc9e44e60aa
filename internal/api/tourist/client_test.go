package tourist

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", time.Second, slog.Default()).WithBaseURL(srv.URL)
}

func okEnvelope(items string) string {
	return fmt.Sprintf(`{
		"response": {
			"header": {"resultCode": "0000", "resultMsg": "OK"},
			"body": {"items": %s, "totalCount": 1}
		}
	}`, items)
}

func TestAreaBasedListParsesItems(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, okEnvelope(`{"item": [{
			"tAtsNm": "해운대해수욕장",
			"rlteTatsNm": "동백섬",
			"rlteRegnCd": "26",
			"rlteRegnNm": "부산광역시",
			"rlteSignguCd": "26350",
			"rlteSignguNm": "해운대구",
			"rlteCtgryLclsNm": "관광지",
			"rlteCtgryMclsNm": "자연관광",
			"rlteCtgrySclsNm": "섬",
			"rlteRank": "1"
		}]}`))
	})

	records, err := client.AreaBasedList(context.Background(), "26", "26350", "202507", 20)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "해운대해수욕장", records[0].HubName)
	assert.Equal(t, "동백섬", records[0].Name)
	assert.Equal(t, "26350", records[0].SubRegionCode)
	assert.Equal(t, "1", records[0].Rank)

	assert.Equal(t, "26", gotQuery["areaCd"][0])
	assert.Equal(t, "26350", gotQuery["sigunguCd"][0])
	assert.Equal(t, "202507", gotQuery["baseYm"][0])
	assert.Equal(t, "json", gotQuery["_type"][0])
	assert.Equal(t, "WaynAI", gotQuery["MobileApp"][0])
}

func TestCallDetectsSentinelInOKBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 with a provider error payload.
		fmt.Fprint(w, `<OpenAPI_ServiceResponse><cmmMsgHeader><returnAuthMsg>SERVICE_KEY_IS_NOT_REGISTERED_ERROR</returnAuthMsg></cmmMsgHeader></OpenAPI_ServiceResponse>`)
	})

	_, err := client.AreaBasedList(context.Background(), "26", "26350", "202507", 20)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCallRejectsNonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.AreaBasedList(context.Background(), "26", "26350", "202507", 20)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCallEmptyItemsStringYieldsNoRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The provider encodes "no data" as an empty string, not an object.
		fmt.Fprint(w, okEnvelope(`""`))
	})

	records, err := client.AreaBasedList(context.Background(), "26", "26350", "202507", 20)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCallNonZeroResultCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"response": {
				"header": {"resultCode": "99", "resultMsg": "SYSTEM ERROR"},
				"body": {"items": "", "totalCount": 0}
			}
		}`)
	})

	_, err := client.AreaBasedList(context.Background(), "26", "26350", "202507", 20)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSearchKeywordOmitsEmptySubRegion(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, okEnvelope(`""`))
	})

	_, err := client.SearchKeyword(context.Background(), "맛집", "11", "", "202507", 10)
	require.NoError(t, err)
	assert.Equal(t, "맛집", gotQuery["keyword"][0])
	_, hasSub := gotQuery["sigunguCd"]
	assert.False(t, hasSub)
}
