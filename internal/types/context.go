package types

import (
	"fmt"
	"strings"
)

// ContextSource tags which retrieval path produced a context group.
type ContextSource string

const (
	SourceAreaBased    ContextSource = "area-based"
	SourceKeywordBased ContextSource = "keyword-based"
	SourceRelatedSpot  ContextSource = "related-spot"
	SourceBlogSearch   ContextSource = "blog-search"
)

// unknownMarker replaces absent optional fields so the rendered context keeps
// the same shape regardless of how complete the provider data was.
const unknownMarker = "정보없음"

// noDataMarker is rendered in place of an empty record group. Empty groups are
// never silently omitted.
const noDataMarker = "관광지 정보가 없습니다."

// SpotRecord is one tourist spot as retrieved from a provider, already
// normalized out of the provider's wire envelope.
type SpotRecord struct {
	HubName        string `json:"hubName,omitempty"` // 기준(중심) 관광지
	Name           string `json:"name"`
	RegionCode     string `json:"areaCd"`
	RegionName     string `json:"areaNm"`
	SubRegionCode  string `json:"signguCd"`
	SubRegionName  string `json:"signguNm"`
	CategoryLarge  string `json:"ctgryLclsNm"`
	CategoryMedium string `json:"ctgryMclsNm"`
	CategorySmall  string `json:"ctgrySclsNm"`
	Rank           string `json:"rank"`
}

// QueryParams records what was asked of the provider to produce a group.
type QueryParams struct {
	RegionCode    string `json:"areaCd,omitempty"`
	SubRegionCode string `json:"signguCd,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
}

// ContextGroup is one retrieved-record group inside a ContextBlock.
type ContextGroup struct {
	Source  ContextSource `json:"source"`
	Label   string        `json:"label"`
	Params  QueryParams   `json:"params"`
	Records []SpotRecord  `json:"records"`
	// Freeform holds pre-rendered text for sources that are not spot lists
	// (e.g. blog search results). When set it wins over Records.
	Freeform string `json:"freeform,omitempty"`
}

// ContextBlock is the ordered set of context groups assembled for one request.
// Group order follows input order (areas first, then keyword results), never
// retrieval completion order.
type ContextBlock struct {
	Groups []ContextGroup `json:"groups"`
}

// Empty reports whether no group carries any usable content.
func (b ContextBlock) Empty() bool {
	for _, g := range b.Groups {
		if len(g.Records) > 0 || g.Freeform != "" {
			return false
		}
	}
	return true
}

// Text serializes the block into the plain-text form embedded in prompts.
// Every group renders a header; groups without records render an explicit
// no-data sentence so downstream prompt structure stays predictable.
func (b ContextBlock) Text() string {
	if len(b.Groups) == 0 {
		return noDataMarker
	}

	var sb strings.Builder
	for i, g := range b.Groups {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("=== ")
		sb.WriteString(g.Label)
		sb.WriteString(" ===\n")
		sb.WriteString(g.text())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (g ContextGroup) text() string {
	if g.Freeform != "" {
		return g.Freeform
	}
	if len(g.Records) == 0 {
		return noDataMarker
	}

	parts := make([]string, 0, len(g.Records))
	for _, r := range g.Records {
		parts = append(parts, r.text())
	}
	return strings.Join(parts, "\n")
}

// text renders one record with the fixed field template. Absent optional
// fields are rendered as 정보없음, never dropped.
func (r SpotRecord) text() string {
	var sb strings.Builder
	if r.HubName != "" {
		fmt.Fprintf(&sb, "기준 관광지: %s\n", r.HubName)
	}
	fmt.Fprintf(&sb, "관광지명: %s\n", orUnknown(r.Name))
	fmt.Fprintf(&sb, "지역: %s %s\n", orUnknown(r.RegionName), orUnknown(r.RegionCode))
	fmt.Fprintf(&sb, "시군구: %s %s\n", orUnknown(r.SubRegionName), orUnknown(r.SubRegionCode))
	fmt.Fprintf(&sb, "대분류: %s\n", orUnknown(r.CategoryLarge))
	fmt.Fprintf(&sb, "중분류: %s\n", orUnknown(r.CategoryMedium))
	fmt.Fprintf(&sb, "소분류: %s\n", orUnknown(r.CategorySmall))
	fmt.Fprintf(&sb, "순위: %s\n", orUnknown(r.Rank))
	sb.WriteString("---")
	return sb.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownMarker
	}
	return s
}

// NoDataMarker exposes the placeholder sentence for tests and callers that
// need to synthesize an empty group message.
func NoDataMarker() string { return noDataMarker }

// UnknownMarker exposes the absent-field marker.
func UnknownMarker() string { return unknownMarker }
