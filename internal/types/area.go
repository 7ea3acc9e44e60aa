package types

// AreaCode is one row of the TourAPI region/sub-region (시군구) reference table.
// The table is loaded once at startup and never mutated afterwards.
type AreaCode struct {
	RegionCode    string `json:"areaCd"`   // 2-digit region code, e.g. "26"
	RegionName    string `json:"areaNm"`   // e.g. "부산광역시"
	SubRegionCode string `json:"signguCd"` // 5-digit sub-region code, e.g. "26350"
	SubRegionName string `json:"signguNm"` // e.g. "해운대구"
}

// SubRegionRef identifies a resolved 시군구 within a region.
type SubRegionRef struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// AreaRef is a resolved geographic reference carried inside an Intent.
// SubRegion is nil when the classifier could not ground a sub-region;
// consumers must substitute a default instead of treating nil as an error.
type AreaRef struct {
	Name      string        `json:"name"`
	Code      string        `json:"code"`
	SubRegion *SubRegionRef `json:"sigungu,omitempty"`
}

// AreaHint is one {지역명, 시군구명} pair extracted from free text by the
// area-extraction model call. Names are unresolved; the aggregator matches
// them against the reference table.
type AreaHint struct {
	AreaName      string `json:"areaName"`
	SubRegionName string `json:"sigunguName"`
}
