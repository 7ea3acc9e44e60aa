package types

// IntentCategory classifies what a travel query is asking for.
type IntentCategory string

const (
	IntentKeyword     IntentCategory = "keyword"
	IntentArea        IntentCategory = "area"
	IntentAreaKeyword IntentCategory = "area_keyword"
	IntentGeneral     IntentCategory = "general"
)

// Intent is the structured result of classifying one user query.
// Produced fresh per request and never shared across requests.
type Intent struct {
	Category   IntentCategory `json:"intent"`
	Keyword    string         `json:"keyword,omitempty"`
	Area       *AreaRef       `json:"area,omitempty"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason,omitempty"`
}

// IntentWithSearch pairs an Intent with the supplementary blog search that
// runs when classification yields no structured intent.
type IntentWithSearch struct {
	Intent        Intent            `json:"intentAnalysis"`
	BlogResult    *BlogSearchResult `json:"blogSearchResult,omitempty"`
	HasBlogSearch bool              `json:"hasBlogSearch"`
}
