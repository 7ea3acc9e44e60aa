package types

// BlogPost is one entry of a blog search result.
type BlogPost struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	BloggerName string `json:"bloggername"`
	PostDate    string `json:"postdate"`
}

// BlogSearchResult is the outcome of the supplementary free-text blog search
// used when structured classification yields no actionable intent.
type BlogSearchResult struct {
	Total int        `json:"total"`
	Start int        `json:"start"`
	Items []BlogPost `json:"items"`
}
