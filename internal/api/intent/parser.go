package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/waynai/waynai-go/internal/types"
)

// unknownSubRegion is the placeholder some model responses emit when they
// cannot ground a sub-region. It is normalized to a nil SubRegion.
const unknownSubRegion = "UNKNOWN"

// CleanModelJSON strips markdown code fences the model wraps around JSON
// payloads despite instructions not to.
func CleanModelJSON(response string) string {
	s := strings.TrimSpace(response)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

type wireSubRegion struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type wireArea struct {
	Name    string         `json:"name"`
	Code    string         `json:"code"`
	Sigungu *wireSubRegion `json:"sigungu"`
}

type wireIntent struct {
	Intent     string    `json:"intent"`
	Keyword    string    `json:"keyword"`
	Area       *wireArea `json:"area"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
}

// parseIntent decodes a cleaned model response into an Intent. A sub-region
// the model marked UNKNOWN, or omitted, becomes a nil SubRegion so consumers
// apply their default instead of treating the placeholder as a code.
func parseIntent(cleaned string) (types.Intent, error) {
	var wire wireIntent
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return types.Intent{}, fmt.Errorf("decoding intent response: %w", err)
	}

	category, err := parseCategory(wire.Intent)
	if err != nil {
		return types.Intent{}, err
	}

	result := types.Intent{
		Category:   category,
		Keyword:    strings.TrimSpace(wire.Keyword),
		Confidence: clampConfidence(wire.Confidence),
		Reason:     wire.Reason,
	}
	if wire.Area != nil && wire.Area.Name != "" {
		ref := &types.AreaRef{
			Name: wire.Area.Name,
			Code: wire.Area.Code,
		}
		if sub := wire.Area.Sigungu; sub != nil && sub.Code != "" && sub.Code != unknownSubRegion {
			ref.SubRegion = &types.SubRegionRef{Name: sub.Name, Code: sub.Code}
		}
		result.Area = ref
	}
	return result, nil
}

func parseCategory(s string) (types.IntentCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keyword":
		return types.IntentKeyword, nil
	case "area":
		return types.IntentArea, nil
	case "area_keyword":
		return types.IntentAreaKeyword, nil
	case "general", "none":
		return types.IntentGeneral, nil
	default:
		return "", fmt.Errorf("unrecognized intent category %q", s)
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// parseAreaHints decodes the area-extraction response, a JSON array of
// {areaName, sigunguName} pairs.
func parseAreaHints(cleaned string) ([]types.AreaHint, error) {
	var wire []struct {
		AreaName    string `json:"areaName"`
		SigunguName string `json:"sigunguName"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("decoding area hints: %w", err)
	}

	hints := make([]types.AreaHint, 0, len(wire))
	for _, w := range wire {
		if strings.TrimSpace(w.AreaName) == "" {
			continue
		}
		hints = append(hints, types.AreaHint{
			AreaName:      strings.TrimSpace(w.AreaName),
			SubRegionName: strings.TrimSpace(w.SigunguName),
		})
	}
	return hints, nil
}
