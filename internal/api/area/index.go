package area

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/waynai/waynai-go/internal/types"
)

//go:embed reference/area_codes.csv
var areaCodeCSV []byte

// ErrNotFound is returned by lookups that match no reference row. It is a
// normal outcome; callers substitute a default instead of failing.
var ErrNotFound = errors.New("area: not found")

// Index is the immutable, process-wide lookup table over the TourAPI
// region/sub-region reference data. It is built once at startup and is safe
// for concurrent reads without locking.
type Index struct {
	codes []types.AreaCode
}

// NewIndex loads the bundled reference CSV. Failing to load it is a
// deployment defect, not a runtime condition.
func NewIndex(logger *slog.Logger) (*Index, error) {
	idx, err := NewIndexFromReader(bytes.NewReader(areaCodeCSV))
	if err != nil {
		return nil, fmt.Errorf("loading embedded area codes: %w", err)
	}
	logger.Info("Area code table loaded", slog.Int("rows", len(idx.codes)))
	return idx, nil
}

// NewIndexFromReader parses CSV rows of (areaCd, areaNm, signguCd, signguNm).
// The first line is a header and is skipped; short rows are ignored.
func NewIndexFromReader(r io.Reader) (*Index, error) {
	var codes []types.AreaCode

	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			continue
		}
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) < 4 {
			continue
		}
		codes = append(codes, types.AreaCode{
			RegionCode:    strings.TrimSpace(cols[0]),
			RegionName:    strings.TrimSpace(cols[1]),
			SubRegionCode: strings.TrimSpace(cols[2]),
			SubRegionName: strings.TrimSpace(cols[3]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading area code data: %w", err)
	}
	if len(codes) == 0 {
		return nil, errors.New("area code data is empty")
	}
	return &Index{codes: codes}, nil
}

// Len returns the number of reference rows.
func (i *Index) Len() int { return len(i.codes) }

// All returns a copy of every reference row.
func (i *Index) All() []types.AreaCode {
	out := make([]types.AreaCode, len(i.codes))
	copy(out, i.codes)
	return out
}

// Resolve maps a place name to an AreaRef. Exact matches win over substring
// matches, sub-region names win over region names, and within each pass the
// first row in table order wins. The table-order tie-break is a documented,
// stable behavior, not ranked relevance.
func (i *Index) Resolve(name string) (types.AreaRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.AreaRef{}, ErrNotFound
	}

	for _, c := range i.codes {
		if c.SubRegionName == name {
			return refWithSubRegion(c), nil
		}
	}
	for _, c := range i.codes {
		if c.RegionName == name {
			return regionRef(c), nil
		}
	}
	for _, c := range i.codes {
		if containsEither(c.SubRegionName, name) {
			return refWithSubRegion(c), nil
		}
	}
	for _, c := range i.codes {
		if containsEither(c.RegionName, name) {
			return regionRef(c), nil
		}
	}
	return types.AreaRef{}, ErrNotFound
}

// ResolveSubRegion maps a sub-region name to its full reference, exact match
// first, then substring in either direction.
func (i *Index) ResolveSubRegion(name string) (types.AreaRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.AreaRef{}, ErrNotFound
	}
	for _, c := range i.codes {
		if c.SubRegionName == name {
			return refWithSubRegion(c), nil
		}
	}
	for _, c := range i.codes {
		if containsEither(c.SubRegionName, name) {
			return refWithSubRegion(c), nil
		}
	}
	return types.AreaRef{}, ErrNotFound
}

// ByCode looks up the reference row for a 5-digit sub-region code.
func (i *Index) ByCode(subRegionCode string) (types.AreaRef, error) {
	for _, c := range i.codes {
		if c.SubRegionCode == subRegionCode {
			return refWithSubRegion(c), nil
		}
	}
	return types.AreaRef{}, ErrNotFound
}

// SubRegions returns every row of one region, in table order.
func (i *Index) SubRegions(regionCode string) []types.AreaCode {
	var out []types.AreaCode
	for _, c := range i.codes {
		if c.RegionCode == regionCode {
			out = append(out, c)
		}
	}
	return out
}

// RandomArea picks a uniformly random reference row.
func (i *Index) RandomArea() types.AreaRef {
	return refWithSubRegion(i.codes[rand.IntN(len(i.codes))])
}

// RandomSubRegion picks a random sub-region within one region.
func (i *Index) RandomSubRegion(regionCode string) (types.AreaRef, error) {
	rows := i.SubRegions(regionCode)
	if len(rows) == 0 {
		return types.AreaRef{}, ErrNotFound
	}
	return refWithSubRegion(rows[rand.IntN(len(rows))]), nil
}

// ResolveHint grounds an extracted {지역명, 시군구명} pair against the table.
// The sub-region name is matched within the hinted region when possible; a
// region-only match falls back to the region's first sub-region.
func (i *Index) ResolveHint(hint types.AreaHint) (types.AreaRef, error) {
	var regionRows []types.AreaCode
	for _, c := range i.codes {
		if containsEither(c.RegionName, strings.TrimSpace(hint.AreaName)) {
			regionRows = append(regionRows, c)
		}
	}
	if len(regionRows) == 0 {
		// The hint's region is unknown; try the sub-region name globally.
		if hint.SubRegionName != "" {
			return i.ResolveSubRegion(hint.SubRegionName)
		}
		return types.AreaRef{}, ErrNotFound
	}

	sub := strings.TrimSpace(hint.SubRegionName)
	if sub != "" {
		for _, c := range regionRows {
			if c.SubRegionName == sub {
				return refWithSubRegion(c), nil
			}
		}
		for _, c := range regionRows {
			if containsEither(c.SubRegionName, sub) {
				return refWithSubRegion(c), nil
			}
		}
	}
	return refWithSubRegion(regionRows[0]), nil
}

func containsEither(key, query string) bool {
	if key == "" || query == "" {
		return false
	}
	return strings.Contains(key, query) || strings.Contains(query, key)
}

func refWithSubRegion(c types.AreaCode) types.AreaRef {
	return types.AreaRef{
		Name: c.RegionName,
		Code: c.RegionCode,
		SubRegion: &types.SubRegionRef{
			Name: c.SubRegionName,
			Code: c.SubRegionCode,
		},
	}
}

func regionRef(c types.AreaCode) types.AreaRef {
	return types.AreaRef{Name: c.RegionName, Code: c.RegionCode}
}
