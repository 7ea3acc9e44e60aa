package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed templates/*.txt
var templateFS embed.FS

// ErrTemplateNotFound signals a missing prompt template. This is a
// configuration defect; it is the one pipeline failure that must be fatal to
// the request rather than silently defaulted.
var ErrTemplateNotFound = errors.New("prompts: template not found")

// Template keys bundled with the binary.
const (
	KeyIntentAnalysis   = "intent_analysis"
	KeyAreaExtraction   = "area_extraction"
	KeyTravelPlan       = "travel_plan"
	KeyChat             = "chat"
	KeyTravelGuide      = "travel_guide"
	KeyCourseGeneration = "course_generation"
	KeyTravelTips       = "travel_tips"
)

// Store holds the prompt templates, loaded once at startup and immutable
// afterwards. Placeholders use the delimited form ${name}; substituted values
// are never rescanned, so context text containing a placeholder-like
// substring cannot trigger a second substitution.
type Store struct {
	templates map[string]string
}

// NewStore loads every bundled template.
func NewStore(logger *slog.Logger) (*Store, error) {
	s := &Store{templates: make(map[string]string)}

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("reading prompt templates: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		key := strings.TrimSuffix(name, ".txt")
		content, err := fs.ReadFile(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("reading prompt template %s: %w", name, err)
		}
		s.templates[key] = string(content)
	}
	if len(s.templates) == 0 {
		return nil, errors.New("prompts: no templates bundled")
	}
	logger.Info("Prompt templates loaded", slog.Int("count", len(s.templates)))
	return s, nil
}

// NewStoreFromMap builds a store from literal templates, for tests.
func NewStoreFromMap(templates map[string]string) *Store {
	copied := make(map[string]string, len(templates))
	for k, v := range templates {
		copied[k] = v
	}
	return &Store{templates: copied}
}

// Get returns the raw template for a key.
func (s *Store) Get(key string) (string, error) {
	tpl, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, key)
	}
	return tpl, nil
}

// Keys lists the available template keys, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render substitutes ${name} placeholders in one pass over the template.
// Unknown placeholders are left verbatim; variable values are emitted as-is
// and never re-substituted.
func (s *Store) Render(key string, vars map[string]string) (string, error) {
	tpl, err := s.Get(key)
	if err != nil {
		return "", err
	}
	return substitute(tpl, vars), nil
}

func substitute(tpl string, vars map[string]string) string {
	var sb strings.Builder
	sb.Grow(len(tpl))

	for {
		start := strings.Index(tpl, "${")
		if start < 0 {
			sb.WriteString(tpl)
			return sb.String()
		}
		end := strings.Index(tpl[start:], "}")
		if end < 0 {
			sb.WriteString(tpl)
			return sb.String()
		}
		end += start

		sb.WriteString(tpl[:start])
		name := tpl[start+2 : end]
		if val, ok := vars[name]; ok {
			sb.WriteString(val)
		} else {
			sb.WriteString(tpl[start : end+1])
		}
		tpl = tpl[end+1:]
	}
}
