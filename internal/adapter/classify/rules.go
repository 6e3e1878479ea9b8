// Package classify routes queries without touching the generation
// backend: a keyword rule set decides intent in-process, so routing stays
// cheap relative to synthesis. The strategy sits behind port.Classifier
// and can be swapped for a model-driven one.
package classify

import (
	"strings"
	"unicode"

	"docagent/internal/domain"
)

var weatherCues = []string{
	"weather", "forecast", "temperature", "rain", "snow", "sunny",
	"天气", "气温", "下雨", "下雪", "温度",
}

// Prepositions that introduce a location in English weather queries.
var locationMarkers = []string{" in ", " at ", " for "}

// Words stripped from extracted locations.
var locationNoise = map[string]bool{
	"the": true, "today": true, "tomorrow": true, "now": true,
	"right": true, "currently": true,
}

// RuleClassifier is the built-in routing strategy.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify returns the routing intent and, for weather queries, the
// extracted location. A weather cue without a recognizable location is
// ambiguous: both paths run and synthesis arbitrates.
func (c *RuleClassifier) Classify(query string) (domain.Intent, string) {
	lower := strings.ToLower(query)

	hasCue := false
	for _, cue := range weatherCues {
		if strings.Contains(lower, cue) {
			hasCue = true
			break
		}
	}
	if !hasCue {
		return domain.IntentDocument, ""
	}

	if loc := extractLocation(query); loc != "" {
		return domain.IntentTool, loc
	}
	return domain.IntentBoth, ""
}

// extractLocation pulls a location out of a weather query, handling both
// "weather in Beijing" and "北京的天气" word orders.
func extractLocation(query string) string {
	lower := strings.ToLower(query)

	for _, marker := range locationMarkers {
		idx := strings.LastIndex(lower, marker)
		if idx < 0 {
			continue
		}
		tail := query[idx+len(marker):]
		if loc := cleanLocation(tail); loc != "" {
			return loc
		}
	}

	// CJK order: the location precedes the cue, e.g. "北京的天气".
	for _, cue := range []string{"的天气", "天气", "的气温", "气温"} {
		idx := strings.Index(query, cue)
		if idx <= 0 {
			continue
		}
		head := query[:idx]
		if loc := cleanCJKLocation(head); loc != "" {
			return loc
		}
	}

	return ""
}

func cleanLocation(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})

	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if locationNoise[strings.ToLower(f)] {
			continue
		}
		kept = append(kept, f)
		// A location is at most a few words; stop before trailing clauses.
		if len(kept) == 3 {
			break
		}
	}
	return strings.Join(kept, " ")
}

func cleanCJKLocation(s string) string {
	// Take the run of Han characters immediately before the cue.
	runes := []rune(s)
	end := len(runes)
	start := end
	for start > 0 && unicode.Is(unicode.Han, runes[start-1]) {
		start--
	}
	loc := string(runes[start:end])
	for _, noise := range []string{"今天", "明天", "现在", "请问", "查一下", "查询"} {
		loc = strings.ReplaceAll(loc, noise, "")
	}
	return strings.TrimSpace(loc)
}
