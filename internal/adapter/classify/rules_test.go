package classify

import (
	"testing"

	"docagent/internal/domain"
)

func TestClassifyWeatherQueries(t *testing.T) {
	c := NewRuleClassifier()

	cases := []struct {
		query    string
		intent   domain.Intent
		location string
	}{
		{"What's the weather in Beijing?", domain.IntentTool, "Beijing"},
		{"weather forecast for Shanghai", domain.IntentTool, "Shanghai"},
		{"What is the temperature in New York City today?", domain.IntentTool, "New York City"},
		{"北京的天气怎么样", domain.IntentTool, "北京"},
		{"今天深圳天气如何", domain.IntentTool, "深圳"},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			intent, loc := c.Classify(tc.query)
			if intent != tc.intent {
				t.Errorf("intent = %s, want %s", intent, tc.intent)
			}
			if loc != tc.location {
				t.Errorf("location = %q, want %q", loc, tc.location)
			}
		})
	}
}

func TestClassifyDocumentQueries(t *testing.T) {
	c := NewRuleClassifier()

	for _, query := range []string{
		"What is the capital of France mentioned in the uploaded report?",
		"Summarize the second chapter",
		"según el informe, cuál es la conclusión",
	} {
		intent, loc := c.Classify(query)
		if intent != domain.IntentDocument {
			t.Errorf("%q: intent = %s, want document", query, intent)
		}
		if loc != "" {
			t.Errorf("%q: unexpected location %q", query, loc)
		}
	}
}

func TestClassifyAmbiguousWeatherQuery(t *testing.T) {
	c := NewRuleClassifier()

	// A weather cue with no recognizable location runs both paths.
	intent, loc := c.Classify("Does the report mention anything about weather patterns?")
	if intent != domain.IntentBoth {
		t.Errorf("intent = %s, want both", intent)
	}
	if loc != "" {
		t.Errorf("unexpected location %q", loc)
	}
}
