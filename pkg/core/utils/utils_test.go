package utils

import (
	"strings"
	"testing"
)

type override struct {
	CIK        string   `json:"cik"`
	SkipLabels []string `json:"skip_labels"`
	Weight     int      `json:"weight"`
}

func TestSmartParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		strategy Strategy
	}{
		{"plain json", `{"cik":"1234","skip_labels":["Cash"],"weight":4}`, StrategyJSON},
		{"hjson with comments", "{\n  # fund II\n  cik: \"1234\"\n  skip_labels: [\"Cash\"]\n  weight: 4\n}", StrategyHJSON},
		{"truncated export", `{"cik":"1234","skip_labels":["Cash"],"weight":4`, StrategyRepair},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o override
			got, err := SmartParse([]byte(tt.input), &o)
			if err != nil {
				t.Fatalf("SmartParse: %v", err)
			}
			if got != tt.strategy {
				t.Errorf("strategy = %s, want %s", got, tt.strategy)
			}
			if o.CIK != "1234" || len(o.SkipLabels) != 1 || o.Weight != 4 {
				t.Errorf("decoded %+v", o)
			}
		})
	}
}

func TestParseHJSONKeepsNumbers(t *testing.T) {
	out, err := ParseHJSON("{ principal: 3250000.10 }")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "3250000.10") {
		t.Errorf("number literal changed: %s", out)
	}
}

func TestMarkdownToHTML(t *testing.T) {
	html, err := MarkdownToHTML("# Coverage\n\n| field | pct |\n|---|---|\n| cost | 50% |\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<h1>Coverage</h1>") || !strings.Contains(html, "<table>") {
		t.Errorf("unexpected html: %s", html)
	}
}
