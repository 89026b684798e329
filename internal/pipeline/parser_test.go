package pipeline

import (
	"strings"
	"testing"
)

func TestDecodeModelJSON(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantMonth string
		wantErr   bool
	}{
		{name: "plain json", raw: `{"bill_month":"2024-05"}`, wantMonth: "2024-05"},
		{name: "json fence", raw: "```json\n{\"bill_month\":\"2024-05\"}\n```", wantMonth: "2024-05"},
		{name: "bare fence", raw: "```\n{\"bill_month\":\"2024-05\"}\n```", wantMonth: "2024-05"},
		{name: "single line fence", raw: "```json{\"bill_month\":\"2024-05\"}```", wantMonth: "2024-05"},
		{name: "backticks inside a value", raw: "Here you go: {\"bill_month\":\"2024-05\",\"note\":\"```\"} thanks", wantMonth: "2024-05"},
		{name: "surrounding prose", raw: "Here is the data:\n{\"bill_month\":\"2024-05\"}\nLet me know!", wantMonth: "2024-05"},
		{name: "whitespace", raw: "\n\n  {\"bill_month\":\"2024-05\"}  \n", wantMonth: "2024-05"},
		{name: "empty", raw: "", wantErr: true},
		{name: "blank", raw: "   \n", wantErr: true},
		{name: "not json", raw: "I could not read this document.", wantErr: true},
		{name: "truncated", raw: `{"transactions":[{"merchant":"A"`, wantErr: true},
		{name: "top-level array", raw: `[{"merchant":"A"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeModelJSON(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeModelJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got["bill_month"] != tt.wantMonth {
				t.Errorf("bill_month = %v, want %s", got["bill_month"], tt.wantMonth)
			}
		})
	}
}

func TestDecodeModelJSON_ErrorCarriesRawResponse(t *testing.T) {
	raw := "Sorry, the PDF is encrypted."
	_, err := DecodeModelJSON(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), raw) {
		t.Errorf("error %q does not include raw response", err)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prefix {\"a\":{\"b\":2}} suffix", `{"a":{"b":2}}`},
		{`{"a":1}`, `{"a":1}`},
		{"no braces", "no braces"},
		{"Result: {\"note\":\"use ```code```\"} done", "{\"note\":\"use ```code```\"}"},
		{"```json\n{\"note\":\"```\"}\n```", "{\"note\":\"```\"}"},
	}
	for _, tt := range tests {
		if got := cleanModelJSON(tt.input); got != tt.want {
			t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNewGeminiAnalyzerDefaults(t *testing.T) {
	a := NewGeminiAnalyzer("", 0)
	if a.Model() != DefaultModelName || a.maxOutputTokens != DefaultMaxOutputTokens {
		t.Errorf("defaults = %q/%d", a.Model(), a.maxOutputTokens)
	}
	if b := NewGeminiAnalyzer("gemini-2.5-pro", 1024); b.Model() != "gemini-2.5-pro" || b.maxOutputTokens != 1024 {
		t.Errorf("overrides = %q/%d", b.Model(), b.maxOutputTokens)
	}
}
