package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiAnalyzer sends statements to Gemini and returns the raw response text.
type GeminiAnalyzer struct {
	model           string
	maxOutputTokens int32
}

// NewGeminiAnalyzer creates an analyzer for the given model. Empty values use the defaults.
func NewGeminiAnalyzer(model string, maxOutputTokens int32) *GeminiAnalyzer {
	if model == "" {
		model = DefaultModelName
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}
	return &GeminiAnalyzer{model: model, maxOutputTokens: maxOutputTokens}
}

// Model returns the model name requests are sent to.
func (a *GeminiAnalyzer) Model() string { return a.model }

// Extract sends the PDF and prompt in one request and asks for a strict JSON response.
// A client is created per call because the credential can change between calls.
func (a *GeminiAnalyzer) Extract(ctx context.Context, apiKey string, pdf []byte, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						MIMEType: PDFMIMEType,
						Data:     pdf,
					},
				},
				{Text: prompt},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  a.maxOutputTokens,
		Temperature:      genai.Ptr[float32](0),
	}

	resp, err := client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}

var errEmptyResponse = errors.New("empty response from model")

// DecodeModelJSON parses the model response into a JSON object.
// Text that is not JSON is cleaned of Markdown fences and surrounding prose first.
// Errors include the raw response verbatim.
func DecodeModelJSON(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errEmptyResponse
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
			return nil, fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, raw)
		}
	}

	obj, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is %T, want object\nraw response: %s", parsed, raw)
	}
	return obj, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "```json"), "```")
		}
		s = strings.TrimSpace(s)
	}

	// Remove a closing ``` only when it ends the text; backticks inside
	// string values stay.
	s = strings.TrimSpace(strings.TrimSuffix(s, "```"))

	// Keep only from the first '{' to the last '}' when prose surrounds the object.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
