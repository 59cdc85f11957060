package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultModel matches the model the original deployment used.
	DefaultModel = "gemini-3-flash-preview"

	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiConfig configures the Gemini client. Zero-value fields fall
// back to defaults; only APIKey is required.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Endpoint   string       // overridden in tests
	HTTPClient *http.Client // overridden in tests
}

// Gemini calls the Gemini generateContent API.
type Gemini struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewGemini creates a Gemini-backed assistant service.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Gemini{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		httpClient: cfg.HTTPClient,
	}
}

// Wire format for generateContent.
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generateRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete sends a prompt and blocks until the full reply is available.
func (g *Gemini) Complete(ctx context.Context, prompt, systemInstruction string, temperature float64) (string, error) {
	wireRequest := generateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature: temperature,
		},
	}
	if systemInstruction != "" {
		wireRequest.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}}
	}

	body, err := json.Marshal(wireRequest)
	if err != nil {
		return "", fmt.Errorf("assistant: marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assistant: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-goog-api-key", g.apiKey)

	httpResponse, err := g.httpClient.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("assistant: sending request: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return "", readProviderError(httpResponse)
	}

	var wireResponse generateResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResponse); err != nil {
		return "", fmt.Errorf("assistant: decoding response: %w", err)
	}

	text := collectText(wireResponse)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// readProviderError parses the Gemini error body:
// {"error":{"code":429,"message":"...","status":"RESOURCE_EXHAUSTED"}}.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Status:     wireError.Error.Status,
			Message:    wireError.Error.Message,
		}
	}

	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    string(body),
	}
}
