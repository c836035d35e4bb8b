package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const googleAPIBaseURL = "https://generativelanguage.googleapis.com/v1"

// GoogleProvider implements Provider using the Google Gemini generateContent API via direct HTTP.
type GoogleProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGoogleProvider creates a new Google Gemini provider. An empty baseURL
// selects the public v1 endpoint.
func NewGoogleProvider(apiKey, model, baseURL string) *GoogleProvider {
	if baseURL == "" {
		baseURL = googleAPIBaseURL
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (p *GoogleProvider) Name() string {
	return "Gemini"
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback"`
	UsageMetadata  *geminiUsageMetadata  `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      *geminiResponseContent `json:"content"`
	FinishReason string                 `json:"finishReason"`
}

// geminiResponseContent uses pointer text so a part without text is
// distinguishable from an empty translation.
type geminiResponseContent struct {
	Parts []struct {
		Text *string `json:"text"`
	} `json:"parts"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// geminiOutcome is the decoded meaning of a 2xx generateContent body.
type geminiOutcome interface{ geminiOutcome() }

type geminiText struct {
	text         string
	finishReason string
}

type geminiBlocked struct{ reason string }

type geminiUnrecognized struct{ err error }

func (geminiText) geminiOutcome()         {}
func (geminiBlocked) geminiOutcome()      {}
func (geminiUnrecognized) geminiOutcome() {}

// decodeGemini classifies a successful response body. Candidate text wins
// over a block reason; anything else is unrecognized.
func decodeGemini(body []byte) (geminiOutcome, *geminiUsageMetadata) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return geminiUnrecognized{err: err}, nil
	}

	if len(resp.Candidates) > 0 {
		c := resp.Candidates[0]
		if c.Content != nil && len(c.Content.Parts) > 0 && c.Content.Parts[0].Text != nil {
			return geminiText{text: *c.Content.Parts[0].Text, finishReason: c.FinishReason}, resp.UsageMetadata
		}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return geminiBlocked{reason: resp.PromptFeedback.BlockReason}, resp.UsageMetadata
	}

	return geminiUnrecognized{}, resp.UsageMetadata
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var systemParts []geminiPart
	var contents []geminiContent

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, geminiPart{Text: msg.Content})
		case RoleUser:
			contents = append(contents, geminiContent{Parts: []geminiPart{{Text: msg.Content}}})
		case RoleAssistant:
			contents = append(contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	if len(contents) == 0 {
		contents = append(contents, geminiContent{Parts: []geminiPart{{Text: ""}}})
	}

	apiReq := geminiRequest{Contents: contents}
	if len(systemParts) > 0 {
		apiReq.SystemInstruction = &geminiContent{Parts: systemParts}
	}
	if req.MaxTokens > 0 || req.Temperature != nil {
		apiReq.GenerationConfig = &geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.baseURL, strings.TrimPrefix(model, "models/"), url.QueryEscape(p.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &APIError{
			Provider:   p.Name(),
			StatusCode: httpResp.StatusCode,
			Detail:     errorDetail(respBody),
		}
	}

	outcome, usage := decodeGemini(respBody)

	var inputTokens, outputTokens int
	if usage != nil {
		inputTokens = usage.PromptTokenCount
		outputTokens = usage.CandidatesTokenCount
	}

	switch o := outcome.(type) {
	case geminiText:
		return &CompletionResponse{
			Content:      o.text,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			Model:        model,
			FinishReason: o.finishReason,
		}, nil
	case geminiBlocked:
		return nil, &ContentBlockedError{Reason: o.reason}
	case geminiUnrecognized:
		return nil, &ParseError{Provider: p.Name(), Err: o.err}
	default:
		return nil, &ParseError{Provider: p.Name()}
	}
}
