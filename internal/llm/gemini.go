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
	"time"

	"sygl/internal/pricing"

	"github.com/sirupsen/logrus"
)

const (
	geminiProvider       = "gemini"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// 内联图片以 base64 返回，限制响应体大小
	maxGeminiResponseBytes = 32 << 20
)

// GeminiConfig configures the Gemini adapter.
// When ImageModel is empty the adapter runs in description mode: the text model
// writes a visual brief and the result points at the placeholder renderer.
type GeminiConfig struct {
	APIKey             string
	BaseURL            string
	TextModel          string
	ImageModel         string
	PlaceholderBaseURL string
}

// Request payload pieces ----------------------------------------------------
type (
	geminiInlineData struct {
		MimeType string `json:"mimeType,omitempty"`
		Data     string `json:"data,omitempty"`
	}
	geminiFileData struct {
		FileURI  string `json:"fileUri,omitempty"`
		MimeType string `json:"mimeType,omitempty"`
	}
	geminiPart struct {
		Text       string            `json:"text,omitempty"`
		InlineData *geminiInlineData `json:"inlineData,omitempty"`
		FileData   *geminiFileData   `json:"fileData,omitempty"`
	}
	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}
	geminiGenerationConfig struct {
		ResponseModalities []string `json:"responseModalities,omitempty"`
	}
	geminiRequest struct {
		Contents         []geminiContent         `json:"contents"`
		GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
	}
)

// Response payload pieces ---------------------------------------------------
type (
	geminiCandidate struct {
		FinishReason string        `json:"finishReason,omitempty"`
		Content      geminiContent `json:"content"`
	}
	geminiError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	geminiPromptFeedback struct {
		BlockReason string `json:"blockReason,omitempty"`
	}
	geminiResponse struct {
		Candidates     []geminiCandidate     `json:"candidates"`
		PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
		Error          *geminiError          `json:"error,omitempty"`
	}
)

// GeminiAdapter talks to the Gemini generateContent endpoint.
type GeminiAdapter struct {
	cfg        GeminiConfig
	httpClient *http.Client
}

// NewGeminiAdapter validates credentials and builds the adapter.
func NewGeminiAdapter(cfg GeminiConfig, httpClient *http.Client) (*GeminiAdapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if strings.TrimSpace(cfg.TextModel) == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if strings.TrimSpace(cfg.PlaceholderBaseURL) == "" {
		cfg.PlaceholderBaseURL = "/api/placeholder-logo"
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &GeminiAdapter{cfg: cfg, httpClient: httpClient}, nil
}

// Model implements Adapter.
func (g *GeminiAdapter) Model() pricing.Model {
	return pricing.ModelGemini
}

// Generate implements Adapter.
func (g *GeminiAdapter) Generate(ctx context.Context, req GenerationRequest) (result Result) {
	defer recoverToFailure(&result, geminiProvider, req)

	imageMode := strings.TrimSpace(g.cfg.ImageModel) != ""
	upstreamModel := g.cfg.TextModel
	if imageMode {
		upstreamModel = g.cfg.ImageModel
	}
	logger := requestLogger(ctx, geminiProvider, upstreamModel, req)

	prompt := buildGeminiPrompt(req, imageMode)
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	if imageMode {
		body.GenerationConfig = &geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
	}

	logger.WithFields(logrus.Fields{
		"prompt_preview": logSnippet(req.Prompt),
		"image_mode":     imageMode,
	}).Info("llm_generate_start")
	started := time.Now()

	resp, err := g.call(ctx, upstreamModel, body)
	if err != nil {
		logger.WithError(err).Warn("llm_generate_failed")
		return Failure("%v", err)
	}

	var text strings.Builder
	var image *geminiInlineData
	var fileURI string
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				if text.Len() > 0 {
					text.WriteString("\n")
				}
				text.WriteString(strings.TrimSpace(part.Text))
			}
			if image == nil && part.InlineData != nil && strings.TrimSpace(part.InlineData.Data) != "" {
				image = part.InlineData
			}
			if fileURI == "" && part.FileData != nil {
				fileURI = strings.TrimSpace(part.FileData.FileURI)
			}
		}
	}

	meta := newMetadata(pricing.ModelGemini, prompt)
	meta.Description = strings.TrimSpace(text.String())

	if imageMode {
		if image == nil && fileURI == "" {
			return Failure("gemini response did not include image data")
		}
		result = Result{Success: true, Metadata: meta}
		if image != nil {
			result.ImageData = fmt.Sprintf("data:%s;base64,%s", fallbackMime(image.MimeType), strings.TrimSpace(image.Data))
		} else {
			result.ImageURL = fileURI
		}
	} else {
		if meta.Description == "" {
			return Failure("gemini response did not include a logo description")
		}
		result = Result{
			Success:  true,
			ImageURL: g.placeholderURL(req.Prompt),
			Metadata: meta,
		}
	}

	logger.WithFields(logrus.Fields{
		"generation_id": meta.GenerationID,
		"duration_ms":   time.Since(started).Milliseconds(),
	}).Info("llm_generate_done")
	return result
}

func (g *GeminiAdapter) call(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.cfg.BaseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gemini create request: %w", err)
	}
	// 使用请求头传递密钥，避免密钥出现在 URL 和日志中
	httpReq.Header.Set("x-goog-api-key", g.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini send request: %w", err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxGeminiResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("gemini read response: %w", err)
	}

	var decoded geminiResponse
	decodeErr := json.Unmarshal(payload, &decoded)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		message := logSnippet(string(payload))
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			message = decoded.Error.Message
		}
		return nil, fmt.Errorf("gemini http %d: %s", httpResp.StatusCode, message)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("gemini decode response: %w", decodeErr)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, fmt.Errorf("gemini error: %s", decoded.Error.Message)
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini blocked prompt: %s", decoded.PromptFeedback.BlockReason)
	}
	if len(decoded.Candidates) == 0 {
		return nil, fmt.Errorf("gemini response contained no candidates")
	}
	return &decoded, nil
}

func (g *GeminiAdapter) placeholderURL(prompt string) string {
	return g.cfg.PlaceholderBaseURL + "?" + url.Values{"prompt": {prompt}}.Encode()
}

func buildGeminiPrompt(req GenerationRequest, imageMode bool) string {
	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = "modern"
	}
	industry := strings.TrimSpace(req.Industry)
	if industry == "" {
		industry = "general business"
	}
	colors := joinNonEmpty(req.Colors, ", ")
	if colors == "" {
		colors = "professional colors"
	}
	format := strings.TrimSpace(req.Format)
	if format == "" {
		format = "square"
	}

	closing := "Generate a detailed visual description for a logo that meets these criteria."
	if imageMode {
		closing = "Generate the logo image on a plain background."
	}

	return fmt.Sprintf(`Create a professional logo design with the following requirements:
- Main concept: %s
- Style: %s
- Industry: %s
- Colors: %s
- Format: %s

Requirements:
- Clean, scalable vector-style design
- Professional and memorable
- Works in monochrome
- Suitable for business use
- Modern typography if text is included
- High contrast and legible

%s`, strings.TrimSpace(req.Prompt), style, industry, colors, format, closing)
}

// fallbackMime normalizes empty/unknown mime types to a sensible default.
func fallbackMime(mimeType string) string {
	v := strings.TrimSpace(mimeType)
	if v == "" {
		return "image/png"
	}
	if idx := strings.Index(v, ";"); idx > 0 {
		return strings.TrimSpace(v[:idx])
	}
	return v
}

var _ Adapter = (*GeminiAdapter)(nil)
