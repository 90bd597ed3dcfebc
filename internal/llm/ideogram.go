package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sygl/internal/pricing"

	"github.com/sirupsen/logrus"
)

const (
	ideogramProvider          = "ideogram"
	defaultIdeogramEndpoint   = "https://api.ideogram.ai/generate"
	defaultIdeogramResolution = "1024x1024"
	maxIdeogramResponseBytes  = 16 << 20
)

// IdeogramConfig configures the Ideogram adapter.
type IdeogramConfig struct {
	APIKey   string
	Endpoint string
	Model    string
}

type (
	ideogramImageRequest struct {
		Prompt            string `json:"prompt"`
		AspectRatio       string `json:"aspect_ratio"`
		Model             string `json:"model"`
		MagicPromptOption string `json:"magic_prompt_option"`
		StyleType         string `json:"style_type"`
	}
	ideogramRequest struct {
		ImageRequest ideogramImageRequest `json:"image_request"`
	}
	ideogramImage struct {
		URL         string `json:"url"`
		B64JSON     string `json:"b64_json"`
		Resolution  string `json:"resolution"`
		Prompt      string `json:"prompt"`
		IsImageSafe *bool  `json:"is_image_safe,omitempty"`
		Seed        int64  `json:"seed"`
	}
	ideogramResponse struct {
		Created string          `json:"created"`
		Data    []ideogramImage `json:"data"`
	}
	ideogramErrorBody struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
)

// IdeogramAdapter calls the Ideogram generate endpoint.
type IdeogramAdapter struct {
	cfg        IdeogramConfig
	httpClient *http.Client
}

// NewIdeogramAdapter validates credentials and builds the adapter.
func NewIdeogramAdapter(cfg IdeogramConfig, httpClient *http.Client) (*IdeogramAdapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ideogram: %w", ErrMissingAPIKey)
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultIdeogramEndpoint
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "V_2"
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &IdeogramAdapter{cfg: cfg, httpClient: httpClient}, nil
}

// Model implements Adapter.
func (a *IdeogramAdapter) Model() pricing.Model {
	return pricing.ModelIdeogram
}

// Generate implements Adapter.
func (a *IdeogramAdapter) Generate(ctx context.Context, req GenerationRequest) (result Result) {
	defer recoverToFailure(&result, ideogramProvider, req)
	logger := requestLogger(ctx, ideogramProvider, a.cfg.Model, req)

	payload := ideogramRequest{
		ImageRequest: ideogramImageRequest{
			Prompt:            enhanceIdeogramPrompt(req),
			AspectRatio:       ideogramAspectRatio(req.AspectRatio, req.Format),
			Model:             a.cfg.Model,
			MagicPromptOption: "AUTO",
			StyleType:         ideogramStyleType(req.Style),
		},
	}

	logger.WithFields(logrus.Fields{
		"prompt_preview": logSnippet(req.Prompt),
		"aspect_ratio":   payload.ImageRequest.AspectRatio,
		"style_type":     payload.ImageRequest.StyleType,
	}).Info("llm_generate_start")
	started := time.Now()

	resp, err := a.call(ctx, payload)
	if err != nil {
		logger.WithError(err).Warn("llm_generate_failed")
		return Failure("%v", err)
	}

	var image *ideogramImage
	for i := range resp.Data {
		if strings.TrimSpace(resp.Data[i].URL) != "" || strings.TrimSpace(resp.Data[i].B64JSON) != "" {
			image = &resp.Data[i]
			break
		}
	}
	if image == nil {
		return Failure("no image data returned from ideogram")
	}
	if image.IsImageSafe != nil && !*image.IsImageSafe {
		return Failure("ideogram flagged the generated image as unsafe")
	}

	meta := newMetadata(pricing.ModelIdeogram, payload.ImageRequest.Prompt)
	meta.Resolution = strings.TrimSpace(image.Resolution)
	if meta.Resolution == "" {
		meta.Resolution = defaultIdeogramResolution
	}

	result = Result{
		Success:  true,
		ImageURL: strings.TrimSpace(image.URL),
		Metadata: meta,
	}
	if b64 := strings.TrimSpace(image.B64JSON); b64 != "" {
		result.ImageData = "data:image/png;base64," + b64
	}

	logger.WithFields(logrus.Fields{
		"generation_id": meta.GenerationID,
		"resolution":    meta.Resolution,
		"duration_ms":   time.Since(started).Milliseconds(),
	}).Info("llm_generate_done")
	return result
}

func (a *IdeogramAdapter) call(ctx context.Context, payload ideogramRequest) (*ideogramResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ideogram marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("ideogram create request: %w", err)
	}
	httpReq.Header.Set("Api-Key", a.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ideogram send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxIdeogramResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("ideogram read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("ideogram api error: %d %s%s", httpResp.StatusCode, http.StatusText(httpResp.StatusCode), ideogramErrorDetail(body))
	}

	var decoded ideogramResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("ideogram decode response: %w", err)
	}
	return &decoded, nil
}

func ideogramErrorDetail(body []byte) string {
	var parsed ideogramErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return ": " + parsed.Message
		}
		var detail string
		if len(parsed.Detail) > 0 && json.Unmarshal(parsed.Detail, &detail) == nil && detail != "" {
			return ": " + detail
		}
	}
	if snippet := logSnippet(string(body)); snippet != "" {
		return ": " + snippet
	}
	return ""
}

func enhanceIdeogramPrompt(req GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Professional logo design: %s.", strings.TrimSpace(req.Prompt))
	if industry := strings.TrimSpace(req.Industry); industry != "" {
		fmt.Fprintf(&b, " Industry: %s.", industry)
	}
	if colors := joinNonEmpty(req.Colors, ", "); colors != "" {
		fmt.Fprintf(&b, " Color palette: %s.", colors)
	}
	b.WriteString("\nClean, modern, scalable vector style.")
	b.WriteString("\nHigh contrast, memorable, suitable for business use.")
	b.WriteString("\nMinimal background, crisp lines, professional typography if text included.")
	b.WriteString("\nCorporate quality, brandable design.")
	return b.String()
}

var ideogramAspectRatios = map[string]string{
	"1:1":  "ASPECT_1_1",
	"16:9": "ASPECT_16_9",
	"9:16": "ASPECT_9_16",
	"4:3":  "ASPECT_4_3",
	"3:4":  "ASPECT_3_4",
}

// ideogramAspectRatio 优先使用显式比例，其次由版式推断，默认正方形
func ideogramAspectRatio(aspectRatio, format string) string {
	if v, ok := ideogramAspectRatios[strings.TrimSpace(aspectRatio)]; ok {
		return v
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "horizontal":
		return "ASPECT_16_9"
	case "vertical":
		return "ASPECT_9_16"
	}
	return "ASPECT_1_1"
}

var ideogramStyles = map[string]string{
	"auto":      "AUTO",
	"general":   "GENERAL",
	"realistic": "REALISTIC",
	"design":    "DESIGN",
	"render_3d": "RENDER_3D",
	"3d":        "RENDER_3D",
	"anime":     "ANIME",
}

// ideogramStyleType maps free-form styles onto Ideogram's enumeration.
// Unknown logo styles such as "minimalist" fall back to DESIGN.
func ideogramStyleType(style string) string {
	key := strings.ToLower(strings.TrimSpace(style))
	if key == "" {
		return "AUTO"
	}
	if v, ok := ideogramStyles[key]; ok {
		return v
	}
	return "DESIGN"
}

var _ Adapter = (*IdeogramAdapter)(nil)
