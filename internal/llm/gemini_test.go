package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"sygl/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeminiServer(t *testing.T, status int, body interface{}, capture *geminiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestNewGeminiAdapterRequiresKey(t *testing.T) {
	_, err := NewGeminiAdapter(GeminiConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGeminiDescriptionMode(t *testing.T) {
	var captured geminiRequest
	srv := newGeminiServer(t, http.StatusOK, geminiResponse{
		Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{{Text: "A bold rocket mark"}}}}},
	}, &captured)
	defer srv.Close()

	adapter, err := NewGeminiAdapter(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL, PlaceholderBaseURL: "/api/placeholder-logo"}, srv.Client())
	require.NoError(t, err)

	result := adapter.Generate(context.Background(), GenerationRequest{
		Model:    pricing.ModelGemini,
		Prompt:   "Tech startup & co",
		Colors:   []string{"navy", " ", "gold"},
		Industry: "fintech",
	})
	require.True(t, result.Success, result.Error)
	assert.Empty(t, result.ImageData)

	parsed, err := url.Parse(result.ImageURL)
	require.NoError(t, err)
	assert.Equal(t, "/api/placeholder-logo", parsed.Path)
	assert.Equal(t, "Tech startup & co", parsed.Query().Get("prompt"))

	require.NotNil(t, result.Metadata)
	assert.Equal(t, pricing.ModelGemini, result.Metadata.Model)
	assert.Equal(t, "A bold rocket mark", result.Metadata.Description)
	assert.NotEmpty(t, result.Metadata.GenerationID)
	assert.NotEmpty(t, result.Metadata.Timestamp)

	require.Len(t, captured.Contents, 1)
	sent := captured.Contents[0].Parts[0].Text
	assert.Equal(t, sent, result.Metadata.PromptUsed)
	assert.Contains(t, sent, "Main concept: Tech startup & co")
	assert.Contains(t, sent, "Style: modern")
	assert.Contains(t, sent, "Industry: fintech")
	assert.Contains(t, sent, "Colors: navy, gold")
	assert.Contains(t, sent, "Format: square")
	assert.Nil(t, captured.GenerationConfig)
}

func TestGeminiImageMode(t *testing.T) {
	var captured geminiRequest
	srv := newGeminiServer(t, http.StatusOK, geminiResponse{
		Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{
			{Text: "here you go"},
			{InlineData: &geminiInlineData{MimeType: "image/png", Data: "aGVsbG8="}},
		}}}},
	}, &captured)
	defer srv.Close()

	adapter, err := NewGeminiAdapter(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL, ImageModel: "gemini-2.5-flash-image"}, srv.Client())
	require.NoError(t, err)

	result := adapter.Generate(context.Background(), GenerationRequest{Model: pricing.ModelGemini, Prompt: "bakery"})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", result.ImageData)
	require.NotNil(t, captured.GenerationConfig)
	assert.Equal(t, []string{"TEXT", "IMAGE"}, captured.GenerationConfig.ResponseModalities)
}

func TestGeminiFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      interface{}
		imageMode bool
		wantErr   string
	}{
		{
			name:    "http error uses upstream message",
			status:  http.StatusForbidden,
			body:    geminiResponse{Error: &geminiError{Code: 403, Message: "API key not valid"}},
			wantErr: "gemini http 403: API key not valid",
		},
		{
			name:    "no candidates",
			status:  http.StatusOK,
			body:    geminiResponse{},
			wantErr: "no candidates",
		},
		{
			name:    "blocked prompt",
			status:  http.StatusOK,
			body:    geminiResponse{PromptFeedback: &geminiPromptFeedback{BlockReason: "SAFETY"}},
			wantErr: "blocked prompt: SAFETY",
		},
		{
			name:    "empty description",
			status:  http.StatusOK,
			body:    geminiResponse{Candidates: []geminiCandidate{{FinishReason: "STOP"}}},
			wantErr: "did not include a logo description",
		},
		{
			name:      "image mode without image",
			status:    http.StatusOK,
			body:      geminiResponse{Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{{Text: "sorry"}}}}}},
			imageMode: true,
			wantErr:   "did not include image data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGeminiServer(t, tt.status, tt.body, nil)
			defer srv.Close()

			cfg := GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}
			if tt.imageMode {
				cfg.ImageModel = "img"
			}
			adapter, err := NewGeminiAdapter(cfg, srv.Client())
			require.NoError(t, err)

			result := adapter.Generate(context.Background(), GenerationRequest{Model: pricing.ModelGemini, Prompt: "x"})
			assert.False(t, result.Success)
			assert.Contains(t, result.Error, tt.wantErr)
			assert.Nil(t, result.Metadata)
			assert.NotContains(t, result.Error, "test-key")
		})
	}
}

func TestGeminiTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	adapter, err := NewGeminiAdapter(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	result := adapter.Generate(context.Background(), GenerationRequest{Model: pricing.ModelGemini, Prompt: "x"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "gemini send request")
}
