package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sygl/internal/pricing"

	"github.com/google/uuid"
)

// ErrMissingAPIKey is returned when an adapter is constructed without credentials.
var ErrMissingAPIKey = errors.New("api key missing")

// GenerationRequest carries the model selector and the adapter option bag.
type GenerationRequest struct {
	// RecordID is the reserved ledger record, 0 outside the metered flow.
	RecordID    uint
	Model       pricing.Model
	Prompt      string
	Style       string
	Colors      []string
	Format      string
	Industry    string
	AspectRatio string
}

// Metadata is the provenance stamped on every successful generation.
type Metadata struct {
	Model        pricing.Model `json:"model"`
	PromptUsed   string        `json:"promptUsed"`
	Timestamp    string        `json:"timestamp"`
	GenerationID string        `json:"generationId"`
	Resolution   string        `json:"resolution,omitempty"`
	Description  string        `json:"description,omitempty"`
}

// ToMap flattens the metadata for JSON persistence.
func (m *Metadata) ToMap() map[string]interface{} {
	if m == nil {
		return nil
	}
	out := map[string]interface{}{
		"model":        string(m.Model),
		"promptUsed":   m.PromptUsed,
		"timestamp":    m.Timestamp,
		"generationId": m.GenerationID,
	}
	if m.Resolution != "" {
		out["resolution"] = m.Resolution
	}
	if m.Description != "" {
		out["description"] = m.Description
	}
	return out
}

// Result is the tagged outcome of a generation.
// Success carries ImageURL and/or ImageData plus Metadata; failure carries Error.
type Result struct {
	Success     bool
	ImageURL    string
	ImageData   string
	Error       string
	CreditsUsed int
	Metadata    *Metadata
}

// Failure builds a failed result.
func Failure(format string, args ...interface{}) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Adapter generates a logo through one upstream backend.
// Implementations resolve every error into a failed Result.
type Adapter interface {
	Model() pricing.Model
	Generate(ctx context.Context, req GenerationRequest) Result
}

func newMetadata(model pricing.Model, promptUsed string) *Metadata {
	return &Metadata{
		Model:        model,
		PromptUsed:   promptUsed,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		GenerationID: uuid.NewString(),
	}
}

// NewHTTPClient returns the client shared by adapters.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func recoverToFailure(result *Result, provider string, req GenerationRequest) {
	if r := recover(); r != nil {
		requestLogger(context.Background(), provider, "", req).
			WithField("panic", fmt.Sprint(r)).
			Error("llm_adapter_panic")
		*result = Failure("%s generation failed unexpectedly", provider)
	}
}

func joinNonEmpty(values []string, sep string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, sep)
}
