package dto

import (
	"sygl/internal/entity/common"
	"time"
)

// GenerateRequest is the payload of POST /api/generate.
type GenerateRequest struct {
	Prompt      string   `json:"prompt" binding:"required,min=1,max=500"`
	Model       string   `json:"model" binding:"required,oneof=gemini-2.5 ideogram"`
	Style       string   `json:"style,omitempty" binding:"omitempty,max=100"`
	Colors      []string `json:"colors,omitempty" binding:"omitempty,max=10,dive,max=50"`
	Format      string   `json:"format,omitempty" binding:"omitempty,oneof=square horizontal vertical"`
	Industry    string   `json:"industry,omitempty" binding:"omitempty,max=100"`
	AspectRatio string   `json:"aspectRatio,omitempty" binding:"omitempty,oneof=1:1 16:9 9:16 4:3 3:4"`
}

// GenerationMetadata is the provenance attached to a generated image.
type GenerationMetadata struct {
	Model        string `json:"model"`
	PromptUsed   string `json:"promptUsed"`
	Timestamp    string `json:"timestamp"`
	GenerationID string `json:"generationId"`
	Resolution   string `json:"resolution,omitempty"`
	Description  string `json:"description,omitempty"`
}

// GenerateResponse is returned when a generation completes.
type GenerateResponse struct {
	Success          bool                `json:"success"`
	GenerationID     uint                `json:"generationId"`
	ImageURL         string              `json:"imageUrl"`
	CreditsUsed      int                 `json:"creditsUsed"`
	CreditsRemaining int                 `json:"creditsRemaining"`
	Metadata         *GenerationMetadata `json:"metadata,omitempty"`
}

// GenerateFailureResponse is returned when the provider failed after reservation.
type GenerateFailureResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	Code         string `json:"code"`
	GenerationID uint   `json:"generationId"`
}

// InsufficientCreditsResponse is the 402 body.
type InsufficientCreditsResponse struct {
	Error            string `json:"error"`
	Code             string `json:"code"`
	CreditsNeeded    int    `json:"creditsNeeded"`
	CreditsAvailable int    `json:"creditsAvailable"`
}

// GenerationSummary is a short history row.
type GenerationSummary struct {
	ID          uint      `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	CreditsUsed int       `json:"creditsUsed"`
	ModelUsed   string    `json:"modelUsed"`
	Status      string    `json:"status"`
}

// GenerationItem is the full view of a generation record.
type GenerationItem struct {
	ID             uint                   `json:"id"`
	Prompt         string                 `json:"prompt"`
	ModelUsed      string                 `json:"modelUsed"`
	CreditsUsed    int                    `json:"creditsUsed"`
	ImageURL       *string                `json:"imageUrl"`
	GenerationData map[string]interface{} `json:"generationData"`
	Status         string                 `json:"status"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// GenerationQuery filters the caller's history.
type GenerationQuery struct {
	common.BaseParams
	Status string `json:"status" form:"status" query:"status" binding:"omitempty,oneof=pending completed failed"`
	Model  string `json:"model" form:"model" query:"model" binding:"omitempty,oneof=gemini-2.5 ideogram"`
	UserID uint   `json:"-" form:"-" query:"-"`
}

// GenerationListResponse is the response for listing generations.
type GenerationListResponse struct {
	Generations []GenerationItem `json:"generations"`
	Meta        *common.Meta     `json:"meta"`
}

// GenerationDetailResponse wraps a single generation.
type GenerationDetailResponse struct {
	Generation GenerationItem `json:"generation"`
}
