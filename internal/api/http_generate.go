package api

import (
	"errors"
	"net/http"

	"sygl/internal/entity/dto"
	"sygl/internal/llm"
	"sygl/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Generate 处理 POST /api/generate
func (h *HTTPHandler) Generate(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c, err)
		return
	}

	outcome, err := h.generationService.Generate(c.Request.Context(), requestUser.ID, req)
	if err != nil {
		h.writeGenerateError(c, err)
		return
	}

	if !outcome.Success {
		c.JSON(http.StatusInternalServerError, dto.GenerateFailureResponse{
			Success:      false,
			Error:        outcome.Error,
			Code:         ErrCodeGenerationFailed,
			GenerationID: outcome.GenerationID,
		})
		return
	}

	c.JSON(http.StatusOK, dto.GenerateResponse{
		Success:          true,
		GenerationID:     outcome.GenerationID,
		ImageURL:         outcome.ImageURL,
		CreditsUsed:      outcome.CreditsUsed,
		CreditsRemaining: outcome.CreditsRemaining,
		Metadata:         toMetadataDTO(outcome.Metadata),
	})
}

func (h *HTTPHandler) writeGenerateError(c *gin.Context, err error) {
	var insufficient *service.InsufficientCreditsError
	var storeErr *service.StoreError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusPaymentRequired, dto.InsufficientCreditsResponse{
			Error:            "Insufficient credits",
			Code:             ErrCodeInsufficientCredits,
			CreditsNeeded:    insufficient.Needed,
			CreditsAvailable: insufficient.Available,
		})
	case errors.Is(err, service.ErrEmptyPrompt):
		// 纯空白的 prompt 能通过 min=1，这里按字段校验失败返回
		ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeValidation, "validation failed",
			[]FieldError{{Field: "prompt", Rule: "required", Message: "prompt is required"}})
	case errors.Is(err, service.ErrUserNotFound):
		NotFound(c, ErrCodeUserNotFound, "user not found")
	case errors.Is(err, service.ErrUnsupportedModel):
		BadRequest(c, ErrCodeModelNotFound, "unsupported model")
	case errors.As(err, &storeErr) && storeErr.GenerationID != 0:
		logrus.WithError(err).WithField("generation_id", storeErr.GenerationID).Error("generation_store_failed")
		c.JSON(http.StatusInternalServerError, dto.GenerateFailureResponse{
			Success:      false,
			Error:        "database error",
			Code:         ErrCodeInternalError,
			GenerationID: storeErr.GenerationID,
		})
	default:
		logrus.WithError(err).Error("generation_request_failed")
		InternalError(c, "database error")
	}
}

func toMetadataDTO(m *llm.Metadata) *dto.GenerationMetadata {
	if m == nil {
		return nil
	}
	return &dto.GenerationMetadata{
		Model:        string(m.Model),
		PromptUsed:   m.PromptUsed,
		Timestamp:    m.Timestamp,
		GenerationID: m.GenerationID,
		Resolution:   m.Resolution,
		Description:  m.Description,
	}
}
