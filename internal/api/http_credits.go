package api

import (
	"context"
	"net/http"

	"sygl/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCredits 返回余额、订阅与最近的生成记录
func (h *HTTPHandler) GetCredits(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := h.creditsService.GetCredits(ctx, requestUser.ID)
	if err != nil {
		h.writeLookupError(c, err, "failed to load credits")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Pricing 公开的价格与模型说明
func (h *HTTPHandler) Pricing(c *gin.Context) {
	c.JSON(http.StatusOK, service.PricingCatalogue())
}
