package api

import (
	"context"
	"net/http"
	"strconv"

	"sygl/internal/entity/dto"

	"github.com/gin-gonic/gin"
)

// ListGenerations 分页列出当前用户的生成记录
func (h *HTTPHandler) ListGenerations(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var params dto.GenerationQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
	defer cancel()

	resp, err := h.historyService.ListGenerations(ctx, requestUser.ID, params)
	if err != nil {
		h.writeLookupError(c, err, "failed to load generations")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetGeneration 返回单条生成记录
func (h *HTTPHandler) GetGeneration(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid generation id")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := h.historyService.GetGeneration(ctx, requestUser.ID, uint(id))
	if err != nil {
		h.writeLookupError(c, err, "failed to load generation")
		return
	}
	c.JSON(http.StatusOK, resp)
}
