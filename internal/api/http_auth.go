package api

import (
	"context"
	"errors"
	"net/http"

	"sygl/internal/auth"
	"sygl/internal/entity/dto"
	"sygl/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *HTTPHandler) Register(c *gin.Context) {
	var req dto.AuthRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := h.authService.Register(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			ErrorResponse(c, http.StatusConflict, ErrCodeEmailExists, "email already registered")
		case errors.Is(err, auth.ErrPasswordTooLong):
			BadRequest(c, ErrCodeInvalidRequest, "password is too long")
		default:
			logrus.WithError(err).Error("failed to register user")
			InternalError(c, "failed to register user")
		}
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req dto.AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := h.authService.Login(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
			return
		}
		logrus.WithError(err).Error("login failed")
		InternalError(c, "failed to login")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) Me(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.authService.Me(ctx, requestUser.ID)
	if err != nil {
		h.writeLookupError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// writeLookupError 统一处理查询类接口的服务层错误
func (h *HTTPHandler) writeLookupError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		NotFound(c, ErrCodeUserNotFound, "user not found")
	case errors.Is(err, service.ErrGenerationNotFound):
		NotFound(c, ErrCodeGenerationNotFound, "generation not found")
	default:
		logrus.WithError(err).Error(message)
		InternalError(c, message)
	}
}
