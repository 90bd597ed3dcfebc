package api

import (
	"strings"

	"sygl/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if isAbsoluteURL(trimmed) {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}

func isAbsoluteURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// mountFiles 本地存储时直接提供生成的图片文件
func (h *HTTPHandler) mountFiles(r *gin.Engine) {
	local, ok := h.storage.(storage.LocalBaseDirProvider)
	if !ok || isAbsoluteURL(h.storagePublicBase) || h.storagePublicBase == "" {
		return
	}
	r.Static(h.storagePublicBase, local.LocalBaseDir())
	logrus.WithFields(logrus.Fields{
		"prefix": h.storagePublicBase,
		"dir":    local.LocalBaseDir(),
	}).Info("serving local storage")
}
