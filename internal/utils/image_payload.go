package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxMediaBytes 限制下载的图片大小
const maxMediaBytes = 20 << 20

// DecodeMediaPayload decodes an inline base64 or data URL payload and returns
// the raw bytes together with a guessed file extension and mime type.
func DecodeMediaPayload(payload string) ([]byte, string, string, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, "", "", fmt.Errorf("empty media payload")
	}

	mimeType, base64Payload := SplitDataURL(trimmed)
	base64Payload = strings.TrimSpace(base64Payload)
	if base64Payload == "" {
		return nil, "", "", fmt.Errorf("empty base64 payload")
	}

	data, err := base64.StdEncoding.DecodeString(base64Payload)
	if err != nil {
		return nil, "", "", fmt.Errorf("decode base64: %w", err)
	}

	// 以实际内容为准，data URL 声明的类型可能不准确
	if detected := http.DetectContentType(data); strings.HasPrefix(detected, "image/") {
		mimeType = detected
	}
	ext := ExtensionFromMime(mimeType)
	if ext == "" {
		ext = "bin"
	}

	return data, ext, mimeType, nil
}

// DownloadMedia fetches a remote asset with the given client.
func DownloadMedia(ctx context.Context, client *http.Client, url string) ([]byte, string, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", "", fmt.Errorf("download image http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("read image body: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, "", "", fmt.Errorf("image exceeds %d bytes", maxMediaBytes)
	}
	if len(data) == 0 {
		return nil, "", "", fmt.Errorf("empty image body")
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	ext := ExtensionFromMime(mimeType)
	if ext == "" {
		ext = "bin"
	}
	return data, ext, mimeType, nil
}

// IsRemoteURL reports whether value is an absolute http(s) URL.
func IsRemoteURL(value string) bool {
	value = strings.TrimSpace(value)
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}
