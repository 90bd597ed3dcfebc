package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sygl/internal/config"
)

// NewR2Storage 使用 S3 兼容接口访问 Cloudflare R2。
func NewR2Storage(cfg config.Config) (Storage, error) {
	bucket := strings.TrimSpace(cfg.StorageR2Bucket)
	if bucket == "" {
		return nil, errors.New("storage: missing R2 bucket")
	}

	endpoint := strings.TrimSpace(cfg.StorageR2Endpoint)
	if endpoint == "" {
		accountID := strings.TrimSpace(cfg.StorageR2AccountID)
		if accountID == "" {
			return nil, errors.New("storage: missing R2 endpoint or account id")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}

	region := strings.TrimSpace(cfg.StorageR2Region)
	if region == "" {
		region = "auto"
	}

	client, err := newS3Client(s3ClientOptions{
		Region:          region,
		Endpoint:        endpoint,
		AccessKeyID:     cfg.StorageR2AccessKeyID,
		SecretAccessKey: cfg.StorageR2SecretAccessKey,
		ForcePathStyle:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create R2 client: %w", err)
	}

	// R2 的 S3 端点不支持匿名读取，未配置公开域名时只能返回端点地址
	fallback := strings.TrimRight(ensureScheme(endpoint), "/") + "/" + bucket
	return &remoteS3Storage{
		client:  client,
		bucket:  bucket,
		prefix:  trimPrefix(cfg.StorageR2Prefix),
		baseURL: remoteBaseURL(cfg.StoragePublicBaseURL, fallback),
		now:     time.Now,
	}, nil
}
