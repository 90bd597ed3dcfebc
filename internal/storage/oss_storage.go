package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sygl/internal/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/sirupsen/logrus"
)

type ossStorage struct {
	bucket  *oss.Bucket
	prefix  string
	baseURL string
	now     func() time.Time
}

// NewOSSStorage 创建阿里云 OSS 存储。
func NewOSSStorage(cfg config.Config) (Storage, error) {
	endpoint := strings.TrimSpace(cfg.StorageOSSEndpoint)
	if endpoint == "" {
		return nil, errors.New("storage: missing OSS endpoint")
	}
	bucketName := strings.TrimSpace(cfg.StorageOSSBucket)
	if bucketName == "" {
		return nil, errors.New("storage: missing OSS bucket")
	}
	accessKey := strings.TrimSpace(cfg.StorageOSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageOSSAccessKeySecret)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing OSS credentials")
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("storage: create OSS client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: open OSS bucket: %w", err)
	}

	// 默认访问域名为 bucket.endpoint
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	fallback := fmt.Sprintf("https://%s.%s", bucketName, strings.TrimRight(host, "/"))

	return &ossStorage{
		bucket:  bucket,
		prefix:  trimPrefix(cfg.StorageOSSPrefix),
		baseURL: remoteBaseURL(cfg.StoragePublicBaseURL, fallback),
		now:     time.Now,
	}, nil
}

func (s *ossStorage) Save(ctx context.Context, data []byte, opts SaveOptions) (*Object, error) {
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	key := joinPrefix(s.prefix, buildObjectPath(s.now(), opts.Category, opts.BaseName, opts.Extension))
	obj := &Object{
		Key:         key,
		URL:         publicURL(s.baseURL, key),
		Size:        len(data),
		ContentType: resolveContentType(opts),
	}

	if opts.SkipIfExists {
		exists, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("check object: %w", err)
		}
		if exists {
			return obj, nil
		}
	}

	err := s.bucket.PutObject(key, bytes.NewReader(data), oss.WithContext(ctx), oss.ContentType(obj.ContentType))
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"bucket": s.bucket.BucketName,
		"key":    key,
		"size":   len(data),
	}).Debug("oss object stored")
	return obj, nil
}

var _ Storage = (*ossStorage)(nil)
