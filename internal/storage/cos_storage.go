package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sygl/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/tencentyun/cos-go-sdk-v5"
)

type cosStorage struct {
	client  *cos.Client
	prefix  string
	baseURL string
	now     func() time.Time
}

// NewCOSStorage 创建腾讯云 COS 存储。
func NewCOSStorage(cfg config.Config) (Storage, error) {
	bucketURL := strings.TrimSpace(cfg.StorageCOSBucketURL)
	if bucketURL == "" {
		return nil, errors.New("storage: missing COS bucket URL")
	}
	parsedURL, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse COS bucket URL: %w", err)
	}

	secretID := strings.TrimSpace(cfg.StorageCOSSecretID)
	secretKey := strings.TrimSpace(cfg.StorageCOSSecretKey)
	if secretID == "" || secretKey == "" {
		return nil, errors.New("storage: missing COS credentials")
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: parsedURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  secretID,
			SecretKey: secretKey,
		},
	})

	return &cosStorage{
		client:  client,
		prefix:  trimPrefix(cfg.StorageCOSPrefix),
		baseURL: remoteBaseURL(cfg.StoragePublicBaseURL, bucketURL),
		now:     time.Now,
	}, nil
}

func (s *cosStorage) Save(ctx context.Context, data []byte, opts SaveOptions) (*Object, error) {
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
		resp, err := s.client.Object.Head(ctx, key, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err == nil {
			return obj, nil
		}
		if !cos.IsNotFoundError(err) {
			return nil, fmt.Errorf("head object: %w", err)
		}
	}

	resp, err := s.client.Object.Put(ctx, key, bytes.NewReader(data), &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: obj.ContentType},
	})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"key":  key,
		"size": len(data),
	}).Debug("cos object stored")
	return obj, nil
}

var _ Storage = (*cosStorage)(nil)
