package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sygl/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

type s3ClientOptions struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ForcePathStyle  bool
	// 未配置静态密钥时使用默认凭证链（环境变量、共享配置、实例角色）
	AllowDefaultChain bool
}

// s3API 是 remoteS3Storage 用到的客户端子集，便于测试替换。
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type remoteS3Storage struct {
	client  s3API
	bucket  string
	prefix  string
	baseURL string
	now     func() time.Time
}

func (s *remoteS3Storage) Save(ctx context.Context, data []byte, opts SaveOptions) (*Object, error) {
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
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
		if err == nil {
			return obj, nil
		}
		if !isS3NotFound(err) {
			return nil, fmt.Errorf("head object: %w", err)
		}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(obj.ContentType),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
		"size":   len(data),
	}).Debug("s3 object stored")
	return obj, nil
}

var _ Storage = (*remoteS3Storage)(nil)

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := strings.ToLower(apiErr.ErrorCode())
		if code == "notfound" || code == "nosuchkey" || code == "404" {
			return true
		}
	}
	return false
}

// remoteBaseURL 只接受绝对地址，否则使用后端自身的访问域名。
func remoteBaseURL(configured, fallback string) string {
	configured = strings.TrimSpace(configured)
	if strings.HasPrefix(configured, "http://") || strings.HasPrefix(configured, "https://") {
		return configured
	}
	return fallback
}

func NewS3Storage(cfg config.Config) (Storage, error) {
	bucket := strings.TrimSpace(cfg.StorageS3Bucket)
	if bucket == "" {
		return nil, errors.New("storage: missing S3 bucket")
	}
	region := strings.TrimSpace(cfg.StorageS3Region)
	if region == "" {
		return nil, errors.New("storage: missing S3 region")
	}

	endpoint := strings.TrimSpace(cfg.StorageS3Endpoint)
	client, err := newS3Client(s3ClientOptions{
		Region:          region,
		Endpoint:        endpoint,
		AccessKeyID:     strings.TrimSpace(cfg.StorageS3AccessKeyID),
		SecretAccessKey: strings.TrimSpace(cfg.StorageS3SecretAccessKey),
		SessionToken:    strings.TrimSpace(cfg.StorageS3SessionToken),
		ForcePathStyle:  cfg.StorageS3ForcePathStyle,

		AllowDefaultChain: true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create S3 client: %w", err)
	}

	fallback := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	if endpoint != "" {
		fallback = strings.TrimRight(ensureScheme(endpoint), "/") + "/" + bucket
	}

	return &remoteS3Storage{
		client:  client,
		bucket:  bucket,
		prefix:  trimPrefix(cfg.StorageS3Prefix),
		baseURL: remoteBaseURL(cfg.StoragePublicBaseURL, fallback),
		now:     time.Now,
	}, nil
}

func ensureScheme(endpoint string) string {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "https://" + endpoint
	}
	return endpoint
}

func newS3Client(opts s3ClientOptions) (*s3.Client, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		return nil, errors.New("storage: missing S3 region")
	}
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)

	var awsCfg aws.Config
	switch {
	case accessKey != "" && secretKey != "":
		awsCfg = aws.Config{
			Region: region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(accessKey, secretKey, strings.TrimSpace(opts.SessionToken)),
			),
		}
	case opts.AllowDefaultChain:
		loaded, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("storage: load default aws config: %w", err)
		}
		awsCfg = loaded
	default:
		return nil, errors.New("storage: missing S3 credentials")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(ensureScheme(endpoint))
		}
	})

	return client, nil
}
