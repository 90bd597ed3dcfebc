package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sygl/internal/config"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC) }

func TestBuildObjectPath(t *testing.T) {
	tests := []struct {
		name     string
		category string
		base     string
		ext      string
		want     string
	}{
		{name: "plain", category: "logos", base: "abc", ext: "png", want: "logos/2026/03/07/abc.png"},
		{name: "sanitised", category: "Logos/../x", base: "My Logo!", ext: ".PNG", want: "logosx/2026/03/07/my-logo.png"},
		{name: "defaults", category: "", base: "a", ext: "", want: "misc/2026/03/07/a.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildObjectPath(fixedNow(), tt.category, tt.base, tt.ext))
		})
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "/files/a/b.png", publicURL("/files/", "/a/b.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", publicURL("https://cdn.example.com", "a.png"))
	assert.Equal(t, "/a.png", publicURL("", "a.png"))
	assert.Equal(t, "https://cdn.example.com", remoteBaseURL("https://cdn.example.com", "https://fallback"))
	assert.Equal(t, "https://fallback", remoteBaseURL("/files", "https://fallback"))
}

func TestResolveContentType(t *testing.T) {
	assert.Equal(t, "image/png", resolveContentType(SaveOptions{Extension: "png"}))
	assert.Equal(t, "image/webp", resolveContentType(SaveOptions{Extension: "png", ContentType: "image/webp"}))
	assert.Equal(t, "application/octet-stream", resolveContentType(SaveOptions{Extension: "zzz"}))
}

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/files")
	require.NoError(t, err)
	store.now = fixedNow

	data := []byte("\x89PNG fake")
	obj, err := store.Save(context.Background(), data, SaveOptions{Category: "logos", BaseName: ContentHash(data), Extension: "png", SkipIfExists: true})
	require.NoError(t, err)
	assert.Equal(t, "/files/"+obj.Key, obj.URL)
	assert.Equal(t, "image/png", obj.ContentType)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	again, err := store.Save(context.Background(), data, SaveOptions{Category: "logos", BaseName: ContentHash(data), Extension: "png", SkipIfExists: true})
	require.NoError(t, err)
	assert.Equal(t, obj.Key, again.Key)

	_, err = store.Save(context.Background(), nil, SaveOptions{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, data, SaveOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	existing map[string]bool
	puts     []*s3.PutObjectInput
	headErr  error
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if f.existing[*in.Key] {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestRemoteS3Save(t *testing.T) {
	fake := &fakeS3{existing: map[string]bool{}}
	store := &remoteS3Storage{client: fake, bucket: "logos", prefix: "prod", baseURL: "https://cdn.example.com", now: fixedNow}

	obj, err := store.Save(context.Background(), []byte("img"), SaveOptions{Category: "logos", BaseName: "h1", Extension: "png", SkipIfExists: true})
	require.NoError(t, err)
	assert.Equal(t, "prod/logos/2026/03/07/h1.png", obj.Key)
	assert.Equal(t, "https://cdn.example.com/prod/logos/2026/03/07/h1.png", obj.URL)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "image/png", *fake.puts[0].ContentType)

	fake.existing[obj.Key] = true
	_, err = store.Save(context.Background(), []byte("img"), SaveOptions{Category: "logos", BaseName: "h1", Extension: "png", SkipIfExists: true})
	require.NoError(t, err)
	assert.Len(t, fake.puts, 1)

	fake.headErr = errors.New("access denied")
	_, err = store.Save(context.Background(), []byte("img"), SaveOptions{Category: "logos", BaseName: "h2", Extension: "png", SkipIfExists: true})
	assert.Error(t, err)
}

func TestNewStorageValidation(t *testing.T) {
	_, err := NewStorage(config.Config{StorageType: "ftp"})
	assert.Error(t, err)

	_, err = NewStorage(config.Config{StorageType: TypeS3, StorageS3Region: "us-east-1"})
	assert.Error(t, err)

	_, err = NewStorage(config.Config{StorageType: TypeR2, StorageR2Bucket: "b"})
	assert.Error(t, err)

	_, err = NewStorage(config.Config{StorageType: TypeOSS})
	assert.Error(t, err)

	_, err = NewStorage(config.Config{StorageType: TypeCOS, StorageCOSBucketURL: "https://b.cos.ap-guangzhou.myqcloud.com"})
	assert.Error(t, err)

	store, err := NewStorage(config.Config{StorageType: TypeS3, StorageS3Bucket: "b", StorageS3Region: "us-east-1", StorageS3AccessKeyID: "k", StorageS3SecretAccessKey: "s", StoragePublicBaseURL: "/files"})
	require.NoError(t, err)
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com", store.(*remoteS3Storage).baseURL)

	local, err := NewStorage(config.Config{StorageLocalDir: t.TempDir()})
	require.NoError(t, err)
	_, ok := local.(LocalBaseDirProvider)
	assert.True(t, ok)
}

func TestNewS3ClientCredentialSources(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "missing-config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "missing-credentials"))

	client, err := newS3Client(s3ClientOptions{Region: "eu-west-1", AllowDefaultChain: true})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", client.Options().Region)

	creds, err := client.Options().Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-key", creds.AccessKeyID)

	_, err = newS3Client(s3ClientOptions{Region: "eu-west-1"})
	assert.Error(t, err)

	static, err := newS3Client(s3ClientOptions{Region: "auto", AccessKeyID: "k", SecretAccessKey: "s", Endpoint: "r2.example.com"})
	require.NoError(t, err)
	require.NotNil(t, static.Options().BaseEndpoint)
	assert.Equal(t, "https://r2.example.com", *static.Options().BaseEndpoint)
}
