package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sygl/internal/cache"
	"sygl/internal/entity/db"
	"sygl/internal/entity/dto"
	"sygl/internal/entity/common"
	"sygl/internal/llm"
	"sygl/internal/metrics"
	"sygl/internal/model"
	"sygl/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), []byte("logo-pixels")...)

func newLocalStore(t *testing.T) (*storage.LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "/files")
	require.NoError(t, err)
	return store, dir
}

func TestGenerateSuccessChargesOnce(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "ok@example.com", 5)
	svc := NewGenerationService(repo, succeedWith("/api/placeholder-logo?prompt=tech", ""), nil, nil, time.Minute)

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Tech startup", Model: "gemini-2.5"})
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, 1, out.CreditsUsed)
	assert.Equal(t, 4, out.CreditsRemaining)
	assert.Equal(t, "/api/placeholder-logo?prompt=tech", out.ImageURL)
	assert.Equal(t, 4, balanceOf(t, repo, user.ID))

	record, err := repo.GetGeneration(ctx, out.GenerationID)
	require.NoError(t, err)
	assert.Equal(t, db.GenerationStatusCompleted, record.Status)
	assert.Equal(t, 1, record.CreditsUsed)
	require.NotNil(t, record.ImageURL)
	assert.Equal(t, out.ImageURL, *record.ImageURL)
	assert.Equal(t, "gemini-2.5", record.GenerationData["model"])
	assert.Equal(t, "gen-uuid", record.GenerationData["generationId"])
}

func TestGenerateProviderFailureRefunds(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "fail@example.com", 10)
	svc := NewGenerationService(repo, failWith("Ideogram API error: 500 - upstream"), nil, nil, time.Minute)

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Coffee", Model: "ideogram"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.NotZero(t, out.GenerationID)
	assert.Equal(t, 10, out.CreditsRemaining)
	assert.Contains(t, out.Error, "Ideogram API error")
	assert.Equal(t, 10, balanceOf(t, repo, user.ID))

	record, err := repo.GetGeneration(ctx, out.GenerationID)
	require.NoError(t, err)
	assert.Equal(t, db.GenerationStatusFailed, record.Status)
	assert.Nil(t, record.ImageURL)
	assert.Equal(t, "Ideogram API error: 500 - upstream", record.GenerationData["error"])
}

func TestGenerateInsufficientCredits(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "poor@example.com", 0)
	called := false
	svc := NewGenerationService(repo, dispatchFunc(func(context.Context, llm.GenerationRequest) llm.Result {
		called = true
		return llm.Result{}
	}), nil, nil, time.Minute)

	_, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Bakery", Model: "ideogram"})
	var insufficient *InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 3, insufficient.Needed)
	assert.Equal(t, 0, insufficient.Available)
	assert.False(t, called)

	recent, err := repo.ListRecentGenerations(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestGenerateUnlimitedBalance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "ent@example.com", -1)
	svc := NewGenerationService(repo, succeedWith("https://cdn.example.com/x.png", ""), nil, nil, time.Minute)

	charged := testutil.ToFloat64(metrics.CreditsCharged.WithLabelValues("ideogram"))
	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Bank", Model: "ideogram"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.CreditsUsed)
	assert.Equal(t, -1, out.CreditsRemaining)
	assert.Equal(t, -1, balanceOf(t, repo, user.ID))
	// 不限量账户不计入已扣积分
	assert.Equal(t, charged, testutil.ToFloat64(metrics.CreditsCharged.WithLabelValues("ideogram")))
}

func TestGenerateUnknownUserAndModel(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewGenerationService(repo, failWith("unused"), nil, nil, time.Minute)

	_, err := svc.Generate(context.Background(), 999, dto.GenerateRequest{Prompt: "x", Model: "gemini-2.5"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Generate(context.Background(), 1, dto.GenerateRequest{Prompt: "x", Model: "dall-e"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestGenerateStoresInlineImage(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "inline@example.com", 5)
	store, dir := newLocalStore(t)
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	svc := NewGenerationService(repo, succeedWith("", payload), store, nil, time.Minute)

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Gym", Model: "gemini-2.5"})
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.True(t, strings.HasPrefix(out.ImageURL, "/files/logos/"), out.ImageURL)
	assert.True(t, strings.HasSuffix(out.ImageURL, ".png"), out.ImageURL)

	rel := strings.TrimPrefix(out.ImageURL, "/files/")
	saved, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, saved)
}

func TestGenerateInlineStoreFailureFails(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "badinline@example.com", 5)
	store, _ := newLocalStore(t)
	svc := NewGenerationService(repo, succeedWith("", "!!!not-base64!!!"), store, nil, time.Minute)

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Gym", Model: "gemini-2.5"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 5, balanceOf(t, repo, user.ID))
}

func TestGenerateDownloadsRemoteImage(t *testing.T) {
	ctx := context.Background()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer upstream.Close()

	repo := newTestRepo(t)
	user := seedUser(t, repo, "remote@example.com", 6)
	store, _ := newLocalStore(t)
	svc := NewGenerationService(repo, succeedWith(upstream.URL+"/logo.png", ""), store, nil, time.Minute)
	svc.SetHTTPClient(upstream.Client())

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Shoes", Model: "ideogram"})
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.True(t, strings.HasPrefix(out.ImageURL, "/files/logos/"), out.ImageURL)
	assert.Equal(t, 3, balanceOf(t, repo, user.ID))

	record, err := repo.GetGeneration(ctx, out.GenerationID)
	require.NoError(t, err)
	assert.Equal(t, upstream.URL+"/logo.png", record.GenerationData["sourceUrl"])
}

func TestGenerateKeepsUpstreamURLWhenDownloadFails(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	repo := newTestRepo(t)
	user := seedUser(t, repo, "expired@example.com", 3)
	store, _ := newLocalStore(t)
	svc := NewGenerationService(repo, succeedWith(upstream.URL+"/gone.png", ""), store, nil, time.Minute)

	out, err := svc.Generate(context.Background(), user.ID, dto.GenerateRequest{Prompt: "Shoes", Model: "ideogram"})
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, upstream.URL+"/gone.png", out.ImageURL)
	assert.Equal(t, 0, balanceOf(t, repo, user.ID))
}

func TestGeneratePanicReleasesReservation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "panic@example.com", 4)
	svc := NewGenerationService(repo, dispatchFunc(func(context.Context, llm.GenerationRequest) llm.Result {
		panic("boom")
	}), nil, nil, time.Minute)

	assert.Panics(t, func() {
		_, _ = svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "x", Model: "ideogram"})
	})
	assert.Equal(t, 4, balanceOf(t, repo, user.ID))

	recent, err := repo.ListRecentGenerations(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, db.GenerationStatusFailed, recent[0].Status)
}

func TestGenerateSurvivesClientCancel(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, "gone@example.com", 2)
	ctx, cancel := context.WithCancel(context.Background())

	svc := NewGenerationService(repo, dispatchFunc(func(genCtx context.Context, req llm.GenerationRequest) llm.Result {
		cancel()
		if genCtx.Err() != nil {
			return llm.Result{Error: "cancelled"}
		}
		return succeedWith("/placeholder.svg", "")(genCtx, req)
	}), nil, nil, time.Minute)

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "x", Model: "gemini-2.5"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 1, balanceOf(t, repo, user.ID))
}

func TestGenerateConcurrentRequestsSingleWinner(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, "race@example.com", 3)
	svc := NewGenerationService(repo, succeedWith("/placeholder.svg", ""), nil, nil, time.Minute)

	const workers = 6
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.Generate(context.Background(), user.ID, dto.GenerateRequest{Prompt: "x", Model: "ideogram"})
			mu.Lock()
			defer mu.Unlock()
			var ice *InsufficientCreditsError
			switch {
			case err == nil && out.Success:
				successes++
			case errors.As(err, &ice):
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, insufficient)
	assert.Equal(t, 0, balanceOf(t, repo, user.ID))
}

func TestGenerateInvalidatesCreditsCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	creditsCache := cache.NewRedisCreditsCache(client, time.Minute)

	repo := newTestRepo(t)
	user := seedUser(t, repo, "cache@example.com", 5)
	require.NoError(t, creditsCache.Set(ctx, user.ID, 0, &dto.CreditsResponse{CreditsRemaining: 5}))

	svc := NewGenerationService(repo, succeedWith("/placeholder.svg", ""), nil, creditsCache, time.Minute)
	_, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "x", Model: "gemini-2.5"})
	require.NoError(t, err)

	_, ok, err := creditsCache.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ledgerFaultRepo 让结算或退还返回数据库错误
type ledgerFaultRepo struct {
	model.Repository
	settleErr  error
	releaseErr error
}

func (r ledgerFaultRepo) SettleGeneration(ctx context.Context, id uint, imageURL string, data common.JSONMap) error {
	if r.settleErr != nil {
		return r.settleErr
	}
	return r.Repository.SettleGeneration(ctx, id, imageURL, data)
}

func (r ledgerFaultRepo) ReleaseGeneration(ctx context.Context, id uint, data common.JSONMap) (int, error) {
	if r.releaseErr != nil {
		return 0, r.releaseErr
	}
	return r.Repository.ReleaseGeneration(ctx, id, data)
}

func TestGenerateSettleFailureReleases(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "settle@example.com", 5)
	faulty := ledgerFaultRepo{Repository: repo, settleErr: errors.New("db down")}
	svc := NewGenerationService(faulty, succeedWith("/placeholder.svg", ""), nil, nil, time.Minute)

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Tea", Model: "gemini-2.5"})
	assert.Nil(t, out)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "settle generation", storeErr.Op)
	assert.NotZero(t, storeErr.GenerationID)
	assert.EqualError(t, err, "settle generation: db down")

	record, err := repo.GetGeneration(ctx, storeErr.GenerationID)
	require.NoError(t, err)
	assert.Equal(t, db.GenerationStatusFailed, record.Status)
	assert.Equal(t, 5, balanceOf(t, repo, user.ID))
}

func TestGenerateReleaseFailureReportsRecord(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "release@example.com", 10)
	faulty := ledgerFaultRepo{Repository: repo, releaseErr: errors.New("db down")}
	svc := NewGenerationService(faulty, failWith("Ideogram API error: 500"), nil, nil, time.Minute)

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "Tea", Model: "ideogram"})
	assert.Nil(t, out)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "release credits", storeErr.Op)
	require.NotZero(t, storeErr.GenerationID)

	// 退还失败时记录保持 pending，余额仍为预扣后的值
	record, err := repo.GetGeneration(ctx, storeErr.GenerationID)
	require.NoError(t, err)
	assert.Equal(t, db.GenerationStatusPending, record.Status)
	assert.Equal(t, 7, balanceOf(t, repo, user.ID))
}

func TestGenerateRejectsBlankPrompt(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "blank@example.com", 5)
	dispatched := false
	svc := NewGenerationService(repo, dispatchFunc(func(context.Context, llm.GenerationRequest) llm.Result {
		dispatched = true
		return llm.Result{}
	}), nil, nil, time.Minute)

	_, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: " \n\t ", Model: "gemini-2.5"})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.False(t, dispatched)
	assert.Equal(t, 5, balanceOf(t, repo, user.ID))

	recent, err := repo.ListRecentGenerations(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestGeneratePassesRecordIDToProvider(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "record@example.com", 5)

	var seen uint
	svc := NewGenerationService(repo, dispatchFunc(func(ctx context.Context, req llm.GenerationRequest) llm.Result {
		seen = req.RecordID
		return succeedWith("/placeholder.svg", "")(ctx, req)
	}), nil, nil, time.Minute)

	out, err := svc.Generate(ctx, user.ID, dto.GenerateRequest{Prompt: "  Tea  ", Model: "gemini-2.5"})
	require.NoError(t, err)
	assert.Equal(t, out.GenerationID, seen)

	record, err := repo.GetGeneration(ctx, out.GenerationID)
	require.NoError(t, err)
	assert.Equal(t, "Tea", record.Prompt)
}
