package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sygl/internal/cache"
	"sygl/internal/entity/common"
	"sygl/internal/entity/db"
	"sygl/internal/entity/dto"
	"sygl/internal/llm"
	"sygl/internal/metrics"
	"sygl/internal/model"
	"sygl/internal/pricing"
	"sygl/internal/storage"
	"sygl/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	logoCategory       = "logos"
	defaultGenTimeout  = 2 * time.Minute
	reconcileTimeout   = 10 * time.Second
	downloadTimeout    = 60 * time.Second
	errInternalFailure = "generation failed unexpectedly"
)

// Dispatcher 由 llm.Dispatcher 实现
type Dispatcher interface {
	Dispatch(ctx context.Context, req llm.GenerationRequest) llm.Result
}

// GenerationService 封装 检查 → 预扣 → 生成 → 结算/退还 的完整流程
type GenerationService struct {
	repo       model.Repository
	dispatcher Dispatcher
	storage    storage.Storage
	cache      cache.CreditsCache
	httpClient *http.Client
	timeout    time.Duration
}

// NewGenerationService 创建生成服务实例。store 与 creditsCache 可为空。
func NewGenerationService(repo model.Repository, dispatcher Dispatcher, store storage.Storage, creditsCache cache.CreditsCache, timeout time.Duration) *GenerationService {
	if creditsCache == nil {
		creditsCache = cache.NoopCache{}
	}
	if timeout <= 0 {
		timeout = defaultGenTimeout
	}
	return &GenerationService{
		repo:       repo,
		dispatcher: dispatcher,
		storage:    store,
		cache:      creditsCache,
		httpClient: &http.Client{Timeout: downloadTimeout},
		timeout:    timeout,
	}
}

// SetHTTPClient 替换下载上游图片使用的客户端
func (s *GenerationService) SetHTTPClient(client *http.Client) {
	if client != nil {
		s.httpClient = client
	}
}

// GenerateOutcome 是一次已预扣生成的结果。Success 为 false 时积分已退还。
type GenerateOutcome struct {
	GenerationID     uint
	Success          bool
	ImageURL         string
	CreditsUsed      int
	CreditsRemaining int
	Metadata         *llm.Metadata
	Error            string
}

// Generate runs one metered generation for userID.
// Returned errors are ErrEmptyPrompt, ErrUserNotFound, ErrUnsupportedModel, *InsufficientCreditsError or *StoreError;
// a provider failure is reported through the outcome with a nil error.
func (s *GenerationService) Generate(ctx context.Context, userID uint, req dto.GenerateRequest) (*GenerateOutcome, error) {
	modelID, err := pricing.ParseModel(req.Model)
	if err != nil {
		return nil, ErrUnsupportedModel
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	cost := pricing.CostOf(modelID)
	entry := logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"model":   modelID,
		"cost":    cost,
	})

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("load user", 0, err)
	}
	if !pricing.CanAfford(user.CreditsRemaining, modelID) {
		metrics.InsufficientCredits.WithLabelValues(string(modelID)).Inc()
		entry.WithField("balance", user.CreditsRemaining).Info("generation_rejected_insufficient_credits")
		return nil, &InsufficientCreditsError{Needed: cost, Available: user.CreditsRemaining}
	}

	record := &db.Generation{
		UserID:      userID,
		Prompt:      prompt,
		ModelUsed:   string(modelID),
		CreditsUsed: cost,
	}
	balance, err := s.repo.ReserveGeneration(ctx, record)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInsufficientCredits):
			metrics.InsufficientCredits.WithLabelValues(string(modelID)).Inc()
			entry.WithField("balance", balance).Info("generation_reserve_lost_race")
			return nil, &InsufficientCreditsError{Needed: cost, Available: balance}
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, storeError("reserve credits", 0, err)
		}
	}

	entry = entry.WithField("generation_id", record.ID)
	entry.WithField("balance", balance).Info("generation_reserved")
	s.invalidate(ctx, userID)
	metrics.GenerationsInFlight.WithLabelValues(string(modelID)).Inc()

	// 客户端断开不影响生成与结算
	detached := context.WithoutCancel(ctx)
	reconciled := false
	defer func() {
		metrics.GenerationsInFlight.WithLabelValues(string(modelID)).Dec()
		if r := recover(); r != nil {
			if !reconciled {
				entry.WithField("panic", fmt.Sprint(r)).Error("generation_panic_releasing")
				s.release(detached, record, errInternalFailure)
			}
			panic(r)
		}
	}()

	result := s.dispatch(detached, llm.GenerationRequest{
		RecordID:    record.ID,
		Model:       modelID,
		Prompt:      record.Prompt,
		Style:       req.Style,
		Colors:      req.Colors,
		Format:      req.Format,
		Industry:    req.Industry,
		AspectRatio: req.AspectRatio,
	})

	var imageURL, sourceURL string
	if result.Success {
		imageURL, sourceURL, err = s.persistImage(detached, result, entry)
		if err != nil {
			result = llm.Result{Success: false, Error: err.Error()}
		}
	}

	if !result.Success {
		reconciled = true
		remaining, relErr := s.release(detached, record, result.Error)
		if relErr != nil {
			return nil, storeError("release credits", record.ID, relErr)
		}
		return &GenerateOutcome{
			GenerationID:     record.ID,
			Success:          false,
			CreditsRemaining: remaining,
			Error:            result.Error,
		}, nil
	}

	data := common.JSONMap(result.Metadata.ToMap())
	if data == nil {
		data = common.JSONMap{}
	}
	if sourceURL != "" {
		data["sourceUrl"] = sourceURL
	}

	reconciled = true
	settleCtx, cancelSettle := context.WithTimeout(detached, reconcileTimeout)
	defer cancelSettle()
	if err := s.repo.SettleGeneration(settleCtx, record.ID, imageURL, data); err != nil {
		entry.WithError(err).Error("generation_settle_failed")
		// 结算失败时尽量退还，避免扣费却无记录
		if _, relErr := s.release(detached, record, "failed to record generation"); relErr != nil {
			entry.WithError(relErr).Error("generation_release_after_settle_failed")
		}
		return nil, storeError("settle generation", record.ID, err)
	}

	s.invalidate(detached, userID)
	metrics.GenerationsTotal.WithLabelValues(string(modelID), db.GenerationStatusCompleted).Inc()
	if balance != pricing.Unlimited {
		metrics.CreditsCharged.WithLabelValues(string(modelID)).Add(float64(cost))
	}
	entry.WithFields(logrus.Fields{
		"balance":   balance,
		"image_url": imageURL,
	}).Info("generation_completed")

	return &GenerateOutcome{
		GenerationID:     record.ID,
		Success:          true,
		ImageURL:         imageURL,
		CreditsUsed:      result.CreditsUsed,
		CreditsRemaining: balance,
		Metadata:         result.Metadata,
	}, nil
}

func (s *GenerationService) dispatch(ctx context.Context, req llm.GenerationRequest) llm.Result {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	result := s.dispatcher.Dispatch(genCtx, req)
	metrics.ProviderDuration.WithLabelValues(string(req.Model), metrics.Outcome(result.Success)).
		Observe(time.Since(started).Seconds())
	return result
}

// release 标记失败并退还积分，返回退还后的余额
func (s *GenerationService) release(ctx context.Context, record *db.Generation, reason string) (int, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "generation failed"
	}
	relCtx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	entry := logrus.WithFields(logrus.Fields{
		"generation_id": record.ID,
		"user_id":       record.UserID,
		"model":         record.ModelUsed,
	})
	balance, err := s.repo.ReleaseGeneration(relCtx, record.ID, common.JSONMap{"error": reason})
	if err != nil {
		entry.WithError(err).Error("generation_release_failed")
		return 0, err
	}
	s.invalidate(ctx, record.UserID)
	metrics.GenerationsTotal.WithLabelValues(record.ModelUsed, db.GenerationStatusFailed).Inc()
	entry.WithFields(logrus.Fields{
		"balance": balance,
		"error":   reason,
	}).Warn("generation_released")
	return balance, nil
}

func (s *GenerationService) invalidate(ctx context.Context, userID uint) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("credits_cache_invalidate_failed")
	}
}

// persistImage 将上游返回的图片保存到存储，返回对外地址与上游来源地址。
// 仅有内联数据且保存失败时返回错误；远程地址保存失败则保留上游地址。
func (s *GenerationService) persistImage(ctx context.Context, result llm.Result, entry *logrus.Entry) (string, string, error) {
	upstream := strings.TrimSpace(result.ImageURL)
	inline := strings.TrimSpace(result.ImageData)

	if s.storage == nil {
		if upstream != "" {
			return upstream, "", nil
		}
		return utils.EnsureDataURL(inline), "", nil
	}

	if inline != "" {
		url, err := s.saveInline(ctx, inline)
		if err == nil {
			return url, upstream, nil
		}
		entry.WithError(err).Warn("generation_inline_image_save_failed")
		if upstream == "" {
			return "", "", fmt.Errorf("failed to store generated image")
		}
		return upstream, "", nil
	}

	if !utils.IsRemoteURL(upstream) {
		// 占位图等相对地址直接返回
		return upstream, "", nil
	}

	dlCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()
	data, ext, mimeType, err := utils.DownloadMedia(dlCtx, s.httpClient, upstream)
	if err != nil {
		entry.WithError(err).Warn("generation_image_download_failed")
		return upstream, "", nil
	}
	obj, err := s.storage.Save(ctx, data, storage.SaveOptions{
		Category:     logoCategory,
		Extension:    ext,
		BaseName:     storage.ContentHash(data),
		ContentType:  mimeType,
		SkipIfExists: true,
	})
	if err != nil {
		entry.WithError(err).Warn("generation_image_save_failed")
		return upstream, "", nil
	}
	return obj.URL, upstream, nil
}

func (s *GenerationService) saveInline(ctx context.Context, payload string) (string, error) {
	data, ext, mimeType, err := utils.DecodeMediaPayload(payload)
	if err != nil {
		return "", err
	}
	obj, err := s.storage.Save(ctx, data, storage.SaveOptions{
		Category:     logoCategory,
		Extension:    ext,
		BaseName:     storage.ContentHash(data),
		ContentType:  mimeType,
		SkipIfExists: true,
	})
	if err != nil {
		return "", err
	}
	return obj.URL, nil
}
