package service

import (
	"context"
	"errors"

	"sygl/internal/cache"
	"sygl/internal/entity/converter"
	"sygl/internal/entity/db"
	"sygl/internal/entity/dto"
	"sygl/internal/model"
	"sygl/internal/pricing"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// recentGenerationsLimit 积分页面展示的最近生成条数
const recentGenerationsLimit = 10

// CreditsService 组装用户积分概览，可选地走 Redis 缓存
type CreditsService struct {
	repo  model.Repository
	cache cache.CreditsCache
}

func NewCreditsService(repo model.Repository, creditsCache cache.CreditsCache) *CreditsService {
	if creditsCache == nil {
		creditsCache = cache.NoopCache{}
	}
	return &CreditsService{repo: repo, cache: creditsCache}
}

// GetCredits returns the balance, tier, active subscription and recent history of userID.
func (s *CreditsService) GetCredits(ctx context.Context, userID uint) (*dto.CreditsResponse, error) {
	entry := logrus.WithField("user_id", userID)

	cached, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		entry.WithError(err).Warn("credits_cache_get_failed")
	} else if ok {
		return cached, nil
	}

	// 读库前取版本号，期间若有 Invalidate 则放弃回写
	version, err := s.cache.Version(ctx, userID)
	cacheable := err == nil
	if err != nil {
		entry.WithError(err).Warn("credits_cache_version_failed")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("load user", 0, err)
	}

	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, storeError("load subscription", 0, err)
	}
	recent, err := s.repo.ListRecentGenerations(ctx, userID, recentGenerationsLimit)
	if err != nil {
		return nil, storeError("list recent generations", 0, err)
	}

	resp := &dto.CreditsResponse{
		CreditsRemaining:  user.CreditsRemaining,
		SubscriptionTier:  user.SubscriptionTier,
		Subscription:      converter.SubscriptionToSummary(sub),
		RecentGenerations: converter.GenerationsToSummaries(recent),
		IsUnlimited:       user.CreditsRemaining == pricing.Unlimited,
	}

	// 进行中的生成随时会结算或退还，不缓存
	if cacheable && !hasPending(recent) {
		if err := s.cache.Set(ctx, userID, version, resp); err != nil {
			entry.WithError(err).Warn("credits_cache_set_failed")
		}
	}
	return resp, nil
}

func hasPending(records []db.Generation) bool {
	for i := range records {
		if records[i].Status == db.GenerationStatusPending {
			return true
		}
	}
	return false
}
