package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"sygl/internal/auth"
	"sygl/internal/entity/converter"
	"sygl/internal/entity/db"
	"sygl/internal/entity/dto"
	"sygl/internal/model"
	"sygl/internal/pricing"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthService 处理注册、登录与当前用户查询
type AuthService struct {
	repo       model.Repository
	tokens     *auth.Manager
	hasher     auth.Hasher
	signupTier pricing.SubscriptionTier
	now        func() time.Time
}

// NewAuthService 创建认证服务，新用户按 signupTier 获得初始积分
func NewAuthService(repo model.Repository, tokens *auth.Manager, hasher auth.Hasher, signupTier string) (*AuthService, error) {
	tier, err := pricing.LookupTier(signupTier)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		repo:       repo,
		tokens:     tokens,
		hasher:     hasher,
		signupTier: tier,
		now:        time.Now,
	}, nil
}

// Register creates an account on the signup tier and issues a token.
func (s *AuthService) Register(ctx context.Context, req dto.AuthRegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError("lookup user", 0, err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.Split(email, "@")[0]
	}
	user := &db.User{
		Email:            email,
		PasswordHash:     hash,
		DisplayName:      displayName,
		CreditsRemaining: s.signupTier.MonthlyCredits,
		SubscriptionTier: string(s.signupTier.ID),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// 并发注册时查重会同时通过，由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, storeError("create user", 0, err)
	}

	now := s.now().UTC()
	periodEnd := now.AddDate(0, 1, 0)
	sub := &db.Subscription{
		UserID:             user.ID,
		Status:             db.SubscriptionStatusActive,
		Tier:               string(s.signupTier.ID),
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &periodEnd,
		CreditsIncluded:    s.signupTier.MonthlyCredits,
		CreditsResetDate:   &periodEnd,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		// 订阅记录只用于展示，失败不影响注册
		logrus.WithError(err).WithField("user_id", user.ID).Warn("signup_subscription_create_failed")
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"tier":    user.SubscriptionTier,
		"credits": user.CreditsRemaining,
	}).Info("user_registered")
	return s.issue(user)
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, req dto.AuthLoginRequest) (*dto.AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("lookup user", 0, err)
	}
	if err := s.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Me returns the summary of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID uint) (*dto.UserSummary, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("load user", 0, err)
	}
	summary := converter.UserToSummary(user)
	return &summary, nil
}

func (s *AuthService) issue(user *db.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      converter.UserToSummary(user),
	}, nil
}
