package model

import (
	"context"

	"sygl/internal/entity/common"
	"sygl/internal/entity/db"
	"sygl/internal/entity/dto"
	"sygl/internal/model/sql"
)

var (
	// ErrInsufficientCredits 预扣时余额不足（含并发竞争失败）
	ErrInsufficientCredits = sql.ErrInsufficientCredits
	// ErrInvalidTransition 记录已处于终态，不能再次结算
	ErrInvalidTransition = sql.ErrInvalidTransition
)

var _ Repository = (*sql.GormRepository)(nil)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户
	CreateUser(ctx context.Context, user *db.User) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByID(ctx context.Context, id uint) (*db.User, error)

	// 积分账本：预扣 / 结算 / 退还
	ReserveGeneration(ctx context.Context, record *db.Generation) (int, error)
	SettleGeneration(ctx context.Context, id uint, imageURL string, data common.JSONMap) error
	ReleaseGeneration(ctx context.Context, id uint, data common.JSONMap) (int, error)

	// 生成记录
	GetGeneration(ctx context.Context, id uint) (*db.Generation, error)
	ListGenerations(ctx context.Context, params *dto.GenerationQuery) ([]db.Generation, *common.Meta, error)
	ListRecentGenerations(ctx context.Context, userID uint, limit int) ([]db.Generation, error)

	// 订阅
	GetActiveSubscription(ctx context.Context, userID uint) (*db.Subscription, error)
	CreateSubscription(ctx context.Context, sub *db.Subscription) error
}
