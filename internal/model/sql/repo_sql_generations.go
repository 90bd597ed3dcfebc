package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sygl/internal/entity/common"
	"sygl/internal/entity/db"
	"sygl/internal/entity/dto"
	"sygl/internal/pricing"

	"gorm.io/gorm"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidTransition   = errors.New("generation is not pending")
)

// ReserveGeneration 在同一事务中原子地预扣积分并插入 pending 记录。
// 条件更新保证余额不会被并发请求扣成负数；无限额度用户余额保持 -1。
// 返回预扣后的余额；余额不足时返回 ErrInsufficientCredits 以及当前余额。
func (r *GormRepository) ReserveGeneration(ctx context.Context, record *db.Generation) (int, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if record == nil || record.UserID == 0 {
		return 0, fmt.Errorf("invalid generation record")
	}
	if record.CreditsUsed <= 0 {
		return 0, fmt.Errorf("invalid credit cost: %d", record.CreditsUsed)
	}
	record.ID = 0
	record.Status = db.GenerationStatusPending

	balance := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cost := record.CreditsUsed
		result := tx.Model(&db.User{}).
			Where("id = ? AND (credits_remaining = ? OR credits_remaining >= ?)", record.UserID, pricing.Unlimited, cost).
			Update("credits_remaining", gorm.Expr(
				"CASE WHEN credits_remaining = ? THEN ? ELSE credits_remaining - ? END",
				pricing.Unlimited, pricing.Unlimited, cost,
			))
		if result.Error != nil {
			return fmt.Errorf("failed to reserve credits: %w", result.Error)
		}

		current, err := loadBalance(tx, record.UserID)
		if err != nil {
			return err
		}
		balance = current
		if result.RowsAffected == 0 {
			return ErrInsufficientCredits
		}

		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create generation record: %w", err)
		}
		return nil
	})
	if err != nil {
		return balance, err
	}
	return balance, nil
}

// SettleGeneration 将 pending 记录标记为 completed，积分已在预扣时扣除。
func (r *GormRepository) SettleGeneration(ctx context.Context, id uint, imageURL string, data common.JSONMap) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid generation id")
	}

	updates := map[string]interface{}{
		"status":          db.GenerationStatusCompleted,
		"generation_data": data,
	}
	if trimmed := strings.TrimSpace(imageURL); trimmed != "" {
		updates["image_url"] = trimmed
	}

	result := r.db.WithContext(ctx).
		Model(&db.Generation{}).
		Where("id = ? AND status = ?", id, db.GenerationStatusPending).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to settle generation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.transitionError(ctx, r.db, id)
	}
	return nil
}

// ReleaseGeneration 将 pending 记录标记为 failed 并退还预扣积分，返回退还后的余额。
func (r *GormRepository) ReleaseGeneration(ctx context.Context, id uint, data common.JSONMap) (int, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return 0, fmt.Errorf("invalid generation id")
	}

	balance := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record db.Generation
		if err := tx.Select("id", "user_id", "credits_used", "status").First(&record, id).Error; err != nil {
			return err
		}

		result := tx.Model(&db.Generation{}).
			Where("id = ? AND status = ?", id, db.GenerationStatusPending).
			Updates(map[string]interface{}{
				"status":          db.GenerationStatusFailed,
				"generation_data": data,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to release generation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		refund := tx.Model(&db.User{}).
			Where("id = ? AND credits_remaining <> ?", record.UserID, pricing.Unlimited).
			Update("credits_remaining", gorm.Expr("credits_remaining + ?", record.CreditsUsed))
		if refund.Error != nil {
			return fmt.Errorf("failed to refund credits: %w", refund.Error)
		}

		current, err := loadBalance(tx, record.UserID)
		if err != nil {
			return err
		}
		balance = current
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// GetGeneration retrieves a single generation record by ID.
func (r *GormRepository) GetGeneration(ctx context.Context, id uint) (*db.Generation, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid generation id")
	}

	var record db.Generation
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load generation: %w", err)
	}
	return &record, nil
}

// ListGenerations retrieves a user's paginated history.
func (r *GormRepository) ListGenerations(ctx context.Context, params *dto.GenerationQuery) ([]db.Generation, *common.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	if params == nil || params.UserID == 0 {
		return nil, nil, fmt.Errorf("user id is required")
	}

	query := r.db.WithContext(ctx).
		Model(&db.Generation{}).
		Where("user_id = ?", params.UserID)
	if trimmed := strings.TrimSpace(params.Status); trimmed != "" {
		query = query.Where("status = ?", trimmed)
	}
	if trimmed := strings.TrimSpace(params.Model); trimmed != "" {
		query = query.Where("model_used = ?", trimmed)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, nil, err
	}

	page, pageSize, offset := pageWindow(params.BaseParams)

	var records []db.Generation
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(totalCount, page, pageSize)
	return records, meta, nil
}

// ListRecentGenerations returns up to limit records, newest first.
func (r *GormRepository) ListRecentGenerations(ctx context.Context, userID uint, limit int) ([]db.Generation, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 10
	}

	var records []db.Generation
	err := r.db.WithContext(ctx).
		Select("id", "created_at", "credits_used", "model_used", "status").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	return records, nil
}

// transitionError distinguishes a missing record from one already settled.
func (r *GormRepository) transitionError(ctx context.Context, tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&db.Generation{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrInvalidTransition
}

func loadBalance(tx *gorm.DB, userID uint) (int, error) {
	var user db.User
	if err := tx.Select("id", "credits_remaining").First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.CreditsRemaining, nil
}
