package sql

import (
	"context"
	"errors"
	"fmt"

	"sygl/internal/entity/db"

	"gorm.io/gorm"
)

// GetActiveSubscription returns the user's current active subscription, or nil when there is none.
func (r *GormRepository) GetActiveSubscription(ctx context.Context, userID uint) (*db.Subscription, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	var sub db.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, db.SubscriptionStatusActive).
		Order("current_period_end DESC, id DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// CreateSubscription inserts a subscription row.
func (r *GormRepository) CreateSubscription(ctx context.Context, sub *db.Subscription) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if sub == nil || sub.UserID == 0 {
		return fmt.Errorf("invalid subscription")
	}
	return r.db.WithContext(ctx).Create(sub).Error
}
