package db

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
)

// Subscription 记录用户的付费订阅周期，由计费系统写入。
type Subscription struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"column:user_id;index;not null" json:"user_id"`

	StripeCustomerID     string `gorm:"column:stripe_customer_id;type:varchar(255)" json:"stripe_customer_id"`
	StripeSubscriptionID string `gorm:"column:stripe_subscription_id;type:varchar(255);index" json:"stripe_subscription_id"`

	Status             string     `gorm:"column:status;type:varchar(32);index;not null" json:"status"`
	Tier               string     `gorm:"column:tier;type:varchar(32);not null" json:"tier"`
	CurrentPeriodStart *time.Time `gorm:"column:current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `gorm:"column:current_period_end" json:"current_period_end"`
	CreditsIncluded    int        `gorm:"column:credits_included;not null;default:0" json:"credits_included"`
	CreditsResetDate   *time.Time `gorm:"column:credits_reset_date" json:"credits_reset_date"`
}

// TableName 指定表名。
func (Subscription) TableName() string {
	return "subscriptions"
}
