package db

import "time"

// User 表示持久化的用户账户及其积分余额。
// CreditsRemaining 为 -1 表示无限额度。
type User struct {
	ID                    uint      `gorm:"primarykey" json:"id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	Email                 string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash          string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	DisplayName           string    `gorm:"column:display_name;type:varchar(255)" json:"display_name"`
	CreditsRemaining      int       `gorm:"column:credits_remaining;not null;default:0" json:"credits_remaining"`
	SubscriptionTier      string    `gorm:"column:subscription_tier;type:varchar(32);index;not null;default:basic" json:"subscription_tier"`
	TotalCreditsPurchased int       `gorm:"column:total_credits_purchased;not null;default:0" json:"total_credits_purchased"`
}

// TableName 指定表名。
func (User) TableName() string {
	return "users"
}
