package dto

import "time"

// UserSummary is a lightweight user description returned to clients.
type UserSummary struct {
	ID                    uint      `json:"id"`
	Email                 string    `json:"email"`
	DisplayName           string    `json:"displayName"`
	CreditsRemaining      int       `json:"creditsRemaining"`
	SubscriptionTier      string    `json:"subscriptionTier"`
	TotalCreditsPurchased int       `json:"totalCreditsPurchased"`
	CreatedAt             time.Time `json:"createdAt"`
}
