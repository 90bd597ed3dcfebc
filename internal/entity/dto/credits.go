package dto

import "time"

// SubscriptionSummary is the active subscription shown with the balance.
type SubscriptionSummary struct {
	Tier             string     `json:"tier"`
	CreditsIncluded  int        `json:"creditsIncluded"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
	Status           string     `json:"status"`
}

// CreditsResponse is the body of GET /api/user/credits.
type CreditsResponse struct {
	CreditsRemaining  int                  `json:"creditsRemaining"`
	SubscriptionTier  string               `json:"subscriptionTier"`
	Subscription      *SubscriptionSummary `json:"subscription"`
	RecentGenerations []GenerationSummary  `json:"recentGenerations"`
	IsUnlimited       bool                 `json:"isUnlimited"`
}
