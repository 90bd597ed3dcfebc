package dto

import "sygl/internal/pricing"

// TierItem is a tier with per-model generation estimates.
type TierItem struct {
	pricing.SubscriptionTier
	EstimatedGenerations map[pricing.Model]int `json:"estimatedGenerations"`
}

// PricingResponse is the body of GET /api/pricing.
type PricingResponse struct {
	Tiers  []TierItem          `json:"tiers"`
	Models []pricing.ModelInfo `json:"models"`
}
