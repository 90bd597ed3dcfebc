package service

import (
	"sygl/internal/entity/dto"
	"sygl/internal/pricing"
)

// PricingCatalogue builds the public tier and model listing.
func PricingCatalogue() dto.PricingResponse {
	models := pricing.Models()
	tiers := pricing.Tiers()

	resp := dto.PricingResponse{
		Tiers:  make([]dto.TierItem, 0, len(tiers)),
		Models: make([]pricing.ModelInfo, 0, len(models)),
	}
	for _, tier := range tiers {
		estimates := make(map[pricing.Model]int, len(models))
		for _, m := range models {
			estimates[m] = pricing.EstimatedGenerations(tier.MonthlyCredits, m)
		}
		resp.Tiers = append(resp.Tiers, dto.TierItem{SubscriptionTier: tier, EstimatedGenerations: estimates})
	}
	for _, m := range models {
		resp.Models = append(resp.Models, pricing.DescribeModel(m))
	}
	return resp
}
