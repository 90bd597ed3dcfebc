package pricing

import (
	"fmt"
	"strings"
)

// SubscriptionTier is static reference data for a paid plan.
type SubscriptionTier struct {
	ID             Tier     `json:"id"`
	Name           string   `json:"name"`
	Price          int      `json:"price"`
	MonthlyCredits int      `json:"monthlyCredits"`
	Popular        bool     `json:"popular"`
	Features       []string `json:"features"`
}

// IsUnlimited reports whether the tier skips credit deduction.
func (t SubscriptionTier) IsUnlimited() bool {
	return t.MonthlyCredits == Unlimited
}

var subscriptionTiers = []SubscriptionTier{
	{
		ID:             TierBasic,
		Name:           "Basic",
		Price:          9,
		MonthlyCredits: 50,
		Features: []string{
			"50 logo generations (Gemini 2.5)",
			"~16 premium generations (Ideogram)",
			"Standard exports (PNG, JPG)",
			"Basic templates",
			"Email support",
			"Commercial license",
		},
	},
	{
		ID:             TierPro,
		Name:           "Pro",
		Price:          24,
		MonthlyCredits: 150,
		Popular:        true,
		Features: []string{
			"150 logo generations (Gemini 2.5)",
			"~50 premium generations (Ideogram)",
			"HD exports + SVG",
			"Premium templates",
			"Priority support",
			"Advanced editor",
			"Brand guidelines",
		},
	},
	{
		ID:             TierStudio,
		Name:           "Studio",
		Price:          49,
		MonthlyCredits: 500,
		Features: []string{
			"500 logo generations (Gemini 2.5)",
			"~166 premium generations (Ideogram)",
			"4K exports + all formats",
			"Unlimited templates",
			"White-label solution",
			"Dedicated support",
			"Team collaboration",
		},
	},
	{
		ID:             TierEnterprise,
		Name:           "Enterprise",
		Price:          199,
		MonthlyCredits: Unlimited,
		Features: []string{
			"Unlimited logo generations",
			"All AI models included",
			"API access with 10,000 calls/month",
			"Custom branding",
			"Priority queue",
			"Dedicated account manager",
			"Custom integrations",
			"SLA guarantee",
		},
	},
}

// Tiers returns a copy of the tier catalogue ordered by price.
func Tiers() []SubscriptionTier {
	out := make([]SubscriptionTier, len(subscriptionTiers))
	copy(out, subscriptionTiers)
	return out
}

// LookupTier finds a tier by its label.
func LookupTier(value string) (SubscriptionTier, error) {
	id := Tier(strings.ToLower(strings.TrimSpace(value)))
	for _, tier := range subscriptionTiers {
		if tier.ID == id {
			return tier, nil
		}
	}
	return SubscriptionTier{}, fmt.Errorf("unknown subscription tier: %s", value)
}

// ModelInfo describes a model for the pricing page.
type ModelInfo struct {
	ID                   Model    `json:"id"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	CreditsPerGeneration int      `json:"creditsPerGeneration"`
	Speed                string   `json:"speed"`
	Quality              string   `json:"quality"`
	Features             []string `json:"features"`
}

// DescribeModel returns display information for m.
func DescribeModel(m Model) ModelInfo {
	if m == ModelGemini {
		return ModelInfo{
			ID:                   m,
			Name:                 "Gemini 2.5",
			Description:          "Google's latest AI model for fast, cost-effective logo generation",
			CreditsPerGeneration: CostOf(m),
			Speed:                "Fast (2-5 seconds)",
			Quality:              "Good",
			Features: []string{
				"Fast generation",
				"Cost-effective",
				"Good for rapid prototyping",
				"Multiple style options",
			},
		}
	}
	return ModelInfo{
		ID:                   m,
		Name:                 "Ideogram V2",
		Description:          "Premium AI model for high-quality, detailed logo generation",
		CreditsPerGeneration: CostOf(m),
		Speed:                "Slower (10-30 seconds)",
		Quality:              "Premium",
		Features: []string{
			"High-quality output",
			"Advanced customization",
			"Text rendering capability",
			"Photorealistic options",
		},
	}
}
