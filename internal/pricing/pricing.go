package pricing

import (
	"fmt"
	"strings"
)

// Model identifies an image generation backend.
type Model string

const (
	ModelGemini   Model = "gemini-2.5"
	ModelIdeogram Model = "ideogram"
)

// Unlimited is the balance sentinel for tiers exempt from credit checks.
const Unlimited = -1

// Tier is a subscription tier label stored on the user.
type Tier string

const (
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierStudio     Tier = "studio"
	TierEnterprise Tier = "enterprise"
)

var creditCosts = map[Model]int{
	ModelGemini:   1,
	ModelIdeogram: 3,
}

// Models returns the supported models in display order.
func Models() []Model {
	return []Model{ModelGemini, ModelIdeogram}
}

// ParseModel normalises a model selector.
func ParseModel(value string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := creditCosts[m]; !ok {
		return "", fmt.Errorf("unsupported model: %s", value)
	}
	return m, nil
}

// Valid reports whether m belongs to the model enumeration.
func (m Model) Valid() bool {
	_, ok := creditCosts[m]
	return ok
}

// CostOf returns the credit cost of one generation, or 0 for an unknown model.
func CostOf(m Model) int {
	return creditCosts[m]
}

// CanAfford reports whether balance covers one generation with m.
func CanAfford(balance int, m Model) bool {
	if balance == Unlimited {
		return true
	}
	cost := CostOf(m)
	if cost <= 0 {
		return false
	}
	return balance >= cost
}

// EstimatedGenerations returns how many generations balance buys, passing Unlimited through.
func EstimatedGenerations(balance int, m Model) int {
	if balance == Unlimited {
		return Unlimited
	}
	cost := CostOf(m)
	if cost <= 0 || balance <= 0 {
		return 0
	}
	return balance / cost
}
