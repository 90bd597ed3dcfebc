package converter

import (
	"sygl/internal/entity/db"
	"sygl/internal/entity/dto"
)

// GenerationToSummary converts a record into a history row.
func GenerationToSummary(g *db.Generation) dto.GenerationSummary {
	if g == nil {
		return dto.GenerationSummary{}
	}
	return dto.GenerationSummary{
		ID:          g.ID,
		CreatedAt:   g.CreatedAt,
		CreditsUsed: g.CreditsUsed,
		ModelUsed:   g.ModelUsed,
		Status:      g.Status,
	}
}

// GenerationsToSummaries converts a slice of records.
func GenerationsToSummaries(records []db.Generation) []dto.GenerationSummary {
	out := make([]dto.GenerationSummary, len(records))
	for i := range records {
		out[i] = GenerationToSummary(&records[i])
	}
	return out
}

// GenerationToItem converts a record into its full response form.
func GenerationToItem(g *db.Generation) dto.GenerationItem {
	if g == nil {
		return dto.GenerationItem{}
	}
	var data map[string]interface{}
	if g.GenerationData != nil {
		data = map[string]interface{}(g.GenerationData)
	}
	return dto.GenerationItem{
		ID:             g.ID,
		Prompt:         g.Prompt,
		ModelUsed:      g.ModelUsed,
		CreditsUsed:    g.CreditsUsed,
		ImageURL:       g.ImageURL,
		GenerationData: data,
		Status:         g.Status,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
}

// GenerationsToItems converts a slice of records.
func GenerationsToItems(records []db.Generation) []dto.GenerationItem {
	out := make([]dto.GenerationItem, len(records))
	for i := range records {
		out[i] = GenerationToItem(&records[i])
	}
	return out
}

// SubscriptionToSummary converts the active subscription, nil in nil out.
func SubscriptionToSummary(s *db.Subscription) *dto.SubscriptionSummary {
	if s == nil {
		return nil
	}
	return &dto.SubscriptionSummary{
		Tier:             s.Tier,
		CreditsIncluded:  s.CreditsIncluded,
		CurrentPeriodEnd: s.CurrentPeriodEnd,
		Status:           s.Status,
	}
}
