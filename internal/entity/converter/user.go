package converter

import (
	"sygl/internal/entity/db"
	"sygl/internal/entity/dto"
)

// UserToSummary converts a db.User to dto.UserSummary.
func UserToSummary(u *db.User) dto.UserSummary {
	if u == nil {
		return dto.UserSummary{}
	}
	return dto.UserSummary{
		ID:                    u.ID,
		Email:                 u.Email,
		DisplayName:           u.DisplayName,
		CreditsRemaining:      u.CreditsRemaining,
		SubscriptionTier:      u.SubscriptionTier,
		TotalCreditsPurchased: u.TotalCreditsPurchased,
		CreatedAt:             u.CreatedAt,
	}
}
