package service

import (
	"context"
	"path/filepath"
	"testing"

	"sygl/internal/entity/db"
	"sygl/internal/llm"
	"sygl/internal/model"
	"sygl/internal/pricing"

	"github.com/stretchr/testify/require"
)

type dispatchFunc func(ctx context.Context, req llm.GenerationRequest) llm.Result

func (f dispatchFunc) Dispatch(ctx context.Context, req llm.GenerationRequest) llm.Result {
	return f(ctx, req)
}

func succeedWith(imageURL, imageData string) dispatchFunc {
	return func(_ context.Context, req llm.GenerationRequest) llm.Result {
		return llm.Result{
			Success:     true,
			ImageURL:    imageURL,
			ImageData:   imageData,
			CreditsUsed: pricing.CostOf(req.Model),
			Metadata: &llm.Metadata{
				Model:        req.Model,
				PromptUsed:   "enhanced " + req.Prompt,
				Timestamp:    "2026-01-01T00:00:00Z",
				GenerationID: "gen-uuid",
			},
		}
	}
}

func failWith(msg string) dispatchFunc {
	return func(context.Context, llm.GenerationRequest) llm.Result {
		return llm.Result{Success: false, Error: msg}
	}
}

func newTestRepo(t *testing.T) model.Repository {
	t.Helper()
	repo, err := model.OpenSQLite(filepath.Join(t.TempDir(), "sygl.db"))
	require.NoError(t, err)
	return repo
}

func seedUser(t *testing.T, repo model.Repository, email string, balance int) *db.User {
	t.Helper()
	user := &db.User{Email: email, PasswordHash: "x", CreditsRemaining: balance, SubscriptionTier: "basic"}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func balanceOf(t *testing.T, repo model.Repository, id uint) int {
	t.Helper()
	user, err := repo.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return user.CreditsRemaining
}
