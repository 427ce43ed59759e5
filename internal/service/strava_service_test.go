package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hybridx/training-app/internal/config"
	"hybridx/training-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stravaFixture struct {
	svc       *stravaService
	userRepo  *fakeUserRepo
	userID    primitive.ObjectID
	tokenHits int
	now       time.Time
}

// newStravaFixture wires the service against an httptest token endpoint and a
// user holding the given tokens.
func newStravaFixture(t *testing.T, tokens *domain.StravaTokens) *stravaFixture {
	t.Helper()

	f := &stravaFixture{
		userRepo: newFakeUserRepo(),
		now:      time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.tokenHits++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, tokens.RefreshToken, r.Form.Get("refresh_token"))
		json.NewEncoder(w).Encode(stravaTokenResponse{
			AccessToken:  "fresh-access",
			RefreshToken: "fresh-refresh",
			ExpiresAt:    f.now.Add(6 * time.Hour).Unix(),
		})
	}))
	t.Cleanup(server.Close)

	userID, err := f.userRepo.Create(context.Background(), &domain.User{
		Email:  "runner@example.com",
		Role:   domain.RoleAthlete,
		Strava: tokens,
	})
	require.NoError(t, err)
	f.userID = userID

	f.svc = NewStravaService(f.userRepo, config.StravaConfig{
		ClientID:     "client",
		ClientSecret: "secret",
	}).(*stravaService)
	f.svc.tokenURL = server.URL
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *stravaFixture) user(t *testing.T) *domain.User {
	t.Helper()
	user, err := f.userRepo.GetByID(context.Background(), f.userID)
	require.NoError(t, err)
	return user
}

func TestStravaAccessToken_ValidTokenUntouched(t *testing.T) {
	f := newStravaFixture(t, &domain.StravaTokens{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC), // an hour of headroom
	})

	token, err := f.svc.accessToken(context.Background(), f.user(t))
	require.NoError(t, err)
	assert.Equal(t, "stored-access", token)
	assert.Zero(t, f.tokenHits, "a token with headroom must not hit the refresh endpoint")
}

func TestStravaAccessToken_RefreshesNearExpiry(t *testing.T) {
	f := newStravaFixture(t, &domain.StravaTokens{
		AccessToken:  "stale-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Date(2025, time.June, 2, 9, 2, 0, 0, time.UTC), // inside the 5 minute buffer
		Scope:        "activity:read_all",
		AthleteID:    4242,
	})

	token, err := f.svc.accessToken(context.Background(), f.user(t))
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)
	assert.Equal(t, 1, f.tokenHits)

	// The refreshed tokens are cached back onto the user immediately, with
	// the connection's scope and athlete identity carried over.
	stored := f.user(t).Strava
	require.NotNil(t, stored)
	assert.Equal(t, "fresh-access", stored.AccessToken)
	assert.Equal(t, "fresh-refresh", stored.RefreshToken)
	assert.Equal(t, "activity:read_all", stored.Scope)
	assert.Equal(t, int64(4242), stored.AthleteID)
	assert.True(t, stored.ExpiresAt.After(f.now.Add(stravaRefreshBuffer)))
}

func TestStravaAccessToken_RefreshSurvivesCacheFailure(t *testing.T) {
	f := newStravaFixture(t, &domain.StravaTokens{
		AccessToken:  "stale-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Date(2025, time.June, 2, 9, 1, 0, 0, time.UTC),
	})
	f.userRepo.updateErr = errors.New("write timeout")

	user := f.user(t)
	token, err := f.svc.accessToken(context.Background(), user)
	require.NoError(t, err, "a failed cache write must not fail the request")
	assert.Equal(t, "fresh-access", token)
	assert.Equal(t, 1, f.tokenHits)
}

func TestStravaAccessToken_NotConnected(t *testing.T) {
	f := newStravaFixture(t, &domain.StravaTokens{
		RefreshToken: "unused",
		ExpiresAt:    time.Date(2025, time.June, 2, 23, 0, 0, 0, time.UTC),
	})

	user := f.user(t)
	user.Strava = nil
	_, err := f.svc.accessToken(context.Background(), user)
	assert.ErrorIs(t, err, ErrStravaNotConnected)
}
