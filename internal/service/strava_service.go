package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hybridx/training-app/internal/config"
	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	stravaTokenURL = "https://www.strava.com/oauth/token"
	stravaAPIBase  = "https://www.strava.com/api/v3"

	// Tokens are refreshed this long before their reported expiry, so a
	// token never goes stale mid-request.
	stravaRefreshBuffer = 5 * time.Minute
)

var ErrStravaNotConnected = errors.New("strava account is not connected")

// StravaActivity is the subset of a Strava activity we care about.
type StravaActivity struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Distance   float64   `json:"distance"`
	MovingTime int       `json:"moving_time"`
	SportType  string    `json:"sport_type"`
	StartDate  time.Time `json:"start_date"`
}

// placeholderWorkout describes a session created purely from an external
// activity, with no program behind it.
func (a StravaActivity) placeholderWorkout() *domain.Workout {
	programType := domain.ProgramTypeHyrox
	if strings.Contains(strings.ToLower(a.SportType), "run") {
		programType = domain.ProgramTypeRunning
	}
	title := a.Name
	if title == "" {
		title = "Strava Activity"
	}
	details := fmt.Sprintf("%.2f km in %s", a.Distance/1000, (time.Duration(a.MovingTime) * time.Second).String())
	return &domain.Workout{
		Title:       title,
		ProgramType: programType,
		Exercises:   []domain.Exercise{{Name: title, Details: details}},
	}
}

type StravaService interface {
	// Connect exchanges an OAuth authorization code for tokens and stores
	// them on the user.
	Connect(ctx context.Context, userID primitive.ObjectID, code string) error
	Disconnect(ctx context.Context, userID primitive.ObjectID) error
	// RecentActivities lists the athlete's latest activities, refreshing the
	// access token when it is near expiry.
	RecentActivities(ctx context.Context, userID primitive.ObjectID, perPage int) ([]StravaActivity, error)
	Activity(ctx context.Context, userID primitive.ObjectID, activityID int64) (*StravaActivity, error)
}

type stravaService struct {
	userRepo   repository.UserRepository
	cfg        config.StravaConfig
	httpClient *http.Client
	tokenURL   string
	apiBase    string
	now        func() time.Time
}

func NewStravaService(userRepo repository.UserRepository, cfg config.StravaConfig) StravaService {
	return &stravaService{
		userRepo:   userRepo,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokenURL:   stravaTokenURL,
		apiBase:    stravaAPIBase,
		now:        time.Now,
	}
}

type stravaTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Scope        string `json:"scope"`
	Athlete      struct {
		ID int64 `json:"id"`
	} `json:"athlete"`
}

func (s *stravaService) Connect(ctx context.Context, userID primitive.ObjectID, code string) error {
	tokens, err := s.requestTokens(ctx, url.Values{
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
	})
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	user.Strava = &domain.StravaTokens{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    time.Unix(tokens.ExpiresAt, 0).UTC(),
		Scope:        tokens.Scope,
		AthleteID:    tokens.Athlete.ID,
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	logrus.WithField("userId", userID.Hex()).Info("strava account connected")
	return nil
}

func (s *stravaService) Disconnect(ctx context.Context, userID primitive.ObjectID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	user.Strava = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// accessToken returns a token valid for at least the refresh buffer,
// refreshing and persisting new tokens when needed.
func (s *stravaService) accessToken(ctx context.Context, user *domain.User) (string, error) {
	tokens := user.Strava
	if tokens == nil {
		return "", ErrStravaNotConnected
	}
	if s.now().Add(stravaRefreshBuffer).Before(tokens.ExpiresAt) {
		return tokens.AccessToken, nil
	}

	refreshed, err := s.requestTokens(ctx, url.Values{
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"refresh_token": {tokens.RefreshToken},
		"grant_type":    {"refresh_token"},
	})
	if err != nil {
		return "", err
	}

	user.Strava = &domain.StravaTokens{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		ExpiresAt:    time.Unix(refreshed.ExpiresAt, 0).UTC(),
		Scope:        tokens.Scope,
		AthleteID:    tokens.AthleteID,
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		// The refreshed token still works for this request even if caching
		// it failed.
		logrus.WithError(err).WithField("userId", user.ID.Hex()).
			Warn("failed to cache refreshed strava tokens")
	}
	return refreshed.AccessToken, nil
}

func (s *stravaService) requestTokens(ctx context.Context, form url.Values) (*stravaTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: strava token request: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: strava token request returned %d", ErrExternalService, resp.StatusCode)
	}

	var tokens stravaTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("%w: decoding strava token response: %v", ErrExternalService, err)
	}
	return &tokens, nil
}

func (s *stravaService) RecentActivities(ctx context.Context, userID primitive.ObjectID, perPage int) ([]StravaActivity, error) {
	if perPage <= 0 || perPage > 50 {
		perPage = 10
	}
	var activities []StravaActivity
	endpoint := fmt.Sprintf("%s/athlete/activities?per_page=%d", s.apiBase, perPage)
	if err := s.getJSON(ctx, userID, endpoint, &activities); err != nil {
		return nil, err
	}
	s.stampSync(ctx, userID)
	return activities, nil
}

// stampSync records the last successful activity fetch. Best effort only.
func (s *stravaService) stampSync(ctx context.Context, userID primitive.ObjectID) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return
	}
	ts := s.now().UTC()
	user.LastStravaSync = &ts
	if err := s.userRepo.Update(ctx, user); err != nil {
		logrus.WithError(err).WithField("userId", userID.Hex()).
			Warn("failed to record strava sync time")
	}
}

func (s *stravaService) Activity(ctx context.Context, userID primitive.ObjectID, activityID int64) (*StravaActivity, error) {
	var activity StravaActivity
	endpoint := fmt.Sprintf("%s/activities/%d", s.apiBase, activityID)
	if err := s.getJSON(ctx, userID, endpoint, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *stravaService) getJSON(ctx context.Context, userID primitive.ObjectID, endpoint string, out interface{}) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	token, err := s.accessToken(ctx, user)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: strava api: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrStravaNotConnected
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: strava api returned %d", ErrExternalService, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding strava response: %v", ErrExternalService, err)
	}
	return nil
}
