package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hybridx/training-app/internal/config"
	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrCoachNotConfigured = errors.New("ai coach is not configured")

// WorkoutRequest captures what the athlete asked the coach for.
type WorkoutRequest struct {
	Focus     string `json:"focus"`
	Duration  int    `json:"durationMinutes"`
	Equipment string `json:"equipment"`
	Notes     string `json:"notes"`
}

type CoachService interface {
	// GenerateWorkout asks the model for a workout matching the request and
	// persists it as today's session, replacing whatever was scheduled.
	GenerateWorkout(ctx context.Context, userID primitive.ObjectID, req WorkoutRequest) (*domain.WorkoutSession, error)

	// SuggestExtension proposes a few finisher exercises for an in-progress
	// session and appends them to it.
	SuggestExtension(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.WorkoutSession, error)

	// WeeklyInsight summarizes the athlete's last week of training.
	WeeklyInsight(ctx context.Context, userID primitive.ObjectID) (string, error)
}

type coachService struct {
	client   *openai.Client
	model    string
	users    repository.UserRepository
	sessions SessionService
	repo     repository.SessionRepository
	now      func() time.Time
}

func NewCoachService(cfg config.OpenAIConfig, users repository.UserRepository, sessions SessionService, repo repository.SessionRepository) CoachService {
	svc := &coachService{
		model:    cfg.Model,
		users:    users,
		sessions: sessions,
		repo:     repo,
		now:      time.Now,
	}
	if cfg.APIKey != "" {
		svc.client = openai.NewClient(cfg.APIKey)
	}
	if svc.model == "" {
		svc.model = openai.GPT4oMini
	}
	return svc
}

type generatedWorkout struct {
	Title     string `json:"title"`
	Exercises []struct {
		Name    string `json:"name"`
		Details string `json:"details"`
	} `json:"exercises"`
}

const workoutSystemPrompt = `You are a hybrid fitness coach. Respond with JSON only, shaped as
{"title": string, "exercises": [{"name": string, "details": string}]}.
Details hold sets, reps, distances or durations. 4 to 8 exercises.`

func (c *coachService) GenerateWorkout(ctx context.Context, userID primitive.ObjectID, req WorkoutRequest) (*domain.WorkoutSession, error) {
	if c.client == nil {
		return nil, ErrCoachNotConfigured
	}
	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	prompt := fmt.Sprintf(
		"Athlete: experience %s, goal %s. Build a %d minute workout focused on %q with equipment: %s.",
		user.Experience, user.Goal, req.Duration, req.Focus, req.Equipment,
	)
	if req.Notes != "" {
		prompt += " Additional notes: " + req.Notes
	}

	generated, err := c.completeJSON(ctx, workoutSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	workout := &domain.Workout{
		Title:       generated.Title,
		ProgramType: domain.ProgramTypeHyrox,
	}
	for _, ex := range generated.Exercises {
		workout.Exercises = append(workout.Exercises, domain.Exercise{Name: ex.Name, Details: ex.Details})
	}
	if workout.Title == "" || len(workout.Exercises) == 0 {
		return nil, fmt.Errorf("%w: model returned an empty workout", ErrExternalService)
	}

	today := domain.NewCalendarDate(c.now())
	return c.sessions.GetOrCreate(ctx, userID, domain.OriginOneOffAI, today, workout, SessionOptions{Overwrite: true})
}

const extensionSystemPrompt = `You are a hybrid fitness coach. Respond with JSON only, shaped as
{"exercises": [{"name": string, "details": string}]}. Suggest 2 or 3 short finisher
exercises that complement the completed workout without repeating it.`

func (c *coachService) SuggestExtension(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.WorkoutSession, error) {
	if c.client == nil {
		return nil, ErrCoachNotConfigured
	}
	session, err := c.repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if session.UserID != userID {
		return nil, ErrNotYourSession
	}

	var done []string
	for key, complete := range session.CompletedItems {
		if complete {
			done = append(done, key)
		}
	}
	prompt := fmt.Sprintf("Workout %q, completed items: %s.", session.WorkoutTitle, strings.Join(done, ", "))

	generated, err := c.completeJSON(ctx, extensionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var exercises []domain.Exercise
	for _, ex := range generated.Exercises {
		exercises = append(exercises, domain.Exercise{Name: ex.Name, Details: ex.Details})
	}
	if len(exercises) == 0 {
		return nil, fmt.Errorf("%w: model suggested no exercises", ErrExternalService)
	}
	return c.sessions.ExtendSession(ctx, userID, sessionID, exercises)
}

func (c *coachService) WeeklyInsight(ctx context.Context, userID primitive.ObjectID) (string, error) {
	if c.client == nil {
		return "", ErrCoachNotConfigured
	}
	weekAgo := domain.NewCalendarDate(c.now()).AddDays(-7)
	today := domain.NewCalendarDate(c.now())
	sessions, err := c.repo.FindByUserBetween(ctx, userID, weekAgo, today)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	var lines []string
	for _, s := range sessions {
		state := "started"
		if s.Finished() {
			state = "finished"
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", s.Date().String(), s.WorkoutTitle, state))
	}
	if len(lines) == 0 {
		return "No training logged this week. Pick an easy session to get moving again.", nil
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a concise fitness coach. Summarize the athlete's week in 2 or 3 sentences with one concrete suggestion."},
			{Role: openai.ChatMessageRoleUser, Content: strings.Join(lines, "\n")},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrExternalService)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *coachService) completeJSON(ctx context.Context, system, prompt string) (*generatedWorkout, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrExternalService)
	}

	var generated generatedWorkout
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &generated); err != nil {
		logrus.WithError(err).Debug("unparseable coach completion")
		return nil, fmt.Errorf("%w: model returned invalid JSON", ErrExternalService)
	}
	return &generated, nil
}
