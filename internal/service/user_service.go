package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"
	"hybridx/training-app/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrMediaNotFound   = errors.New("media object not found")
	ErrInvalidMedia    = errors.New("unsupported media content type")
	ErrScheduleInvalid = errors.New("program and start date must be set together")
)

// ProfileUpdate carries the editable profile fields. Nil pointers leave the
// current value untouched.
type ProfileUpdate struct {
	FirstName  *string                `json:"firstName,omitempty"`
	LastName   *string                `json:"lastName,omitempty"`
	Experience *string                `json:"experience,omitempty"`
	Frequency  *string                `json:"frequency,omitempty"`
	Goal       *string                `json:"goal,omitempty"`
	Running    *domain.RunningProfile `json:"runningProfile,omitempty"`
}

// UploadTicket is handed to clients so they can PUT an image straight to S3.
type UploadTicket struct {
	MediaID   primitive.ObjectID `json:"mediaId"`
	UploadURL string             `json:"uploadUrl"`
	ObjectKey string             `json:"objectKey"`
}

// MediaView pairs stored metadata with a fresh presigned download URL.
type MediaView struct {
	Media domain.MediaObject `json:"media"`
	URL   string             `json:"url"`
}

type UserService interface {
	Profile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*domain.User, error)

	// SelectProgram sets or restarts the user's schedule: the program plus
	// the start date from which calendar days are counted.
	SelectProgram(ctx context.Context, userID, programID primitive.ObjectID, startDate domain.CalendarDate) error
	// ClearProgram removes the schedule entirely; sessions are kept.
	ClearProgram(ctx context.Context, userID primitive.ObjectID) error

	SetPersonalRecord(ctx context.Context, userID primitive.ObjectID, name, value string) (*domain.User, error)
	DeletePersonalRecord(ctx context.Context, userID primitive.ObjectID, name string) (*domain.User, error)
	TrainingPaces(ctx context.Context, userID primitive.ObjectID) (domain.TrainingPaces, bool, error)

	RequestUpload(ctx context.Context, userID primitive.ObjectID, kind domain.MediaKind, fileName, contentType string, size int64, sessionID *primitive.ObjectID) (*UploadTicket, error)
	ListMedia(ctx context.Context, userID primitive.ObjectID, kind domain.MediaKind) ([]MediaView, error)
	DeleteMedia(ctx context.Context, userID, mediaID primitive.ObjectID) error
}

type userService struct {
	userRepo  repository.UserRepository
	mediaRepo repository.MediaRepository
	files     storage.FileStorage
	now       func() time.Time
}

func NewUserService(userRepo repository.UserRepository, mediaRepo repository.MediaRepository, files storage.FileStorage) UserService {
	return &userService{
		userRepo:  userRepo,
		mediaRepo: mediaRepo,
		files:     files,
		now:       time.Now,
	}
}

func (s *userService) getUser(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return user, nil
}

func (s *userService) Profile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	return s.getUser(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Experience != nil {
		user.Experience = *update.Experience
	}
	if update.Frequency != nil {
		user.Frequency = *update.Frequency
	}
	if update.Goal != nil {
		user.Goal = *update.Goal
	}
	if update.Running != nil {
		user.RunningProfile = update.Running
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return user, nil
}

func (s *userService) SelectProgram(ctx context.Context, userID, programID primitive.ObjectID, startDate domain.CalendarDate) error {
	if programID.IsZero() || startDate.IsZero() {
		return ErrScheduleInvalid
	}
	start := startDate.Time()
	if err := s.userRepo.SetSchedule(ctx, userID, &programID, &start); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	logrus.WithFields(logrus.Fields{
		"userId":    userID.Hex(),
		"programId": programID.Hex(),
		"startDate": startDate.String(),
	}).Info("program selected")
	return nil
}

func (s *userService) ClearProgram(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.userRepo.SetSchedule(ctx, userID, nil, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *userService) SetPersonalRecord(ctx context.Context, userID primitive.ObjectID, name, value string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("record name is required")
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.PersonalRecords == nil {
		user.PersonalRecords = make(domain.PersonalRecords)
	}
	user.PersonalRecords[name] = value
	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return user, nil
}

func (s *userService) DeletePersonalRecord(ctx context.Context, userID primitive.ObjectID, name string) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	delete(user.PersonalRecords, name)
	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return user, nil
}

func (s *userService) TrainingPaces(ctx context.Context, userID primitive.ObjectID) (domain.TrainingPaces, bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	paces, ok := domain.CalculateTrainingPaces(user.RunningProfile)
	return paces, ok, nil
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func (s *userService) RequestUpload(ctx context.Context, userID primitive.ObjectID, kind domain.MediaKind, fileName, contentType string, size int64, sessionID *primitive.ObjectID) (*UploadTicket, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, ErrInvalidMedia
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	objectKey := path.Join(string(kind), userID.Hex(), uuid.NewString()+ext)
	uploadURL, err := s.files.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: generating upload url: %v", ErrExternalService, err)
	}

	media := &domain.MediaObject{
		UserID:      userID,
		SessionID:   sessionID,
		Kind:        kind,
		S3ObjectKey: objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  s.now().UTC(),
	}
	id, err := s.mediaRepo.Create(ctx, media)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &UploadTicket{MediaID: id, UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

func (s *userService) ListMedia(ctx context.Context, userID primitive.ObjectID, kind domain.MediaKind) ([]MediaView, error) {
	objects, err := s.mediaRepo.ListByUser(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	views := make([]MediaView, 0, len(objects))
	for _, obj := range objects {
		url, err := s.files.GeneratePresignedDownloadURL(ctx, obj.S3ObjectKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			logrus.WithError(err).WithField("objectKey", obj.S3ObjectKey).
				Warn("failed to presign media download url")
			continue
		}
		views = append(views, MediaView{Media: obj, URL: url})
	}
	return views, nil
}

func (s *userService) DeleteMedia(ctx context.Context, userID, mediaID primitive.ObjectID) error {
	media, err := s.mediaRepo.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMediaNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if media.UserID != userID {
		return ErrForbidden
	}
	if err := s.files.DeleteObject(ctx, media.S3ObjectKey); err != nil {
		return fmt.Errorf("%w: deleting object: %v", ErrExternalService, err)
	}
	if err := s.mediaRepo.Delete(ctx, mediaID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
