package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrProgramInvalid = errors.New("program definition is invalid")

type ProgramService interface {
	List(ctx context.Context) ([]domain.Program, error)
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Program, error)

	// Create and Update validate the program definition: a name, at least one
	// workout, and every workout on a positive day number.
	Create(ctx context.Context, program *domain.Program) (*domain.Program, error)
	Update(ctx context.Context, program *domain.Program) (*domain.Program, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type programService struct {
	programRepo repository.ProgramRepository
}

func NewProgramService(programRepo repository.ProgramRepository) ProgramService {
	return &programService{programRepo: programRepo}
}

func (s *programService) List(ctx context.Context) ([]domain.Program, error) {
	programs, err := s.programRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return programs, nil
}

func (s *programService) Get(ctx context.Context, id primitive.ObjectID) (*domain.Program, error) {
	program, err := s.programRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return program, nil
}

func validateProgram(program *domain.Program) error {
	if strings.TrimSpace(program.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrProgramInvalid)
	}
	if len(program.Workouts) == 0 {
		return fmt.Errorf("%w: at least one workout is required", ErrProgramInvalid)
	}
	for _, w := range program.Workouts {
		if w.Day < 1 {
			return fmt.Errorf("%w: workout %q has day %d, days start at 1", ErrProgramInvalid, w.Title, w.Day)
		}
		if strings.TrimSpace(w.Title) == "" {
			return fmt.Errorf("%w: workout on day %d has no title", ErrProgramInvalid, w.Day)
		}
	}
	return nil
}

func (s *programService) Create(ctx context.Context, program *domain.Program) (*domain.Program, error) {
	if err := validateProgram(program); err != nil {
		return nil, err
	}
	id, err := s.programRepo.Create(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	program.ID = id
	logrus.WithFields(logrus.Fields{
		"programId":   id.Hex(),
		"cycleLength": program.CycleLength(),
	}).Info("program created")
	return program, nil
}

func (s *programService) Update(ctx context.Context, program *domain.Program) (*domain.Program, error) {
	if err := validateProgram(program); err != nil {
		return nil, err
	}
	if err := s.programRepo.Update(ctx, program); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return program, nil
}

func (s *programService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.programRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProgramNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
