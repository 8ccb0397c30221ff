package service

import (
	"context"
	"errors"
	"strings"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/rs/zerolog"
)

type SubjectService struct {
	subjects SubjectStore
	log      zerolog.Logger
}

func NewSubjectService(subjects SubjectStore, log zerolog.Logger) *SubjectService {
	return &SubjectService{
		subjects: subjects,
		log:      log.With().Str("component", "subject_service").Logger(),
	}
}

func (s *SubjectService) GetAll(ctx context.Context) ([]model.Subject, error) {
	subjects, err := s.subjects.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}
	return subjects, nil
}

func (s *SubjectService) Create(ctx context.Context, name string) (*model.Subject, error) {
	name = strings.TrimSpace(name)
	if _, err := s.subjects.FindByName(ctx, name); err == nil {
		return nil, ErrSubjectExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	sub := &model.Subject{Name: name}
	if err := s.subjects.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSubjectExists
		}
		return nil, err
	}
	s.log.Info().Int("subject_id", sub.ID).Str("name", sub.Name).Msg("subject created")
	return sub, nil
}

func (s *SubjectService) Search(ctx context.Context, q model.SearchQuery) ([]model.Subject, error) {
	return s.subjects.Search(ctx, strings.TrimSpace(q.Field), strings.TrimSpace(q.Keyword))
}

// findOrCreateSubject resolves a subject by name, creating it when absent.
func findOrCreateSubject(ctx context.Context, subjects SubjectStore, name string) (*model.Subject, error) {
	name = strings.TrimSpace(name)
	sub, err := subjects.FindByName(ctx, name)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	sub = &model.Subject{Name: name}
	if err := subjects.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
