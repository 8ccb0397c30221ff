package service

import (
	"context"
	"errors"
	"strings"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/rs/zerolog"
)

// ClassService handles class business logic.
type ClassService struct {
	classes ClassStore
	log     zerolog.Logger
}

// NewClassService creates a new ClassService.
func NewClassService(classes ClassStore, log zerolog.Logger) *ClassService {
	return &ClassService{
		classes: classes,
		log:     log.With().Str("component", "class_service").Logger(),
	}
}

// GetAll returns every class, or ErrNoClasses when none is registered.
func (s *ClassService) GetAll(ctx context.Context) ([]model.Class, error) {
	classes, err := s.classes.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, ErrNoClasses
	}
	return classes, nil
}

// Create registers a class. Names are unique regardless of case.
func (s *ClassService) Create(ctx context.Context, name string) (*model.Class, error) {
	name = strings.TrimSpace(name)
	if _, err := s.classes.FindByName(ctx, name); err == nil {
		return nil, ErrClassExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	c := &model.Class{Name: name}
	if err := s.classes.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrClassExists
		}
		return nil, err
	}
	s.log.Info().Int("class_id", c.ID).Str("name", c.Name).Msg("class created")
	return c, nil
}

// Search runs an allow-listed keyword search.
func (s *ClassService) Search(ctx context.Context, q model.SearchQuery) ([]model.Class, error) {
	return s.classes.Search(ctx, strings.TrimSpace(q.Field), strings.TrimSpace(q.Keyword))
}

func findOrCreateClass(ctx context.Context, classes ClassStore, name string) (*model.Class, error) {
	name = strings.TrimSpace(name)
	c, err := classes.FindByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	c = &model.Class{Name: name}
	if err := classes.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
