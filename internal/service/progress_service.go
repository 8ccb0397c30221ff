package service

import (
	"context"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

// ProgressService reads and writes saved progress.
type ProgressService struct {
	store ProgressStore
}

// NewProgressService creates a new ProgressService.
func NewProgressService(store ProgressStore) *ProgressService {
	return &ProgressService{store: store}
}

// Get returns the saved progress merged with the live status, or an empty
// progress when nothing is saved.
func (s *ProgressService) Get(ctx context.Context, studentID string, examID int64) (*model.ProgressView, bool, error) {
	view, err := s.store.GetProgress(ctx, studentID, examID)
	if err != nil {
		return nil, false, err
	}
	if view == nil {
		return model.EmptyProgressView(), false, nil
	}
	return view, true, nil
}

// Save stores a snapshot and restarts its expiry.
func (s *ProgressService) Save(ctx context.Context, req model.SaveProgressRequest) (*model.Progress, error) {
	return s.store.SaveProgress(ctx, req.StudentID, req.ExamID, *req.Progress)
}
