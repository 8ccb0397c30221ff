package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/rs/zerolog"
)

// QuestionService serves each student a stable, randomized question set.
type QuestionService struct {
	exams     ExamStore
	questions QuestionStore
	progress  ProgressStore
	shuffle   func(n int, swap func(i, j int))
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(exams ExamStore, questions QuestionStore, progress ProgressStore, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		exams:     exams,
		questions: questions,
		progress:  progress,
		shuffle:   rand.Shuffle,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// Allocate returns the student's question set for an exam. Questions
// already shown keep their place; the set is topped up from the unseen
// part of the bank exactly once, until it holds totalQuestions items.
func (s *QuestionService) Allocate(ctx context.Context, examID int64, studentID string) ([]model.QuestionMeta, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	saved, err := s.progress.GetProgress(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	shown := []model.QuestionMeta{}
	if saved != nil && saved.QuestionMeta != nil {
		shown = saved.QuestionMeta
	}

	remaining := exam.TotalQuestions - len(shown)
	if remaining <= 0 {
		return shown, nil
	}

	exclude := make([]int64, len(shown))
	for i, m := range shown {
		exclude[i] = m.ID
	}
	pool, err := s.questions.ListExcluding(ctx, examID, exclude)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	if len(pool) < remaining {
		return nil, fmt.Errorf("%w: need %d, %d left", ErrInsufficientRemaining, remaining, len(pool))
	}

	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	assigned, err := s.progress.AppendQuestionMeta(ctx, studentID, examID, pool[:remaining], exam.TotalQuestions)
	if err != nil {
		return nil, fmt.Errorf("record assignment: %w", err)
	}

	s.log.Debug().
		Int64("exam_id", examID).
		Str("student_id", studentID).
		Int("assigned", len(assigned)).
		Msg("question set allocated")

	return assigned, nil
}
