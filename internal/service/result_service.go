package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/rs/zerolog"
)

// ResultService scores submissions and serves ranked results.
type ResultService struct {
	exams     ExamStore
	questions QuestionStore
	results   ResultStore
	log       zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(exams ExamStore, questions QuestionStore, results ResultStore, log zerolog.Logger) *ResultService {
	return &ResultService{
		exams:     exams,
		questions: questions,
		results:   results,
		log:       log.With().Str("component", "result_service").Logger(),
	}
}

// Score marks a submission against the exam's answer key and stores the
// result. Each (exam, regNo) pair can be scored once.
func (s *ResultService) Score(ctx context.Context, req model.SubmitResultRequest) (*model.Result, error) {
	if repeatsQuestion(req.Answers) {
		return nil, ErrRepeatedAnswer
	}

	exists, err := s.results.Exists(ctx, req.ExamID, req.RegNo)
	if err != nil {
		return nil, fmt.Errorf("check existing result: %w", err)
	}
	if exists {
		return nil, ErrDuplicateResult
	}

	key, err := s.questions.AnswerKey(ctx, req.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	if len(key) == 0 {
		return nil, ErrNoQuestions
	}

	exam, err := s.exams.GetByID(ctx, req.ExamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	result := &model.Result{
		ExamID:               req.ExamID,
		RegNo:                req.RegNo,
		Score:                computeScore(key, req.Answers),
		HighestScorePossible: exam.TotalQuestions,
	}
	if err := s.results.Create(ctx, result); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateResult
		}
		return nil, fmt.Errorf("save result: %w", err)
	}

	s.log.Info().
		Int64("exam_id", result.ExamID).
		Str("reg_no", result.RegNo).
		Int("score", result.Score).
		Msg("result recorded")

	return result, nil
}

// ListRanked returns the results matching the filter, best score first.
func (s *ResultService) ListRanked(ctx context.Context, f model.ResultFilter) ([]model.RankedResult, error) {
	results, err := s.results.ListRanked(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

// Delete removes one result.
func (s *ResultService) Delete(ctx context.Context, id int64) error {
	err := s.results.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResultNotFound
	}
	return err
}

// computeScore counts the answers whose text equals the key for their
// question. Answers to unknown questions never match.
func computeScore(key map[int64]string, answers []model.Answer) int {
	score := 0
	for _, a := range answers {
		if correct, ok := key[a.QuestionID]; ok && a.AnswerText == correct {
			score++
		}
	}
	return score
}

func repeatsQuestion(answers []model.Answer) bool {
	seen := make(map[int64]struct{}, len(answers))
	for _, a := range answers {
		if _, dup := seen[a.QuestionID]; dup {
			return true
		}
		seen[a.QuestionID] = struct{}{}
	}
	return false
}
