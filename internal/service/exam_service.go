package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/peterskelv123-tech/backend-offline/internal/extractor"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/rs/zerolog"
)

// QuestionExtractor turns a stored document into a question bank of at
// least required questions.
type QuestionExtractor interface {
	ExtractFile(ctx context.Context, path string, required int) ([]extractor.Question, error)
}

// ExamStopper ends every live session of an exam.
type ExamStopper interface {
	ForceStopExam(ctx context.Context, examID int64) error
}

// ExamService handles exam business logic.
type ExamService struct {
	tx        Transactor
	exams     ExamStore
	classes   ClassStore
	extractor QuestionExtractor
	stopper   ExamStopper
	pageSize  int
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	tx Transactor,
	exams ExamStore,
	classes ClassStore,
	extractor QuestionExtractor,
	stopper ExamStopper,
	pageSize int,
	log zerolog.Logger,
) *ExamService {
	if pageSize < 1 {
		pageSize = 10
	}
	return &ExamService{
		tx:        tx,
		exams:     exams,
		classes:   classes,
		extractor: extractor,
		stopper:   stopper,
		pageSize:  pageSize,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam.
func (s *ExamService) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExamNotFound
	}
	return exam, err
}

// List returns the whole catalogue when it fits in one page, otherwise the
// requested page.
func (s *ExamService) List(ctx context.Context, page int) (*model.ExamPage, error) {
	total, err := s.exams.Count(ctx)
	if err != nil {
		return nil, err
	}

	if total <= s.pageSize {
		exams, err := s.exams.List(ctx, 0, 0)
		if err != nil {
			return nil, err
		}
		return &model.ExamPage{Paginated: false, Data: exams, TotalItems: total}, nil
	}

	if page < 1 {
		page = 1
	}
	exams, err := s.exams.List(ctx, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}
	return &model.ExamPage{
		Paginated:   true,
		Data:        exams,
		CurrentPage: page,
		TotalPages:  (total + s.pageSize - 1) / s.pageSize,
		TotalItems:  total,
	}, nil
}

// Create registers an exam and its question bank from a stored document.
// Subject and class are created on first use. Nothing is persisted unless
// the document yields at least req.TotalQuestions questions.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest, documentPath string) (*model.Exam, int, error) {
	if _, err := extractor.FormatFromPath(documentPath); err != nil {
		return nil, 0, err
	}

	timeAllocated := req.TimeAllocated
	if timeAllocated <= 0 {
		timeAllocated = 60
	}

	var exam *model.Exam
	var stored int
	err := s.tx.WithinTx(ctx, func(st TxStores) error {
		subject, err := findOrCreateSubject(ctx, st.Subjects, req.Subject)
		if err != nil {
			return fmt.Errorf("resolve subject: %w", err)
		}
		class, err := findOrCreateClass(ctx, st.Classes, req.ClassName)
		if err != nil {
			return fmt.Errorf("resolve class: %w", err)
		}

		exam = &model.Exam{
			ExamType:       req.ExamType,
			Session:        req.Session,
			Term:           req.Term,
			TimeAllocated:  timeAllocated,
			TotalQuestions: req.TotalQuestions,
			SubjectID:      subject.ID,
			SubjectName:    subject.Name,
			ClassID:        class.ID,
			ClassName:      class.Name,
			Status:         false,
			DocumentPath:   documentPath,
		}
		if err := st.Exams.Create(ctx, exam); err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}

		parsed, err := s.extractor.ExtractFile(ctx, documentPath, req.TotalQuestions)
		if err != nil {
			return err
		}

		questions := make([]model.Question, len(parsed))
		for i, q := range parsed {
			questions[i] = model.Question{
				ExamID:        exam.ID,
				Text:          q.Text,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
			}
		}
		if err := st.Questions.CreateBatch(ctx, questions); err != nil {
			return err
		}
		stored = len(questions)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.log.Info().
		Int64("exam_id", exam.ID).
		Str("subject", exam.SubjectName).
		Str("class", exam.ClassName).
		Int("questions", stored).
		Msg("exam created")

	return exam, stored, nil
}

// UpdateStatus toggles an exam's active flag. Deactivating an exam ends
// every live session attached to it.
func (s *ExamService) UpdateStatus(ctx context.Context, id int64, status bool) (*model.Exam, error) {
	if err := s.exams.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	if !status && s.stopper != nil {
		if err := s.stopper.ForceStopExam(ctx, id); err != nil {
			s.log.Error().Err(err).Int64("exam_id", id).Msg("failed to stop live sessions")
		}
	}

	s.log.Info().Int64("exam_id", id).Bool("status", status).Msg("exam status updated")
	return s.GetByID(ctx, id)
}

// Delete removes an inactive exam with its question bank and results. The
// exam row stays locked from the status check until the delete commits.
func (s *ExamService) Delete(ctx context.Context, id int64) error {
	err := s.tx.WithinTx(ctx, func(st TxStores) error {
		active, err := st.Exams.LockStatus(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExamNotFound
		}
		if err != nil {
			return fmt.Errorf("lock exam: %w", err)
		}
		if active {
			return ErrExamActive
		}

		if err := st.Results.DeleteByExam(ctx, id); err != nil {
			return fmt.Errorf("delete results: %w", err)
		}
		if err := st.Questions.DeleteByExam(ctx, id); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := st.Exams.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrExamNotFound
			}
			return fmt.Errorf("delete exam: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("exam_id", id).Msg("exam deleted")
	return nil
}

// Takeable lists the active exams of a class that regNo has not yet sat.
func (s *ExamService) Takeable(ctx context.Context, className, regNo string) ([]model.Exam, error) {
	class, err := s.classes.FindByName(ctx, className)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.exams.ListTakeable(ctx, class.ID, regNo)
}
