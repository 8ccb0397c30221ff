package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
)

type attendanceLedger interface {
	ListByExam(ctx context.Context, examID int64) ([]model.AttendanceRecord, error)
}

// AttendanceService reads the durable join ledger.
type AttendanceService struct {
	ledger attendanceLedger
	exams  ExamStore
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(ledger attendanceLedger, exams ExamStore) *AttendanceService {
	return &AttendanceService{ledger: ledger, exams: exams}
}

// ListByExam returns everyone who joined the exam, in join order.
func (s *AttendanceService) ListByExam(ctx context.Context, examID int64) ([]model.AttendanceRecord, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}
	return s.ledger.ListByExam(ctx, examID)
}
