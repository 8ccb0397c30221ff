package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	db DBTX
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(db DBTX) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `e.id, e.exam_type, e.session, e.term, e.time_allocated, e.total_questions,
	e.subject_id, s.name, e.class_id, c.name, e.status, e.document_path, e.created_at, e.updated_at`

const examFrom = ` FROM exams e
	JOIN subjects s ON s.id = e.subject_id
	JOIN classes c ON c.id = e.class_id`

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.ExamType, &e.Session, &e.Term, &e.TimeAllocated, &e.TotalQuestions,
		&e.SubjectID, &e.SubjectName, &e.ClassID, &e.ClassName, &e.Status, &e.DocumentPath,
		&e.CreatedAt, &e.UpdatedAt)
}

func collectExams(rows pgx.Rows) ([]model.Exam, error) {
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetByID retrieves an exam together with its subject and class names.
func (r *ExamRepository) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	e := &model.Exam{}
	err := scanExam(r.db.QueryRow(ctx, `SELECT `+examColumns+examFrom+` WHERE e.id = $1`, id), e)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// Count returns the number of exams.
func (r *ExamRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM exams`).Scan(&total)
	return total, err
}

// List returns exams newest first. A non-positive limit returns every exam.
func (r *ExamRepository) List(ctx context.Context, limit, offset int) ([]model.Exam, error) {
	query := `SELECT ` + examColumns + examFrom + ` ORDER BY e.created_at DESC, e.id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectExams(rows)
}

// ListTakeable returns the active exams of a class with no result yet
// recorded for regNo.
func (r *ExamRepository) ListTakeable(ctx context.Context, classID int, regNo string) ([]model.Exam, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+examColumns+examFrom+`
		 WHERE e.class_id = $1 AND e.status = TRUE
		   AND NOT EXISTS (SELECT 1 FROM results r WHERE r.exam_id = e.id AND r.reg_no = $2)
		 ORDER BY e.created_at DESC`,
		classID, regNo)
	if err != nil {
		return nil, err
	}
	return collectExams(rows)
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO exams (exam_type, session, term, time_allocated, total_questions,
		                    subject_id, class_id, status, document_path)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		e.ExamType, e.Session, e.Term, e.TimeAllocated, e.TotalQuestions,
		e.SubjectID, e.ClassID, e.Status, e.DocumentPath,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return translate(err)
}

// UpdateStatus sets an exam's active flag.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id int64, status bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockStatus reads an exam's active flag and locks the row until the
// surrounding transaction ends.
func (r *ExamRepository) LockStatus(ctx context.Context, id int64) (bool, error) {
	var status bool
	err := r.db.QueryRow(ctx, `SELECT status FROM exams WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		return false, translate(err)
	}
	return status, nil
}

// Delete removes an exam row.
func (r *ExamRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
