package repository

import (
	"context"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

// ResultRepository handles scored submissions.
type ResultRepository struct {
	db DBTX
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(db DBTX) *ResultRepository {
	return &ResultRepository{db: db}
}

// Exists reports whether regNo already has a result for the exam.
func (r *ResultRepository) Exists(ctx context.Context, examID int64, regNo string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM results WHERE exam_id = $1 AND reg_no = $2)`,
		examID, regNo).Scan(&exists)
	return exists, err
}

// Create inserts a result. A second result for the same (exam, regNo)
// yields ErrDuplicate.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO results (exam_id, reg_no, score, highest_score_possible)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		res.ExamID, res.RegNo, res.Score, res.HighestScorePossible,
	).Scan(&res.ID, &res.CreatedAt)
	return translate(err)
}

// ListRanked returns the results of every exam matching the filter, best
// score first. Ties share a position.
func (r *ResultRepository) ListRanked(ctx context.Context, f model.ResultFilter) ([]model.RankedResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.exam_id, r.reg_no, r.score, r.highest_score_possible, r.created_at,
		        RANK() OVER (PARTITION BY r.exam_id ORDER BY r.score DESC),
		        c.name, s.name, e.exam_type, e.session, e.term
		 FROM results r
		 JOIN exams e ON e.id = r.exam_id
		 JOIN classes c ON c.id = e.class_id
		 JOIN subjects s ON s.id = e.subject_id
		 WHERE LOWER(c.name) = LOWER($1) AND LOWER(s.name) = LOWER($2) AND e.exam_type = $3
		 ORDER BY r.score DESC, r.created_at ASC`,
		f.ClassName, f.Subject, f.ExamType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.RankedResult
	for rows.Next() {
		var rr model.RankedResult
		if err := rows.Scan(&rr.ID, &rr.ExamID, &rr.RegNo, &rr.Score, &rr.HighestScorePossible, &rr.CreatedAt,
			&rr.Position, &rr.ClassName, &rr.Subject, &rr.ExamType, &rr.Session, &rr.Term); err != nil {
			return nil, err
		}
		results = append(results, rr)
	}
	return results, rows.Err()
}

// Delete removes one result.
func (r *ResultRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByExam removes every result of an exam.
func (r *ResultRepository) DeleteByExam(ctx context.Context, examID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM results WHERE exam_id = $1`, examID)
	return err
}
