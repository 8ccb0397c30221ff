package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

// QuestionRepository handles the question bank of each exam.
type QuestionRepository struct {
	db DBTX
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(db DBTX) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// CreateBatch inserts an exam's whole question bank in one round trip and
// fills in the generated ids.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range questions {
		q := &questions[i]
		batch.Queue(
			`INSERT INTO questions (exam_id, question, options, correct_answer)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at`,
			q.ExamID, q.Text, q.Options, q.CorrectAnswer,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&q.ID, &q.CreatedAt)
		})
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	return nil
}

// Count returns the size of an exam's question bank.
func (r *QuestionRepository) Count(ctx context.Context, examID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE exam_id = $1`, examID).Scan(&n)
	return n, err
}

// ListExcluding returns the student-facing view of every question of an exam
// whose id is not in exclude.
func (r *QuestionRepository) ListExcluding(ctx context.Context, examID int64, exclude []int64) ([]model.QuestionMeta, error) {
	if exclude == nil {
		exclude = []int64{}
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, question, options FROM questions
		 WHERE exam_id = $1 AND NOT (id = ANY($2))
		 ORDER BY id`,
		examID, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []model.QuestionMeta
	for rows.Next() {
		var m model.QuestionMeta
		if err := rows.Scan(&m.ID, &m.Question, &m.Options); err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// AnswerKey maps question id to correct answer for an exam.
func (r *QuestionRepository) AnswerKey(ctx context.Context, examID int64) (map[int64]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, correct_answer FROM questions WHERE exam_id = $1`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	key := make(map[int64]string)
	for rows.Next() {
		var id int64
		var answer string
		if err := rows.Scan(&id, &answer); err != nil {
			return nil, err
		}
		key[id] = answer
	}
	return key, rows.Err()
}

// DeleteByExam removes an exam's question bank.
func (r *QuestionRepository) DeleteByExam(ctx context.Context, examID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID)
	return err
}
