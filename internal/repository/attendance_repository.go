package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

// AttendanceRepository is the durable ledger of who joined which exam.
type AttendanceRepository struct {
	db DBTX
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(db DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// UpsertBatch records every join in one round trip. The first join time is
// kept on repeat joins; joins for exams that no longer exist are skipped.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, records []model.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO attendances (exam_id, reg_no, attended, joined_at)
			 SELECT $1, $2, TRUE, $3
			 WHERE EXISTS (SELECT 1 FROM exams WHERE id = $1)
			 ON CONFLICT (exam_id, reg_no) DO UPDATE SET attended = TRUE`,
			rec.ExamID, rec.RegNo, rec.JoinedAt,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert attendances: %w", err)
	}
	return nil
}

// ListByExam returns an exam's ledger in join order.
func (r *AttendanceRepository) ListByExam(ctx context.Context, examID int64) ([]model.AttendanceRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, exam_id, reg_no, attended, joined_at
		 FROM attendances WHERE exam_id = $1
		 ORDER BY joined_at ASC, id ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.AttendanceRecord{}
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.ExamID, &rec.RegNo, &rec.Attended, &rec.JoinedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
