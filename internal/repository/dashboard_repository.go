package repository

import (
	"context"
	"time"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	db DBTX
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(db DBTX) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// DashboardCounts holds the stat cards of the dashboard.
type DashboardCounts struct {
	Subjects    int `json:"subjects"`
	Classes     int `json:"classes"`
	Exams       int `json:"exams"`
	ActiveExams int `json:"activeExams"`
	Questions   int `json:"questions"`
	Results     int `json:"results"`
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (*DashboardCounts, error) {
	c := &DashboardCounts{}
	err := r.db.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM subjects),
			(SELECT COUNT(*) FROM classes),
			(SELECT COUNT(*) FROM exams),
			(SELECT COUNT(*) FROM exams WHERE status = TRUE),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM results)`,
	).Scan(&c.Subjects, &c.Classes, &c.Exams, &c.ActiveExams, &c.Questions, &c.Results)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DashboardExamResult summarises the submissions of one exam.
type DashboardExamResult struct {
	ExamID           int64          `json:"examId"`
	Subject          string         `json:"subject"`
	ClassName        string         `json:"className"`
	ExamType         model.ExamType `json:"examType"`
	ParticipantCount int            `json:"participantCount"`
	AverageScore     *float64       `json:"averageScore"`
	LastSubmission   *time.Time     `json:"lastSubmission"`
}

// GetRecentExamResults retrieves the N exams with the most recent submissions.
func (r *DashboardRepository) GetRecentExamResults(ctx context.Context, limit int) ([]DashboardExamResult, error) {
	query := `
		SELECT
			e.id,
			s.name,
			c.name,
			e.exam_type,
			COUNT(r.id) AS participant_count,
			AVG(r.score)::float8 AS average_score,
			MAX(r.created_at) AS last_submission
		FROM exams e
		JOIN subjects s ON s.id = e.subject_id
		JOIN classes c ON c.id = e.class_id
		JOIN results r ON r.exam_id = e.id
		GROUP BY e.id, s.name, c.name, e.exam_type
		ORDER BY last_submission DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DashboardExamResult
	for rows.Next() {
		var d DashboardExamResult
		if err := rows.Scan(&d.ExamID, &d.Subject, &d.ClassName, &d.ExamType,
			&d.ParticipantCount, &d.AverageScore, &d.LastSubmission); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	if results == nil {
		results = []DashboardExamResult{}
	}
	return results, rows.Err()
}
