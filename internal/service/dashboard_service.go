package service

import (
	"context"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
)

// DashboardData consolidates the figures shown on the admin dashboard.
type DashboardData struct {
	Counts        *repository.DashboardCounts      `json:"counts"`
	LiveSessions  int                              `json:"liveSessions"`
	AdminOnline   bool                             `json:"adminOnline"`
	RecentResults []repository.DashboardExamResult `json:"recentResults"`
}

type dashboardReader interface {
	GetSummaryCounts(ctx context.Context) (*repository.DashboardCounts, error)
	GetRecentExamResults(ctx context.Context, limit int) ([]repository.DashboardExamResult, error)
}

type liveReader interface {
	AttendanceSnapshot(ctx context.Context) ([]model.AttendanceEntry, error)
	IsAdminOnline(ctx context.Context) (bool, error)
}

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo dashboardReader
	live liveReader
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo dashboardReader, live liveReader) *DashboardService {
	return &DashboardService{repo: repo, live: live}
}

// GetDashboardData gathers the stat cards, the number of active live
// sessions and the latest scored exams.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	counts, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentExamResults(ctx, 5)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.live.AttendanceSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	live := 0
	for _, e := range snapshot {
		if e.Active {
			live++
		}
	}

	online, err := s.live.IsAdminOnline(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		Counts:        counts,
		LiveSessions:  live,
		AdminOnline:   online,
		RecentResults: recent,
	}, nil
}
