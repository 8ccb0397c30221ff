package service

import (
	"context"
	"errors"
	"testing"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
)

type fakeDashboard struct {
	counts    repository.DashboardCounts
	recent    []repository.DashboardExamResult
	err       error
	lastLimit int
}

func (f *fakeDashboard) GetSummaryCounts(_ context.Context) (*repository.DashboardCounts, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := f.counts
	return &c, nil
}

func (f *fakeDashboard) GetRecentExamResults(_ context.Context, limit int) ([]repository.DashboardExamResult, error) {
	f.lastLimit = limit
	return f.recent, f.err
}

func TestDashboardData(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	active := model.AttendanceEntry{ExamID: 1, Active: true, TimeLeft: 300}
	if err := store.SetAttendance(ctx, "S1", active); err != nil {
		t.Fatalf("SetAttendance: %v", err)
	}
	if err := store.SetAttendance(ctx, "S2", model.AttendanceEntry{ExamID: 1, TimeLeft: 120}); err != nil {
		t.Fatalf("SetAttendance: %v", err)
	}
	if err := store.SetAdminOnline(ctx, true); err != nil {
		t.Fatalf("SetAdminOnline: %v", err)
	}

	repo := &fakeDashboard{
		counts: repository.DashboardCounts{Subjects: 2, Classes: 1, Exams: 3, ActiveExams: 1},
		recent: []repository.DashboardExamResult{{ExamID: 1, ParticipantCount: 4}},
	}
	data, err := NewDashboardService(repo, store).GetDashboardData(ctx)
	if err != nil {
		t.Fatalf("GetDashboardData: %v", err)
	}

	if repo.lastLimit != 5 {
		t.Errorf("recent limit = %d, want 5", repo.lastLimit)
	}
	if data.Counts.Exams != 3 || data.Counts.ActiveExams != 1 {
		t.Errorf("counts = %+v", data.Counts)
	}
	if data.LiveSessions != 1 {
		t.Errorf("live sessions = %d, want 1", data.LiveSessions)
	}
	if !data.AdminOnline {
		t.Error("admin online = false, want true")
	}
	if len(data.RecentResults) != 1 {
		t.Errorf("recent = %d rows, want 1", len(data.RecentResults))
	}
}

func TestDashboardDataRepoError(t *testing.T) {
	store, _ := newTestRedisStore(t)
	boom := errors.New("db down")

	_, err := NewDashboardService(&fakeDashboard{err: boom}, store).GetDashboardData(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
