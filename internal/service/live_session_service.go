package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peterskelv123-tech/backend-offline/internal/metrics"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	ws "github.com/peterskelv123-tech/backend-offline/internal/websocket"
	"github.com/rs/zerolog"
)

// Presence is the connection registry the coordinator reconciles the
// store against and delivers events through.
type Presence interface {
	JoinAdmins(connID string) bool
	BindStudent(connID, studentID string, examID int64) bool
	IsStudentConnected(studentID string) bool
	AdminCount() int
	SendToStudent(studentID string, event ws.Event, data any) bool
	BroadcastAdmins(event ws.Event, data any)
	BroadcastExam(examID int64, event ws.Event, data any)
}

// Triggers label how a session came to be resolved.
const (
	TriggerDisconnect   = "disconnect"
	TriggerAdminJoin    = "admin-join"
	TriggerAdminStop    = "admin-stop"
	TriggerStudentLeave = "student-leave"
	TriggerSweep        = "sweep"
)

// StudentJoin is a student starting or resuming an exam.
type StudentJoin struct {
	ExamID    int64
	StudentID string
	Answered  *int
	TimeLeft  *int
}

// LiveSessionService tracks which students are sitting which exam and
// reconciles that state with the connections that are actually live.
type LiveSessionService struct {
	store    LiveStore
	exams    ExamStore
	presence Presence
	log      zerolog.Logger
}

// NewLiveSessionService creates a new LiveSessionService.
func NewLiveSessionService(store LiveStore, exams ExamStore, presence Presence, log zerolog.Logger) *LiveSessionService {
	return &LiveSessionService{
		store:    store,
		exams:    exams,
		presence: presence,
		log:      log.With().Str("component", "live_session").Logger(),
	}
}

// AdminJoin puts a connection in the admin group, resolves every ghost and
// returns the active entries for the joining admin.
func (s *LiveSessionService) AdminJoin(ctx context.Context, connID string) ([]model.AttendanceEntry, error) {
	s.presence.JoinAdmins(connID)
	if err := s.store.SetAdminOnline(ctx, true); err != nil {
		return nil, fmt.Errorf("set admin online: %w", err)
	}

	if _, err := s.Reconcile(ctx, TriggerAdminJoin); err != nil {
		return nil, err
	}
	return s.Snapshot(ctx)
}

// StudentJoin marks the student active in the exam and binds the
// connection to the student. A first join starts the clock at the exam's
// full allocation; a rejoin keeps whatever was recorded unless the client
// sends newer values.
func (s *LiveSessionService) StudentJoin(ctx context.Context, connID string, req StudentJoin) error {
	exam, err := s.loadExam(ctx, req.ExamID)
	if err != nil {
		return err
	}

	// Bound first so a concurrent sweep never sees the fresh entry as a ghost.
	s.presence.BindStudent(connID, req.StudentID, req.ExamID)

	active := true
	patch := model.AttendancePatch{Active: &active, Answered: req.Answered, TimeLeft: req.TimeLeft}
	defaults := model.AttendanceEntry{Active: true, TimeLeft: exam.TimeAllocatedSeconds()}
	if err := s.store.UpsertAttendance(ctx, req.StudentID, req.ExamID, patch, defaults); err != nil {
		return fmt.Errorf("record join: %w", err)
	}

	rec := model.AttendanceRecord{ExamID: req.ExamID, RegNo: req.StudentID, Attended: true, JoinedAt: time.Now().UTC()}
	if err := s.store.EnqueueJoin(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("student_id", req.StudentID).Msg("failed to queue attendance record")
	}

	s.log.Info().Str("student_id", req.StudentID).Int64("exam_id", req.ExamID).Msg("student joined")
	s.pushUpdate(ctx)
	return nil
}

// StudentStatus applies a heartbeat to an existing entry.
func (s *LiveSessionService) StudentStatus(ctx context.Context, studentID string, examID int64, patch model.AttendancePatch) error {
	found, err := s.store.PatchAttendance(ctx, studentID, examID, patch)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if !found {
		s.log.Debug().Str("student_id", studentID).Int64("exam_id", examID).Msg("status for unknown session ignored")
		return nil
	}
	s.pushUpdate(ctx)
	return nil
}

// AdminStopExam ends one student's attempt: the entry is resolved, the
// student's connection is told to stop and admins are notified.
func (s *LiveSessionService) AdminStopExam(ctx context.Context, studentID string, examID int64) error {
	exam, err := s.loadExam(ctx, examID)
	if err != nil {
		return err
	}
	if _, err := s.resolve(ctx, studentID, exam, TriggerAdminStop); err != nil {
		return err
	}

	if !s.presence.SendToStudent(studentID, ws.EventForceStop, ws.ForceStopNotice{ExamID: examID, StudentID: studentID}) {
		s.log.Debug().Str("student_id", studentID).Msg("no live connection to force-stop")
	}

	s.pushUpdate(ctx)
	s.presence.BroadcastAdmins(ws.EventStudentStopped, ws.StudentNotice{StudentID: studentID, ExamID: examID})
	return nil
}

// StudentLeave marks every entry of the student inactive and sweeps the
// remaining ghosts. The caller closes the connection afterwards.
func (s *LiveSessionService) StudentLeave(ctx context.Context, studentID string, timeLeft *int) error {
	entries, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load student: %w", err)
	}
	for _, e := range entries {
		if _, err := s.store.MarkInactive(ctx, studentID, e.ExamID, timeLeft); err != nil {
			s.log.Error().Err(err).Str("student_id", studentID).Int64("exam_id", e.ExamID).Msg("failed to mark entry inactive")
		}
	}

	if _, err := s.Reconcile(ctx, TriggerStudentLeave); err != nil {
		s.log.Error().Err(err).Msg("ghost sweep after leave failed")
	}

	s.pushUpdate(ctx)
	s.presence.BroadcastAdmins(ws.EventStudentLeft, ws.StudentNotice{StudentID: studentID})
	return nil
}

// Disconnect handles a closed connection that has already been removed
// from the registry. When the last admin goes the admin flag is cleared;
// a student's session is resolved unless the student is connected again.
func (s *LiveSessionService) Disconnect(ctx context.Context, studentID string, examID int64, admin bool) {
	if admin && s.presence.AdminCount() == 0 {
		if err := s.store.SetAdminOnline(ctx, false); err != nil {
			s.log.Error().Err(err).Msg("failed to clear admin presence")
		}
		s.log.Info().Msg("last admin disconnected")
	}

	if studentID == "" || examID == 0 || s.presence.IsStudentConnected(studentID) {
		return
	}

	exam, err := s.loadExam(ctx, examID)
	if err != nil {
		s.log.Error().Err(err).Int64("exam_id", examID).Msg("cannot resolve disconnected student")
		return
	}
	if s.presence.IsStudentConnected(studentID) {
		return
	}
	removed, err := s.resolve(ctx, studentID, exam, TriggerDisconnect)
	if err != nil {
		s.log.Error().Err(err).Str("student_id", studentID).Msg("failed to resolve disconnected student")
	} else {
		s.log.Info().Str("student_id", studentID).Int64("exam_id", examID).Bool("finished", removed).Msg("student disconnected")
	}

	s.pushUpdate(ctx)
	s.presence.BroadcastAdmins(ws.EventStudentLeft, ws.StudentNotice{StudentID: studentID, ExamID: examID})
}

// ForceStopExam tells every connection in the exam's group to stop and
// purges the exam's entries.
func (s *LiveSessionService) ForceStopExam(ctx context.Context, examID int64) error {
	s.presence.BroadcastExam(examID, ws.EventForceStop, ws.ForceStopNotice{ExamID: examID})

	n, err := s.store.RemoveStudentsByExam(ctx, examID)
	if err != nil {
		return fmt.Errorf("purge exam %d: %w", examID, err)
	}
	s.log.Info().Int64("exam_id", examID).Int("entries", n).Msg("exam force-stopped")

	s.pushUpdate(ctx)
	return nil
}

// Reconcile resolves every ghost: a student present in the store without a
// live connection. A failure on one student is logged and the sweep goes
// on. It returns the number of ghost entries visited.
func (s *LiveSessionService) Reconcile(ctx context.Context, trigger string) (int, error) {
	snapshot, err := s.store.AttendanceSnapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	exams := make(map[int64]*model.Exam)
	ghosts := 0
	for _, entry := range snapshot {
		if s.presence.IsStudentConnected(entry.StudentID) {
			continue
		}
		ghosts++

		exam, ok := exams[entry.ExamID]
		if !ok {
			exam, err = s.loadExam(ctx, entry.ExamID)
			if err != nil {
				s.log.Warn().Err(err).Int64("exam_id", entry.ExamID).Msg("ghost references unknown exam")
				exams[entry.ExamID] = nil
				continue
			}
			exams[entry.ExamID] = exam
		}
		if exam == nil {
			continue
		}
		// The student may have reconnected while the exam was loading.
		if s.presence.IsStudentConnected(entry.StudentID) {
			continue
		}

		if _, err := s.resolve(ctx, entry.StudentID, exam, trigger); err != nil {
			s.log.Error().Err(err).Str("student_id", entry.StudentID).Int64("exam_id", entry.ExamID).Msg("failed to resolve ghost")
		}
	}

	if ghosts > 0 {
		s.log.Debug().Str("trigger", trigger).Int("ghosts", ghosts).Msg("ghost sweep")
	}
	return ghosts, nil
}

// Sweep reconciles and pushes a fresh snapshot while an admin is watching.
func (s *LiveSessionService) Sweep(ctx context.Context) error {
	online, err := s.store.IsAdminOnline(ctx)
	if err != nil || !online {
		return err
	}
	if _, err := s.Reconcile(ctx, TriggerSweep); err != nil {
		return err
	}
	s.pushUpdate(ctx)
	return nil
}

// Snapshot returns the active entries.
func (s *LiveSessionService) Snapshot(ctx context.Context) ([]model.AttendanceEntry, error) {
	all, err := s.store.AttendanceSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]model.AttendanceEntry, 0, len(all))
	for _, e := range all {
		if e.Active {
			active = append(active, e)
		}
	}
	return active, nil
}

func (s *LiveSessionService) resolve(ctx context.Context, studentID string, exam *model.Exam, trigger string) (bool, error) {
	removed, err := s.store.RemoveStudentIfFinished(ctx, studentID, exam.ID, exam.TotalQuestions)
	if err != nil {
		metrics.SessionResolutions.WithLabelValues(trigger, "error").Inc()
		return false, err
	}
	outcome := "retained"
	if removed {
		outcome = "removed"
	}
	metrics.SessionResolutions.WithLabelValues(trigger, outcome).Inc()
	return removed, nil
}

// pushUpdate sends the active entries to admins and the monitor stream.
// Nothing is sent while no admin is online.
func (s *LiveSessionService) pushUpdate(ctx context.Context) {
	online, err := s.store.IsAdminOnline(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read admin presence")
		return
	}
	if !online {
		return
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build snapshot")
		return
	}
	s.presence.BroadcastAdmins(ws.EventAttendanceUpdate, snapshot)
	if err := s.store.PublishAttendance(ctx, snapshot); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish snapshot")
	}
}

func (s *LiveSessionService) loadExam(ctx context.Context, examID int64) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}
	return exam, nil
}
