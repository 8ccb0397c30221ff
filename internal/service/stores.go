package service

import (
	"context"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
)

// ExamStore is the exam table as the services see it.
type ExamStore interface {
	GetByID(ctx context.Context, id int64) (*model.Exam, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, limit, offset int) ([]model.Exam, error)
	ListTakeable(ctx context.Context, classID int, regNo string) ([]model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	UpdateStatus(ctx context.Context, id int64, status bool) error
	LockStatus(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// QuestionStore is the question bank.
type QuestionStore interface {
	CreateBatch(ctx context.Context, questions []model.Question) error
	Count(ctx context.Context, examID int64) (int, error)
	ListExcluding(ctx context.Context, examID int64, exclude []int64) ([]model.QuestionMeta, error)
	AnswerKey(ctx context.Context, examID int64) (map[int64]string, error)
	DeleteByExam(ctx context.Context, examID int64) error
}

// SubjectStore is the subject catalogue.
type SubjectStore interface {
	GetAll(ctx context.Context) ([]model.Subject, error)
	FindByName(ctx context.Context, name string) (*model.Subject, error)
	Create(ctx context.Context, s *model.Subject) error
	Search(ctx context.Context, field, keyword string) ([]model.Subject, error)
}

// ClassStore is the class catalogue.
type ClassStore interface {
	GetAll(ctx context.Context) ([]model.Class, error)
	FindByName(ctx context.Context, name string) (*model.Class, error)
	Create(ctx context.Context, c *model.Class) error
	Search(ctx context.Context, field, keyword string) ([]model.Class, error)
}

// ResultStore holds scored submissions.
type ResultStore interface {
	Exists(ctx context.Context, examID int64, regNo string) (bool, error)
	Create(ctx context.Context, r *model.Result) error
	ListRanked(ctx context.Context, f model.ResultFilter) ([]model.RankedResult, error)
	Delete(ctx context.Context, id int64) error
	DeleteByExam(ctx context.Context, examID int64) error
}

// ProgressStore is the saved-progress facet of the session state.
type ProgressStore interface {
	GetProgress(ctx context.Context, studentID string, examID int64) (*model.ProgressView, error)
	SaveProgress(ctx context.Context, studentID string, examID int64, p model.Progress) (*model.Progress, error)
	AppendQuestionMeta(ctx context.Context, studentID string, examID int64, metas []model.QuestionMeta, limit int) ([]model.QuestionMeta, error)
}

// LiveStore is the live-status facet of the session state plus the admin
// presence flag and the attendance fan-out.
type LiveStore interface {
	UpsertAttendance(ctx context.Context, studentID string, examID int64, patch model.AttendancePatch, defaults model.AttendanceEntry) error
	PatchAttendance(ctx context.Context, studentID string, examID int64, patch model.AttendancePatch) (bool, error)
	MarkInactive(ctx context.Context, studentID string, examID int64, timeLeft *int) (bool, error)
	GetStudent(ctx context.Context, studentID string) ([]model.AttendanceEntry, error)
	AttendanceSnapshot(ctx context.Context) ([]model.AttendanceEntry, error)
	RemoveStudentsByExam(ctx context.Context, examID int64) (int, error)
	RemoveStudentIfFinished(ctx context.Context, studentID string, examID int64, totalQuestions int) (bool, error)
	SetAdminOnline(ctx context.Context, online bool) error
	IsAdminOnline(ctx context.Context) (bool, error)
	PublishAttendance(ctx context.Context, entries []model.AttendanceEntry) error
	EnqueueJoin(ctx context.Context, rec model.AttendanceRecord) error
}

// TxStores are the stores bound to one transaction.
type TxStores struct {
	Exams     ExamStore
	Questions QuestionStore
	Subjects  SubjectStore
	Classes   ClassStore
	Results   ResultStore
}

// Transactor runs fn inside one atomic unit of work. Any error returned by
// fn rolls back every write made through the given stores.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(stores TxStores) error) error
}

type pgxTransactor struct {
	runner *repository.TxRunner
}

// NewTransactor binds fresh repositories to each pgx transaction.
func NewTransactor(runner *repository.TxRunner) Transactor {
	return &pgxTransactor{runner: runner}
}

func (t *pgxTransactor) WithinTx(ctx context.Context, fn func(stores TxStores) error) error {
	return t.runner.WithTx(ctx, func(db repository.DBTX) error {
		return fn(TxStores{
			Exams:     repository.NewExamRepository(db),
			Questions: repository.NewQuestionRepository(db),
			Subjects:  repository.NewSubjectRepository(db),
			Classes:   repository.NewClassRepository(db),
			Results:   repository.NewResultRepository(db),
		})
	})
}
