package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/peterskelv123-tech/backend-offline/internal/extractor"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	ws "github.com/peterskelv123-tech/backend-offline/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// memDB is an in-memory stand-in for the relational store. A transaction
// works on a copy that only replaces the original when fn succeeds.
type memDB struct {
	nextID    int64
	exams     map[int64]model.Exam
	subjects  []model.Subject
	classes   []model.Class
	questions []model.Question
	results   []model.Result
}

func newMemDB() *memDB {
	return &memDB{exams: map[int64]model.Exam{}}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) clone() *memDB {
	c := &memDB{
		nextID:    db.nextID,
		exams:     make(map[int64]model.Exam, len(db.exams)),
		subjects:  append([]model.Subject(nil), db.subjects...),
		classes:   append([]model.Class(nil), db.classes...),
		questions: append([]model.Question(nil), db.questions...),
		results:   append([]model.Result(nil), db.results...),
	}
	for k, v := range db.exams {
		c.exams[k] = v
	}
	return c
}

func (db *memDB) stores() TxStores {
	return TxStores{
		Exams:     memExams{db},
		Questions: memQuestions{db},
		Subjects:  memSubjects{db},
		Classes:   memClasses{db},
		Results:   memResults{db},
	}
}

type memTx struct{ db *memDB }

func (t memTx) WithinTx(_ context.Context, fn func(TxStores) error) error {
	work := t.db.clone()
	if err := fn(work.stores()); err != nil {
		return err
	}
	*t.db = *work
	return nil
}

type memExams struct{ db *memDB }

func (m memExams) GetByID(_ context.Context, id int64) (*model.Exam, error) {
	e, ok := m.db.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m memExams) Count(_ context.Context) (int, error) { return len(m.db.exams), nil }

func (m memExams) List(_ context.Context, limit, offset int) ([]model.Exam, error) {
	all := make([]model.Exam, 0, len(m.db.exams))
	for _, e := range m.db.exams {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if limit <= 0 {
		return all, nil
	}
	if offset >= len(all) {
		return []model.Exam{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (m memExams) ListTakeable(_ context.Context, classID int, regNo string) ([]model.Exam, error) {
	out := []model.Exam{}
	for _, e := range m.db.exams {
		if !e.Status || e.ClassID != classID {
			continue
		}
		sat := false
		for _, r := range m.db.results {
			if r.ExamID == e.ID && r.RegNo == regNo {
				sat = true
			}
		}
		if !sat {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memExams) Create(_ context.Context, e *model.Exam) error {
	e.ID = m.db.id()
	m.db.exams[e.ID] = *e
	return nil
}

func (m memExams) UpdateStatus(_ context.Context, id int64, status bool) error {
	e, ok := m.db.exams[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = status
	m.db.exams[id] = e
	return nil
}

func (m memExams) LockStatus(_ context.Context, id int64) (bool, error) {
	e, ok := m.db.exams[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return e.Status, nil
}

func (m memExams) Delete(_ context.Context, id int64) error {
	if _, ok := m.db.exams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.exams, id)
	return nil
}

type memQuestions struct{ db *memDB }

func (m memQuestions) CreateBatch(_ context.Context, questions []model.Question) error {
	for i := range questions {
		questions[i].ID = m.db.id()
		m.db.questions = append(m.db.questions, questions[i])
	}
	return nil
}

func (m memQuestions) Count(_ context.Context, examID int64) (int, error) {
	n := 0
	for _, q := range m.db.questions {
		if q.ExamID == examID {
			n++
		}
	}
	return n, nil
}

func (m memQuestions) ListExcluding(_ context.Context, examID int64, exclude []int64) ([]model.QuestionMeta, error) {
	skip := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	out := []model.QuestionMeta{}
	for _, q := range m.db.questions {
		if q.ExamID == examID && !skip[q.ID] {
			out = append(out, model.QuestionMeta{ID: q.ID, Question: q.Text, Options: q.Options})
		}
	}
	return out, nil
}

func (m memQuestions) AnswerKey(_ context.Context, examID int64) (map[int64]string, error) {
	key := map[int64]string{}
	for _, q := range m.db.questions {
		if q.ExamID == examID {
			key[q.ID] = q.CorrectAnswer
		}
	}
	return key, nil
}

func (m memQuestions) DeleteByExam(_ context.Context, examID int64) error {
	kept := m.db.questions[:0:0]
	for _, q := range m.db.questions {
		if q.ExamID != examID {
			kept = append(kept, q)
		}
	}
	m.db.questions = kept
	return nil
}

type memSubjects struct{ db *memDB }

func (m memSubjects) GetAll(_ context.Context) ([]model.Subject, error) {
	return append([]model.Subject{}, m.db.subjects...), nil
}

func (m memSubjects) FindByName(_ context.Context, name string) (*model.Subject, error) {
	for _, s := range m.db.subjects {
		if strings.EqualFold(s.Name, name) {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memSubjects) Create(ctx context.Context, s *model.Subject) error {
	if _, err := m.FindByName(ctx, s.Name); err == nil {
		return repository.ErrDuplicate
	}
	s.ID = int(m.db.id())
	m.db.subjects = append(m.db.subjects, *s)
	return nil
}

func (m memSubjects) Search(_ context.Context, field, keyword string) ([]model.Subject, error) {
	if field != "" && field != "name" {
		return nil, repository.ErrInvalidSearchField
	}
	out := []model.Subject{}
	for _, s := range m.db.subjects {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(keyword)) {
			out = append(out, s)
		}
	}
	return out, nil
}

type memClasses struct{ db *memDB }

func (m memClasses) GetAll(_ context.Context) ([]model.Class, error) {
	return append([]model.Class{}, m.db.classes...), nil
}

func (m memClasses) FindByName(_ context.Context, name string) (*model.Class, error) {
	for _, c := range m.db.classes {
		if strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memClasses) Create(ctx context.Context, c *model.Class) error {
	if _, err := m.FindByName(ctx, c.Name); err == nil {
		return repository.ErrDuplicate
	}
	c.ID = int(m.db.id())
	m.db.classes = append(m.db.classes, *c)
	return nil
}

func (m memClasses) Search(_ context.Context, field, keyword string) ([]model.Class, error) {
	if field != "" && field != "name" {
		return nil, repository.ErrInvalidSearchField
	}
	out := []model.Class{}
	for _, c := range m.db.classes {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(keyword)) {
			out = append(out, c)
		}
	}
	return out, nil
}

type memResults struct{ db *memDB }

func (m memResults) Exists(_ context.Context, examID int64, regNo string) (bool, error) {
	for _, r := range m.db.results {
		if r.ExamID == examID && r.RegNo == regNo {
			return true, nil
		}
	}
	return false, nil
}

func (m memResults) Create(ctx context.Context, r *model.Result) error {
	if ok, _ := m.Exists(ctx, r.ExamID, r.RegNo); ok {
		return repository.ErrDuplicate
	}
	r.ID = m.db.id()
	r.CreatedAt = time.Now()
	m.db.results = append(m.db.results, *r)
	return nil
}

func (m memResults) ListRanked(_ context.Context, f model.ResultFilter) ([]model.RankedResult, error) {
	out := []model.RankedResult{}
	for _, r := range m.db.results {
		e := m.db.exams[r.ExamID]
		if strings.EqualFold(e.ClassName, f.ClassName) && strings.EqualFold(e.SubjectName, f.Subject) && e.ExamType == f.ExamType {
			out = append(out, model.RankedResult{Result: r, ClassName: e.ClassName, Subject: e.SubjectName, ExamType: e.ExamType})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Position = i + 1
	}
	return out, nil
}

func (m memResults) Delete(_ context.Context, id int64) error {
	for i, r := range m.db.results {
		if r.ID == id {
			m.db.results = append(m.db.results[:i], m.db.results[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m memResults) DeleteByExam(_ context.Context, examID int64) error {
	kept := m.db.results[:0:0]
	for _, r := range m.db.results {
		if r.ExamID != examID {
			kept = append(kept, r)
		}
	}
	m.db.results = kept
	return nil
}

// seedExam stores an exam with n questions whose correct answer is "A".
func seedExam(t *testing.T, db *memDB, exam model.Exam, n int) model.Exam {
	t.Helper()
	ctx := context.Background()
	st := db.stores()
	if err := st.Exams.Create(ctx, &exam); err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	questions := make([]model.Question, n)
	for i := range questions {
		questions[i] = model.Question{ExamID: exam.ID, Text: "q", Options: []string{"A", "B"}, CorrectAnswer: "A"}
	}
	if err := st.Questions.CreateBatch(ctx, questions); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return exam
}

func newTestRedisStore(t *testing.T) (*repository.SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repository.NewSessionStore(rdb, 24*time.Hour), mr
}

type fakeExtractor struct {
	questions []extractor.Question
	err       error
}

func (f fakeExtractor) ExtractFile(_ context.Context, _ string, required int) ([]extractor.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.questions) < required {
		return nil, extractor.ErrInsufficientQuestions
	}
	return f.questions, nil
}

type fakeStopper struct{ stopped []int64 }

func (f *fakeStopper) ForceStopExam(_ context.Context, examID int64) error {
	f.stopped = append(f.stopped, examID)
	return nil
}

type sentEvent struct {
	to    string
	event ws.Event
	data  any
}

// fakePresence records deliveries instead of writing to sockets.
type fakePresence struct {
	mu        sync.Mutex
	admins    map[string]bool
	connected map[string]bool
	sent      []sentEvent
}

func newFakePresence() *fakePresence {
	return &fakePresence{admins: map[string]bool{}, connected: map[string]bool{}}
}

func (p *fakePresence) JoinAdmins(connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admins[connID] = true
	return true
}

func (p *fakePresence) BindStudent(_, studentID string, _ int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected[studentID] = true
	return true
}

func (p *fakePresence) IsStudentConnected(studentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected[studentID]
}

func (p *fakePresence) AdminCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.admins)
}

func (p *fakePresence) SendToStudent(studentID string, event ws.Event, data any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentEvent{to: "student:" + studentID, event: event, data: data})
	return p.connected[studentID]
}

func (p *fakePresence) BroadcastAdmins(event ws.Event, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentEvent{to: "admins", event: event, data: data})
}

func (p *fakePresence) BroadcastExam(examID int64, event ws.Event, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentEvent{to: "exam", event: event, data: data})
}

func (p *fakePresence) drop(studentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.connected, studentID)
}

func (p *fakePresence) events(event ws.Event) []sentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sentEvent
	for _, e := range p.sent {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

var testLogger = zerolog.Nop()
