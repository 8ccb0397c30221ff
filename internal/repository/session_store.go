package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/peterskelv123-tech/backend-offline/internal/config"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	fieldActive   = "active"
	fieldTimeLeft = "timeLeft"
	fieldAnswered = "answered"

	fieldAnswers      = "answers"
	fieldCurrentIndex = "currentIndex"
	fieldQuestionMeta = "questionMeta"

	watchRetries = 5
	deleteBatch  = 100
)

// SessionStore keeps one record per (student, exam) with two facets: the
// live-status hash, which lives until the session is resolved, and the
// saved-progress hash, which expires progressTTL after its last write.
type SessionStore struct {
	rdb         *redis.Client
	keys        *config.CacheKeyStruct
	progressTTL time.Duration
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(rdb *redis.Client, progressTTL time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, keys: config.CacheKey, progressTTL: progressTTL}
}

// ────────────────────────────────────────────────────────────────────────────
// Live-status facet
// ────────────────────────────────────────────────────────────────────────────

// SetAttendance overwrites every field of one entry.
func (s *SessionStore) SetAttendance(ctx context.Context, studentID string, entry model.AttendanceEntry) error {
	key := s.keys.LiveEntryKey(studentID, entry.ExamID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldActive, encodeBool(entry.Active),
			fieldTimeLeft, entry.TimeLeft,
			fieldAnswered, entry.Answered,
		)
		s.index(ctx, pipe, studentID, entry.ExamID)
		return nil
	})
	return err
}

// UpsertAttendance creates the entry from defaults when it does not exist
// and then overwrites only the fields set in patch.
func (s *SessionStore) UpsertAttendance(ctx context.Context, studentID string, examID int64, patch model.AttendancePatch, defaults model.AttendanceEntry) error {
	key := s.keys.LiveEntryKey(studentID, examID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldActive, encodeBool(defaults.Active))
		pipe.HSetNX(ctx, key, fieldTimeLeft, defaults.TimeLeft)
		pipe.HSetNX(ctx, key, fieldAnswered, defaults.Answered)
		if values := patchValues(patch); len(values) > 0 {
			pipe.HSet(ctx, key, values...)
		}
		s.index(ctx, pipe, studentID, examID)
		return nil
	})
	return err
}

// PatchAttendance overwrites the fields set in patch on an existing entry.
// It reports false and writes nothing when the entry does not exist.
func (s *SessionStore) PatchAttendance(ctx context.Context, studentID string, examID int64, patch model.AttendancePatch) (bool, error) {
	key := s.keys.LiveEntryKey(studentID, examID)
	values := patchValues(patch)

	var found bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		found = n > 0
		if !found || len(values) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, values...)
			return nil
		})
		return err
	}, key)
	return found, err
}

// MarkInactive clears the active flag of an existing entry. timeLeft is
// only stored when the entry has none.
func (s *SessionStore) MarkInactive(ctx context.Context, studentID string, examID int64, timeLeft *int) (bool, error) {
	key := s.keys.LiveEntryKey(studentID, examID)

	var found bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		found = n > 0
		if !found {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldActive, encodeBool(false))
			if timeLeft != nil {
				pipe.HSetNX(ctx, key, fieldTimeLeft, *timeLeft)
			}
			return nil
		})
		return err
	}, key)
	return found, err
}

// GetEntry returns one entry, or nil when the student is not associated
// with the exam.
func (s *SessionStore) GetEntry(ctx context.Context, studentID string, examID int64) (*model.AttendanceEntry, error) {
	values, err := s.rdb.HGetAll(ctx, s.keys.LiveEntryKey(studentID, examID)).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	entry := parseEntry(studentID, examID, values)
	return &entry, nil
}

// GetStudent returns every entry of one student ordered by exam id, or nil
// when the student has none.
func (s *SessionStore) GetStudent(ctx context.Context, studentID string) ([]model.AttendanceEntry, error) {
	members, err := s.rdb.SMembers(ctx, s.keys.StudentExamsKey(studentID)).Result()
	if err != nil {
		return nil, err
	}

	refs := make([]entryRef, 0, len(members))
	for _, m := range members {
		examID, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		refs = append(refs, entryRef{studentID: studentID, examID: examID})
	}

	entries, err := s.load(ctx, refs)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries, nil
}

// AttendanceSnapshot flattens every entry of every student. Each entry
// carries its student id and a non-negative timeLeft.
func (s *SessionStore) AttendanceSnapshot(ctx context.Context) ([]model.AttendanceEntry, error) {
	refs, err := s.members(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.load(ctx, refs)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.AttendanceEntry{}
	}
	return entries, nil
}

// RemoveStudentsByExam deletes every entry of an exam and returns how many
// were removed.
func (s *SessionStore) RemoveStudentsByExam(ctx context.Context, examID int64) (int, error) {
	refs, err := s.members(ctx)
	if err != nil {
		return 0, err
	}

	var matched []entryRef
	for _, ref := range refs {
		if ref.examID == examID {
			matched = append(matched, ref)
		}
	}
	if err := s.removeAll(ctx, matched); err != nil {
		return 0, err
	}
	return len(matched), nil
}

// RemoveStudentIfFinished deletes the entry and returns true when
// timeLeft <= 0 or answered >= totalQuestions. Otherwise the entry is kept
// with active=false and false is returned. A missing entry is left alone
// and reported as false.
func (s *SessionStore) RemoveStudentIfFinished(ctx context.Context, studentID string, examID int64, totalQuestions int) (bool, error) {
	key := s.keys.LiveEntryKey(studentID, examID)

	var removed bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		removed = false
		values, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return nil
		}

		entry := parseEntry(studentID, examID, values)
		finished := entry.TimeLeft <= 0 || entry.Answered >= totalQuestions

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if finished {
				s.unindex(ctx, pipe, studentID, examID)
				return nil
			}
			pipe.HSet(ctx, key, fieldActive, encodeBool(false))
			return nil
		})
		if err == nil {
			removed = finished
		}
		return err
	}, key)
	return removed, err
}

// ClearAttendance deletes every live-status entry and returns how many
// were removed. Saved progress is untouched.
func (s *SessionStore) ClearAttendance(ctx context.Context) (int, error) {
	refs, err := s.members(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.removeAll(ctx, refs); err != nil {
		return 0, err
	}
	return len(refs), s.rdb.Del(ctx, s.keys.LiveEntriesIndex()).Err()
}

// ────────────────────────────────────────────────────────────────────────────
// Admin presence
// ────────────────────────────────────────────────────────────────────────────

// SetAdminOnline records whether an administrator is monitoring. Going
// offline resets all live tracking.
func (s *SessionStore) SetAdminOnline(ctx context.Context, online bool) error {
	if err := s.rdb.Set(ctx, s.keys.AdminOnlineKey(), strconv.FormatBool(online), 0).Err(); err != nil {
		return err
	}
	if online {
		return nil
	}
	_, err := s.ClearAttendance(ctx)
	return err
}

// IsAdminOnline reports the flag written by SetAdminOnline.
func (s *SessionStore) IsAdminOnline(ctx context.Context) (bool, error) {
	val, err := s.rdb.Get(ctx, s.keys.AdminOnlineKey()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "true", nil
}

// ────────────────────────────────────────────────────────────────────────────
// Saved-progress facet
// ────────────────────────────────────────────────────────────────────────────

// SaveProgress stores a progress snapshot and restarts its TTL. Questions
// already assigned are kept in place; new ones from p are appended.
func (s *SessionStore) SaveProgress(ctx context.Context, studentID string, examID int64, p model.Progress) (*model.Progress, error) {
	key := s.keys.ProgressKey(examID, studentID)

	saved := p
	if saved.Answers == nil {
		saved.Answers = []model.Answer{}
	}

	err := s.watch(ctx, func(tx *redis.Tx) error {
		existing, err := readQuestionMeta(ctx, tx, key)
		if err != nil {
			return err
		}
		saved.QuestionMeta = mergeQuestionMeta(existing, p.QuestionMeta, 0)

		answers, err := json.Marshal(saved.Answers)
		if err != nil {
			return err
		}
		meta, err := json.Marshal(saved.QuestionMeta)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldAnswers, string(answers),
				fieldCurrentIndex, saved.CurrentIndex,
				fieldQuestionMeta, string(meta),
			)
			s.expire(ctx, pipe, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// AppendQuestionMeta appends newly assigned questions to a snapshot,
// creating it when absent, without letting the assigned set grow past
// limit. It returns the full assigned set in presentation order.
func (s *SessionStore) AppendQuestionMeta(ctx context.Context, studentID string, examID int64, metas []model.QuestionMeta, limit int) ([]model.QuestionMeta, error) {
	key := s.keys.ProgressKey(examID, studentID)

	var merged []model.QuestionMeta
	err := s.watch(ctx, func(tx *redis.Tx) error {
		existing, err := readQuestionMeta(ctx, tx, key)
		if err != nil {
			return err
		}
		merged = mergeQuestionMeta(existing, metas, limit)
		if len(merged) == len(existing) {
			return nil
		}

		meta, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSetNX(ctx, key, fieldAnswers, "[]")
			pipe.HSetNX(ctx, key, fieldCurrentIndex, 0)
			pipe.HSet(ctx, key, fieldQuestionMeta, string(meta))
			s.expire(ctx, pipe, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// GetProgress returns the saved progress merged with the live-status facet,
// or nil when nothing was saved or the snapshot expired.
func (s *SessionStore) GetProgress(ctx context.Context, studentID string, examID int64) (*model.ProgressView, error) {
	pipe := s.rdb.Pipeline()
	progressCmd := pipe.HGetAll(ctx, s.keys.ProgressKey(examID, studentID))
	liveCmd := pipe.HGetAll(ctx, s.keys.LiveEntryKey(studentID, examID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	values := progressCmd.Val()
	if len(values) == 0 {
		return nil, nil
	}

	view := &model.ProgressView{Progress: parseProgress(values)}
	view.TotalQuestionsAnswered = len(view.Answers)

	if live := liveCmd.Val(); len(live) > 0 {
		entry := parseEntry(studentID, examID, live)
		view.TimeLeft = &entry.TimeLeft
		view.Active = &entry.Active
	}
	return view, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Attendance events
// ────────────────────────────────────────────────────────────────────────────

// PublishAttendance fans a snapshot out to every subscriber of the
// attendance channel.
func (s *SessionStore) PublishAttendance(ctx context.Context, entries []model.AttendanceEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.keys.AttendanceChannel(), payload).Err()
}

// SubscribeAttendance subscribes to the attendance channel. The caller
// closes the returned subscription.
func (s *SessionStore) SubscribeAttendance(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, s.keys.AttendanceChannel())
}

// EnqueueJoin queues a join for the attendance ledger worker.
func (s *SessionStore) EnqueueJoin(ctx context.Context, rec model.AttendanceRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistAttendanceQueue, payload).Err()
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

type entryRef struct {
	studentID string
	examID    int64
}

// members decodes the entries index. Student ids may contain ':', exam ids
// never do.
func (s *SessionStore) members(ctx context.Context) ([]entryRef, error) {
	raw, err := s.rdb.SMembers(ctx, s.keys.LiveEntriesIndex()).Result()
	if err != nil {
		return nil, err
	}

	refs := make([]entryRef, 0, len(raw))
	for _, m := range raw {
		i := strings.LastIndex(m, ":")
		if i <= 0 {
			continue
		}
		examID, err := strconv.ParseInt(m[i+1:], 10, 64)
		if err != nil {
			continue
		}
		refs = append(refs, entryRef{studentID: m[:i], examID: examID})
	}
	return refs, nil
}

// load reads the referenced entries in one round trip, skipping index
// members whose hash is gone.
func (s *SessionStore) load(ctx context.Context, refs []entryRef) ([]model.AttendanceEntry, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(refs))
	for i, ref := range refs {
		cmds[i] = pipe.HGetAll(ctx, s.keys.LiveEntryKey(ref.studentID, ref.examID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	var entries []model.AttendanceEntry
	for i, cmd := range cmds {
		values := cmd.Val()
		if len(values) == 0 {
			continue
		}
		entries = append(entries, parseEntry(refs[i].studentID, refs[i].examID, values))
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StudentID != entries[j].StudentID {
			return entries[i].StudentID < entries[j].StudentID
		}
		return entries[i].ExamID < entries[j].ExamID
	})
	return entries, nil
}

func (s *SessionStore) removeAll(ctx context.Context, refs []entryRef) error {
	for start := 0; start < len(refs); start += deleteBatch {
		end := min(start+deleteBatch, len(refs))
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, ref := range refs[start:end] {
				s.unindex(ctx, pipe, ref.studentID, ref.examID)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("remove entries: %w", err)
		}
	}
	return nil
}

func (s *SessionStore) index(ctx context.Context, pipe redis.Pipeliner, studentID string, examID int64) {
	pipe.SAdd(ctx, s.keys.LiveEntriesIndex(), s.keys.LiveEntryMember(studentID, examID))
	pipe.SAdd(ctx, s.keys.StudentExamsKey(studentID), examID)
}

func (s *SessionStore) unindex(ctx context.Context, pipe redis.Pipeliner, studentID string, examID int64) {
	pipe.Del(ctx, s.keys.LiveEntryKey(studentID, examID))
	pipe.SRem(ctx, s.keys.LiveEntriesIndex(), s.keys.LiveEntryMember(studentID, examID))
	pipe.SRem(ctx, s.keys.StudentExamsKey(studentID), examID)
}

func (s *SessionStore) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if s.progressTTL > 0 {
		pipe.Expire(ctx, key, s.progressTTL)
	}
}

// watch runs fn as an optimistic transaction, retrying when a watched key
// changes underneath it.
func (s *SessionStore) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < watchRetries; i++ {
		err := s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("watch %v: %w", keys, redis.TxFailedErr)
}

func readQuestionMeta(ctx context.Context, tx *redis.Tx, key string) ([]model.QuestionMeta, error) {
	raw, err := tx.HGet(ctx, key, fieldQuestionMeta).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var metas []model.QuestionMeta
	if err := json.Unmarshal([]byte(raw), &metas); err != nil {
		return nil, nil
	}
	return metas, nil
}

// mergeQuestionMeta keeps existing in order and appends the items of
// incoming whose id is new. A positive limit caps the result length but
// never drops existing items.
func mergeQuestionMeta(existing, incoming []model.QuestionMeta, limit int) []model.QuestionMeta {
	merged := make([]model.QuestionMeta, 0, len(existing)+len(incoming))
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	for _, m := range existing {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range incoming {
		if limit > 0 && len(merged) >= limit {
			break
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	return merged
}

func patchValues(p model.AttendancePatch) []any {
	var values []any
	if p.Active != nil {
		values = append(values, fieldActive, encodeBool(*p.Active))
	}
	if p.TimeLeft != nil {
		values = append(values, fieldTimeLeft, *p.TimeLeft)
	}
	if p.Answered != nil {
		values = append(values, fieldAnswered, *p.Answered)
	}
	return values
}

func parseEntry(studentID string, examID int64, values map[string]string) model.AttendanceEntry {
	return model.AttendanceEntry{
		StudentID: studentID,
		ExamID:    examID,
		Active:    values[fieldActive] == "1" || values[fieldActive] == "true",
		TimeLeft:  parseSeconds(values[fieldTimeLeft]),
		Answered:  parseSeconds(values[fieldAnswered]),
	}
}

func parseProgress(values map[string]string) model.Progress {
	p := model.Progress{
		Answers:      []model.Answer{},
		QuestionMeta: []model.QuestionMeta{},
	}
	if raw := values[fieldAnswers]; raw != "" {
		var answers []model.Answer
		if json.Unmarshal([]byte(raw), &answers) == nil && answers != nil {
			p.Answers = answers
		}
	}
	if raw := values[fieldQuestionMeta]; raw != "" {
		var metas []model.QuestionMeta
		if json.Unmarshal([]byte(raw), &metas) == nil && metas != nil {
			p.QuestionMeta = metas
		}
	}
	p.CurrentIndex = parseSeconds(values[fieldCurrentIndex])
	return p
}

// parseSeconds floors a stored number and clamps it at zero.
func parseSeconds(raw string) int {
	f, err := strconv.ParseFloat(raw, 64)
	switch {
	case err != nil || math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(math.Floor(f))
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
