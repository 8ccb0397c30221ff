package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

func newTestQuestionService(t *testing.T, db *memDB) (*QuestionService, ProgressStore) {
	t.Helper()
	store, _ := newTestRedisStore(t)
	st := db.stores()
	svc := NewQuestionService(st.Exams, st.Questions, store, testLogger)
	// Reverse instead of shuffling so assignments are predictable.
	svc.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	return svc, store
}

func metaIDs(metas []model.QuestionMeta) []int64 {
	ids := make([]int64, len(metas))
	for i, m := range metas {
		ids[i] = m.ID
	}
	return ids
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAllocateIsStable(t *testing.T) {
	db := newMemDB()
	exam := seedExam(t, db, model.Exam{TotalQuestions: 3}, 6)
	svc, _ := newTestQuestionService(t, db)
	ctx := context.Background()

	first, err := svc.Allocate(ctx, exam.ID, "S1")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("got %d questions, want 3", len(first))
	}
	seen := map[int64]bool{}
	for _, id := range metaIDs(first) {
		if seen[id] {
			t.Fatalf("question %d served twice in %v", id, metaIDs(first))
		}
		seen[id] = true
	}

	again, err := svc.Allocate(ctx, exam.ID, "S1")
	if err != nil {
		t.Fatalf("second Allocate: %v", err)
	}
	if !sameIDs(metaIDs(first), metaIDs(again)) {
		t.Errorf("reconnect changed the set: %v then %v", metaIDs(first), metaIDs(again))
	}
}

func TestAllocateTopsUpSavedSet(t *testing.T) {
	db := newMemDB()
	exam := seedExam(t, db, model.Exam{TotalQuestions: 4}, 6)
	svc, store := newTestQuestionService(t, db)
	ctx := context.Background()

	bank, _ := (memQuestions{db}).ListExcluding(ctx, exam.ID, nil)
	shown := bank[:2]
	if _, err := store.SaveProgress(ctx, "S1", exam.ID, model.Progress{QuestionMeta: shown}); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}

	got, err := svc.Allocate(ctx, exam.ID, "S1")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	ids := metaIDs(got)
	if len(ids) != 4 || ids[0] != shown[0].ID || ids[1] != shown[1].ID {
		t.Fatalf("set = %v, want the saved %v first", ids, metaIDs(shown))
	}
	for _, id := range ids[2:] {
		if id == shown[0].ID || id == shown[1].ID {
			t.Errorf("top-up repeated question %d", id)
		}
	}
}

func TestAllocateErrors(t *testing.T) {
	db := newMemDB()
	small := seedExam(t, db, model.Exam{TotalQuestions: 5}, 3)
	svc, _ := newTestQuestionService(t, db)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, small.ID, "S1"); !errors.Is(err, ErrInsufficientRemaining) {
		t.Errorf("small bank err = %v, want ErrInsufficientRemaining", err)
	}
	if _, err := svc.Allocate(ctx, 999, "S1"); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("unknown exam err = %v", err)
	}
}

func TestAllocateConcurrentCallsAgree(t *testing.T) {
	db := newMemDB()
	exam := seedExam(t, db, model.Exam{TotalQuestions: 4}, 10)
	svc, store := newTestQuestionService(t, db)
	ctx := context.Background()

	const callers = 8
	results := make([][]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			metas, err := svc.Allocate(ctx, exam.ID, "S1")
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = metaIDs(metas)
		}(i)
	}
	wg.Wait()

	saved, err := store.GetProgress(ctx, "S1", exam.ID)
	if err != nil || saved == nil {
		t.Fatalf("GetProgress = %v, %v", saved, err)
	}
	want := metaIDs(saved.QuestionMeta)
	if len(want) != 4 {
		t.Fatalf("stored %d questions, want 4", len(want))
	}
	for i, got := range results {
		if !sameIDs(got, want) {
			t.Errorf("caller %d got %v, stored %v", i, got, want)
		}
	}
}
