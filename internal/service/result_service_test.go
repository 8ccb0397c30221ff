package service

import (
	"context"
	"errors"
	"testing"

	"github.com/peterskelv123-tech/backend-offline/internal/model"
)

func ans(id int64, text string) model.Answer {
	return model.Answer{QuestionID: id, AnswerText: text}
}

func TestComputeScore(t *testing.T) {
	key := map[int64]string{1: "B", 2: "C", 4: ""}

	tests := []struct {
		name    string
		answers []model.Answer
		want    int
	}{
		{"mixed with unknown id", []model.Answer{ans(1, "B"), ans(2, "X"), ans(3, "Z")}, 1},
		{"all correct", []model.Answer{ans(1, "B"), ans(2, "C")}, 2},
		{"case matters", []model.Answer{ans(1, "b")}, 0},
		{"every matching answer counts", []model.Answer{ans(2, "X"), ans(2, "C")}, 1},
		{"blank answer matches blank key", []model.Answer{ans(4, "")}, 1},
		{"blank answer misses set key", []model.Answer{ans(1, "")}, 0},
		{"no answers", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeScore(key, tt.answers); got != tt.want {
				t.Errorf("computeScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func newTestResultService(db *memDB) *ResultService {
	st := db.stores()
	return NewResultService(st.Exams, st.Questions, st.Results, testLogger)
}

func TestResultScore(t *testing.T) {
	db := newMemDB()
	exam := seedExam(t, db, model.Exam{TotalQuestions: 2}, 2)
	svc := newTestResultService(db)
	ctx := context.Background()

	key, _ := (memQuestions{db}).AnswerKey(ctx, exam.ID)
	var answers []model.Answer
	for id := range key {
		answers = append(answers, model.Answer{QuestionID: id, AnswerText: "A"})
	}

	res, err := svc.Score(ctx, model.SubmitResultRequest{RegNo: "S1", ExamID: exam.ID, Answers: answers})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Score != 2 || res.HighestScorePossible != 2 {
		t.Errorf("result = %+v", res)
	}

	_, err = svc.Score(ctx, model.SubmitResultRequest{RegNo: "S1", ExamID: exam.ID})
	if !errors.Is(err, ErrDuplicateResult) {
		t.Fatalf("second Score err = %v, want ErrDuplicateResult", err)
	}
	if len(db.results) != 1 || db.results[0].Score != 2 {
		t.Errorf("stored result overwritten: %+v", db.results)
	}
}

func TestResultScoreErrors(t *testing.T) {
	db := newMemDB()
	empty := seedExam(t, db, model.Exam{TotalQuestions: 2}, 0)
	svc := newTestResultService(db)
	ctx := context.Background()

	if _, err := svc.Score(ctx, model.SubmitResultRequest{RegNo: "S1", ExamID: empty.ID}); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("no questions err = %v", err)
	}
	if _, err := svc.Score(ctx, model.SubmitResultRequest{RegNo: "S1", ExamID: 404}); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("unknown exam err = %v", err)
	}

	exam := seedExam(t, db, model.Exam{TotalQuestions: 2}, 2)
	key, _ := (memQuestions{db}).AnswerKey(ctx, exam.ID)
	var id int64
	for id = range key {
		break
	}
	repeated := []model.Answer{ans(id, "X"), ans(id, key[id])}
	if _, err := svc.Score(ctx, model.SubmitResultRequest{RegNo: "S2", ExamID: exam.ID, Answers: repeated}); !errors.Is(err, ErrRepeatedAnswer) {
		t.Errorf("repeated answer err = %v, want ErrRepeatedAnswer", err)
	}
	if exists, _ := (memResults{db}).Exists(ctx, exam.ID, "S2"); exists {
		t.Error("rejected submission was stored")
	}
}

func TestResultListAndDelete(t *testing.T) {
	db := newMemDB()
	exam := seedExam(t, db, model.Exam{TotalQuestions: 2, ClassName: "JSS1", SubjectName: "Maths", ExamType: model.ExamTypeTest}, 2)
	svc := newTestResultService(db)
	ctx := context.Background()
	filter := model.ResultFilter{ClassName: "jss1", Subject: "maths", ExamType: model.ExamTypeTest}

	if _, err := svc.ListRanked(ctx, filter); !errors.Is(err, ErrNoResults) {
		t.Fatalf("empty list err = %v, want ErrNoResults", err)
	}

	low := &model.Result{ExamID: exam.ID, RegNo: "S1", Score: 1}
	high := &model.Result{ExamID: exam.ID, RegNo: "S2", Score: 2}
	_ = (memResults{db}).Create(ctx, low)
	_ = (memResults{db}).Create(ctx, high)

	ranked, err := svc.ListRanked(ctx, filter)
	if err != nil {
		t.Fatalf("ListRanked: %v", err)
	}
	if len(ranked) != 2 || ranked[0].RegNo != "S2" || ranked[0].Position != 1 {
		t.Errorf("ranked = %+v", ranked)
	}

	if err := svc.Delete(ctx, low.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, low.ID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
