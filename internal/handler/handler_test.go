package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/peterskelv123-tech/backend-offline/internal/extractor"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/peterskelv123-tech/backend-offline/internal/response"
	"github.com/peterskelv123-tech/backend-offline/internal/service"
	"github.com/peterskelv123-tech/backend-offline/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      *struct {
		Code   response.ErrCode  `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v\n%s", err, w.Body.String())
	}
	return env
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestFailMapsErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   response.ErrCode
	}{
		{"not found", service.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound},
		{"wrapped conflict", fmt.Errorf("submit: %w", service.ErrDuplicateResult), http.StatusConflict, response.ErrDuplicateResult},
		{"capacity", fmt.Errorf("%w: need 5, parsed 2", extractor.ErrInsufficientQuestions), http.StatusUnprocessableEntity, response.ErrInsufficientQuestions},
		{"empty document", extractor.ErrNoQuestionsFound, http.StatusUnprocessableEntity, response.ErrNoQuestionsFound},
		{"exam without questions", service.ErrNoQuestions, http.StatusUnprocessableEntity, response.ErrNoQuestions},
		{"repeated answer", service.ErrRepeatedAnswer, http.StatusBadRequest, response.ErrRepeatedAnswer},
		{"unsupported file", extractor.ErrUnsupportedFormat, http.StatusBadRequest, response.ErrUnsupportedFile},
		{"active exam", service.ErrExamActive, http.StatusBadRequest, response.ErrExamActive},
		{"empty results", service.ErrNoResults, http.StatusNotFound, response.ErrResultNotAvailable},
		{"file too large", fmt.Errorf("%w: 99 bytes", service.ErrFileTooLarge), http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
		{"store timeout", fmt.Errorf("load exam: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, response.ErrServiceUnavailable},
		{"redis closed", redis.ErrClosed, http.StatusServiceUnavailable, response.ErrServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			fail(c, zerolog.Nop(), tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			env := decode(t, w)
			if env.Success || env.StatusCode != tt.wantStatus || env.Message == "" {
				t.Errorf("envelope = %+v", env)
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("code = %+v, want %s", env.Error, tt.wantCode)
			}
			if tt.wantStatus >= 500 && bytes.Contains(w.Body.Bytes(), []byte("boom")) {
				t.Errorf("internal error detail leaked: %s", w.Body.String())
			}
		})
	}
}

func TestHealth(t *testing.T) {
	up := Probe{Name: "postgres", Check: func(context.Context) error { return nil }}
	down := Probe{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }}

	tests := []struct {
		name       string
		probes     []Probe
		wantStatus int
		wantChecks map[string]string
	}{
		{"all up", []Probe{up}, http.StatusOK, map[string]string{"postgres": "up"}},
		{"one down", []Probe{up, down}, http.StatusServiceUnavailable, map[string]string{"postgres": "up", "redis": "down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(newTestRedis(t), zerolog.Nop(), tt.probes...)
			r := gin.New()
			r.GET("/health", h.Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var report healthReport
			if err := json.Unmarshal(decode(t, w).Data, &report); err != nil {
				t.Fatalf("data: %v", err)
			}
			for name, want := range tt.wantChecks {
				if report.Checks[name] != want {
					t.Errorf("check %s = %q, want %q", name, report.Checks[name], want)
				}
			}
			if report.AttendanceQueue == nil || *report.AttendanceQueue != 0 {
				t.Errorf("attendance queue = %v, want 0", report.AttendanceQueue)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "0m 42s"},
		{3*time.Hour + 5*time.Minute, "3h 5m 0s"},
		{49*time.Hour + time.Second, "2d 1h 0m 1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProgressHandler(t *testing.T) {
	store := repository.NewSessionStore(newTestRedis(t), time.Hour)
	h := NewProgressHandler(service.NewProgressService(store), zerolog.Nop())

	r := gin.New()
	r.GET("/redis/student-progress", h.Get)
	r.POST("/redis/student-progress", h.Save)

	get := func() (*httptest.ResponseRecorder, map[string]any) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/redis/student-progress?studentId=S1&examId=2", nil))
		var data map[string]any
		if w.Code == http.StatusOK {
			if err := json.Unmarshal(decode(t, w).Data, &data); err != nil {
				t.Fatalf("data: %v", err)
			}
		}
		return w, data
	}

	w, data := get()
	if w.Code != http.StatusOK {
		t.Fatalf("empty GET status = %d", w.Code)
	}
	if data["totalQuestionsAnswered"] != float64(0) || data["currentIndex"] != float64(0) {
		t.Errorf("empty progress = %v", data)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing progress", `{"studentId":"S1","examId":2}`, http.StatusBadRequest},
		{"bad exam id", `{"studentId":"S1","examId":0,"progress":{}}`, http.StatusBadRequest},
		{"saved", `{"studentId":"S1","examId":2,"progress":{"answers":[{"questionId":5,"answerText":"B"}],"currentIndex":1,"questionMeta":[]}}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/redis/student-progress", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}

	w, data = get()
	if w.Code != http.StatusOK {
		t.Fatalf("GET after save status = %d", w.Code)
	}
	if data["totalQuestionsAnswered"] != float64(1) || data["currentIndex"] != float64(1) {
		t.Errorf("saved progress = %v", data)
	}
}

func TestProgressHandlerRejectsMissingQuery(t *testing.T) {
	store := repository.NewSessionStore(newTestRedis(t), time.Hour)
	h := NewProgressHandler(service.NewProgressService(store), zerolog.Nop())

	r := gin.New()
	r.GET("/redis/student-progress", h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/redis/student-progress?examId=2", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decode(t, w)
	if env.Error == nil || env.Error.Fields["studentId"] == "" {
		t.Errorf("fields = %+v, want studentId error", env.Error)
	}
}
