package websocket

import (
	"encoding/json"
	"math"
)

// Event names a frame in either direction.
type Event string

// ─── Events (Client → Server) ───────────────────────────────────────

const (
	EventAdminJoin     Event = "admin-join"
	EventStudentJoin   Event = "student-join"
	EventStudentStatus Event = "student-status"
	EventAdminStopExam Event = "admin-stop-exam"
	EventStudentLeave  Event = "student-leave"
	EventPing          Event = "ping"
)

// ─── Events (Server → Client) ───────────────────────────────────────

const (
	EventAttendanceSnapshot Event = "attendance-snapshot"
	EventAttendanceUpdate   Event = "attendance-update"
	EventForceStop          Event = "force-stop"
	EventStudentLeft        Event = "student-left"
	EventStudentStopped     Event = "student-stopped"
	EventPong               Event = "pong"
	EventError              Event = "error"
)

// RequestEnvelope is used to peek at the event before decoding its data.
type RequestEnvelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Message is one server → client frame.
type Message struct {
	Event Event `json:"event"`
	Data  any   `json:"data,omitempty"`
}

// StudentJoinRequest starts or resumes a student's session.
type StudentJoinRequest struct {
	ExamID    int64    `json:"examId"`
	StudentID string   `json:"studentId"`
	Answered  *int     `json:"answered,omitempty"`
	TimeLeft  *float64 `json:"timeLeft,omitempty"`
}

// StudentStatusRequest carries a student's heartbeat. Only the fields
// present are applied. StudentID may be omitted once the connection has
// joined.
type StudentStatusRequest struct {
	ExamID    int64    `json:"examId"`
	StudentID string   `json:"studentId,omitempty"`
	Answered  *int     `json:"answered,omitempty"`
	TimeLeft  *float64 `json:"timeLeft,omitempty"`
	Active    *bool    `json:"active,omitempty"`
}

// AdminStopExamRequest ends one student's attempt.
type AdminStopExamRequest struct {
	StudentID string `json:"studentId"`
	ExamID    int64  `json:"examId"`
}

// StudentLeaveRequest is sent when a student submits or quits.
type StudentLeaveRequest struct {
	StudentID string   `json:"studentId"`
	TimeLeft  *float64 `json:"timeLeft,omitempty"`
}

// ForceStopNotice tells a client to end its exam. StudentID is empty when
// the whole exam was stopped.
type ForceStopNotice struct {
	ExamID    int64  `json:"examId"`
	StudentID string `json:"studentId,omitempty"`
}

// StudentNotice reports a student leaving or being stopped.
type StudentNotice struct {
	StudentID string `json:"studentId"`
	ExamID    int64  `json:"examId,omitempty"`
}

// ErrorNotice reports a rejected frame.
type ErrorNotice struct {
	Message string `json:"message"`
}

// Seconds floors a client-reported duration and clamps it at zero.
func Seconds(v *float64) *int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	s := 0
	if *v > 0 {
		s = int(math.Floor(min(*v, math.MaxInt32)))
	}
	return &s
}
