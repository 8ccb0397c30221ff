package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/peterskelv123-tech/backend-offline/internal/metrics"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/service"
	ws "github.com/peterskelv123-tech/backend-offline/internal/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const eventTimeout = 10 * time.Second

var errMissingIdentity = errors.New("examId and studentId are required")

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves the real-time channel shared by exam takers and the
// admin monitor.
type WSHandler struct {
	hub        *ws.Hub
	live       *service.LiveSessionService
	upgrader   websocket.Upgrader
	eventRate  rate.Limit
	eventBurst int
	log        zerolog.Logger
}

// NewWSHandler creates a new WSHandler. eventsPerSecond and burst bound how
// fast a single connection may send events.
func NewWSHandler(hub *ws.Hub, live *service.LiveSessionService, allowedOrigins []string, eventsPerSecond float64, burst int, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:        hub,
		live:       live,
		upgrader:   buildUpgrader(allowedOrigins),
		eventRate:  rate.Limit(eventsPerSecond),
		eventBurst: burst,
		log:        log.With().Str("component", "ws_handler").Logger(),
	}
}

// Serve godoc
// GET /ws
// Upgrades to WebSocket. The connection stays anonymous until it sends
// admin-join or student-join.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(conn, rate.NewLimiter(h.eventRate, h.eventBurst))
	h.hub.Register(client)
	go client.WritePump()

	connLog := h.log.With().Str("conn_id", client.ID()).Logger()
	connLog.Debug().Msg("connection opened")

	err = client.ReadLoop(func(env ws.RequestEnvelope) {
		h.dispatch(client, connLog, env)
	})
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		connLog.Warn().Err(err).Msg("unexpected close")
	}

	h.hub.Unregister(client)

	studentID, examID, admin := client.Identity()
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	h.live.Disconnect(ctx, studentID, examID, admin)

	connLog.Debug().Str("student_id", studentID).Bool("admin", admin).Msg("connection closed")
}

func (h *WSHandler) dispatch(client *ws.Client, log zerolog.Logger, env ws.RequestEnvelope) {
	metrics.LiveEvents.WithLabelValues(string(env.Event)).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	var err error
	switch env.Event {
	case ws.EventAdminJoin:
		err = h.adminJoin(ctx, client)
	case ws.EventStudentJoin:
		err = h.studentJoin(ctx, client, env)
	case ws.EventStudentStatus:
		err = h.studentStatus(ctx, client, env)
	case ws.EventAdminStopExam:
		err = h.adminStopExam(ctx, env)
	case ws.EventStudentLeave:
		err = h.studentLeave(ctx, client, env)
	case ws.EventPing:
		client.Send(ws.EventPong, nil)
	default:
		client.Send(ws.EventError, ws.ErrorNotice{Message: "unknown event: " + string(env.Event)})
		return
	}

	if err != nil {
		log.Warn().Err(err).Str("event", string(env.Event)).Msg("event rejected")
		client.Send(ws.EventError, ws.ErrorNotice{Message: eventErrorMessage(err)})
	}
}

func (h *WSHandler) adminJoin(ctx context.Context, client *ws.Client) error {
	snapshot, err := h.live.AdminJoin(ctx, client.ID())
	if err != nil {
		return err
	}
	client.Send(ws.EventAttendanceSnapshot, snapshot)
	return nil
}

func (h *WSHandler) studentJoin(ctx context.Context, client *ws.Client, env ws.RequestEnvelope) error {
	var req ws.StudentJoinRequest
	if err := ws.Decode(env, &req); err != nil {
		return err
	}
	if req.ExamID <= 0 || req.StudentID == "" {
		return errMissingIdentity
	}
	return h.live.StudentJoin(ctx, client.ID(), service.StudentJoin{
		ExamID:    req.ExamID,
		StudentID: req.StudentID,
		Answered:  nonNegative(req.Answered),
		TimeLeft:  ws.Seconds(req.TimeLeft),
	})
}

func (h *WSHandler) studentStatus(ctx context.Context, client *ws.Client, env ws.RequestEnvelope) error {
	var req ws.StudentStatusRequest
	if err := ws.Decode(env, &req); err != nil {
		return err
	}
	boundStudent, boundExam, _ := client.Identity()
	if req.StudentID == "" {
		req.StudentID = boundStudent
	}
	if req.ExamID == 0 {
		req.ExamID = boundExam
	}
	if req.ExamID <= 0 || req.StudentID == "" {
		return errMissingIdentity
	}
	return h.live.StudentStatus(ctx, req.StudentID, req.ExamID, model.AttendancePatch{
		Active:   req.Active,
		Answered: nonNegative(req.Answered),
		TimeLeft: ws.Seconds(req.TimeLeft),
	})
}

func (h *WSHandler) adminStopExam(ctx context.Context, env ws.RequestEnvelope) error {
	var req ws.AdminStopExamRequest
	if err := ws.Decode(env, &req); err != nil {
		return err
	}
	if req.ExamID <= 0 || req.StudentID == "" {
		return errMissingIdentity
	}
	return h.live.AdminStopExam(ctx, req.StudentID, req.ExamID)
}

// studentLeave records the leave and closes the connection; the rest of
// the cleanup runs as a normal disconnect.
func (h *WSHandler) studentLeave(ctx context.Context, client *ws.Client, env ws.RequestEnvelope) error {
	var req ws.StudentLeaveRequest
	if err := ws.Decode(env, &req); err != nil {
		return err
	}
	if req.StudentID == "" {
		req.StudentID, _, _ = client.Identity()
	}
	if req.StudentID == "" {
		return errMissingIdentity
	}
	if err := h.live.StudentLeave(ctx, req.StudentID, ws.Seconds(req.TimeLeft)); err != nil {
		return err
	}
	client.Close()
	return nil
}

func nonNegative(v *int) *int {
	if v == nil || *v >= 0 {
		return v
	}
	zero := 0
	return &zero
}

// eventErrorMessage keeps infrastructure details off the wire.
func eventErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, ws.ErrEmptyData),
		errors.Is(err, errMissingIdentity):
		return err.Error()
	case strings.Contains(err.Error(), "invalid data"):
		return "invalid event data"
	default:
		return "event could not be processed"
	}
}
