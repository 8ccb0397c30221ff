package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/peterskelv123-tech/backend-offline/internal/response"
	"github.com/peterskelv123-tech/backend-offline/internal/service"
	"github.com/peterskelv123-tech/backend-offline/internal/validator"
	"github.com/rs/zerolog"
)

const keepAliveInterval = 30 * time.Second

// AttendanceHandler exposes the join ledger and the live monitor stream.
type AttendanceHandler struct {
	attendanceService *service.AttendanceService
	liveService       *service.LiveSessionService
	store             *repository.SessionStore
	keepAlive         time.Duration
	log               zerolog.Logger
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(
	attendanceService *service.AttendanceService,
	liveService *service.LiveSessionService,
	store *repository.SessionStore,
	log zerolog.Logger,
) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
		liveService:       liveService,
		store:             store,
		keepAlive:         keepAliveInterval,
		log:               log.With().Str("component", "attendance_handler").Logger(),
	}
}

// List godoc
// GET /attendance?examId=
func (h *AttendanceHandler) List(c *gin.Context) {
	var q model.AttendanceQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	records, err := h.attendanceService.ListByExam(c.Request.Context(), q.ExamID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Attendance retrieved successfully", records)
}

// Stream godoc
// GET /attendance/stream
// Server-sent events: the active entries on connect, then every update the
// coordinator publishes, with a ping every 30s.
func (h *AttendanceHandler) Stream(c *gin.Context) {
	reqCtx := c.Request.Context()

	// Subscribed before the snapshot is read so no update falls in between.
	pubsub := h.store.SubscribeAttendance(reqCtx)
	defer pubsub.Close()
	if _, err := pubsub.Receive(reqCtx); err != nil {
		fail(c, h.log, err)
		return
	}
	ch := pubsub.Channel()

	snapshot, err := h.liveService.Snapshot(reqCtx)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("attendance-snapshot", snapshot)
	c.Writer.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	h.log.Info().Msg("monitor attached")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("monitor detached")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payload is already the JSON snapshot.
			c.Writer.Write([]byte("event: attendance-update\ndata: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().Unix()})
			c.Writer.Flush()
		}
	}
}
