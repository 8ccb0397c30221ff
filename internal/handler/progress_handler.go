package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/response"
	"github.com/peterskelv123-tech/backend-offline/internal/service"
	"github.com/peterskelv123-tech/backend-offline/internal/validator"
	"github.com/rs/zerolog"
)

// ProgressHandler reads and writes saved exam progress.
type ProgressHandler struct {
	progressService *service.ProgressService
	log             zerolog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressService *service.ProgressService, log zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		log:             log.With().Str("component", "progress_handler").Logger(),
	}
}

// Get godoc
// GET /redis/student-progress?studentId=&examId=
// An unsaved session yields an empty progress rather than 404.
func (h *ProgressHandler) Get(c *gin.Context) {
	var q model.ProgressQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, found, err := h.progressService.Get(c.Request.Context(), q.StudentID, q.ExamID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	msg := "Student progress retrieved successfully"
	if !found {
		msg = "No saved progress"
	}
	response.Success(c, http.StatusOK, msg, view)
}

// Save godoc
// POST /redis/student-progress
func (h *ProgressHandler) Save(c *gin.Context) {
	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	saved, err := h.progressService.Save(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, "Student progress saved successfully", saved)
}
