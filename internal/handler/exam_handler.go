package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/peterskelv123-tech/backend-offline/internal/model"
	"github.com/peterskelv123-tech/backend-offline/internal/response"
	"github.com/peterskelv123-tech/backend-offline/internal/service"
	"github.com/peterskelv123-tech/backend-offline/internal/validator"
	"github.com/rs/zerolog"
)

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	examService     *service.ExamService
	documentService *service.DocumentService
	log             zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, documentService *service.DocumentService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService:     examService,
		documentService: documentService,
		log:             log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /exams?page=
// Returns the whole catalogue when it fits one page, otherwise the page asked for.
func (h *ExamHandler) ListExams(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	exams, err := h.examService.List(c.Request.Context(), page)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Exams retrieved successfully", exams)
}

// CreateExam godoc
// POST /exams
// Multipart form with the exam metadata and a questionFile (.docx or .pdf).
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	header, err := c.FormFile("questionFile")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	path, err := h.documentService.Save(file, header)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	exam, stored, err := h.examService.Create(c.Request.Context(), req, path)
	if err != nil {
		h.documentService.Discard(path)
		fail(c, h.log, err)
		return
	}
	h.documentService.Archive(c.Request.Context(), path)

	response.Success(c, http.StatusCreated, "Exam created successfully", gin.H{
		"exam":            exam,
		"questionsStored": stored,
	})
}

// UpdateExamStatus godoc
// PUT /exams?examId=&status=
// Deactivating an exam force-stops everyone sitting it.
func (h *ExamHandler) UpdateExamStatus(c *gin.Context) {
	var q model.UpdateExamStatusQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.UpdateStatus(c.Request.Context(), q.ExamID, *q.Status)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Exam status updated successfully", exam)
}

// DeleteExam godoc
// DELETE /exams?examId=
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	var q model.ExamIDQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.examService.Delete(c.Request.Context(), q.ExamID); err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Exam deleted successfully", nil)
}

// TakeExam godoc
// GET /exams/take?className=&regNo=
// Lists the active exams of the class that regNo has not sat yet.
func (h *ExamHandler) TakeExam(c *gin.Context) {
	var q model.TakeExamQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exams, err := h.examService.Takeable(c.Request.Context(), q.ClassName, q.RegNo)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Exam retrieved successfully", exams)
}
