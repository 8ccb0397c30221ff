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

// QuestionHandler serves question sets to exam takers.
type QuestionHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// ExamTaker godoc
// GET /questions/exam-taker?examId=&studentId=
// Returns the student's question set, assigning the missing part on first call.
func (h *QuestionHandler) ExamTaker(c *gin.Context) {
	var q model.AllocateQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.Allocate(c.Request.Context(), q.ExamID, q.StudentID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Questions retrieved successfully", questions)
}
