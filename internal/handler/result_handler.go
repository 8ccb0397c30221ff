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

// ResultHandler handles submissions and the results board.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// Submit godoc
// POST /results
// Scores a finished attempt. A second submission for the same exam and
// regNo is rejected with 409.
func (h *ResultHandler) Submit(c *gin.Context) {
	var req model.SubmitResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.resultService.Score(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, "Result recorded successfully", result)
}

// List godoc
// GET /results?className=&subject=&examType=
func (h *ResultHandler) List(c *gin.Context) {
	var f model.ResultFilter
	if fields := validator.BindQuery(c, &f); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	results, err := h.resultService.ListRanked(c.Request.Context(), f)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Results retrieved successfully", results)
}

// Delete godoc
// DELETE /results?resultId=
func (h *ResultHandler) Delete(c *gin.Context) {
	var q model.DeleteResultQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.resultService.Delete(c.Request.Context(), q.ResultID); err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Result deleted successfully", nil)
}
