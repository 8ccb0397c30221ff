package handler

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/peterskelv123-tech/backend-offline/internal/extractor"
	"github.com/peterskelv123-tech/backend-offline/internal/response"
	"github.com/peterskelv123-tech/backend-offline/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type errorMapping struct {
	target error
	status int
	code   response.ErrCode
}

// errorMappings translates the service error taxonomy to HTTP. Order
// matters only where one sentinel wraps another.
var errorMappings = []errorMapping{
	// Validation
	{extractor.ErrUnsupportedFormat, http.StatusBadRequest, response.ErrUnsupportedFile},
	{service.ErrInvalidSearchField, http.StatusBadRequest, response.ErrInvalidSearchField},
	{service.ErrRepeatedAnswer, http.StatusBadRequest, response.ErrRepeatedAnswer},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},

	// Not found
	{service.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound},
	{service.ErrClassNotFound, http.StatusNotFound, response.ErrClassNotFound},
	{service.ErrResultNotFound, http.StatusNotFound, response.ErrResultNotFound},
	{service.ErrNoResults, http.StatusNotFound, response.ErrResultNotAvailable},
	{service.ErrNoSubjects, http.StatusNotFound, response.ErrEmptyCatalogue},
	{service.ErrNoClasses, http.StatusNotFound, response.ErrEmptyCatalogue},

	// Conflict
	{service.ErrDuplicateResult, http.StatusConflict, response.ErrDuplicateResult},
	{service.ErrSubjectExists, http.StatusConflict, response.ErrSubjectExists},
	{service.ErrClassExists, http.StatusConflict, response.ErrClassExists},

	// Capacity
	{extractor.ErrNoQuestionsFound, http.StatusUnprocessableEntity, response.ErrNoQuestionsFound},
	{service.ErrNoQuestions, http.StatusUnprocessableEntity, response.ErrNoQuestions},
	{extractor.ErrInsufficientQuestions, http.StatusUnprocessableEntity, response.ErrInsufficientQuestions},
	{service.ErrInsufficientRemaining, http.StatusUnprocessableEntity, response.ErrInsufficientRemaining},

	// State
	{service.ErrExamActive, http.StatusBadRequest, response.ErrExamActive},
}

// fail writes the envelope for err. Known errors keep their message; any
// other error is logged and reported without detail.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	log = response.WithRequestID(c, log)
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.FailWithMessage(c, m.status, m.code, m.target.Error())
			return
		}
	}

	if unavailable(err) {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("backing store unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable)
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// unavailable reports whether err means Postgres or Redis could not be reached.
func unavailable(err error) bool {
	var netErr net.Error
	var connectErr *pgconn.ConnectError
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, redis.ErrClosed) ||
		errors.As(err, &connectErr) ||
		errors.As(err, &netErr)
}
