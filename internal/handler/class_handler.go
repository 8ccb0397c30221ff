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

// ClassHandler handles class catalogue endpoints.
type ClassHandler struct {
	classService *service.ClassService
	log          zerolog.Logger
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService, log zerolog.Logger) *ClassHandler {
	return &ClassHandler{
		classService: classService,
		log:          log.With().Str("component", "class_handler").Logger(),
	}
}

// ListClasses godoc
// GET /class
// Lists all classes without pagination; 404 when none are registered.
func (h *ClassHandler) ListClasses(c *gin.Context) {
	classes, err := h.classService.GetAll(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Classes retrieved successfully", classes)
}

// CreateClass godoc
// POST /class
// Names are unique regardless of case.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, err := h.classService.Create(c.Request.Context(), req.Name)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, "Class created successfully", class)
}

// SearchClasses godoc
// GET /class/search?keyword=&field=
func (h *ClassHandler) SearchClasses(c *gin.Context) {
	var q model.SearchQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	classes, err := h.classService.Search(c.Request.Context(), q)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Search completed", classes)
}
