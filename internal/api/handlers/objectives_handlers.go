package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/objectives/application"
	"github.com/fsms-platform/fsms-service/pkg/api"
	"github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
)

// ObjectiveHandlers contains handlers for food safety objective operations
type ObjectiveHandlers struct {
	service *application.ObjectivesService
	logger  *logging.Logger
}

// NewObjectiveHandlers creates a new ObjectiveHandlers
func NewObjectiveHandlers(service *application.ObjectivesService, logger *logging.Logger) *ObjectiveHandlers {
	return &ObjectiveHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers objective routes on the router
func (h *ObjectiveHandlers) RegisterRoutes(router *gin.RouterGroup) {
	objectives := router.Group("/objectives")
	{
		objectives.POST("", h.CreateObjective)
		objectives.GET("", h.ListObjectives)
		objectives.GET("/:objectiveId", h.GetObjective)
		objectives.POST("/:objectiveId/targets", h.SetTarget)
		objectives.POST("/:objectiveId/progress", h.RecordProgress)
	}
}

// CreateObjective handles objective creation
func (h *ObjectiveHandlers) CreateObjective(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.CreateObjectiveCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	objective, err := h.service.CreateObjective(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, objective)
}

// SetTarget handles scoping a target value to a reporting period
func (h *ObjectiveHandlers) SetTarget(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.SetTargetCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ObjectiveID = c.Param("objectiveId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"objective.id": cmd.ObjectiveID,
	})

	target, err := h.service.SetTarget(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, target)
}

// RecordProgress handles recording a measured value against an objective
func (h *ObjectiveHandlers) RecordProgress(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.RecordProgressCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ObjectiveID = c.Param("objectiveId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"objective.id": cmd.ObjectiveID,
	})

	progress, err := h.service.RecordProgress(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, progress)
}

// GetObjective handles getting an objective with targets and progress history
func (h *ObjectiveHandlers) GetObjective(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	objectiveID := c.Param("objectiveId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"objective.id": objectiveID,
	})

	objective, err := h.service.GetObjective(c.Request.Context(), objectiveID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, objective)
}

// ListObjectives handles listing objectives with filters
func (h *ObjectiveHandlers) ListObjectives(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	page := api.ParsePagination(c)
	query := application.ListObjectivesQuery{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		OwnerID:  c.Query("ownerId"),
		Page:     int(page.Page),
		PageSize: int(page.PageSize),
	}

	objectives, total, err := h.service.ListObjectives(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(objectives, page.Page, page.PageSize, total))
}
