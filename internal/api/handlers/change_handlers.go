package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/change/application"
	"github.com/fsms-platform/fsms-service/pkg/api"
	"github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
)

// ChangeHandlers contains handlers for change request operations
type ChangeHandlers struct {
	service *application.ChangeService
	logger  *logging.Logger
}

// NewChangeHandlers creates a new ChangeHandlers
func NewChangeHandlers(service *application.ChangeService, logger *logging.Logger) *ChangeHandlers {
	return &ChangeHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers change request routes on the router
func (h *ChangeHandlers) RegisterRoutes(router *gin.RouterGroup) {
	changes := router.Group("/changes")
	{
		changes.POST("", h.CreateChange)
		changes.GET("", h.ListChanges)
		changes.GET("/:changeId", h.GetChange)
		changes.POST("/:changeId/approve", h.ApproveStep)
		changes.POST("/:changeId/implement", h.ImplementChange)
		changes.POST("/:changeId/verify", h.VerifyChange)
	}
}

// CreateChange handles submitting a change request for assessment
func (h *ChangeHandlers) CreateChange(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.CreateChangeCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"change.number": cmd.ChangeNumber,
	})

	change, err := h.service.CreateChange(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, change)
}

// ApproveStep handles deciding the pending approval step
func (h *ChangeHandlers) ApproveStep(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.ApproveStepCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ChangeID = c.Param("changeId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"change.id":       cmd.ChangeID,
		"change.decision": cmd.Decision,
	})

	change, err := h.service.ApproveStep(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, change)
}

// ImplementChange handles marking an approved change implemented
func (h *ChangeHandlers) ImplementChange(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.ImplementChangeCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ChangeID = c.Param("changeId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"change.id": cmd.ChangeID,
	})

	change, err := h.service.ImplementChange(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, change)
}

// VerifyChange handles verifying and closing an implemented change
func (h *ChangeHandlers) VerifyChange(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.VerifyChangeCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ChangeID = c.Param("changeId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"change.id": cmd.ChangeID,
	})

	change, err := h.service.VerifyChange(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, change)
}

// GetChange handles getting a change request by ID
func (h *ChangeHandlers) GetChange(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	changeID := c.Param("changeId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"change.id": changeID,
	})

	change, err := h.service.GetChange(c.Request.Context(), changeID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, change)
}

// ListChanges handles listing change requests with filters
func (h *ChangeHandlers) ListChanges(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	page := api.ParsePagination(c)
	query := application.ListChangesQuery{
		Status:      c.Query("status"),
		RequestedBy: c.Query("requestedBy"),
		Page:        int(page.Page),
		PageSize:    int(page.PageSize),
	}

	changes, total, err := h.service.ListChanges(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(changes, page.Page, page.PageSize, total))
}
