package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/nonconformance/application"
	"github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
)

// NonConformanceHandlers contains handlers for deviation records and CAPA actions
type NonConformanceHandlers struct {
	service *application.NonConformanceService
	logger  *logging.Logger
}

// NewNonConformanceHandlers creates a new NonConformanceHandlers
func NewNonConformanceHandlers(service *application.NonConformanceService, logger *logging.Logger) *NonConformanceHandlers {
	return &NonConformanceHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers non-conformance routes on the router
func (h *NonConformanceHandlers) RegisterRoutes(router *gin.RouterGroup) {
	ncs := router.Group("/non-conformances")
	{
		ncs.POST("", h.RaiseNonConformance)
		ncs.GET("", h.ListNonConformances)
		ncs.GET("/:ncId", h.GetNonConformance)
		ncs.POST("/:ncId/advance", h.AdvanceNonConformance)
		ncs.POST("/:ncId/actions", h.AddCAPAAction)
		ncs.POST("/:ncId/actions/:actionId/complete", h.CompleteCAPAAction)
	}
}

// RaiseNonConformance handles documenting a new deviation
func (h *NonConformanceHandlers) RaiseNonConformance(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.RaiseNonConformanceCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"nc.number": cmd.NCNumber,
		"nc.source": cmd.Source,
	})

	nc, err := h.service.RaiseNonConformance(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, nc)
}

// AdvanceNonConformance handles moving a record one lifecycle step
func (h *NonConformanceHandlers) AdvanceNonConformance(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.AdvanceNonConformanceCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	ncID := c.Param("ncId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"nc.id":     ncID,
		"nc.status": cmd.Status,
	})

	nc, err := h.service.AdvanceNonConformance(c.Request.Context(), ncID, cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, nc)
}

// AddCAPAAction handles attaching a corrective or preventive action
func (h *NonConformanceHandlers) AddCAPAAction(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.AddCAPAActionCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	ncID := c.Param("ncId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"nc.id":       ncID,
		"action.type": cmd.ActionType,
	})

	nc, err := h.service.AddCAPAAction(c.Request.Context(), ncID, cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, nc)
}

// CompleteCAPAAction handles marking a CAPA action complete
func (h *NonConformanceHandlers) CompleteCAPAAction(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	ncID := c.Param("ncId")
	actionID := c.Param("actionId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"nc.id":     ncID,
		"action.id": actionID,
	})

	nc, err := h.service.CompleteCAPAAction(c.Request.Context(), ncID, actionID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, nc)
}

// GetNonConformance handles getting a record by ID
func (h *NonConformanceHandlers) GetNonConformance(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	ncID := c.Param("ncId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"nc.id": ncID,
	})

	nc, err := h.service.GetNonConformance(c.Request.Context(), ncID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, nc)
}

// ListNonConformances handles listing records with filters
func (h *NonConformanceHandlers) ListNonConformances(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var query application.ListNonConformancesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responder.RespondBadRequest(err.Error())
		return
	}

	result, err := h.service.ListNonConformances(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
