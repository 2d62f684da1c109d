package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/production/application"
	"github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
)

// WorkflowHandlers contains handlers for the workflow catalog
type WorkflowHandlers struct {
	engine *application.WorkflowEngine
	logger *logging.Logger
}

// NewWorkflowHandlers creates a new WorkflowHandlers
func NewWorkflowHandlers(engine *application.WorkflowEngine, logger *logging.Logger) *WorkflowHandlers {
	return &WorkflowHandlers{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers workflow catalog routes on the router
func (h *WorkflowHandlers) RegisterRoutes(router *gin.RouterGroup) {
	workflows := router.Group("/workflows")
	{
		workflows.GET("", h.ListWorkflows)
		workflows.GET("/:productType", h.GetWorkflow)
	}
}

// ListWorkflows handles listing the workflow catalog
func (h *WorkflowHandlers) ListWorkflows(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	entries, err := h.engine.ListWorkflows()
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workflows": entries})
}

// GetWorkflow handles getting a workflow definition by product type
func (h *WorkflowHandlers) GetWorkflow(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	productType := c.Param("productType")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"product.type": productType,
	})

	definition, err := h.engine.GetWorkflow(productType)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, definition)
}
