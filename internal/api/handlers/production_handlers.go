package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/production/application"
	"github.com/fsms-platform/fsms-service/pkg/api"
	"github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
)

// ProcessHandlers contains handlers for production process operations
type ProcessHandlers struct {
	engine  *application.WorkflowEngine
	service *application.ProcessService
	logger  *logging.Logger
}

// NewProcessHandlers creates a new ProcessHandlers
func NewProcessHandlers(engine *application.WorkflowEngine, service *application.ProcessService, logger *logging.Logger) *ProcessHandlers {
	return &ProcessHandlers{
		engine:  engine,
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers production routes on the router
func (h *ProcessHandlers) RegisterRoutes(router *gin.RouterGroup) {
	processes := router.Group("/processes")
	{
		processes.POST("", h.InstantiateProcess)
		processes.GET("", h.ListProcesses)
		processes.GET("/:processId", h.GetProcess)
		processes.POST("/:processId/start", h.StartProcess)
		processes.POST("/:processId/cancel", h.CancelProcess)
		processes.POST("/:processId/stages/:stageKey/transition", h.TransitionStage)
		processes.POST("/:processId/readings", h.RecordReading)
		processes.POST("/:processId/log", h.RecordLogEntry)
		processes.GET("/:processId/log", h.GetProcessLog)
		processes.GET("/:processId/summary", h.GetProcessSummary)
	}
}

// InstantiateProcess handles creation of a process from a workflow definition
func (h *ProcessHandlers) InstantiateProcess(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.InstantiateProcessCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"batch.number": cmd.BatchNumber,
		"product.type": cmd.ProductType,
	})

	process, err := h.engine.InstantiateProcess(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, process)
}

// StartProcess handles moving a draft process to in_progress
func (h *ProcessHandlers) StartProcess(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	processID := c.Param("processId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"process.id": processID,
	})

	process, err := h.service.StartProcess(c.Request.Context(), application.StartProcessCommand{ProcessID: processID})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, process)
}

// CancelProcess handles cancelling a process before completion
func (h *ProcessHandlers) CancelProcess(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.CancelProcessCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ProcessID = c.Param("processId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"process.id": cmd.ProcessID,
	})

	process, err := h.service.CancelProcess(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, process)
}

// TransitionStage handles start, complete, and rework actions on a stage
func (h *ProcessHandlers) TransitionStage(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.TransitionStageCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ProcessID = c.Param("processId")
	cmd.StageKey = c.Param("stageKey")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"process.id":   cmd.ProcessID,
		"stage.key":    cmd.StageKey,
		"stage.action": cmd.Action,
	})

	stage, err := h.service.TransitionStage(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, stage)
}

// RecordReading handles recording a monitored value against a requirement
func (h *ProcessHandlers) RecordReading(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.RecordReadingCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ProcessID = c.Param("processId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"process.id":     cmd.ProcessID,
		"requirement.id": cmd.RequirementID,
	})

	result, err := h.service.RecordReading(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// RecordLogEntry handles appending a transfer or yield entry to the process log
func (h *ProcessHandlers) RecordLogEntry(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.RecordLogEntryCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ProcessID = c.Param("processId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"process.id": cmd.ProcessID,
		"event.type": cmd.EventType,
	})

	entry, err := h.service.RecordLogEntry(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GetProcess handles getting a process with its stages and requirements
func (h *ProcessHandlers) GetProcess(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	processID := c.Param("processId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"process.id": processID,
	})

	process, err := h.service.GetProcess(c.Request.Context(), processID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, process)
}

// ListProcesses handles listing processes with filters
func (h *ProcessHandlers) ListProcesses(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	page := api.ParsePagination(c)
	query := application.ListProcessesQuery{
		Status:      c.Query("status"),
		ProductType: c.Query("productType"),
		BatchNumber: c.Query("batchNumber"),
		OperatorID:  c.Query("operatorId"),
		Page:        int(page.Page),
		PageSize:    int(page.PageSize),
	}

	processes, total, err := h.service.ListProcesses(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(processes, page.Page, page.PageSize, total))
}

// GetProcessLog handles listing a process's append-only log
func (h *ProcessHandlers) GetProcessLog(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	processID := c.Param("processId")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"process.id": processID,
	})

	entries, err := h.service.GetProcessLog(c.Request.Context(), processID, page, pageSize)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetProcessSummary handles the per-process analytics summary
func (h *ProcessHandlers) GetProcessSummary(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	processID := c.Param("processId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"process.id": processID,
	})

	summary, err := h.service.GetProcessSummary(c.Request.Context(), processID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}
