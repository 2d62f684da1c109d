package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/risk/application"
	"github.com/fsms-platform/fsms-service/pkg/api"
	"github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
)

// RiskHandlers contains handlers for the risk and opportunity register
type RiskHandlers struct {
	service *application.RiskService
	logger  *logging.Logger
}

// NewRiskHandlers creates a new RiskHandlers
func NewRiskHandlers(service *application.RiskService, logger *logging.Logger) *RiskHandlers {
	return &RiskHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers risk register routes on the router
func (h *RiskHandlers) RegisterRoutes(router *gin.RouterGroup) {
	risks := router.Group("/risks")
	{
		risks.POST("", h.RegisterRisk)
		risks.GET("", h.ListRisks)
		risks.GET("/:riskId", h.GetRisk)
		risks.POST("/:riskId/assess", h.AssessRisk)
		risks.POST("/:riskId/actions", h.AddAction)
		risks.POST("/:riskId/actions/:actionId/complete", h.CompleteAction)
	}
}

// RegisterRisk handles adding a risk or opportunity to the register
func (h *RiskHandlers) RegisterRisk(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.RegisterRiskCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"risk.number": cmd.RiskNumber,
	})

	risk, err := h.service.RegisterRisk(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, risk)
}

// AssessRisk handles reassessing an item's severity and likelihood
func (h *RiskHandlers) AssessRisk(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.AssessRiskCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.RiskID = c.Param("riskId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"risk.id": cmd.RiskID,
	})

	risk, err := h.service.AssessRisk(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, risk)
}

// AddAction handles attaching an action to a register item
func (h *RiskHandlers) AddAction(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.AddActionCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.RiskID = c.Param("riskId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"risk.id": cmd.RiskID,
	})

	risk, err := h.service.AddAction(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, risk)
}

// CompleteAction handles marking an action complete
func (h *RiskHandlers) CompleteAction(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	cmd := application.CompleteActionCommand{
		RiskID:   c.Param("riskId"),
		ActionID: c.Param("actionId"),
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"risk.id":   cmd.RiskID,
		"action.id": cmd.ActionID,
	})

	risk, err := h.service.CompleteAction(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, risk)
}

// GetRisk handles getting a register item by ID
func (h *RiskHandlers) GetRisk(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	riskID := c.Param("riskId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"risk.id": riskID,
	})

	risk, err := h.service.GetRisk(c.Request.Context(), riskID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, risk)
}

// ListRisks handles listing register items with filters
func (h *RiskHandlers) ListRisks(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	minScore, _ := strconv.Atoi(c.DefaultQuery("minScore", "0"))
	page := api.ParsePagination(c)
	query := application.ListRisksQuery{
		ItemType:   c.Query("itemType"),
		Severity:   c.Query("severity"),
		Likelihood: c.Query("likelihood"),
		Category:   c.Query("category"),
		MinScore:   minScore,
		Page:       int(page.Page),
		PageSize:   int(page.PageSize),
	}

	risks, total, err := h.service.ListRisks(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(risks, page.Page, page.PageSize, total))
}
