package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fsms-platform/fsms-service/internal/haccp/application"
	"github.com/fsms-platform/fsms-service/pkg/api"
	"github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
)

// HACCPHandlers contains handlers for products, hazards, and plan approval
type HACCPHandlers struct {
	service *application.HACCPService
	logger  *logging.Logger
}

// NewHACCPHandlers creates a new HACCPHandlers
func NewHACCPHandlers(service *application.HACCPService, logger *logging.Logger) *HACCPHandlers {
	return &HACCPHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers HACCP routes on the router
func (h *HACCPHandlers) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("", h.ListProducts)
		products.GET("/:productId", h.GetProduct)
		products.POST("/:productId/approve-plan", h.ApprovePlan)
		products.POST("/:productId/hazards", h.AddHazard)
		products.POST("/:productId/hazards/:hazardId/assess", h.AssessHazard)
		products.GET("/:productId/ccps", h.ListCriticalControlPoints)
	}
}

// CreateProduct handles product creation
func (h *HACCPHandlers) CreateProduct(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.CreateProductCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, product)
}

// ApprovePlan handles approving a product's HACCP plan
func (h *HACCPHandlers) ApprovePlan(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.ApprovePlanCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ProductID = c.Param("productId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"product.id": cmd.ProductID,
	})

	product, err := h.service.ApprovePlan(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

// AddHazard handles recording an identified hazard
func (h *HACCPHandlers) AddHazard(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.AddHazardCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ProductID = c.Param("productId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"product.id":  cmd.ProductID,
		"hazard.type": cmd.HazardType,
	})

	hazard, err := h.service.AddHazard(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, hazard)
}

// AssessHazard handles the decision tree classification of a hazard
func (h *HACCPHandlers) AssessHazard(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.AssessHazardCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.ProductID = c.Param("productId")
	cmd.HazardID = c.Param("hazardId")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"product.id": cmd.ProductID,
		"hazard.id":  cmd.HazardID,
	})

	hazard, err := h.service.AssessHazard(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, hazard)
}

// GetProduct handles getting a product with its hazards
func (h *HACCPHandlers) GetProduct(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	productID := c.Param("productId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"product.id": productID,
	})

	product, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListProducts handles listing products with filters
func (h *HACCPHandlers) ListProducts(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	page := api.ParsePagination(c)
	query := application.ListProductsQuery{
		Category: c.Query("category"),
		Page:     int(page.Page),
		PageSize: int(page.PageSize),
	}
	if approved := c.Query("planApproved"); approved != "" {
		value := approved == "true"
		query.PlanApproved = &value
	}

	products, total, err := h.service.ListProducts(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(products, page.Page, page.PageSize, total))
}

// ListCriticalControlPoints handles listing a product's CCP-classified hazards
func (h *HACCPHandlers) ListCriticalControlPoints(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	productID := c.Param("productId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"product.id": productID,
	})

	hazards, err := h.service.ListCriticalControlPoints(c.Request.Context(), productID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"hazards": hazards})
}
