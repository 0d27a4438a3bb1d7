package shipments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"greencycle/waste-portal/waste-portal-backend/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/shipments")
	{
		group.GET("", auth.RequireRole(auth.RoleFactory, auth.RoleAdmin), h.List)
		group.GET("/:id", auth.RequireRole(auth.RoleFactory, auth.RoleAdmin), h.Get)
		group.POST("/:id/payments", auth.RequireRole(auth.RoleAdmin), h.RecordPayment)
	}
}

func (h *Handler) List(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	factoryID := actor.ID
	if actor.Role == auth.RoleAdmin {
		if raw := c.Query("factory_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid factory_id"})
				return
			}
			factoryID = id
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.service.ListByFactory(c.Request.Context(), factoryID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipments": list})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment id"})
		return
	}
	shipment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	actor, _ := auth.ActorFrom(c)
	if actor.Role == auth.RoleFactory && shipment.FactoryID != actor.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": auth.ErrForbidden.Error()})
		return
	}
	c.JSON(http.StatusOK, shipment)
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference"`
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment id"})
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shipment, err := h.service.RecordPayment(c.Request.Context(), id, req.Amount, req.Reference)
	if err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			c.JSON(http.StatusConflict, gin.H{"error": ErrAlreadyPaid.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, shipment)
}
