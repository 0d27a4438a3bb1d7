package wallet

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
	group := rg.Group("/wallet")
	{
		group.GET("", h.Get)
		group.GET("/entries", h.Entries)
		group.POST("/transfer", h.Transfer)
	}
}

func (h *Handler) Get(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	w, err := h.service.GetWallet(c.Request.Context(), actor.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) Entries(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	entries, err := h.service.Entries(c.Request.Context(), actor.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type transferRequest struct {
	ToOwnerID   uuid.UUID       `json:"to_owner_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

func (h *Handler) Transfer(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	debit, credit, err := h.service.Transfer(c.Request.Context(), actor.ID, req.ToOwnerID, req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			c.JSON(http.StatusConflict, gin.H{"error": ErrInsufficientBalance.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"debit": debit, "credit": credit})
}
