package tokens

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"greencycle/waste-portal/waste-portal-backend/internal/auth"
	"greencycle/waste-portal/waste-portal-backend/pkg/workflows"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/tokens")
	{
		group.POST("/authenticate", auth.RequireRole(auth.RoleVendor), h.Authenticate)
		group.POST("/:id/transfer", auth.RequireRole(auth.RoleVendor), h.Transfer)
		group.POST("/:id/verify", auth.RequireRole(auth.RoleFactory), h.Verify)
		group.POST("/:id/approve", auth.RequireRole(auth.RoleAdmin), h.Approve)
		group.POST("/:id/release", auth.RequireRole(auth.RoleAdmin), h.Release)
		group.POST("/:id/dispute", auth.RequireRole(auth.RoleAdmin), h.Dispute)
		group.POST("/:id/cancel", auth.RequireRole(auth.RoleAdmin), h.Cancel)
		group.GET("/:id", h.Get)
		group.GET("", h.List)
	}
}

// writeError maps service errors onto the error taxonomy: authorization
// failures, state conflicts, lookups and validation each get their own
// status so admins can tell them apart.
func writeError(c *gin.Context, err error) {
	var invalid *workflows.InvalidTransitionError
	switch {
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{
			"error":          invalid.Error(),
			"current_status": invalid.From,
		})
	case errors.Is(err, ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrIntegrity), errors.Is(err, ErrRoleMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	}
}

type authenticateRequest struct {
	CollectorBarcode string          `json:"collector_barcode" binding:"required"`
	MaterialType     string          `json:"material_type" binding:"required"`
	WeightKg         decimal.Decimal `json:"weight_kg" binding:"required"`
	Notes            string          `json:"notes"`
}

func (h *Handler) Authenticate(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req authenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := h.service.Authenticate(c.Request.Context(), actor.ID, req.CollectorBarcode, req.MaterialType, req.WeightKg, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

type transferRequest struct {
	FactoryID uuid.UUID `json:"factory_id" binding:"required"`
	Notes     string    `json:"notes"`
}

func (h *Handler) Transfer(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := h.service.TransferToFactory(c.Request.Context(), id, actor.ID, req.FactoryID, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) Verify(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}
	var req notesRequest
	_ = c.ShouldBindJSON(&req)
	shipment, err := h.service.Verify(c.Request.Context(), id, actor.ID, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shipment)
}

func (h *Handler) Approve(c *gin.Context) {
	h.adminTransition(c, h.service.ApprovePayment, workflows.StatusPaymentApproved)
}

func (h *Handler) Release(c *gin.Context) {
	h.adminTransition(c, h.service.ReleasePayment, workflows.StatusPaymentReleased)
}

func (h *Handler) adminTransition(c *gin.Context, op func(ctx context.Context, tokenID, adminID uuid.UUID) error, to workflows.Status) {
	actor, _ := auth.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}
	if err := op(c.Request.Context(), id, actor.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": to})
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) Dispute(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Dispute(c.Request.Context(), id, actor.ID, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": workflows.StatusDisputed})
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Cancel(c.Request.Context(), id, actor.ID, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": workflows.StatusCancelled})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}
	token, events, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	actor, _ := auth.ActorFrom(c)
	if actor.Role != auth.RoleAdmin && !ownsToken(actor.ID, token) {
		c.JSON(http.StatusForbidden, gin.H{"error": auth.ErrForbidden.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "events": events})
}

func ownsToken(actorID uuid.UUID, token *Token) bool {
	if token.CollectorID == actorID || token.VendorID == actorID {
		return true
	}
	return token.FactoryID != nil && *token.FactoryID == actorID
}

func (h *Handler) List(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.service.ListForActor(c.Request.Context(), actor.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": list})
}
