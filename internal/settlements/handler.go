package settlements

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"greencycle/waste-portal/waste-portal-backend/internal/auth"
	"greencycle/waste-portal/waste-portal-backend/internal/config"
	"greencycle/waste-portal/waste-portal-backend/internal/wallet"
)

// Exporter renders a settlement result to a binary document. The concrete
// excelize implementation lives in the export subpackage; main injects a
// factory to keep the dependency one-way.
type Exporter interface {
	Export(result *Result, w io.Writer) error
}

type Handler struct {
	service     Service
	cfg         config.SettlementConfig
	newExporter func() Exporter
}

func NewHandler(service Service, cfg config.SettlementConfig, newExporter func() Exporter) *Handler {
	return &Handler{service: service, cfg: cfg, newExporter: newExporter}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/settlements", auth.RequireRole(auth.RoleAdmin))
	{
		group.GET("", h.List)
		group.GET("/export", h.Export)
		group.POST("/disburse", h.Disburse)
	}
}

func (h *Handler) parseQuery(c *gin.Context) (Query, error) {
	role := auth.Role(c.DefaultQuery("role", string(auth.RoleCollector)))
	if role != auth.RoleCollector && role != auth.RoleVendor {
		return Query{}, errors.New("role must be collector or vendor")
	}
	start, end, err := ParseWindow(
		c.Query("window"), c.Query("start"), c.Query("end"),
		h.cfg.DefaultWindow, time.Now())
	if err != nil {
		return Query{}, err
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return Query{
		Role:     role,
		Start:    start,
		End:      end,
		Location: c.Query("location"),
		Limit:    limit,
	}, nil
}

func (h *Handler) List(c *gin.Context) {
	q, err := h.parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Export(c *gin.Context) {
	q, err := h.parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="settlements.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := h.newExporter().Export(result, c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
}

type disburseRequest struct {
	TargetOwnerID uuid.UUID       `json:"target_owner_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference"`
}

func (h *Handler) Disburse(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req disburseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.service.Disburse(c.Request.Context(), actor.ID, req.TargetOwnerID, req.Amount, req.Description, req.Reference)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}
