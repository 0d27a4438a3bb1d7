package rates

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
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
	group := rg.Group("/rates")
	{
		group.GET("/:material", h.Get)
		group.GET("/:material/history", auth.RequireRole(auth.RoleAdmin), h.History)
		group.PUT("/:material", auth.RequireRole(auth.RoleAdmin), h.Set)
	}
}

type setRateRequest struct {
	RatePerKg  decimal.Decimal `json:"rate_per_kg" binding:"required"`
	RatePerTon decimal.Decimal `json:"rate_per_ton" binding:"required"`
}

func (h *Handler) Get(c *gin.Context) {
	rate, err := h.service.GetRate(c.Request.Context(), c.Param("material"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rate)
}

func (h *Handler) Set(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	var req setRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	change, err := h.service.SetRate(c.Request.Context(), c.Param("material"), req.RatePerKg, req.RatePerTon, actor.ID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, change)
}

func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	edits, err := h.service.History(c.Request.Context(), c.Param("material"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"edits": edits})
}
