package ingest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storyhub/pkg/apperror"
	"storyhub/pkg/models"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes mounts POST on rg. extra runs before the handler, e.g. a rate limiter.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, extra ...gin.HandlerFunc) {
	rg.POST("", append(extra, h.create)...) // POST /contents
}

type createReq struct {
	Type string  `json:"type" binding:"required"`
	Data *Record `json:"data" binding:"required"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			apperror.BadRequest(c, "Missing type or data")
			return
		}
		apperror.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	kind, ok := models.ParseKind(req.Type)
	if !ok {
		apperror.BadRequest(c, "Invalid type. Must be 'novel' or 'webtoon'")
		return
	}

	if err := h.Service.Ingest(c.Request.Context(), kind, *req.Data); err != nil {
		apperror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%s data inserted successfully", kind),
	})
}
