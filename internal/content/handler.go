package content

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storyhub/internal/auth"
	"storyhub/internal/domain"
	"storyhub/pkg/apperror"
	"storyhub/pkg/models"
)

// BlocklistSource loads a signed-in user's stored blocks. A user without
// stored preferences gets the zero Blocklist.
type BlocklistSource interface {
	Blocklist(ctx context.Context, userID string) (Blocklist, error)
}

type Handler struct {
	Service *Service
	Blocks  BlocklistSource
}

func NewHandler(svc *Service, blocks BlocklistSource) *Handler {
	return &Handler{Service: svc, Blocks: blocks}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)          // GET /contents
	rg.GET("/:type/:id", h.get) // GET /contents/novel/12
}

func (h *Handler) list(c *gin.Context) {
	f, err := ParseFilter(c.Request.URL.Query())
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	if f, err = h.personalize(c, f); err != nil {
		apperror.Respond(c, err)
		return
	}

	page, err := h.Service.FetchPage(c.Request.Context(), f)
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	c.Header("X-Has-More", strconv.FormatBool(page.HasMore))
	c.JSON(http.StatusOK, page.Items)
}

func (h *Handler) get(c *gin.Context) {
	kind, ok := models.ParseKind(c.Param("type"))
	if !ok {
		apperror.Respond(c, domain.Invalid("type", "must be webtoon or novel"))
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apperror.Respond(c, &domain.ValidationError{Field: "id", Msg: "must be an integer", Err: err})
		return
	}

	f, err := h.personalize(c, Filter{ShowAdultContent: c.Query("showAdultContent") == "true"})
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	item, err := h.Service.Get(c.Request.Context(), kind, id, f)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// personalize merges the caller's stored blocks when the request is signed in.
func (h *Handler) personalize(c *gin.Context, f Filter) (Filter, error) {
	claims := auth.MustGetClaims(c)
	if claims == nil || h.Blocks == nil {
		return f, nil
	}
	b, err := h.Blocks.Blocklist(c.Request.Context(), claims.UserID)
	if err != nil {
		return f, err
	}
	b.ShowAdultContent = b.ShowAdultContent && claims.AdultVerified
	return ApplyBlocklist(f, b), nil
}
