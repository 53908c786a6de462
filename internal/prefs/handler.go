package prefs

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"storyhub/internal/auth"
	"storyhub/internal/domain"
	"storyhub/pkg/apperror"
	"storyhub/pkg/models"
)

const (
	maxEntries  = 100
	maxEntryLen = 64
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes expects rg to run auth.RequireAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/preferences", h.get) // GET /users/me/preferences
	rg.PUT("/preferences", h.put)
}

type updateReq struct {
	BlockedGenres    []string `json:"blockedGenres"`
	BlockedTags      []string `json:"blockedTags"`
	ShowAdultContent bool     `json:"showAdultContent"`
}

func (h *Handler) get(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, err := h.Repo.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	if p == nil {
		def := models.DefaultPreferences(claims.UserID)
		p = &def
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) put(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BadRequest(c, "invalid json")
		return
	}

	p := models.UserPreferences{
		UserID:           claims.UserID,
		BlockedGenres:    models.CleanTags(req.BlockedGenres),
		BlockedTags:      models.CleanTags(req.BlockedTags),
		ShowAdultContent: req.ShowAdultContent,
	}
	if err := validate(p, claims.AdultVerified); err != nil {
		apperror.Respond(c, err)
		return
	}

	if err := h.Repo.Upsert(c.Request.Context(), p); err != nil {
		apperror.Respond(c, err)
		return
	}

	saved, err := h.Repo.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	if saved == nil {
		p.UpdatedAt = time.Now().UTC()
		saved = &p
	}
	c.JSON(http.StatusOK, saved)
}

func validate(p models.UserPreferences, adultVerified bool) error {
	if p.ShowAdultContent && !adultVerified {
		return domain.Invalid("showAdultContent", "requires adult verification")
	}
	if err := checkList("blockedGenres", p.BlockedGenres); err != nil {
		return err
	}
	return checkList("blockedTags", p.BlockedTags)
}

func checkList(field string, list []string) error {
	if len(list) > maxEntries {
		return domain.Invalid(field, "at most %d entries", maxEntries)
	}
	for _, v := range list {
		if utf8.RuneCountInString(v) > maxEntryLen {
			return domain.Invalid(field, "entries must be at most %d characters", maxEntryLen)
		}
	}
	return nil
}
