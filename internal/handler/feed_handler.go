package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/service"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
	"github.com/noah-isme/campus-api/pkg/response"
)

// FeedHandler exposes the school feed endpoints.
type FeedHandler struct {
	feed *service.FeedService
}

// NewFeedHandler constructs FeedHandler.
func NewFeedHandler(feed *service.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// Create godoc
// @Summary Publish a post to the school feed
// @Tags Feed
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreatePostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/feed [post]
func (h *FeedHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	post, err := h.feed.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// List godoc
// @Summary List feed posts visible to the caller
// @Description Pinned posts sort first; audience filtering follows the caller's role
// @Tags Feed
// @Produce json
// @Param schoolId path string true "School ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/feed [get]
func (h *FeedHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	posts, total, err := h.feed.List(c.Request.Context(), claims, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	response.JSON(c, http.StatusOK, posts, pagination)
}

// Pin godoc
// @Summary Pin or unpin a post
// @Tags Feed
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Post ID"
// @Param payload body map[string]bool true "Pinned flag"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/feed/{id}/pin [post]
func (h *FeedHandler) Pin(c *gin.Context) {
	var payload struct {
		Pinned bool `json:"pinned"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	post, err := h.feed.Pin(c.Request.Context(), c.Param("id"), c.Param("schoolId"), payload.Pinned)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Delete godoc
// @Summary Delete a post
// @Description Authors may delete their own posts; admins may delete any
// @Tags Feed
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Router /schools/{schoolId}/feed/{id} [delete]
func (h *FeedHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	canManage := claims.Role == models.RoleAdmin
	if err := h.feed.Delete(c.Request.Context(), claims, c.Param("id"), canManage); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
