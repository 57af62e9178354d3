package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-api/internal/service"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
	"github.com/noah-isme/campus-api/pkg/response"
)

// PermissionHandler exposes permission catalog and sub-role endpoints.
type PermissionHandler struct {
	permissions *service.PermissionService
}

// NewPermissionHandler constructs PermissionHandler.
func NewPermissionHandler(permissions *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// Catalog godoc
// @Summary List the permission catalog
// @Tags Permissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /permissions [get]
func (h *PermissionHandler) Catalog(c *gin.Context) {
	catalog, err := h.permissions.Catalog(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, catalog, nil)
}

// ListSubRoles godoc
// @Summary List the school's sub-roles
// @Tags Permissions
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/sub-roles [get]
func (h *PermissionHandler) ListSubRoles(c *gin.Context) {
	subRoles, err := h.permissions.ListSubRoles(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subRoles, nil)
}

// CreateSubRole godoc
// @Summary Create a custom sub-role
// @Tags Permissions
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateSubRoleRequest true "Sub-role payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/sub-roles [post]
func (h *PermissionHandler) CreateSubRole(c *gin.Context) {
	var req service.CreateSubRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subRole, err := h.permissions.CreateSubRole(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subRole)
}

// ListGrants godoc
// @Summary List the grants attached to a sub-role
// @Tags Permissions
// @Produce json
// @Param schoolId path string true "School ID"
// @Param key path string true "Sub-role key"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/sub-roles/{key}/grants [get]
func (h *PermissionHandler) ListGrants(c *gin.Context) {
	grants, err := h.permissions.ListGrants(c.Request.Context(), c.Param("schoolId"), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, nil)
}

// UpdateGrants godoc
// @Summary Replace the grants attached to a sub-role
// @Tags Permissions
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param key path string true "Sub-role key"
// @Param payload body service.UpdateGrantsRequest true "Grant keys"
// @Success 204 {object} response.Envelope
// @Router /schools/{schoolId}/sub-roles/{key}/grants [put]
func (h *PermissionHandler) UpdateGrants(c *gin.Context) {
	var req service.UpdateGrantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.permissions.UpdateGrants(c.Request.Context(), c.Param("schoolId"), c.Param("key"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
