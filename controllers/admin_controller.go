package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MENO-App/BE-MENO/services"
)

// AdminController manages identity accounts and their roles.
type AdminController struct {
	Auth *services.AuthService
}

func NewAdminController(auth *services.AuthService) *AdminController {
	return &AdminController{Auth: auth}
}

func (ac *AdminController) ListUsers(c *gin.Context) {
	users, err := ac.Auth.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (ac *AdminController) Roles(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	roles, err := ac.Auth.IdentityRoles(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "roles": roles})
}

func (ac *AdminController) AddRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := ac.Auth.AddRole(c.Request.Context(), id, c.Param("role")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ac *AdminController) RemoveRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := ac.Auth.RemoveRole(c.Request.Context(), id, c.Param("role")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
