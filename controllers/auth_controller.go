package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MENO-App/BE-MENO/services"
)

type AuthController struct {
	Auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{Auth: auth}
}

func (ac *AuthController) Register(c *gin.Context) {
	var input services.CredentialsInput
	if !bindJSON(c, &input) {
		return
	}
	user, err := ac.Auth.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "/admin/users/"+user.ID.String()+"/roles", gin.H{"id": user.ID, "email": user.Email})
}

func (ac *AuthController) Login(c *gin.Context) {
	var input services.CredentialsInput
	if !bindJSON(c, &input) {
		return
	}
	result, err := ac.Auth.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var input services.ChangePasswordInput
	if !bindJSON(c, &input) {
		return
	}
	if err := ac.Auth.ChangePassword(c.Request.Context(), id, input); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ac *AuthController) UpdateEmail(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var input services.UpdateEmailInput
	if !bindJSON(c, &input) {
		return
	}
	if err := ac.Auth.UpdateEmail(c.Request.Context(), id, input); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
