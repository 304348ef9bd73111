package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MENO-App/BE-MENO/services"
)

// CurrentUserController serves /users/me for the authenticated caller.
type CurrentUserController struct {
	Users     *services.UserService
	Allergies *services.AllergyService
}

func NewCurrentUserController(users *services.UserService, allergies *services.AllergyService) *CurrentUserController {
	return &CurrentUserController{Users: users, Allergies: allergies}
}

// Get returns the caller's profile, creating it on first access.
func (mc *CurrentUserController) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	profile, err := mc.Users.Me(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (mc *CurrentUserController) Update(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var input services.UpdateProfileInput
	if !bindJSON(c, &input) {
		return
	}
	if err := mc.Users.UpdateMe(c.Request.Context(), id, input); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (mc *CurrentUserController) ListAllergies(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	user, err := mc.Users.ForIdentity(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	allergies, err := mc.Allergies.ListForUser(c.Request.Context(), user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allergies)
}

func (mc *CurrentUserController) ReplaceAllergies(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var input services.ReplaceAllergiesInput
	if !bindJSON(c, &input) {
		return
	}
	user, err := mc.Users.ForIdentity(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := mc.Allergies.ReplaceForUser(c.Request.Context(), user.UserID, input.Allergies); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (mc *CurrentUserController) UpsertAllergy(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var input services.UserAllergyInput
	if !bindJSON(c, &input) {
		return
	}
	user, err := mc.Users.ForIdentity(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := mc.Allergies.UpsertForUser(c.Request.Context(), user.UserID, input); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
