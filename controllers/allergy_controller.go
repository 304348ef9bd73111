package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MENO-App/BE-MENO/services"
)

type AllergyController struct {
	Allergies *services.AllergyService
}

func NewAllergyController(allergies *services.AllergyService) *AllergyController {
	return &AllergyController{Allergies: allergies}
}

func (ac *AllergyController) List(c *gin.Context) {
	allergies, err := ac.Allergies.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allergies)
}

func (ac *AllergyController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	allergy, err := ac.Allergies.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allergy)
}

func (ac *AllergyController) Create(c *gin.Context) {
	var input services.CreateAllergyInput
	if !bindJSON(c, &input) {
		return
	}
	allergy, err := ac.Allergies.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "/allergies/"+allergy.AllergyID.String(), allergy)
}

func (ac *AllergyController) ListForUser(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	allergies, err := ac.Allergies.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allergies)
}

func (ac *AllergyController) AddForUser(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.UserAllergyInput
	if !bindJSON(c, &input) {
		return
	}
	if err := ac.Allergies.AddForUser(c.Request.Context(), userID, input); err != nil {
		respondError(c, err)
		return
	}
	created(c, "/users/"+userID.String()+"/allergies/"+input.AllergyID.String(), gin.H{
		"userId":    userID,
		"allergyId": input.AllergyID,
	})
}

func (ac *AllergyController) RemoveForUser(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	allergyID, ok := uuidParam(c, "allergyId")
	if !ok {
		return
	}
	if err := ac.Allergies.RemoveForUser(c.Request.Context(), userID, allergyID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
