package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MENO-App/BE-MENO/services"
)

type SchoolController struct {
	Schools *services.SchoolService
	Users   *services.UserService
}

func NewSchoolController(schools *services.SchoolService, users *services.UserService) *SchoolController {
	return &SchoolController{Schools: schools, Users: users}
}

func (sc *SchoolController) List(c *gin.Context) {
	schools, err := sc.Schools.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schools)
}

func (sc *SchoolController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	school, err := sc.Schools.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, school)
}

func (sc *SchoolController) Create(c *gin.Context) {
	var input services.CreateSchoolInput
	if !bindJSON(c, &input) {
		return
	}
	school, err := sc.Schools.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "/schools/"+school.SchoolID.String(), school)
}

func (sc *SchoolController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := sc.Schools.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (sc *SchoolController) ListUsers(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	users, err := sc.Users.ListBySchool(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
