package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MENO-App/BE-MENO/services"
)

type MealPlanController struct {
	Plans *services.MealPlanService
}

func NewMealPlanController(plans *services.MealPlanService) *MealPlanController {
	return &MealPlanController{Plans: plans}
}

func (mc *MealPlanController) Set(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	date, ok := dateValue(c, "date", c.Param("date"))
	if !ok {
		return
	}
	var input services.SetMealPlanInput
	if !bindJSON(c, &input) {
		return
	}
	plan, err := mc.Plans.Set(c.Request.Context(), userID, date, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (mc *MealPlanController) Get(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	date, ok := dateValue(c, "date", c.Param("date"))
	if !ok {
		return
	}
	plan, err := mc.Plans.Get(c.Request.Context(), userID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// List requires both from and to.
func (mc *MealPlanController) List(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	from, ok := dateValue(c, "from", c.Query("from"))
	if !ok {
		return
	}
	to, ok := dateValue(c, "to", c.Query("to"))
	if !ok {
		return
	}
	plans, err := mc.Plans.ListRange(c.Request.Context(), userID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}
