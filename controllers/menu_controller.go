package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MENO-App/BE-MENO/services"
)

type MenuController struct {
	Menus *services.MenuService
}

func NewMenuController(menus *services.MenuService) *MenuController {
	return &MenuController{Menus: menus}
}

func (mc *MenuController) ListWeeks(c *gin.Context) {
	schoolID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	weeks, err := mc.Menus.ListWeeks(c.Request.Context(), schoolID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, weeks)
}

func (mc *MenuController) CreateWeek(c *gin.Context) {
	schoolID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.CreateMenuWeekInput
	if !bindJSON(c, &input) {
		return
	}
	week, err := mc.Menus.CreateWeek(c.Request.Context(), schoolID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "/menuweeks/"+week.MenuWeekID.String(), week)
}

func (mc *MenuController) FindWeek(c *gin.Context) {
	schoolID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "year must be a number"})
		return
	}
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "week must be a number"})
		return
	}
	view, err := mc.Menus.FindWeek(c.Request.Context(), schoolID, year, week)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (mc *MenuController) GetWeek(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	view, err := mc.Menus.GetWeek(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Publish returns the week either way; repeating it leaves publishedAt unchanged.
func (mc *MenuController) Publish(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	view, err := mc.Menus.Publish(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (mc *MenuController) AddItem(c *gin.Context) {
	weekID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.MenuItemInput
	if !bindJSON(c, &input) {
		return
	}
	item, err := mc.Menus.AddItem(c.Request.Context(), weekID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, "/menuitems/"+item.MenuItemID.String(), item)
}

func (mc *MenuController) UpdateItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.MenuItemInput
	if !bindJSON(c, &input) {
		return
	}
	if err := mc.Menus.UpdateItem(c.Request.Context(), id, input); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (mc *MenuController) DeleteItem(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := mc.Menus.DeleteItem(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (mc *MenuController) SetAllergens(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var input services.SetAllergensInput
	if !bindJSON(c, &input) {
		return
	}
	codes, err := mc.Menus.SetItemAllergens(c.Request.Context(), id, input.Allergens)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menuItemId": id, "allergens": codes})
}
