package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/MENO-App/BE-MENO/middlewares"
	"github.com/MENO-App/BE-MENO/models"
)

// respondError maps a service error onto its HTTP status. Unclassified
// errors are attached to the context for the access log and hidden from the caller.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.NotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.BadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errors.AlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, errors.Unauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, errors.Forbidden):
		status = http.StatusForbidden
	case errors.Is(err, errors.NotProvisioned):
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"message": "server configuration error: " + err.Error()})
		return
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"message": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
}

// bindJSON binds the request body and writes the 400 response itself when
// binding fails.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": fields})
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid request body: " + err.Error()})
	return false
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": name + " must be a uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func dateValue(c *gin.Context, name, raw string) (models.Date, bool) {
	d, err := models.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": name + " must be a date in yyyy-MM-dd format"})
		return models.Date{}, false
	}
	return d, true
}

func identity(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middlewares.IdentityID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
	}
	return id, ok
}

func created(c *gin.Context, location string, body any) {
	c.Header("Location", location)
	c.JSON(http.StatusCreated, body)
}
