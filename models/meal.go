package models

import "github.com/google/uuid"

// MealPlan is a user's choice for one calendar day; one row per (user, date).
type MealPlan struct {
	UserID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"userId"`
	Date            Date             `gorm:"primaryKey" json:"date"`
	Status          MealChoiceStatus `gorm:"size:16;not null" json:"status"`
	WantsVegetarian bool             `gorm:"not null;default:false" json:"wantsVegetarian"`
}
