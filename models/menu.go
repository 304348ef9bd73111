package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MenuWeek is unique per (school, year, ISO week). PublishedAt is written once.
type MenuWeek struct {
	MenuWeekID  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"menuWeekId"`
	SchoolID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_menu_weeks_school_year_week" json:"schoolId"`
	Year        int        `gorm:"not null;uniqueIndex:ux_menu_weeks_school_year_week" json:"year"`
	WeekNumber  int        `gorm:"not null;uniqueIndex:ux_menu_weeks_school_year_week" json:"weekNumber"`
	PublishedAt *time.Time `json:"publishedAt"`
}

func (w *MenuWeek) BeforeCreate(tx *gorm.DB) error {
	if w.MenuWeekID == uuid.Nil {
		w.MenuWeekID = uuid.New()
	}
	return nil
}

// MenuItem is one dish on one day; DayOfWeek is ISO-8601 (1 = Monday, 7 = Sunday).
type MenuItem struct {
	MenuItemID  uuid.UUID    `gorm:"type:uuid;primaryKey" json:"menuItemId"`
	MenuWeekID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"menuWeekId"`
	DayOfWeek   int          `gorm:"not null" json:"dayOfWeek"`
	Type        MenuItemType `gorm:"size:16;not null" json:"type"`
	Title       string       `gorm:"size:200;not null" json:"title"`
	Description string       `gorm:"size:1000;not null;default:''" json:"description"`
}

func (i *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if i.MenuItemID == uuid.Nil {
		i.MenuItemID = uuid.New()
	}
	return nil
}

// MenuItemAllergen tags a menu item with a normalized allergen code.
type MenuItemAllergen struct {
	MenuItemID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"menuItemId"`
	AllergenCode string    `gorm:"size:50;primaryKey" json:"allergenCode"`
}
