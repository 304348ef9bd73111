package models

import "strings"

// Role is both the domain profile role and the identity role membership name.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleKitchen Role = "KITCHEN"
	RoleAdmin   Role = "ADMIN"
)

// Roles is the fixed role catalog.
var Roles = []Role{RoleAdmin, RoleKitchen, RoleStudent, RoleStaff}

// ParseRole trims and upper-cases s; ok is false for names outside the catalog.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return r, false
}

type MealChoiceStatus string

const (
	Eating    MealChoiceStatus = "Eating"
	NotEating MealChoiceStatus = "NotEating"
)

type MenuItemType string

const (
	MenuItemMain MenuItemType = "Main"
	MenuItemVeg  MenuItemType = "Veg"
)
