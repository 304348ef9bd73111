package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the domain profile. It belongs to exactly one school and may be
// linked to one identity (login) record.
type User struct {
	UserID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"userId"`
	IdentityUserID    *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"identityUserId,omitempty"`
	SchoolID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"schoolId"`
	Role              Role       `gorm:"size:16;not null" json:"role"`
	DisplayName       string     `gorm:"size:200;not null" json:"displayName"`
	ClassGroup        string     `gorm:"size:50;not null" json:"classGroup"`
	DefaultVegetarian bool       `gorm:"not null;default:false" json:"defaultVegetarian"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	return nil
}
