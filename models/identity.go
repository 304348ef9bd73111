package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityUser is the login record. It is separate from the domain User profile.
type IdentityUser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	Email        string    `gorm:"size:256;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *IdentityUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IdentityUserRole is one role membership; the composite key prevents duplicates.
type IdentityUserRole struct {
	IdentityUserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role           Role      `gorm:"size:16;primaryKey"`
}
