package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type School struct {
	SchoolID uuid.UUID `gorm:"type:uuid;primaryKey" json:"schoolId"`
	Name     string    `gorm:"size:200;not null" json:"name"`
	Timezone string    `gorm:"size:64;not null" json:"timezone"`
}

func (s *School) BeforeCreate(tx *gorm.DB) error {
	if s.SchoolID == uuid.Nil {
		s.SchoolID = uuid.New()
	}
	return nil
}
