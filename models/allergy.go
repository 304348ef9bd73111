package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OtherAllergyID is the catalog entry a user picks for an allergy that is not
// listed; it always needs a note describing it.
var OtherAllergyID = uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")

type Allergy struct {
	AllergyID uuid.UUID `gorm:"type:uuid;primaryKey" json:"allergyId"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

func (a *Allergy) BeforeCreate(tx *gorm.DB) error {
	if a.AllergyID == uuid.Nil {
		a.AllergyID = uuid.New()
	}
	return nil
}

// AllergyCatalog is seeded on startup.
var AllergyCatalog = []Allergy{
	{AllergyID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Name: "Gluten"},
	{AllergyID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Name: "Laktos"},
	{AllergyID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Name: "Mjölkprotein"},
	{AllergyID: uuid.MustParse("44444444-4444-4444-4444-444444444444"), Name: "Ägg"},
	{AllergyID: uuid.MustParse("55555555-5555-5555-5555-555555555555"), Name: "Nötter"},
	{AllergyID: uuid.MustParse("66666666-6666-6666-6666-666666666666"), Name: "Jordnötter"},
	{AllergyID: uuid.MustParse("77777777-7777-7777-7777-777777777777"), Name: "Soja"},
	{AllergyID: uuid.MustParse("88888888-8888-8888-8888-888888888888"), Name: "Fisk"},
	{AllergyID: uuid.MustParse("99999999-9999-9999-9999-999999999999"), Name: "Skaldjur"},
	{AllergyID: uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"), Name: "Sesam"},
	{AllergyID: OtherAllergyID, Name: "Annan"},
}

// UserAllergy links a user to a catalog allergy; one row per (user, allergy).
type UserAllergy struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	AllergyID uuid.UUID `gorm:"type:uuid;primaryKey" json:"allergyId"`
	Notes     string    `gorm:"size:100;not null;default:''" json:"notes"`
}
