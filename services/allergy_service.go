package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MENO-App/BE-MENO/models"
)

const (
	maxAllergyNameLen  = 100
	maxAllergyNotesLen = 100
	minOtherNotesLen   = 2
)

type AllergyService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewAllergyService(db *gorm.DB, log logrus.FieldLogger) *AllergyService {
	return &AllergyService{db: db, log: log}
}

type CreateAllergyInput struct {
	Name string `json:"name" binding:"required,max=100"`
}

// UserAllergyInput is one requested allergy link.
type UserAllergyInput struct {
	AllergyID uuid.UUID `json:"allergyId" binding:"required"`
	Notes     string    `json:"notes" binding:"max=100"`
}

type ReplaceAllergiesInput struct {
	Allergies []UserAllergyInput `json:"allergies" binding:"required,dive"`
}

// UserAllergyView is a user's allergy link joined with the catalog name.
type UserAllergyView struct {
	AllergyID uuid.UUID `json:"allergyId"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
}

// ValidateLink normalizes the notes of a requested link and checks the
// "Other" rule: the sentinel needs a real description.
func ValidateLink(in UserAllergyInput) (UserAllergyInput, error) {
	if in.AllergyID == uuid.Nil {
		return in, errors.NotValidf("allergyId (missing)")
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if utf8.RuneCountInString(in.Notes) > maxAllergyNotesLen {
		return in, errors.NotValidf("notes longer than %d characters", maxAllergyNotesLen)
	}
	if in.AllergyID == models.OtherAllergyID && utf8.RuneCountInString(in.Notes) < minOtherNotesLen {
		return in, errors.NewNotValid(nil, "notes of at least 2 characters are required for the Other allergy")
	}
	return in, nil
}

func (s *AllergyService) List(ctx context.Context) ([]models.Allergy, error) {
	allergies := []models.Allergy{}
	if err := s.db.WithContext(ctx).Order("name").Find(&allergies).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return allergies, nil
}

func (s *AllergyService) Get(ctx context.Context, id uuid.UUID) (*models.Allergy, error) {
	var allergy models.Allergy
	if err := s.db.WithContext(ctx).First(&allergy, "allergy_id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "allergy %s", id)
	}
	return &allergy, nil
}

func (s *AllergyService) Create(ctx context.Context, in CreateAllergyInput) (*models.Allergy, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.NewNotValid(nil, "name is required")
	}
	if utf8.RuneCountInString(name) > maxAllergyNameLen {
		return nil, errors.NotValidf("name longer than %d characters", maxAllergyNameLen)
	}
	db := s.db.WithContext(ctx)
	taken, err := exists(db, &models.Allergy{}, "name = ?", name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.AlreadyExistsf("allergy %q", name)
	}
	allergy := models.Allergy{Name: name}
	if err := db.Create(&allergy).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, errors.AlreadyExistsf("allergy %q", name)
		}
		return nil, errors.Annotate(err, "creating allergy")
	}
	s.log.WithField("allergy_id", allergy.AllergyID).Info("allergy created")
	return &allergy, nil
}

func listUserAllergies(db *gorm.DB, userID uuid.UUID) ([]UserAllergyView, error) {
	views := []UserAllergyView{}
	err := db.Table("user_allergies").
		Select("user_allergies.allergy_id, allergies.name, user_allergies.notes").
		Joins("JOIN allergies ON allergies.allergy_id = user_allergies.allergy_id").
		Where("user_allergies.user_id = ?", userID).
		Order("allergies.name").
		Scan(&views).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return views, nil
}

func requireUser(db *gorm.DB, userID uuid.UUID) error {
	found, err := exists(db, &models.User{}, "user_id = ?", userID)
	if err != nil {
		return err
	}
	if !found {
		return errors.NotFoundf("user %s", userID)
	}
	return nil
}

func requireAllergy(db *gorm.DB, allergyID uuid.UUID) error {
	found, err := exists(db, &models.Allergy{}, "allergy_id = ?", allergyID)
	if err != nil {
		return err
	}
	if !found {
		return errors.NotFoundf("allergy %s", allergyID)
	}
	return nil
}

func (s *AllergyService) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserAllergyView, error) {
	db := s.db.WithContext(ctx)
	if err := requireUser(db, userID); err != nil {
		return nil, err
	}
	return listUserAllergies(db, userID)
}

// AddForUser links an allergy to a user. An existing link is a conflict.
func (s *AllergyService) AddForUser(ctx context.Context, userID uuid.UUID, in UserAllergyInput) error {
	in, err := ValidateLink(in)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		if err := requireAllergy(tx, in.AllergyID); err != nil {
			return err
		}
		linked, err := exists(tx, &models.UserAllergy{}, "user_id = ? AND allergy_id = ?", userID, in.AllergyID)
		if err != nil {
			return err
		}
		if linked {
			return errors.AlreadyExistsf("allergy %s for user %s", in.AllergyID, userID)
		}
		link := models.UserAllergy{UserID: userID, AllergyID: in.AllergyID, Notes: in.Notes}
		if err := tx.Create(&link).Error; err != nil {
			if isDuplicateKey(err) {
				return errors.AlreadyExistsf("allergy %s for user %s", in.AllergyID, userID)
			}
			return errors.Trace(err)
		}
		return nil
	})
}

// UpsertForUser links an allergy to a user or overwrites the notes of an existing link.
func (s *AllergyService) UpsertForUser(ctx context.Context, userID uuid.UUID, in UserAllergyInput) error {
	in, err := ValidateLink(in)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		if err := requireAllergy(tx, in.AllergyID); err != nil {
			return err
		}
		link := models.UserAllergy{UserID: userID, AllergyID: in.AllergyID, Notes: in.Notes}
		return errors.Trace(tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "allergy_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"notes"}),
		}).Create(&link).Error)
	})
}

func (s *AllergyService) RemoveForUser(ctx context.Context, userID, allergyID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND allergy_id = ?", userID, allergyID).
		Delete(&models.UserAllergy{})
	if res.Error != nil {
		return errors.Trace(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFoundf("allergy %s for user %s", allergyID, userID)
	}
	return nil
}

// ReplaceForUser makes the user's allergy set exactly the given links.
// Repeated allergy ids keep the first occurrence.
func (s *AllergyService) ReplaceForUser(ctx context.Context, userID uuid.UUID, in []UserAllergyInput) error {
	links := make([]models.UserAllergy, 0, len(in))
	seen := make(map[uuid.UUID]struct{}, len(in))
	for _, item := range in {
		item, err := ValidateLink(item)
		if err != nil {
			return err
		}
		if _, dup := seen[item.AllergyID]; dup {
			continue
		}
		seen[item.AllergyID] = struct{}{}
		links = append(links, models.UserAllergy{UserID: userID, AllergyID: item.AllergyID, Notes: item.Notes})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		if len(links) > 0 {
			ids := make([]uuid.UUID, 0, len(links))
			for _, l := range links {
				ids = append(ids, l.AllergyID)
			}
			var known int64
			if err := tx.Model(&models.Allergy{}).Where("allergy_id IN ?", ids).Count(&known).Error; err != nil {
				return errors.Trace(err)
			}
			if int(known) != len(ids) {
				return errors.NotFoundf("one or more allergies")
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserAllergy{}).Error; err != nil {
			return errors.Trace(err)
		}
		if len(links) == 0 {
			return nil
		}
		return errors.Trace(tx.Create(&links).Error)
	})
}
