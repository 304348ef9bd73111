package services

import (
	"context"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/MENO-App/BE-MENO/models"
)

// DefaultTimezone is used when a school is created without one.
const DefaultTimezone = "Europe/Stockholm"

type SchoolService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewSchoolService(db *gorm.DB, log logrus.FieldLogger) *SchoolService {
	return &SchoolService{db: db, log: log}
}

type CreateSchoolInput struct {
	Name     string `json:"name" binding:"required,max=200"`
	Timezone string `json:"timezone" binding:"max=64"`
}

func (s *SchoolService) List(ctx context.Context) ([]models.School, error) {
	schools := []models.School{}
	if err := s.db.WithContext(ctx).Order("name").Find(&schools).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return schools, nil
}

func (s *SchoolService) Get(ctx context.Context, id uuid.UUID) (*models.School, error) {
	var school models.School
	if err := s.db.WithContext(ctx).First(&school, "school_id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "school %s", id)
	}
	return &school, nil
}

func (s *SchoolService) Create(ctx context.Context, in CreateSchoolInput) (*models.School, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.NewNotValid(nil, "name is required")
	}
	if utf8.RuneCountInString(name) > 200 {
		return nil, errors.NewNotValid(nil, "name must be at most 200 characters")
	}
	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, errors.NotValidf("timezone %q", tz)
	}

	school := models.School{Name: name, Timezone: tz}
	if err := s.db.WithContext(ctx).Create(&school).Error; err != nil {
		return nil, errors.Annotate(err, "creating school")
	}
	s.log.WithField("school_id", school.SchoolID).Info("school created")
	return &school, nil
}

// Delete removes the school together with its users (and their meal plans and
// allergy links) and its menu weeks (and their items and allergen tags).
func (s *SchoolService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.School{}, "school_id = ?", id)
		if err != nil {
			return err
		}
		if !found {
			return errors.NotFoundf("school %s", id)
		}

		users := tx.Model(&models.User{}).Select("user_id").Where("school_id = ?", id)
		if err := tx.Where("user_id IN (?)", users).Delete(&models.MealPlan{}).Error; err != nil {
			return errors.Trace(err)
		}
		if err := tx.Where("user_id IN (?)", users).Delete(&models.UserAllergy{}).Error; err != nil {
			return errors.Trace(err)
		}
		if err := tx.Where("school_id = ?", id).Delete(&models.User{}).Error; err != nil {
			return errors.Trace(err)
		}

		weeks := tx.Model(&models.MenuWeek{}).Select("menu_week_id").Where("school_id = ?", id)
		items := tx.Model(&models.MenuItem{}).Select("menu_item_id").Where("menu_week_id IN (?)", weeks)
		if err := tx.Where("menu_item_id IN (?)", items).Delete(&models.MenuItemAllergen{}).Error; err != nil {
			return errors.Trace(err)
		}
		if err := tx.Where("menu_week_id IN (?)", weeks).Delete(&models.MenuItem{}).Error; err != nil {
			return errors.Trace(err)
		}
		if err := tx.Where("school_id = ?", id).Delete(&models.MenuWeek{}).Error; err != nil {
			return errors.Trace(err)
		}

		return errors.Trace(tx.Where("school_id = ?", id).Delete(&models.School{}).Error)
	})
	if err != nil {
		return err
	}
	s.log.WithField("school_id", id).Info("school deleted")
	return nil
}
