package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/MENO-App/BE-MENO/models"
)

type MealPlanService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewMealPlanService(db *gorm.DB, log logrus.FieldLogger) *MealPlanService {
	return &MealPlanService{db: db, log: log}
}

type SetMealPlanInput struct {
	Status          models.MealChoiceStatus `json:"status" binding:"required,oneof=Eating NotEating"`
	WantsVegetarian bool                    `json:"wantsVegetarian"`
}

// Set writes the user's choice for the date; the last write wins.
func (s *MealPlanService) Set(ctx context.Context, userID uuid.UUID, date models.Date, in SetMealPlanInput) (*models.MealPlan, error) {
	if in.Status != models.Eating && in.Status != models.NotEating {
		return nil, errors.NotValidf("status %q", in.Status)
	}
	var plan models.MealPlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		err := tx.Where(models.MealPlan{UserID: userID, Date: date}).
			Assign(map[string]interface{}{
				"status":           in.Status,
				"wants_vegetarian": in.WantsVegetarian,
			}).
			FirstOrCreate(&plan).Error
		if err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(tx.First(&plan, "user_id = ? AND date = ?", userID, date).Error)
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *MealPlanService) Get(ctx context.Context, userID uuid.UUID, date models.Date) (*models.MealPlan, error) {
	var plan models.MealPlan
	err := s.db.WithContext(ctx).First(&plan, "user_id = ? AND date = ?", userID, date).Error
	if err != nil {
		return nil, notFoundOr(err, "meal plan for user %s on %s", userID, date)
	}
	return &plan, nil
}

// ListRange returns the user's plans with from <= date <= to, ordered by date.
func (s *MealPlanService) ListRange(ctx context.Context, userID uuid.UUID, from, to models.Date) ([]models.MealPlan, error) {
	if to.Before(from.Time) {
		return nil, errors.NotValidf("range %s to %s", from, to)
	}
	db := s.db.WithContext(ctx)
	if err := requireUser(db, userID); err != nil {
		return nil, err
	}
	plans := []models.MealPlan{}
	err := db.Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).Order("date").Find(&plans).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return plans, nil
}
