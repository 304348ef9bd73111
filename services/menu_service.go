package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/MENO-App/BE-MENO/models"
	"github.com/MENO-App/BE-MENO/utils"
)

const (
	minMenuYear        = 2000
	maxMenuYear        = 9999
	maxMenuWeek        = 53
	maxAllergenCodeLen = 50
	maxItemTitleLen    = 200
	maxItemDescLen     = 1000
)

// MenuNotifier is told about a week the first time it is published.
type MenuNotifier interface {
	MenuPublished(ctx context.Context, week *MenuWeekView)
}

type MenuService struct {
	db       *gorm.DB
	log      logrus.FieldLogger
	notifier MenuNotifier
	now      func() time.Time
}

func NewMenuService(db *gorm.DB, log logrus.FieldLogger, notifier MenuNotifier) *MenuService {
	return &MenuService{db: db, log: log, notifier: notifier, now: time.Now}
}

type CreateMenuWeekInput struct {
	Year       int `json:"year" binding:"required"`
	WeekNumber int `json:"weekNumber" binding:"required"`
}

type MenuItemInput struct {
	DayOfWeek   int                 `json:"dayOfWeek" binding:"required,min=1,max=7"`
	Type        models.MenuItemType `json:"type" binding:"required,oneof=Main Veg"`
	Title       string              `json:"title" binding:"required,max=200"`
	Description string              `json:"description" binding:"max=1000"`
	Allergens   []string            `json:"allergens"`
}

type SetAllergensInput struct {
	Allergens []string `json:"allergens"`
}

// MenuItemView is an item with its allergen codes.
type MenuItemView struct {
	models.MenuItem
	Allergens []string `json:"allergens"`
}

// MenuWeekView is a week with its items ordered by day.
type MenuWeekView struct {
	models.MenuWeek
	Items []MenuItemView `json:"items"`
}

func validateWeek(year, week int) error {
	if year < minMenuYear || year > maxMenuYear {
		return errors.NotValidf("year %d (allowed %d-%d)", year, minMenuYear, maxMenuYear)
	}
	if week < 1 || week > maxMenuWeek {
		return errors.NotValidf("week %d (allowed 1-%d)", week, maxMenuWeek)
	}
	return nil
}

func validateItem(in MenuItemInput) (MenuItemInput, error) {
	if in.DayOfWeek < 1 || in.DayOfWeek > 7 {
		return in, errors.NotValidf("dayOfWeek %d", in.DayOfWeek)
	}
	if in.Type != models.MenuItemMain && in.Type != models.MenuItemVeg {
		return in, errors.NotValidf("type %q", in.Type)
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return in, errors.NewNotValid(nil, "title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxItemTitleLen {
		return in, errors.NotValidf("title longer than %d characters", maxItemTitleLen)
	}
	if utf8.RuneCountInString(in.Description) > maxItemDescLen {
		return in, errors.NotValidf("description longer than %d characters", maxItemDescLen)
	}
	return in, nil
}

func normalizeAllergens(codes []string) ([]string, error) {
	out := utils.NormalizeAllergenCodes(codes)
	for _, c := range out {
		if utf8.RuneCountInString(c) > maxAllergenCodeLen {
			return nil, errors.NotValidf("allergen code %q longer than %d characters", c, maxAllergenCodeLen)
		}
	}
	return out, nil
}

func allergenRows(itemID uuid.UUID, codes []string) []models.MenuItemAllergen {
	rows := make([]models.MenuItemAllergen, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, models.MenuItemAllergen{MenuItemID: itemID, AllergenCode: c})
	}
	return rows
}

// CreateWeek rejects a second week for the same school, year and week number.
func (s *MenuService) CreateWeek(ctx context.Context, schoolID uuid.UUID, in CreateMenuWeekInput) (*models.MenuWeek, error) {
	if err := validateWeek(in.Year, in.WeekNumber); err != nil {
		return nil, err
	}
	week := models.MenuWeek{SchoolID: schoolID, Year: in.Year, WeekNumber: in.WeekNumber}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.School{}, "school_id = ?", schoolID)
		if err != nil {
			return err
		}
		if !found {
			return errors.NotFoundf("school %s", schoolID)
		}
		taken, err := exists(tx, &models.MenuWeek{}, "school_id = ? AND year = ? AND week_number = ?",
			schoolID, in.Year, in.WeekNumber)
		if err != nil {
			return err
		}
		if taken {
			return errors.AlreadyExistsf("menu week %d-W%02d for school %s", in.Year, in.WeekNumber, schoolID)
		}
		if err := tx.Create(&week).Error; err != nil {
			if isDuplicateKey(err) {
				return errors.AlreadyExistsf("menu week %d-W%02d for school %s", in.Year, in.WeekNumber, schoolID)
			}
			return errors.Trace(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"menu_week_id": week.MenuWeekID,
		"school_id":    schoolID,
		"year":         week.Year,
		"week":         week.WeekNumber,
	}).Info("menu week created")
	return &week, nil
}

func (s *MenuService) ListWeeks(ctx context.Context, schoolID uuid.UUID) ([]models.MenuWeek, error) {
	db := s.db.WithContext(ctx)
	found, err := exists(db, &models.School{}, "school_id = ?", schoolID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NotFoundf("school %s", schoolID)
	}
	weeks := []models.MenuWeek{}
	err = db.Where("school_id = ?", schoolID).Order("year DESC").Order("week_number DESC").Find(&weeks).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return weeks, nil
}

func (s *MenuService) GetWeek(ctx context.Context, id uuid.UUID) (*MenuWeekView, error) {
	db := s.db.WithContext(ctx)
	var week models.MenuWeek
	if err := db.First(&week, "menu_week_id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "menu week %s", id)
	}
	return loadWeekView(db, week)
}

func (s *MenuService) FindWeek(ctx context.Context, schoolID uuid.UUID, year, weekNumber int) (*MenuWeekView, error) {
	db := s.db.WithContext(ctx)
	var week models.MenuWeek
	err := db.Where("school_id = ? AND year = ? AND week_number = ?", schoolID, year, weekNumber).First(&week).Error
	if err != nil {
		return nil, notFoundOr(err, "menu week %d-W%02d for school %s", year, weekNumber, schoolID)
	}
	return loadWeekView(db, week)
}

func loadWeekView(db *gorm.DB, week models.MenuWeek) (*MenuWeekView, error) {
	var items []models.MenuItem
	err := db.Where("menu_week_id = ?", week.MenuWeekID).
		Order("day_of_week").Order("type").Order("title").
		Find(&items).Error
	if err != nil {
		return nil, errors.Trace(err)
	}

	view := &MenuWeekView{MenuWeek: week, Items: make([]MenuItemView, 0, len(items))}
	if len(items) == 0 {
		return view, nil
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MenuItemID)
	}
	var tags []models.MenuItemAllergen
	if err := db.Where("menu_item_id IN ?", ids).Order("allergen_code").Find(&tags).Error; err != nil {
		return nil, errors.Trace(err)
	}
	byItem := make(map[uuid.UUID][]string, len(items))
	for _, t := range tags {
		byItem[t.MenuItemID] = append(byItem[t.MenuItemID], t.AllergenCode)
	}
	for _, it := range items {
		codes := byItem[it.MenuItemID]
		if codes == nil {
			codes = []string{}
		}
		view.Items = append(view.Items, MenuItemView{MenuItem: it, Allergens: codes})
	}
	return view, nil
}

// Publish sets PublishedAt only if it is still unset, so the first call wins.
// Only that first call notifies subscribers.
func (s *MenuService) Publish(ctx context.Context, id uuid.UUID) (*MenuWeekView, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC().Truncate(time.Microsecond)
	res := db.Model(&models.MenuWeek{}).
		Where("menu_week_id = ? AND published_at IS NULL", id).
		Update("published_at", now)
	if res.Error != nil {
		return nil, errors.Trace(res.Error)
	}
	first := res.RowsAffected == 1

	view, err := s.GetWeek(ctx, id)
	if err != nil {
		return nil, err
	}
	if !first {
		return view, nil
	}

	s.log.WithFields(logrus.Fields{
		"menu_week_id": id,
		"school_id":    view.SchoolID,
	}).Info("menu week published")
	if s.notifier != nil {
		s.notifier.MenuPublished(context.WithoutCancel(ctx), view)
	}
	return view, nil
}

func (s *MenuService) AddItem(ctx context.Context, weekID uuid.UUID, in MenuItemInput) (*MenuItemView, error) {
	in, err := validateItem(in)
	if err != nil {
		return nil, err
	}
	codes, err := normalizeAllergens(in.Allergens)
	if err != nil {
		return nil, err
	}
	item := models.MenuItem{
		MenuWeekID:  weekID,
		DayOfWeek:   in.DayOfWeek,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.MenuWeek{}, "menu_week_id = ?", weekID)
		if err != nil {
			return err
		}
		if !found {
			return errors.NotFoundf("menu week %s", weekID)
		}
		if err := tx.Create(&item).Error; err != nil {
			return errors.Trace(err)
		}
		if len(codes) == 0 {
			return nil
		}
		return errors.Trace(tx.Create(allergenRows(item.MenuItemID, codes)).Error)
	})
	if err != nil {
		return nil, err
	}
	return &MenuItemView{MenuItem: item, Allergens: codes}, nil
}

// UpdateItem overwrites the item's fields. Allergens are replaced only when
// the input carries a list.
func (s *MenuService) UpdateItem(ctx context.Context, id uuid.UUID, in MenuItemInput) error {
	in, err := validateItem(in)
	if err != nil {
		return err
	}
	var codes []string
	if in.Allergens != nil {
		if codes, err = normalizeAllergens(in.Allergens); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.MenuItem{}).Where("menu_item_id = ?", id).Updates(map[string]interface{}{
			"day_of_week": in.DayOfWeek,
			"type":        in.Type,
			"title":       in.Title,
			"description": in.Description,
		})
		if res.Error != nil {
			return errors.Trace(res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.NotFoundf("menu item %s", id)
		}
		if in.Allergens == nil {
			return nil
		}
		return replaceAllergens(tx, id, codes)
	})
}

func (s *MenuService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_item_id = ?", id).Delete(&models.MenuItemAllergen{}).Error; err != nil {
			return errors.Trace(err)
		}
		res := tx.Where("menu_item_id = ?", id).Delete(&models.MenuItem{})
		if res.Error != nil {
			return errors.Trace(res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.NotFoundf("menu item %s", id)
		}
		return nil
	})
}

// SetItemAllergens replaces the item's allergen set and returns the stored codes.
func (s *MenuService) SetItemAllergens(ctx context.Context, id uuid.UUID, codes []string) ([]string, error) {
	normalized, err := normalizeAllergens(codes)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.MenuItem{}, "menu_item_id = ?", id)
		if err != nil {
			return err
		}
		if !found {
			return errors.NotFoundf("menu item %s", id)
		}
		return replaceAllergens(tx, id, normalized)
	})
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func replaceAllergens(tx *gorm.DB, itemID uuid.UUID, codes []string) error {
	if err := tx.Where("menu_item_id = ?", itemID).Delete(&models.MenuItemAllergen{}).Error; err != nil {
		return errors.Trace(err)
	}
	if len(codes) == 0 {
		return nil
	}
	return errors.Trace(tx.Create(allergenRows(itemID, codes)).Error)
}
