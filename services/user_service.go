package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/MENO-App/BE-MENO/models"
)

type UserService struct {
	db              *gorm.DB
	log             logrus.FieldLogger
	defaultSchoolID string
	now             func() time.Time
}

// NewUserService takes the raw configured default school id; it is validated
// only when a profile has to be provisioned.
func NewUserService(db *gorm.DB, log logrus.FieldLogger, defaultSchoolID string) *UserService {
	return &UserService{db: db, log: log, defaultSchoolID: defaultSchoolID, now: time.Now}
}

type CreateUserInput struct {
	SchoolID          uuid.UUID `json:"schoolId" binding:"required"`
	Role              string    `json:"role"`
	DisplayName       string    `json:"displayName" binding:"max=200"`
	ClassGroup        string    `json:"classGroup" binding:"max=50"`
	DefaultVegetarian bool      `json:"defaultVegetarian"`
}

type UpdateUserInput struct {
	Role              string `json:"role" binding:"required"`
	DisplayName       string `json:"displayName" binding:"max=200"`
	ClassGroup        string `json:"classGroup" binding:"max=50"`
	DefaultVegetarian bool   `json:"defaultVegetarian"`
}

type UpdateProfileInput struct {
	DisplayName       string     `json:"displayName" binding:"max=200"`
	ClassGroup        string     `json:"classGroup" binding:"max=50"`
	DefaultVegetarian bool       `json:"defaultVegetarian"`
	SchoolID          *uuid.UUID `json:"schoolId"`
}

// Profile is the caller's own view of their domain user.
type Profile struct {
	models.User
	Allergies []UserAllergyView `json:"allergies"`
}

func parseProfileRole(raw string) (models.Role, error) {
	if strings.TrimSpace(raw) == "" {
		return models.RoleStudent, nil
	}
	role, ok := models.ParseRole(raw)
	if !ok {
		return "", errors.NotValidf("role %q", raw)
	}
	return role, nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	role, err := parseProfileRole(in.Role)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	found, err := exists(db, &models.School{}, "school_id = ?", in.SchoolID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NotFoundf("school %s", in.SchoolID)
	}

	user := models.User{
		SchoolID:          in.SchoolID,
		Role:              role,
		DisplayName:       strings.TrimSpace(in.DisplayName),
		ClassGroup:        strings.TrimSpace(in.ClassGroup),
		DefaultVegetarian: in.DefaultVegetarian,
		CreatedAt:         s.now().UTC(),
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, errors.Annotate(err, "creating user")
	}
	s.log.WithFields(logrus.Fields{"user_id": user.UserID, "school_id": user.SchoolID}).Info("user created")
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "user_id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "user %s", id)
	}
	return &user, nil
}

func (s *UserService) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]models.User, error) {
	db := s.db.WithContext(ctx)
	found, err := exists(db, &models.School{}, "school_id = ?", schoolID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NotFoundf("school %s", schoolID)
	}
	users := []models.User{}
	if err := db.Where("school_id = ?", schoolID).Order("display_name").Find(&users).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return users, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) error {
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return errors.NotValidf("role %q", in.Role)
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("user_id = ?", id).Updates(map[string]interface{}{
		"display_name":       strings.TrimSpace(in.DisplayName),
		"class_group":        strings.TrimSpace(in.ClassGroup),
		"default_vegetarian": in.DefaultVegetarian,
		"role":               role,
	})
	if res.Error != nil {
		return errors.Trace(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFoundf("user %s", id)
	}
	return nil
}

// Delete removes the user with its meal plans and allergy links.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.User{}, "user_id = ?", id)
		if err != nil {
			return err
		}
		if !found {
			return errors.NotFoundf("user %s", id)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.MealPlan{}).Error; err != nil {
			return errors.Trace(err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UserAllergy{}).Error; err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(tx.Where("user_id = ?", id).Delete(&models.User{}).Error)
	})
	if err != nil {
		return err
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

// ForIdentity returns the profile linked to the identity, or NotFound.
func (s *UserService) ForIdentity(ctx context.Context, identityID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "identity_user_id = ?", identityID).Error
	if err != nil {
		return nil, notFoundOr(err, "profile for identity %s", identityID)
	}
	return &user, nil
}

// Provision returns the profile linked to the identity, creating it in the
// configured default school on first access.
func (s *UserService) Provision(ctx context.Context, identityID uuid.UUID) (*models.User, error) {
	user, err := s.ForIdentity(ctx, identityID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errors.NotFound) {
		return nil, err
	}

	schoolID, err := s.defaultSchool(ctx)
	if err != nil {
		return nil, err
	}
	created := models.User{
		IdentityUserID: &identityID,
		SchoolID:       schoolID,
		Role:           models.RoleStudent,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		if isDuplicateKey(err) {
			// a concurrent request provisioned the same identity first
			return s.ForIdentity(ctx, identityID)
		}
		return nil, errors.Annotate(err, "provisioning profile")
	}
	s.log.WithFields(logrus.Fields{
		"user_id":     created.UserID,
		"identity_id": identityID,
		"school_id":   schoolID,
	}).Info("profile provisioned on first access")
	return &created, nil
}

func (s *UserService) defaultSchool(ctx context.Context) (uuid.UUID, error) {
	if strings.TrimSpace(s.defaultSchoolID) == "" {
		return uuid.Nil, errors.NotProvisionedf("DEFAULT_SCHOOL_ID (missing)")
	}
	id, err := uuid.Parse(s.defaultSchoolID)
	if err != nil {
		return uuid.Nil, errors.NotProvisionedf("DEFAULT_SCHOOL_ID (malformed %q)", s.defaultSchoolID)
	}
	found, err := exists(s.db.WithContext(ctx), &models.School{}, "school_id = ?", id)
	if err != nil {
		return uuid.Nil, err
	}
	if !found {
		return uuid.Nil, errors.NotProvisionedf("DEFAULT_SCHOOL_ID (school %s does not exist)", id)
	}
	return id, nil
}

// Me provisions (if needed) and returns the caller's profile with allergies.
func (s *UserService) Me(ctx context.Context, identityID uuid.UUID) (*Profile, error) {
	user, err := s.Provision(ctx, identityID)
	if err != nil {
		return nil, err
	}
	allergies, err := listUserAllergies(s.db.WithContext(ctx), user.UserID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: *user, Allergies: allergies}, nil
}

// UpdateMe edits the caller's own profile. It never provisions.
func (s *UserService) UpdateMe(ctx context.Context, identityID uuid.UUID, in UpdateProfileInput) error {
	user, err := s.ForIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	updates := map[string]interface{}{
		"display_name":       strings.TrimSpace(in.DisplayName),
		"class_group":        strings.TrimSpace(in.ClassGroup),
		"default_vegetarian": in.DefaultVegetarian,
	}
	if in.SchoolID != nil {
		found, err := exists(db, &models.School{}, "school_id = ?", *in.SchoolID)
		if err != nil {
			return err
		}
		if !found {
			return errors.NotFoundf("school %s", *in.SchoolID)
		}
		updates["school_id"] = *in.SchoolID
	}
	return errors.Trace(db.Model(&models.User{}).Where("user_id = ?", user.UserID).Updates(updates).Error)
}
