package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/MENO-App/BE-MENO/models"
)

const defaultSchoolName = "Default School"

// SeedAllergies inserts any missing entry of the fixed allergy catalog.
func SeedAllergies(ctx context.Context, db *gorm.DB) error {
	for _, a := range models.AllergyCatalog {
		entry := a
		err := db.WithContext(ctx).
			Where(models.Allergy{AllergyID: entry.AllergyID}).
			Attrs(models.Allergy{Name: entry.Name}).
			FirstOrCreate(&entry).Error
		if err != nil {
			return errors.Annotatef(err, "seeding allergy %s", a.Name)
		}
	}
	return nil
}

// EnsureDefaultSchool creates the configured default school when the id is a
// valid uuid and no such school exists. Other values are left for
// provisioning to report.
func EnsureDefaultSchool(ctx context.Context, db *gorm.DB, rawID string) (bool, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return false, nil
	}
	db = db.WithContext(ctx)
	found, err := exists(db, &models.School{}, "school_id = ?", id)
	if err != nil || found {
		return false, err
	}
	school := models.School{SchoolID: id, Name: defaultSchoolName, Timezone: DefaultTimezone}
	if err := db.Create(&school).Error; err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, errors.Annotate(err, "seeding default school")
	}
	return true, nil
}

// Bootstrap is the idempotent startup seed.
type Bootstrap struct {
	DB              *gorm.DB
	Log             logrus.FieldLogger
	Auth            *AuthService
	DefaultSchoolID string
	AdminEmail      string
	AdminPassword   string
}

func (b Bootstrap) Run(ctx context.Context) error {
	if err := SeedAllergies(ctx, b.DB); err != nil {
		return err
	}
	created, err := EnsureDefaultSchool(ctx, b.DB, b.DefaultSchoolID)
	if err != nil {
		return err
	}
	if created {
		b.Log.WithField("school_id", b.DefaultSchoolID).Info("default school created")
	}
	if b.DefaultSchoolID == "" {
		b.Log.Warn("DEFAULT_SCHOOL_ID not set, first-login provisioning will fail")
	} else if _, err := uuid.Parse(b.DefaultSchoolID); err != nil {
		b.Log.WithField("default_school_id", b.DefaultSchoolID).Warn("DEFAULT_SCHOOL_ID is not a uuid, first-login provisioning will fail")
	}

	if b.AdminEmail == "" || b.AdminPassword == "" {
		return nil
	}
	if err := b.Auth.EnsureAdmin(ctx, b.AdminEmail, b.AdminPassword); err != nil {
		return errors.Annotate(err, "seeding admin")
	}
	b.Log.WithField("email", b.AdminEmail).Info("admin account ensured")
	return nil
}
