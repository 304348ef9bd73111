package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MENO-App/BE-MENO/models"
	"github.com/MENO-App/BE-MENO/testutil"
)

func TestSchoolService_Create(t *testing.T) {
	db := newTestDB(t)
	log, _ := testutil.NewLogger()
	svc := NewSchoolService(db, log)
	ctx := context.Background()

	school, err := svc.Create(ctx, CreateSchoolInput{Name: " Ekskolan "})
	require.NoError(t, err)
	assert.Equal(t, "Ekskolan", school.Name)
	assert.Equal(t, DefaultTimezone, school.Timezone)

	_, err = svc.Create(ctx, CreateSchoolInput{Name: "Björkskolan", Timezone: "Mars/Olympus"})
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = svc.Create(ctx, CreateSchoolInput{Name: "  "})
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = svc.Create(ctx, CreateSchoolInput{Name: "Aspskolan", Timezone: "Europe/Helsinki"})
	require.NoError(t, err)
	schools, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, schools, 2)
	assert.Equal(t, "Aspskolan", schools[0].Name)
}

func TestSchoolService_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	log, _ := testutil.NewLogger()
	svc := NewSchoolService(db, log)
	ctx := context.Background()

	doomed := seedSchool(t, db, "Stängs")
	kept := seedSchool(t, db, "Finns kvar")
	var users []models.User
	var items []models.MenuItem
	for _, school := range []models.School{doomed, kept} {
		user := seedUser(t, db, school.SchoolID)
		users = append(users, user)
		require.NoError(t, db.Create(&models.MealPlan{UserID: user.UserID, Date: mustDate(t, "2025-01-13"), Status: models.Eating}).Error)
		require.NoError(t, db.Create(&models.UserAllergy{UserID: user.UserID, AllergyID: glutenID}).Error)

		week := models.MenuWeek{SchoolID: school.SchoolID, Year: 2025, WeekNumber: 3}
		require.NoError(t, db.Create(&week).Error)
		item := models.MenuItem{MenuWeekID: week.MenuWeekID, DayOfWeek: 1, Type: models.MenuItemMain, Title: "Soppa"}
		require.NoError(t, db.Create(&item).Error)
		require.NoError(t, db.Create(&models.MenuItemAllergen{MenuItemID: item.MenuItemID, AllergenCode: "SELLERI"}).Error)
		items = append(items, item)
	}

	require.NoError(t, svc.Delete(ctx, doomed.SchoolID))

	assert.EqualValues(t, 0, count(t, db, &models.School{}, "school_id = ?", doomed.SchoolID))
	assert.EqualValues(t, 0, count(t, db, &models.User{}, "school_id = ?", doomed.SchoolID))
	assert.EqualValues(t, 0, count(t, db, &models.MealPlan{}, "user_id = ?", users[0].UserID))
	assert.EqualValues(t, 0, count(t, db, &models.UserAllergy{}, "user_id = ?", users[0].UserID))
	assert.EqualValues(t, 0, count(t, db, &models.MenuWeek{}, "school_id = ?", doomed.SchoolID))
	assert.EqualValues(t, 0, count(t, db, &models.MenuItem{}, "menu_item_id = ?", items[0].MenuItemID))
	assert.EqualValues(t, 0, count(t, db, &models.MenuItemAllergen{}, "menu_item_id = ?", items[0].MenuItemID))

	assert.EqualValues(t, 1, count(t, db, &models.User{}, "school_id = ?", kept.SchoolID))
	assert.EqualValues(t, 1, count(t, db, &models.MealPlan{}, "user_id = ?", users[1].UserID))
	assert.EqualValues(t, 1, count(t, db, &models.UserAllergy{}, "user_id = ?", users[1].UserID))
	assert.EqualValues(t, 1, count(t, db, &models.MenuItemAllergen{}, "menu_item_id = ?", items[1].MenuItemID))

	assert.True(t, errors.Is(svc.Delete(ctx, uuid.New()), errors.NotFound))
}
