package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MENO-App/BE-MENO/models"
	"github.com/MENO-App/BE-MENO/testutil"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, SeedAllergies(context.Background(), db))
	return db
}

func seedSchool(t *testing.T, db *gorm.DB, name string) models.School {
	t.Helper()
	school := models.School{Name: name, Timezone: DefaultTimezone}
	require.NoError(t, db.Create(&school).Error)
	return school
}

func seedUser(t *testing.T, db *gorm.DB, schoolID uuid.UUID) models.User {
	t.Helper()
	user := models.User{SchoolID: schoolID, DisplayName: "Elev " + uuid.NewString()[:4]}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func count(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

type recordingNotifier struct {
	mu    sync.Mutex
	weeks []*MenuWeekView
}

func (r *recordingNotifier) MenuPublished(_ context.Context, week *MenuWeekView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weeks = append(r.weeks, week)
}

func (r *recordingNotifier) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.weeks)
}
