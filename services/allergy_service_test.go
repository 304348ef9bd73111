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

var (
	glutenID = models.AllergyCatalog[0].AllergyID
	laktosID = models.AllergyCatalog[1].AllergyID
)

func TestValidateLink_OtherNeedsNotes(t *testing.T) {
	tests := []struct {
		name  string
		input UserAllergyInput
		ok    bool
	}{
		{"other without notes", UserAllergyInput{AllergyID: models.OtherAllergyID}, false},
		{"other with one character", UserAllergyInput{AllergyID: models.OtherAllergyID, Notes: "x"}, false},
		{"other with padded character", UserAllergyInput{AllergyID: models.OtherAllergyID, Notes: "  x  "}, false},
		{"other with notes", UserAllergyInput{AllergyID: models.OtherAllergyID, Notes: "Kiwi"}, true},
		{"regular without notes", UserAllergyInput{AllergyID: glutenID}, true},
		{"missing id", UserAllergyInput{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateLink(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)
			}
		})
	}
}

func TestAllergyService_Catalog(t *testing.T) {
	db := newTestDB(t)
	log, _ := testutil.NewLogger()
	svc := NewAllergyService(db, log)
	ctx := context.Background()

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(models.AllergyCatalog))

	created, err := svc.Create(ctx, CreateAllergyInput{Name: "  Selleri "})
	require.NoError(t, err)
	assert.Equal(t, "Selleri", created.Name)
	fetched, err := svc.Get(ctx, created.AllergyID)
	require.NoError(t, err)
	assert.Equal(t, "Selleri", fetched.Name)
	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, errors.NotFound))

	_, err = svc.Create(ctx, CreateAllergyInput{Name: "Selleri"})
	assert.True(t, errors.Is(err, errors.AlreadyExists))
	_, err = svc.Create(ctx, CreateAllergyInput{Name: "   "})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestAllergyService_UserLinks(t *testing.T) {
	db := newTestDB(t)
	log, _ := testutil.NewLogger()
	svc := NewAllergyService(db, log)
	ctx := context.Background()
	user := seedUser(t, db, seedSchool(t, db, "Skola").SchoolID)

	require.NoError(t, svc.AddForUser(ctx, user.UserID, UserAllergyInput{AllergyID: glutenID}))
	err := svc.AddForUser(ctx, user.UserID, UserAllergyInput{AllergyID: glutenID})
	assert.True(t, errors.Is(err, errors.AlreadyExists))

	err = svc.AddForUser(ctx, user.UserID, UserAllergyInput{AllergyID: models.OtherAllergyID, Notes: "k"})
	assert.True(t, errors.Is(err, errors.NotValid))
	err = svc.AddForUser(ctx, user.UserID, UserAllergyInput{AllergyID: uuid.New()})
	assert.True(t, errors.Is(err, errors.NotFound))
	err = svc.AddForUser(ctx, uuid.New(), UserAllergyInput{AllergyID: glutenID})
	assert.True(t, errors.Is(err, errors.NotFound))

	require.NoError(t, svc.UpsertForUser(ctx, user.UserID, UserAllergyInput{AllergyID: glutenID, Notes: "svår"}))
	links, err := svc.ListForUser(ctx, user.UserID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Gluten", links[0].Name)
	assert.Equal(t, "svår", links[0].Notes)

	require.NoError(t, svc.RemoveForUser(ctx, user.UserID, glutenID))
	assert.True(t, errors.Is(svc.RemoveForUser(ctx, user.UserID, glutenID), errors.NotFound))
}

func TestAllergyService_ReplaceForUser(t *testing.T) {
	db := newTestDB(t)
	log, _ := testutil.NewLogger()
	svc := NewAllergyService(db, log)
	ctx := context.Background()
	user := seedUser(t, db, seedSchool(t, db, "Skola").SchoolID)
	require.NoError(t, svc.AddForUser(ctx, user.UserID, UserAllergyInput{AllergyID: glutenID}))

	target := []UserAllergyInput{
		{AllergyID: laktosID, Notes: "first"},
		{AllergyID: models.OtherAllergyID, Notes: " Kiwi "},
		{AllergyID: laktosID, Notes: "second"},
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.ReplaceForUser(ctx, user.UserID, target))
		links, err := svc.ListForUser(ctx, user.UserID)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "Annan", links[0].Name)
		assert.Equal(t, "Kiwi", links[0].Notes)
		assert.Equal(t, "Laktos", links[1].Name)
		assert.Equal(t, "first", links[1].Notes)
	}

	err := svc.ReplaceForUser(ctx, user.UserID, []UserAllergyInput{{AllergyID: uuid.New()}})
	assert.True(t, errors.Is(err, errors.NotFound))
	err = svc.ReplaceForUser(ctx, user.UserID, []UserAllergyInput{{AllergyID: models.OtherAllergyID}})
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.EqualValues(t, 2, count(t, db, &models.UserAllergy{}, "user_id = ?", user.UserID), "failed replace leaves the set intact")

	require.NoError(t, svc.ReplaceForUser(ctx, user.UserID, nil))
	assert.EqualValues(t, 0, count(t, db, &models.UserAllergy{}, "user_id = ?", user.UserID))
}

func TestAllergyService_ReplaceForUserCancelled(t *testing.T) {
	db := newTestDB(t)
	log, _ := testutil.NewLogger()
	svc := NewAllergyService(db, log)
	user := seedUser(t, db, seedSchool(t, db, "Skola").SchoolID)
	require.NoError(t, svc.AddForUser(context.Background(), user.UserID, UserAllergyInput{AllergyID: glutenID}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.ReplaceForUser(ctx, user.UserID, []UserAllergyInput{{AllergyID: laktosID}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	links, err := svc.ListForUser(context.Background(), user.UserID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, glutenID, links[0].AllergyID)
}
