package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", "meno", "meno-api", time.Hour)
	id := uuid.New()

	token, err := ti.Issue(id, "a@example.com", []string{"admin", " Kitchen"})
	require.NoError(t, err)

	claims, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, []string{"ADMIN", "KITCHEN"}, claims.Roles)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	ti := NewTokenIssuer("secret", "meno", "meno-api", time.Hour)
	token, err := ti.Issue(uuid.New(), "a@example.com", nil)
	require.NoError(t, err)

	other := NewTokenIssuer("other-secret", "meno", "meno-api", time.Hour)
	_, err = other.Parse(token)
	assert.True(t, errors.Is(err, errors.Unauthorized))

	wrongAudience := NewTokenIssuer("secret", "meno", "someone-else", time.Hour)
	_, err = wrongAudience.Parse(token)
	assert.True(t, errors.Is(err, errors.Unauthorized))

	later := NewTokenIssuer("secret", "meno", "meno-api", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Parse(token)
	assert.True(t, errors.Is(err, errors.Unauthorized))

	_, err = ti.Parse("not-a-token")
	assert.True(t, errors.Is(err, errors.Unauthorized))
}

func TestTokenIssuer_MissingSecret(t *testing.T) {
	_, err := NewTokenIssuer("", "meno", "meno-api", time.Hour).Issue(uuid.New(), "a@example.com", nil)
	assert.True(t, errors.Is(err, errors.NotProvisioned))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("hunter23", hash))
}

func TestMenuSnapshotKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "menus/11111111-2222-3333-4444-555555555555/2025-W03.json", MenuSnapshotKey(id, 2025, 3))
}
