package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MENO-App/BE-MENO/models"
	"github.com/MENO-App/BE-MENO/testutil"
	"github.com/MENO-App/BE-MENO/utils"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.err
}

func newAuthService(t *testing.T, mailer utils.Mailer) *AuthService {
	t.Helper()
	log, _ := testutil.NewLogger()
	tokens := utils.NewTokenIssuer("test-secret", "meno", "meno-api", time.Hour)
	return NewAuthService(testutil.NewDB(t), log, tokens, mailer)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newAuthService(t, mailer)
	ctx := context.Background()

	user, err := svc.Register(ctx, CredentialsInput{Email: " Elev@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "elev@example.com", user.Email)
	assert.Equal(t, []string{"elev@example.com"}, mailer.sent)

	_, err = svc.Register(ctx, CredentialsInput{Email: "elev@example.com", Password: "secret2"})
	assert.True(t, errors.Is(err, errors.AlreadyExists))
	_, err = svc.Register(ctx, CredentialsInput{Email: "kort@example.com", Password: "12345"})
	assert.True(t, errors.Is(err, errors.NotValid))

	result, err := svc.Login(ctx, CredentialsInput{Email: "ELEV@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.UserID)
	assert.Equal(t, []string{"STUDENT"}, result.Roles)

	claims, err := svc.tokens.Parse(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, []string{"STUDENT"}, claims.Roles)

	_, err = svc.Login(ctx, CredentialsInput{Email: "elev@example.com", Password: "wrong-pw"})
	assert.True(t, errors.Is(err, errors.Unauthorized))
	_, err = svc.Login(ctx, CredentialsInput{Email: "ingen@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, errors.Unauthorized))
}

func TestAuthService_MailFailureDoesNotFailRegistration(t *testing.T) {
	svc := newAuthService(t, &fakeMailer{err: errors.New("ses down")})
	_, err := svc.Register(context.Background(), CredentialsInput{Email: "a@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestAuthService_Roles(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()
	user, err := svc.Register(ctx, CredentialsInput{Email: "k@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.AddRole(ctx, user.ID, "kitchen"))
	require.NoError(t, svc.AddRole(ctx, user.ID, "KITCHEN"))
	assert.EqualValues(t, 1, count(t, svc.db, &models.IdentityUserRole{}, "identity_user_id = ? AND role = ?", user.ID, "KITCHEN"))

	roles, err := svc.IdentityRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"KITCHEN", "STUDENT"}, roles)

	assert.True(t, errors.Is(svc.AddRole(ctx, user.ID, "chef"), errors.NotValid))
	assert.True(t, errors.Is(svc.AddRole(ctx, uuid.New(), "ADMIN"), errors.NotFound))

	require.NoError(t, svc.RemoveRole(ctx, user.ID, "kitchen"))
	require.NoError(t, svc.RemoveRole(ctx, user.ID, "kitchen"))
	roles, err = svc.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"STUDENT"}, roles)
}

func TestAuthService_PasswordAndEmail(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()
	user, err := svc.Register(ctx, CredentialsInput{Email: "p@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, CredentialsInput{Email: "taken@example.com", Password: "secret1"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "nope", NewPassword: "secret2"})
	assert.True(t, errors.Is(err, errors.NotValid))
	require.NoError(t, svc.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "secret2"}))
	_, err = svc.Login(ctx, CredentialsInput{Email: "p@example.com", Password: "secret2"})
	require.NoError(t, err)

	err = svc.UpdateEmail(ctx, user.ID, UpdateEmailInput{Email: "Taken@example.com"})
	assert.True(t, errors.Is(err, errors.AlreadyExists))
	require.NoError(t, svc.UpdateEmail(ctx, user.ID, UpdateEmailInput{Email: "New@Example.com"}))
	_, err = svc.Login(ctx, CredentialsInput{Email: "new@example.com", Password: "secret2"})
	require.NoError(t, err)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "new@example.com", users[0].Email)
}

func TestAuthService_EnsureAdminIdempotent(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "adminpw"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "ignored"))

	result, err := svc.Login(ctx, CredentialsInput{Email: "admin@example.com", Password: "adminpw"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN", "STUDENT"}, result.Roles)
	assert.EqualValues(t, 1, count(t, svc.db, &models.IdentityUser{}, "email = ?", "admin@example.com"))
}

func TestAuthService_AddRoleAlreadyStored(t *testing.T) {
	db := testutil.NewDB(t)
	log, hook := testutil.NewLogger()
	tokens := utils.NewTokenIssuer("test-secret", "meno", "meno-api", time.Hour)
	svc := NewAuthService(db, log, tokens, nil)
	ctx := context.Background()
	user, err := svc.Register(ctx, CredentialsInput{Email: "r@example.com", Password: "secret1"})
	require.NoError(t, err)

	// the membership row lands between the identity check and the insert
	require.NoError(t, db.Create(&models.IdentityUserRole{IdentityUserID: user.ID, Role: models.RoleAdmin}).Error)
	hook.Reset()

	require.NoError(t, svc.AddRole(ctx, user.ID, "admin"))
	assert.EqualValues(t, 1, count(t, db, &models.IdentityUserRole{}, "identity_user_id = ? AND role = ?", user.ID, "ADMIN"))
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, "role granted", entry.Message)
	}

	require.NoError(t, svc.AddRole(ctx, user.ID, "kitchen"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "role granted", hook.LastEntry().Message)
}
