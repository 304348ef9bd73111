package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MENO-App/BE-MENO/models"
	"github.com/MENO-App/BE-MENO/utils"
)

const minPasswordLen = 6

// AuthService owns identity records: credentials and role memberships.
type AuthService struct {
	db     *gorm.DB
	log    logrus.FieldLogger
	tokens *utils.TokenIssuer
	mailer utils.Mailer
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, log logrus.FieldLogger, tokens *utils.TokenIssuer, mailer utils.Mailer) *AuthService {
	return &AuthService{db: db, log: log, tokens: tokens, mailer: mailer, now: time.Now}
}

type CredentialsInput struct {
	Email    string `json:"email" binding:"required,email,max=256"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type UpdateEmailInput struct {
	Email string `json:"email" binding:"required,email,max=256"`
}

type LoginResult struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	UserID      uuid.UUID `json:"userId"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles"`
}

// IdentityView is an identity with its roles, as listed to admins.
type IdentityView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.NotValidf("email %q", raw)
	}
	return email, nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return errors.NewNotValid(nil, "password must be at least 6 characters")
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, in CredentialsInput) (*models.IdentityUser, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, errors.Annotate(err, "hashing password")
	}

	user := models.IdentityUser{Email: email, PasswordHash: hash, CreatedAt: s.now().UTC()}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &models.IdentityUser{}, "email = ?", email)
		if err != nil {
			return err
		}
		if taken {
			return errors.AlreadyExistsf("account %s", email)
		}
		if err := tx.Create(&user).Error; err != nil {
			if isDuplicateKey(err) {
				return errors.AlreadyExistsf("account %s", email)
			}
			return errors.Trace(err)
		}
		role := models.IdentityUserRole{IdentityUserID: user.ID, Role: models.RoleStudent}
		return errors.Trace(tx.Create(&role).Error)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("identity_id", user.ID).Info("account registered")

	if s.mailer != nil {
		subject, body := utils.WelcomeMail(email)
		if err := s.mailer.Send(context.WithoutCancel(ctx), email, subject, body); err != nil {
			s.log.WithError(err).WithField("identity_id", user.ID).Warn("welcome mail not sent")
		}
	}
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, in CredentialsInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	var user models.IdentityUser
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Unauthorizedf("invalid email or password")
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !utils.CheckPasswordHash(in.Password, user.PasswordHash) {
		return nil, errors.Unauthorizedf("invalid email or password")
	}

	roles, err := s.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(user.ID, user.Email, roles)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		UserID:      user.ID,
		Email:       user.Email,
		Roles:       roles,
	}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, identityID uuid.UUID, in ChangePasswordInput) error {
	if err := validatePassword(in.NewPassword); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	var user models.IdentityUser
	if err := db.First(&user, "id = ?", identityID).Error; err != nil {
		return notFoundOr(err, "account %s", identityID)
	}
	if !utils.CheckPasswordHash(in.CurrentPassword, user.PasswordHash) {
		return errors.NewNotValid(nil, "current password is incorrect")
	}
	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return errors.Annotate(err, "hashing password")
	}
	err = db.Model(&models.IdentityUser{}).Where("id = ?", identityID).Update("password_hash", hash).Error
	if err != nil {
		return errors.Trace(err)
	}
	s.log.WithField("identity_id", identityID).Info("password changed")
	return nil
}

// UpdateEmail changes the login address. Existing tokens keep the old email
// claim until they expire.
func (s *AuthService) UpdateEmail(ctx context.Context, identityID uuid.UUID, in UpdateEmailInput) error {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &models.IdentityUser{}, "email = ? AND id <> ?", email, identityID)
		if err != nil {
			return err
		}
		if taken {
			return errors.AlreadyExistsf("account %s", email)
		}
		res := tx.Model(&models.IdentityUser{}).Where("id = ?", identityID).Update("email", email)
		if res.Error != nil {
			if isDuplicateKey(res.Error) {
				return errors.AlreadyExistsf("account %s", email)
			}
			return errors.Trace(res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.NotFoundf("account %s", identityID)
		}
		return nil
	})
}

// Roles returns the identity's role names in a stable order.
func (s *AuthService) Roles(ctx context.Context, identityID uuid.UUID) ([]string, error) {
	roles := []string{}
	err := s.db.WithContext(ctx).Model(&models.IdentityUserRole{}).
		Where("identity_user_id = ?", identityID).
		Order("role").
		Pluck("role", &roles).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return roles, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]IdentityView, error) {
	db := s.db.WithContext(ctx)
	var users []models.IdentityUser
	if err := db.Order("email").Find(&users).Error; err != nil {
		return nil, errors.Trace(err)
	}
	var memberships []models.IdentityUserRole
	if err := db.Order("role").Find(&memberships).Error; err != nil {
		return nil, errors.Trace(err)
	}
	byUser := make(map[uuid.UUID][]string, len(users))
	for _, m := range memberships {
		byUser[m.IdentityUserID] = append(byUser[m.IdentityUserID], string(m.Role))
	}
	views := make([]IdentityView, 0, len(users))
	for _, u := range users {
		roles := byUser[u.ID]
		if roles == nil {
			roles = []string{}
		}
		views = append(views, IdentityView{ID: u.ID, Email: u.Email, Roles: roles, CreatedAt: u.CreatedAt})
	}
	return views, nil
}

// IdentityRoles returns the roles of an existing identity.
func (s *AuthService) IdentityRoles(ctx context.Context, identityID uuid.UUID) ([]string, error) {
	if err := s.requireIdentity(s.db.WithContext(ctx), identityID); err != nil {
		return nil, err
	}
	return s.Roles(ctx, identityID)
}

func (s *AuthService) requireIdentity(db *gorm.DB, identityID uuid.UUID) error {
	found, err := exists(db, &models.IdentityUser{}, "id = ?", identityID)
	if err != nil {
		return err
	}
	if !found {
		return errors.NotFoundf("account %s", identityID)
	}
	return nil
}

// AddRole grants a role. Granting a role the identity already holds is a no-op.
func (s *AuthService) AddRole(ctx context.Context, identityID uuid.UUID, rawRole string) error {
	role, ok := models.ParseRole(rawRole)
	if !ok {
		return errors.NotValidf("role %q", rawRole)
	}
	granted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireIdentity(tx, identityID); err != nil {
			return err
		}
		// A concurrent grant of the same role is a no-op, not an aborted transaction.
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.IdentityUserRole{IdentityUserID: identityID, Role: role})
		if res.Error != nil {
			return errors.Trace(res.Error)
		}
		granted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return err
	}
	if granted {
		s.log.WithFields(logrus.Fields{"identity_id": identityID, "role": role}).Info("role granted")
	}
	return nil
}

// RemoveRole revokes a role. Revoking a role the identity does not hold is a no-op.
func (s *AuthService) RemoveRole(ctx context.Context, identityID uuid.UUID, rawRole string) error {
	role, ok := models.ParseRole(rawRole)
	if !ok {
		return errors.NotValidf("role %q", rawRole)
	}
	db := s.db.WithContext(ctx)
	if err := s.requireIdentity(db, identityID); err != nil {
		return err
	}
	err := db.Where("identity_user_id = ? AND role = ?", identityID, role).Delete(&models.IdentityUserRole{}).Error
	if err != nil {
		return errors.Trace(err)
	}
	s.log.WithFields(logrus.Fields{"identity_id": identityID, "role": role}).Info("role revoked")
	return nil
}

// EnsureAdmin creates the account if needed and makes sure it holds ADMIN.
// An existing account keeps its password.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	var user models.IdentityUser
	err = s.db.WithContext(ctx).First(&user, "email = ?", normalized).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := s.Register(ctx, CredentialsInput{Email: normalized, Password: password})
		if err != nil {
			return errors.Annotate(err, "creating admin account")
		}
		user = *created
	case err != nil:
		return errors.Trace(err)
	}
	return s.AddRole(ctx, user.ID, string(models.RoleAdmin))
}
