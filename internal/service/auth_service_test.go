package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/config"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/models"
	"github.com/vandreio/tourbook/internal/utils"
)

// fakeUserRepo is an in-memory UserRepository for service tests.
type fakeUserRepo struct {
	byID    map[int64]*models.User
	byEmail map[string]*models.User
	nextID  int64

	resetTokenSet     bool
	resetTokenCleared bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[int64]*models.User{},
		byEmail: map[string]*models.User{},
		nextID:  1,
	}
}

func (f *fakeUserRepo) add(user *models.User) *models.User {
	user.ID = f.nextID
	f.nextID++
	user.Active = true
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return user
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if _, exists := f.byEmail[user.Email]; exists {
		return utils.NewDuplicateError("User", "email", user.Email)
	}
	f.add(user)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	if user, ok := f.byID[id]; ok && user.Active {
		return user, nil
	}
	return nil, utils.NewNotFoundError("user", id)
}

func (f *fakeUserRepo) GetByIDAny(_ context.Context, id int64) (*models.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, utils.NewNotFoundError("user", id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := f.byEmail[email]; ok && user.Active {
		return user, nil
	}
	return nil, utils.NewNotFoundError("user", email)
}

func (f *fakeUserRepo) GetByResetToken(_ context.Context, hashedToken string) (*models.User, error) {
	for _, user := range f.byID {
		if user.PasswordResetToken != nil && *user.PasswordResetToken == hashedToken &&
			user.PasswordResetExpires != nil && user.PasswordResetExpires.After(time.Now()) {
			return user, nil
		}
	}
	return nil, utils.NewBadRequestError("Token is invalid or has expired")
}

func (f *fakeUserRepo) List(context.Context, *database.ListQuery) ([]*models.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) Update(context.Context, int64, *models.UpdateUserRequest) (*models.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id int64, req *models.UpdateMeRequest) (*models.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, utils.NewNotFoundError("user", id)
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Photo != nil {
		user.Photo = *req.Photo
	}
	return user, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id int64, hash, salt string) error {
	user, ok := f.byID[id]
	if !ok {
		return utils.NewNotFoundError("user", id)
	}
	user.PasswordHash = hash
	user.Salt = salt
	now := time.Now()
	user.PasswordChangedAt = &now
	user.PasswordResetToken = nil
	user.PasswordResetExpires = nil
	return nil
}

func (f *fakeUserRepo) SetResetToken(_ context.Context, id int64, hashedToken string, expires time.Time) error {
	user, ok := f.byID[id]
	if !ok {
		return utils.NewNotFoundError("user", id)
	}
	user.PasswordResetToken = &hashedToken
	user.PasswordResetExpires = &expires
	f.resetTokenSet = true
	return nil
}

func (f *fakeUserRepo) ClearResetToken(_ context.Context, id int64) error {
	if user, ok := f.byID[id]; ok {
		user.PasswordResetToken = nil
		user.PasswordResetExpires = nil
	}
	f.resetTokenCleared = true
	return nil
}

func (f *fakeUserRepo) Deactivate(_ context.Context, id int64) error {
	user, ok := f.byID[id]
	if !ok || !user.Active {
		return utils.NewNotFoundError("user", id)
	}
	user.Active = false
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeUserRepo) ClearExpiredResetTokens(context.Context) (int64, error) { return 0, nil }

// fakeEmailSender records what would have been sent.
type fakeEmailSender struct {
	welcomes  []string
	resetURLs []string
	failSend  bool
}

func (f *fakeEmailSender) SendWelcome(user *models.User) error {
	if f.failSend {
		return utils.NewUpstreamError("email", assert.AnError)
	}
	f.welcomes = append(f.welcomes, user.Email)
	return nil
}

func (f *fakeEmailSender) SendPasswordReset(user *models.User, resetURL string) error {
	if f.failSend {
		return utils.NewUpstreamError("email", assert.AnError)
	}
	f.resetURLs = append(f.resetURLs, resetURL)
	return nil
}

func testPasswordConfig() *auth.PasswordConfig {
	return &auth.PasswordConfig{
		Memory:      16 * 1024,
		Iterations:  1,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestAuthService() (*AuthService, *fakeUserRepo, *fakeEmailSender) {
	repo := newFakeUserRepo()
	emails := &fakeEmailSender{}
	jwtService := auth.NewJWTService(&config.JWTSettings{
		Secret: "test-secret",
		Expiry: time.Hour,
		Issuer: "tourbook-test",
	})
	svc := NewAuthService(repo, jwtService, testPasswordConfig(), emails, "http://localhost:8080")
	return svc, repo, emails
}

func TestRegister(t *testing.T) {
	svc, repo, emails := newTestAuthService()

	user, token, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:            "Leo",
		Email:           "leo@example.com",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, token)
	assert.Equal(t, constants.RoleUser, user.Role, "registration never grants elevated roles")
	assert.NotEqual(t, "pass1234", user.PasswordHash, "password is stored hashed")

	match, err := auth.VerifyPassword("pass1234", user.PasswordHash, user.Salt, testPasswordConfig())
	require.NoError(t, err)
	assert.True(t, match)

	assert.Contains(t, emails.welcomes, "leo@example.com")
	_, ok := repo.byEmail["leo@example.com"]
	assert.True(t, ok)
}

func TestRegister_NormalizesEmail(t *testing.T) {
	svc, repo, _ := newTestAuthService()

	user, _, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:            "Ada",
		Email:           "Ada.Lovelace@Example.COM",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada.lovelace@example.com", user.Email)
	_, ok := repo.byEmail["ada.lovelace@example.com"]
	assert.True(t, ok)
}

func TestLogin_CaseInsensitiveEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, _, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:            "Ada",
		Email:           "ada@example.com",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)

	user, token, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "ADA@Example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestRegister_WelcomeEmailFailureDoesNotFailSignup(t *testing.T) {
	svc, _, emails := newTestAuthService()
	emails.failSend = true

	_, token, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:            "Leo",
		Email:           "leo@example.com",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func registerTestUser(t *testing.T, svc *AuthService) *models.User {
	t.Helper()
	user, _, err := svc.Register(context.Background(), &models.RegisterRequest{
		Name:            "Leo",
		Email:           "leo@example.com",
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)
	return user
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService()
	registerTestUser(t, svc)

	user, token, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "leo@example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "leo@example.com", user.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestAuthService()
	registerTestUser(t, svc)

	_, _, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "leo@example.com",
		Password: "wrongpass1",
	})
	require.Error(t, err)
	assert.Equal(t, 401, utils.StatusCode(err))
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, _, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever1",
	})
	require.Error(t, err)
	// Same status and message shape as a wrong password
	assert.Equal(t, 401, utils.StatusCode(err))
}

func TestForgotPassword(t *testing.T) {
	svc, repo, emails := newTestAuthService()
	user := registerTestUser(t, svc)

	require.NoError(t, svc.ForgotPassword(context.Background(), "leo@example.com"))

	assert.True(t, repo.resetTokenSet)
	require.Len(t, emails.resetURLs, 1)
	assert.Contains(t, emails.resetURLs[0], "/api/v1/users/resetPassword/")
	require.NotNil(t, user.PasswordResetToken)

	// The stored value is a digest, not the mailed token
	assert.NotContains(t, emails.resetURLs[0], *user.PasswordResetToken)
}

func TestForgotPassword_CaseInsensitiveEmail(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	registerTestUser(t, svc)

	require.NoError(t, svc.ForgotPassword(context.Background(), "LEO@Example.com"))
	assert.True(t, repo.resetTokenSet)
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	svc, repo, emails := newTestAuthService()

	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.False(t, repo.resetTokenSet)
	assert.Empty(t, emails.resetURLs)
}

func TestForgotPassword_EmailFailureClearsToken(t *testing.T) {
	svc, repo, emails := newTestAuthService()
	user := registerTestUser(t, svc)
	emails.failSend = true

	err := svc.ForgotPassword(context.Background(), "leo@example.com")
	require.Error(t, err)
	assert.True(t, repo.resetTokenCleared)
	assert.Nil(t, user.PasswordResetToken)
}

func TestResetPassword(t *testing.T) {
	svc, _, emails := newTestAuthService()
	user := registerTestUser(t, svc)

	require.NoError(t, svc.ForgotPassword(context.Background(), "leo@example.com"))
	require.Len(t, emails.resetURLs, 1)

	url := emails.resetURLs[0]
	plain := url[len(url)-64:]

	_, token, err := svc.ResetPassword(context.Background(), plain, &models.ResetPasswordRequest{
		Password:        "newpass99",
		PasswordConfirm: "newpass99",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// The reset token is single use
	assert.Nil(t, user.PasswordResetToken)
	_, _, err = svc.ResetPassword(context.Background(), plain, &models.ResetPasswordRequest{
		Password:        "another99",
		PasswordConfirm: "another99",
	})
	assert.Error(t, err)

	// Old password no longer works, new one does
	_, _, err = svc.Login(context.Background(), &models.LoginRequest{Email: "leo@example.com", Password: "pass1234"})
	assert.Error(t, err)
	_, _, err = svc.Login(context.Background(), &models.LoginRequest{Email: "leo@example.com", Password: "newpass99"})
	assert.NoError(t, err)

	// Password change time was stamped, invalidating earlier tokens
	assert.NotNil(t, user.PasswordChangedAt)
}

func TestResetPassword_BadToken(t *testing.T) {
	svc, _, _ := newTestAuthService()
	registerTestUser(t, svc)

	_, _, err := svc.ResetPassword(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000",
		&models.ResetPasswordRequest{Password: "newpass99", PasswordConfirm: "newpass99"})
	require.Error(t, err)
	assert.Equal(t, 400, utils.StatusCode(err))
}

func TestUpdatePassword(t *testing.T) {
	svc, _, _ := newTestAuthService()
	user := registerTestUser(t, svc)

	token, err := svc.UpdatePassword(context.Background(), user, &models.UpdatePasswordRequest{
		PasswordCurrent: "pass1234",
		Password:        "newpass99",
		PasswordConfirm: "newpass99",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(context.Background(), &models.LoginRequest{Email: "leo@example.com", Password: "newpass99"})
	assert.NoError(t, err)
}

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	svc, _, _ := newTestAuthService()
	user := registerTestUser(t, svc)

	_, err := svc.UpdatePassword(context.Background(), user, &models.UpdatePasswordRequest{
		PasswordCurrent: "wrongpass1",
		Password:        "newpass99",
		PasswordConfirm: "newpass99",
	})
	require.Error(t, err)
	assert.Equal(t, 401, utils.StatusCode(err))
}

func TestUserService_DeleteMe(t *testing.T) {
	svcAuth, repo, _ := newTestAuthService()
	user := registerTestUser(t, svcAuth)

	users := NewUserService(repo)
	require.NoError(t, users.DeleteMe(context.Background(), user.ID))

	// Deactivated accounts vanish from read paths
	_, err := repo.GetByID(context.Background(), user.ID)
	assert.Error(t, err)
}

func TestUserService_UpdateMe(t *testing.T) {
	svcAuth, repo, _ := newTestAuthService()
	user := registerTestUser(t, svcAuth)

	users := NewUserService(repo)
	name := "New Name"
	updated, err := users.UpdateMe(context.Background(), user.ID, &models.UpdateMeRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
}
