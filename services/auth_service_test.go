package services

import (
	"context"
	"testing"
	"time"

	"play-llm-server/models"
	"play-llm-server/testutil"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type AuthSuite struct {
	suite.Suite
	db   *gorm.DB
	auth *AuthService
	ctx  context.Context
	now  time.Time
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.auth = NewAuthService(s.db, time.Hour)
	s.now = time.Now().UTC()
	s.auth.Clock = func() time.Time { return s.now }
	s.ctx = context.Background()
}

func (s *AuthSuite) register(email, username string) *models.User {
	u, err := s.auth.Register(s.ctx, RegisterInput{Email: email, Username: username, Password: "password123"})
	s.Require().NoError(err)
	return u
}

func (s *AuthSuite) TestRegister() {
	u := s.register("  Ada@Example.COM ", "ada")

	s.Equal("ada@example.com", u.Email)
	s.Equal(models.RoleRegular, u.Role)
	s.False(u.IsVerified)
	s.NotEmpty(u.PasswordHash)
	s.NotEqual("password123", u.PasswordHash)
	s.True(u.VerifyPassword("password123"))
}

func (s *AuthSuite) TestRegisterRejectsDuplicates() {
	s.register("ada@example.com", "ada")

	_, err := s.auth.Register(s.ctx, RegisterInput{Email: "ADA@example.com", Username: "other", Password: "password123"})
	s.ErrorIs(err, ErrEmailTaken)

	_, err = s.auth.Register(s.ctx, RegisterInput{Email: "other@example.com", Username: "ada", Password: "password123"})
	s.ErrorIs(err, ErrUsernameTaken)
}

func (s *AuthSuite) TestRegisterValidates() {
	cases := []RegisterInput{
		{Email: "not-an-email", Username: "ada", Password: "password123"},
		{Email: "ada@example.com", Username: "", Password: "password123"},
		{Email: "ada@example.com", Username: "ada", Password: "short"},
		{Email: "ada@example.com", Username: "ada@example.com", Password: "password123"},
	}
	for _, in := range cases {
		_, err := s.auth.Register(s.ctx, in)
		s.ErrorIs(err, ErrInvalidInput, "%+v", in)
	}
	s.Equal(int64(0), testutil.Count(s.T(), s.db, &models.User{}))
}

func (s *AuthSuite) TestDuplicateErrorNamesTheCollidingField() {
	s.register("ada@example.com", "ada")

	s.ErrorIs(s.auth.duplicateError(s.ctx, "ada@example.com", "someone"), ErrEmailTaken)
	s.ErrorIs(s.auth.duplicateError(s.ctx, "grace@example.com", "ada"), ErrUsernameTaken)
}

func (s *AuthSuite) TestLoginByEmailIgnoresUsernames() {
	squatter := s.register("squat@example.com", "grace")
	// usernames holding an address predate the '@' rule
	s.Require().NoError(s.db.Model(squatter).Update("username", "ada@example.com").Error)
	u := s.register("ada@example.com", "ada")

	session, err := s.auth.Login(s.ctx, "ada@example.com", "password123")
	s.Require().NoError(err)
	s.Equal(u.ID, session.UserID)
}

func (s *AuthSuite) TestLoginByEmailOrUsername() {
	u := s.register("ada@example.com", "ada")

	byName, err := s.auth.Login(s.ctx, "ada", "password123")
	s.Require().NoError(err)
	s.Equal(u.ID, byName.UserID)
	s.NotEmpty(byName.Token)
	s.Require().NotNil(byName.User)
	s.Require().NotNil(byName.User.LastLogin)

	byEmail, err := s.auth.Login(s.ctx, "ADA@example.com", "password123")
	s.Require().NoError(err)
	s.NotEqual(byName.Token, byEmail.Token)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, u.ID).Error)
	s.Require().NotNil(stored.LastLogin)
	s.WithinDuration(s.now, *stored.LastLogin, time.Second)
}

func (s *AuthSuite) TestLoginFailures() {
	s.register("ada@example.com", "ada")

	_, err := s.auth.Login(s.ctx, "ada", "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.auth.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.auth.Login(s.ctx, "", "")
	s.ErrorIs(err, ErrInvalidCredentials)

	s.Equal(int64(0), testutil.Count(s.T(), s.db, &models.Session{}))
}

func (s *AuthSuite) TestAuthenticate() {
	s.register("ada@example.com", "ada")
	session, err := s.auth.Login(s.ctx, "ada", "password123")
	s.Require().NoError(err)

	got, err := s.auth.Authenticate(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal(session.ID, got.ID)
	s.Require().NotNil(got.User)
	s.Equal("ada", got.User.Username)

	_, err = s.auth.Authenticate(s.ctx, "unknown")
	s.ErrorIs(err, ErrInvalidSession)

	_, err = s.auth.Authenticate(s.ctx, "")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *AuthSuite) TestAuthenticateExpiresAfterTTL() {
	s.register("ada@example.com", "ada")
	session, err := s.auth.Login(s.ctx, "ada", "password123")
	s.Require().NoError(err)

	// created_at comes from the database clock, so move ours past it
	s.now = time.Now().UTC().Add(2 * time.Hour)

	_, err = s.auth.Authenticate(s.ctx, session.Token)
	s.ErrorIs(err, ErrSessionExpired)

	var stored models.Session
	s.Require().NoError(s.db.First(&stored, session.ID).Error)
	s.True(stored.IsExpired)
}

func (s *AuthSuite) TestLogout() {
	s.register("ada@example.com", "ada")
	session, err := s.auth.Login(s.ctx, "ada", "password123")
	s.Require().NoError(err)

	s.Require().NoError(s.auth.Logout(s.ctx, session.ID))
	_, err = s.auth.Authenticate(s.ctx, session.Token)
	s.ErrorIs(err, ErrSessionExpired)

	s.ErrorIs(s.auth.Logout(s.ctx, 9999), ErrNotFound)
}

func (s *AuthSuite) TestVerificationCode() {
	u := s.register("ada@example.com", "ada")
	session, err := s.auth.Login(s.ctx, "ada", "password123")
	s.Require().NoError(err)

	s.ErrorIs(s.auth.ConfirmVerificationCode(s.ctx, session.ID, "123456"), ErrNoVerificationCode)

	first, err := s.auth.IssueVerificationCode(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Len(first, 6)

	code, err := s.auth.IssueVerificationCode(s.ctx, session.ID)
	s.Require().NoError(err)

	var stored models.Session
	s.Require().NoError(s.db.First(&stored, session.ID).Error)
	s.Require().NotNil(stored.VerificationCode)
	s.Equal(code, *stored.VerificationCode)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	s.ErrorIs(s.auth.ConfirmVerificationCode(s.ctx, session.ID, wrong), ErrInvalidVerificationCode)

	s.Require().NoError(s.auth.ConfirmVerificationCode(s.ctx, session.ID, code))

	var user models.User
	s.Require().NoError(s.db.First(&user, u.ID).Error)
	s.True(user.IsVerified)

	// codes are single use
	s.ErrorIs(s.auth.ConfirmVerificationCode(s.ctx, session.ID, code), ErrNoVerificationCode)

	_, err = s.auth.IssueVerificationCode(s.ctx, 9999)
	s.ErrorIs(err, ErrNotFound)
}

func (s *AuthSuite) TestChangePassword() {
	u := s.register("ada@example.com", "ada")

	s.ErrorIs(s.auth.ChangePassword(s.ctx, u.ID, "wrong-password", "new-password1"), ErrInvalidCredentials)
	s.ErrorIs(s.auth.ChangePassword(s.ctx, u.ID, "password123", "short"), ErrInvalidInput)
	s.Require().NoError(s.auth.ChangePassword(s.ctx, u.ID, "password123", "new-password1"))

	_, err := s.auth.Login(s.ctx, "ada", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.auth.Login(s.ctx, "ada", "new-password1")
	s.NoError(err)
}

func (s *AuthSuite) TestUserAdministration() {
	ada := s.register("ada@example.com", "ada")
	bob := s.register("bob@example.com", "bob")
	testutil.CreateSession(s.T(), s.db, bob.ID)

	users, err := s.auth.ListUsers(s.ctx, "", ListOptions{})
	s.Require().NoError(err)
	s.Len(users, 2)
	s.Equal(bob.ID, users[0].ID)

	users, err = s.auth.ListUsers(s.ctx, "ADA", ListOptions{})
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(ada.ID, users[0].ID)

	s.Require().NoError(s.auth.SetRole(s.ctx, ada.ID, models.RoleAdmin))
	got, err := s.auth.GetUser(s.ctx, ada.ID)
	s.Require().NoError(err)
	s.True(got.IsAdmin())

	s.ErrorIs(s.auth.SetRole(s.ctx, ada.ID, models.Role("root")), models.ErrInvalidRole)
	s.ErrorIs(s.auth.SetRole(s.ctx, 9999, models.RoleAdmin), ErrNotFound)

	s.Require().NoError(s.auth.DeleteUser(s.ctx, bob.ID))
	s.Equal(int64(0), testutil.Count(s.T(), s.db, &models.Session{}))
	s.ErrorIs(s.auth.DeleteUser(s.ctx, bob.ID), ErrNotFound)

	_, err = s.auth.GetUser(s.ctx, bob.ID)
	s.ErrorIs(err, ErrNotFound)
}
