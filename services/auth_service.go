package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"play-llm-server/models"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

var emailFolder = cases.Fold()

type AuthService struct {
	DB         *gorm.DB
	SessionTTL time.Duration
	Clock      func() time.Time
}

func NewAuthService(db *gorm.DB, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		DB:         db,
		SessionTTL: sessionTTL,
		Clock:      func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// NormalizeEmail trims and case-folds an address so uniqueness checks are
// case-insensitive.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}

func (in RegisterInput) validate() error {
	if _, err := mail.ParseAddress(in.Email); err != nil || strings.ContainsAny(in.Email, "<> ") {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if in.Username == "" || len(in.Username) > 255 {
		return fmt.Errorf("%w: username must be 1-255 characters", ErrInvalidInput)
	}
	if strings.Contains(in.Username, "@") {
		return fmt.Errorf("%w: username must not contain '@'", ErrInvalidInput)
	}
	if len(in.Password) < 8 || len(in.Password) > 72 {
		return fmt.Errorf("%w: password must be 8-72 bytes", ErrInvalidInput)
	}
	return nil
}

// Register creates a regular, unverified user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := in.validate(); err != nil {
		return nil, err
	}

	user := &models.User{
		Email:    in.Email,
		Username: in.Username,
		Role:     models.RoleRegular,
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = &name
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkAvailable(tx, in.Email, in.Username); err != nil {
			return err
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent registration
		return nil, s.duplicateError(ctx, in.Email, in.Username)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[Auth] registered user %d (%s)", user.ID, user.Username)
	return user, nil
}

// checkAvailable reports which of email or username is already registered.
func checkAvailable(db *gorm.DB, email, username string) error {
	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrEmailTaken
	}
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrUsernameTaken
	}
	return nil
}

// duplicateError names the field behind a unique violation on insert.
func (s *AuthService) duplicateError(ctx context.Context, email, username string) error {
	if err := checkAvailable(s.DB.WithContext(ctx), email, username); err != nil {
		return err
	}
	return ErrEmailTaken
}

// Login checks credentials and opens a new session. An identifier containing
// '@' is looked up as an email, anything else as a username. last_login moves
// in the same transaction.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	lookup := s.DB.WithContext(ctx).Where("username = ?", identifier)
	if strings.Contains(identifier, "@") {
		lookup = s.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(identifier))
	}
	var user models.User
	err := lookup.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.VerifyPassword(password) {
		log.Printf("[Auth] failed login for user %d", user.ID)
		return nil, ErrInvalidCredentials
	}

	now := s.Clock()
	session := &models.Session{UserID: user.ID}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("last_login", now).Error; err != nil {
			return err
		}
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	user.LastLogin = &now
	session.User = &user
	return session, nil
}

// Authenticate resolves a bearer token to its live session with the user
// joined in. Sessions past their TTL are flagged expired on the way out.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	var session models.Session
	err := s.DB.WithContext(ctx).Joins("User").Where("sessions.token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}

	if session.IsExpired {
		return nil, ErrSessionExpired
	}
	if s.SessionTTL > 0 && s.Clock().Sub(session.CreatedAt) > s.SessionTTL {
		if err := s.DB.WithContext(ctx).Model(&session).Update("is_expired", true).Error; err != nil {
			log.Printf("[Auth] failed to flag session %d expired: %v", session.ID, err)
		}
		return nil, ErrSessionExpired
	}
	return &session, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID uint) error {
	res := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("is_expired", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IssueVerificationCode stores a fresh six digit code on the session and
// returns it for delivery. Any earlier code is overwritten.
func (s *AuthService) IssueVerificationCode(ctx context.Context, sessionID uint) (string, error) {
	var session models.Session
	if err := s.DB.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	code, err := session.GenerateVerificationCode()
	if err != nil {
		return "", err
	}
	if err := s.DB.WithContext(ctx).Model(&session).Update("verification_code", code).Error; err != nil {
		return "", fmt.Errorf("store verification code: %w", err)
	}
	return code, nil
}

// ConfirmVerificationCode consumes the session's code and marks its user
// verified. A wrong code leaves the stored code in place.
func (s *AuthService) ConfirmVerificationCode(ctx context.Context, sessionID uint, code string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if session.VerificationCode == nil {
			return ErrNoVerificationCode
		}
		if subtle.ConstantTimeCompare([]byte(*session.VerificationCode), []byte(strings.TrimSpace(code))) != 1 {
			return ErrInvalidVerificationCode
		}

		if err := tx.Model(&session).Update("verification_code", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", session.UserID).Update("is_verified", true).Error; err != nil {
			return err
		}
		log.Printf("[Auth] user %d verified", session.UserID)
		return nil
	})
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if len(next) < 8 || len(next) > 72 {
		return fmt.Errorf("%w: password must be 8-72 bytes", ErrInvalidInput)
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !user.VerifyPassword(current) {
		return ErrInvalidCredentials
	}
	if err := user.SetPassword(next); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(&user).Update("password_hash", user.PasswordHash).Error
}
