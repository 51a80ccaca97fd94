package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"
)

const (
	sessionTokenBytes      = 48
	verificationCodeDigits = 6
)

var verificationCodeSpace = big.NewInt(1_000_000)

// Session is a bearer credential issued at login. The verification code is a
// separate secondary confirmation and is nil until one is generated.
type Session struct {
	ID               uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Token            string  `json:"token" gorm:"size:128;not null;uniqueIndex"`
	VerificationCode *string `json:"-" gorm:"size:6"`
	UserID           uint    `json:"user_id" gorm:"not null;index"`
	User             *User   `json:"user,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	IsExpired        bool    `json:"is_expired" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;autoUpdateTime"`
}

// NewSessionToken returns a URL-safe token built from 48 random bytes.
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.Token != "" {
		return nil
	}
	token, err := NewSessionToken()
	if err != nil {
		return err
	}
	s.Token = token
	return nil
}

// GenerateVerificationCode draws a uniformly random six digit code, keeps it
// on the session and returns it. The caller persists the session.
func (s *Session) GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, verificationCodeSpace)
	if err != nil {
		return "", fmt.Errorf("draw verification code: %w", err)
	}
	code := fmt.Sprintf("%0*d", verificationCodeDigits, n.Int64())
	s.VerificationCode = &code
	return code, nil
}
