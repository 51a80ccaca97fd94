package models

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BcryptCost is the work factor used for new password hashes.
var BcryptCost = bcrypt.DefaultCost

// Timestamps adds the creation time every table carries.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}

// User is an account. The plaintext password is never stored or readable:
// SetPassword writes the hash and VerifyPassword checks a candidate against it.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         *string    `json:"name,omitempty" gorm:"size:500"`
	Email        string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Username     string     `json:"username" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Role         Role       `json:"role" gorm:"type:varchar(16);not null;default:'regular';check:user_roles,role IN ('regular','admin')"`
	IsVerified   bool       `json:"is_verified" gorm:"not null;default:false"`
	LastLogin    *time.Time `json:"last_login,omitempty"`

	Timestamps
}

func (u *User) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// VerifyPassword reports whether plaintext matches the stored hash.
func (u *User) VerifyPassword(plaintext string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleRegular
	}
	return nil
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role != "" && !u.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, u.Role)
	}
	return nil
}
