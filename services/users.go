// services/users.go
package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"play-llm-server/models"

	"gorm.io/gorm"
)

// ListUsers searches users by username or email, newest first.
func (s *AuthService) ListUsers(ctx context.Context, query string, opts ListOptions) ([]models.User, error) {
	opts = opts.normalized()

	db := s.DB.WithContext(ctx).Model(&models.User{}).
		Order("id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset)

	if query = strings.TrimSpace(query); query != "" {
		searchTerm := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) SetRole(ctx context.Context, userID uint, role models.Role) error {
	if !role.Valid() {
		return models.ErrInvalidRole
	}
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Printf("[Auth] user %d role set to %s", userID, role)
	return nil
}

// DeleteUser removes the user; the database cascades to everything it owns.
func (s *AuthService) DeleteUser(ctx context.Context, userID uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.User{}, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Printf("[Auth] deleted user %d", userID)
	return nil
}
