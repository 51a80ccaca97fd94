package models

import (
	"fmt"

	"gorm.io/gorm"
)

// All lists every table in dependency order, parents first.
func All() []any {
	return []any{
		&User{},
		&Session{},
		&Model{},
		&Game{},
		&GameAction{},
		&GameActionScore{},
		&UserGame{},
		&UserGameAction{},
	}
}

// AutoMigrate creates or updates the schema, including the cascading foreign
// keys and the user_roles / user_game_action_roles checks.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
