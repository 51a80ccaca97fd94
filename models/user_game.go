package models

import (
	"fmt"

	"gorm.io/gorm"
)

// UserGame is a played match between the session's user and a model.
// Rounds and the two running scores are only changed together with the
// insert of a UserGameAction, inside one transaction.
type UserGame struct {
	ID         uint     `json:"id" gorm:"primaryKey;autoIncrement"`
	GameID     uint     `json:"game_id" gorm:"not null;index"`
	Game       *Game    `json:"game,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	SessionID  uint     `json:"session_id" gorm:"not null;index"`
	Session    *Session `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ModelID    uint     `json:"model_id" gorm:"not null;index"`
	Model      *Model   `json:"model,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Rounds     int      `json:"rounds" gorm:"not null;default:0"`
	UserScore  float64  `json:"user_score" gorm:"not null;default:0"`
	ModelScore float64  `json:"model_score" gorm:"not null;default:0"`

	Timestamps
}

// UserGameAction is one recorded move inside a UserGame.
type UserGameAction struct {
	ID           uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	UserGameID   uint        `json:"user_game_id" gorm:"not null;index"`
	UserGame     *UserGame   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	GameActionID uint        `json:"game_action_id" gorm:"not null;index"`
	GameAction   *GameAction `json:"game_action,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Round        int         `json:"round" gorm:"not null"`
	Role         ActorRole   `json:"role" gorm:"type:varchar(8);not null;check:user_game_action_roles,role IN ('user','model')"`
	Score        float64     `json:"score" gorm:"not null;default:0"`
	Reason       *string     `json:"reason,omitempty" gorm:"type:text"`

	Timestamps
}

func (a *UserGameAction) BeforeSave(tx *gorm.DB) error {
	if !a.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidActorRole, a.Role)
	}
	return nil
}
