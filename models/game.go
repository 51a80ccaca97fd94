// models/game.go
package models

// Game is a user-defined game. Its move space lives in game_actions and its
// payoff matrix in game_action_scores; both are loaded with explicit queries.
type Game struct {
	ID          uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string  `json:"name" gorm:"size:255;not null"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	UserID      uint    `json:"user_id" gorm:"not null;index"`
	User        *User   `json:"user,omitempty" gorm:"constraint:OnDelete:CASCADE"`

	Timestamps
}

// GameAction is one discrete move a player can choose in a game.
type GameAction struct {
	ID          uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string  `json:"name" gorm:"size:255;not null"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	GameID      uint    `json:"game_id" gorm:"not null;index"`
	Game        *Game   `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	Timestamps
}

// GameActionScore is one payoff matrix entry: what the acting side scores when
// it plays SelfAction against OpponentAction. There is no uniqueness on the
// pair; readers take the newest row.
type GameActionScore struct {
	ID               uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	GameID           uint        `json:"game_id" gorm:"not null;index"`
	Game             *Game       `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	SelfActionID     uint        `json:"self_action_id" gorm:"not null;index"`
	SelfAction       *GameAction `json:"-" gorm:"foreignKey:SelfActionID;constraint:OnDelete:CASCADE"`
	OpponentActionID uint        `json:"opponent_action_id" gorm:"not null;index"`
	OpponentAction   *GameAction `json:"-" gorm:"foreignKey:OpponentActionID;constraint:OnDelete:CASCADE"`
	Score            float64     `json:"score" gorm:"not null"`

	Timestamps
}
