package services

import (
	"context"
	"errors"
	"fmt"

	"play-llm-server/models"

	"gorm.io/gorm"
)

// PlayService stores matches between a user session and a model. It does not
// pick moves or compute payoffs; callers pass the score of each move in.
type PlayService struct {
	DB *gorm.DB
}

func NewPlayService(db *gorm.DB) *PlayService {
	return &PlayService{DB: db}
}

type StartUserGameInput struct {
	GameID  uint `json:"game_id"`
	ModelID uint `json:"model_id"`
}

type RecordActionInput struct {
	Round        int              `json:"round"`
	Role         models.ActorRole `json:"role"`
	GameActionID uint             `json:"game_action_id"`
	Score        float64          `json:"score"`
	Reason       *string          `json:"reason,omitempty"`
}

type UserGameDetail struct {
	models.UserGame
	Actions []models.UserGameAction `json:"actions"`
}

// StartUserGame opens a match on the actor's current session.
func (s *PlayService) StartUserGame(ctx context.Context, actor Actor, in StartUserGameInput) (*models.UserGame, error) {
	ug := &models.UserGame{GameID: in.GameID, SessionID: actor.SessionID, ModelID: in.ModelID}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Game{}).Where("id = ?", in.GameID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("game %d: %w", in.GameID, ErrNotFound)
		}

		var model models.Model
		if err := tx.First(&model, in.ModelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("model %d: %w", in.ModelID, ErrNotFound)
			}
			return err
		}
		if !actor.CanManage(model.UserID) {
			return ErrForbidden
		}
		return tx.Create(ug).Error
	})
	if err != nil {
		return nil, err
	}
	return ug, nil
}

// RecordAction inserts one move and adds its score to the acting side's
// running total in the same transaction. The counters are bumped with a
// single UPDATE so concurrent moves on one match never lose an increment.
func (s *PlayService) RecordAction(ctx context.Context, actor Actor, userGameID uint, in RecordActionInput) (*UserGameDetail, error) {
	if !in.Role.Valid() {
		return nil, models.ErrInvalidActorRole
	}
	if in.Round < 1 {
		return nil, fmt.Errorf("%w: round must be at least 1", ErrInvalidInput)
	}

	scoreColumn := "user_score"
	if in.Role == models.ActorModel {
		scoreColumn = "model_score"
	}

	var out UserGameDetail
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ug, err := s.loadOwnedUserGame(tx, actor, userGameID)
		if err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&models.GameAction{}).
			Where("id = ? AND game_id = ?", in.GameActionID, ug.GameID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrActionNotInGame
		}

		action := models.UserGameAction{
			UserGameID:   ug.ID,
			GameActionID: in.GameActionID,
			Round:        in.Round,
			Role:         in.Role,
			Score:        in.Score,
			Reason:       in.Reason,
		}
		if err := tx.Create(&action).Error; err != nil {
			return err
		}

		err = tx.Model(&models.UserGame{}).Where("id = ?", ug.ID).Updates(map[string]any{
			scoreColumn: gorm.Expr(scoreColumn+" + ?", in.Score),
			"rounds":    gorm.Expr("CASE WHEN rounds < ? THEN ? ELSE rounds END", in.Round, in.Round),
		}).Error
		if err != nil {
			return err
		}

		if err := tx.First(&out.UserGame, ug.ID).Error; err != nil {
			return err
		}
		out.Actions = []models.UserGameAction{action}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserGame returns a match with its moves in play order.
func (s *PlayService) GetUserGame(ctx context.Context, actor Actor, userGameID uint) (*UserGameDetail, error) {
	db := s.DB.WithContext(ctx)

	ug, err := s.loadOwnedUserGame(db, actor, userGameID)
	if err != nil {
		return nil, err
	}

	detail := UserGameDetail{UserGame: *ug}
	err = db.Where("user_game_id = ?", ug.ID).
		Order("round, id").
		Find(&detail.Actions).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListUserGames lists the actor's matches across all of their sessions with
// game and model joined in.
func (s *PlayService) ListUserGames(ctx context.Context, actor Actor, opts ListOptions) ([]models.UserGame, error) {
	opts = opts.normalized()

	var games []models.UserGame
	err := s.DB.WithContext(ctx).
		Joins("Game").
		Joins("Model").
		Joins("JOIN sessions ON sessions.id = user_games.session_id").
		Where("sessions.user_id = ?", actor.UserID).
		Order("user_games.id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (s *PlayService) loadOwnedUserGame(tx *gorm.DB, actor Actor, userGameID uint) (*models.UserGame, error) {
	var ug models.UserGame
	if err := tx.Joins("Session").First(&ug, "user_games.id = ?", userGameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ug.Session == nil || !actor.CanManage(ug.Session.UserID) {
		return nil, ErrForbidden
	}
	return &ug, nil
}
