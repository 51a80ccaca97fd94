package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"play-llm-server/models"

	"gorm.io/gorm"
)

type GameService struct {
	DB *gorm.DB
}

func NewGameService(db *gorm.DB) *GameService {
	return &GameService{DB: db}
}

type ActionInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type CreateGameInput struct {
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Actions     []ActionInput `json:"actions"`
}

// PayoffEntry is one cell of a payoff matrix.
type PayoffEntry struct {
	SelfActionID     uint    `json:"self_action_id"`
	OpponentActionID uint    `json:"opponent_action_id"`
	Score            float64 `json:"score"`
}

// GameDetail is a game with its move space and payoff matrix.
type GameDetail struct {
	models.Game
	Actions []models.GameAction      `json:"actions"`
	Scores  []models.GameActionScore `json:"scores"`
}

// CreateGame creates the game and its initial actions in one transaction.
func (s *GameService) CreateGame(ctx context.Context, actor Actor, in CreateGameInput) (*GameDetail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: game name is required", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(in.Actions))
	for _, a := range in.Actions {
		an := strings.TrimSpace(a.Name)
		if an == "" {
			return nil, fmt.Errorf("%w: action name is required", ErrInvalidInput)
		}
		if seen[an] {
			return nil, fmt.Errorf("%w: duplicate action %q", ErrInvalidInput, an)
		}
		seen[an] = true
	}

	detail := &GameDetail{
		Game: models.Game{Name: name, Description: in.Description, UserID: actor.UserID},
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&detail.Game).Error; err != nil {
			return err
		}
		for _, a := range in.Actions {
			action := models.GameAction{
				Name:        strings.TrimSpace(a.Name),
				Description: a.Description,
				GameID:      detail.Game.ID,
			}
			if err := tx.Create(&action).Error; err != nil {
				return fmt.Errorf("failed to save action %q: %w", action.Name, err)
			}
			detail.Actions = append(detail.Actions, action)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if detail.Actions == nil {
		detail.Actions = []models.GameAction{}
	}
	detail.Scores = []models.GameActionScore{}
	log.Printf("[Games] user %d created game %d (%s)", actor.UserID, detail.Game.ID, name)
	return detail, nil
}

// ListGames returns games newest first with their owners joined in a single
// query.
func (s *GameService) ListGames(ctx context.Context, opts ListOptions) ([]models.Game, error) {
	opts = opts.normalized()

	var games []models.Game
	err := s.DB.WithContext(ctx).Joins("User").
		Order("games.id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

// GetGame loads a game, its actions and its payoff matrix: three queries
// regardless of matrix size.
func (s *GameService) GetGame(ctx context.Context, gameID uint) (*GameDetail, error) {
	db := s.DB.WithContext(ctx)

	var detail GameDetail
	if err := db.Joins("User").First(&detail.Game, "games.id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := db.Where("game_id = ?", gameID).Order("id").Find(&detail.Actions).Error; err != nil {
		return nil, err
	}
	if err := db.Where("game_id = ?", gameID).Order("id").Find(&detail.Scores).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *GameService) AddAction(ctx context.Context, actor Actor, gameID uint, in ActionInput) (*models.GameAction, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: action name is required", ErrInvalidInput)
	}

	action := &models.GameAction{Name: name, Description: in.Description, GameID: gameID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadManagedGame(tx, actor, gameID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.GameAction{}).Where("game_id = ? AND name = ?", gameID, name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: duplicate action %q", ErrInvalidInput, name)
		}
		return tx.Create(action).Error
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

// SetScore writes one payoff matrix entry. Both actions must belong to the
// game. An existing entry for the pair is updated in place.
func (s *GameService) SetScore(ctx context.Context, actor Actor, gameID uint, entry PayoffEntry) (*models.GameActionScore, error) {
	var out *models.GameActionScore
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadManagedGame(tx, actor, gameID); err != nil {
			return err
		}
		var err error
		out, err = setScoreTx(tx, gameID, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetPayoffMatrix writes several entries atomically.
func (s *GameService) SetPayoffMatrix(ctx context.Context, actor Actor, gameID uint, entries []PayoffEntry) ([]models.GameActionScore, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no payoff entries", ErrInvalidInput)
	}

	out := make([]models.GameActionScore, 0, len(entries))
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadManagedGame(tx, actor, gameID); err != nil {
			return err
		}
		for _, e := range entries {
			row, err := setScoreTx(tx, gameID, e)
			if err != nil {
				return err
			}
			out = append(out, *row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func setScoreTx(tx *gorm.DB, gameID uint, e PayoffEntry) (*models.GameActionScore, error) {
	want := int64(2)
	if e.SelfActionID == e.OpponentActionID {
		want = 1
	}
	var n int64
	err := tx.Model(&models.GameAction{}).
		Where("game_id = ? AND id IN ?", gameID, []uint{e.SelfActionID, e.OpponentActionID}).
		Count(&n).Error
	if err != nil {
		return nil, err
	}
	if n != want {
		return nil, ErrActionNotInGame
	}

	var row models.GameActionScore
	err = tx.Where("game_id = ? AND self_action_id = ? AND opponent_action_id = ?",
		gameID, e.SelfActionID, e.OpponentActionID).
		Order("id DESC").
		First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.GameActionScore{
			GameID:           gameID,
			SelfActionID:     e.SelfActionID,
			OpponentActionID: e.OpponentActionID,
			Score:            e.Score,
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := tx.Model(&row).Update("score", e.Score).Error; err != nil {
			return nil, err
		}
		row.Score = e.Score
	}
	return &row, nil
}

// Payoff returns the score for playing selfActionID against
// opponentActionID. When several rows exist for the pair the newest wins.
func (s *GameService) Payoff(ctx context.Context, gameID, selfActionID, opponentActionID uint) (float64, error) {
	var row models.GameActionScore
	err := s.DB.WithContext(ctx).
		Where("game_id = ? AND self_action_id = ? AND opponent_action_id = ?", gameID, selfActionID, opponentActionID).
		Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrPayoffNotFound
	}
	if err != nil {
		return 0, err
	}
	return row.Score, nil
}

// PayoffByName is Payoff keyed on action names instead of ids.
func (s *GameService) PayoffByName(ctx context.Context, gameID uint, selfAction, opponentAction string) (float64, error) {
	var scores []float64
	err := s.DB.WithContext(ctx).
		Table("game_action_scores AS s").
		Joins("JOIN game_actions sa ON sa.id = s.self_action_id").
		Joins("JOIN game_actions oa ON oa.id = s.opponent_action_id").
		Where("s.game_id = ? AND sa.name = ? AND oa.name = ?", gameID, selfAction, opponentAction).
		Order("s.id DESC").
		Limit(1).
		Pluck("s.score", &scores).Error
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return 0, ErrPayoffNotFound
	}
	return scores[0], nil
}

func (s *GameService) DeleteGame(ctx context.Context, actor Actor, gameID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadManagedGame(tx, actor, gameID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Game{}, gameID).Error; err != nil {
			return err
		}
		log.Printf("[Games] user %d deleted game %d", actor.UserID, gameID)
		return nil
	})
}

func (s *GameService) loadManagedGame(tx *gorm.DB, actor Actor, gameID uint) (*models.Game, error) {
	var game models.Game
	if err := tx.First(&game, gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !actor.CanManage(game.UserID) {
		return nil, ErrForbidden
	}
	return &game, nil
}
