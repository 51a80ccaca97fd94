package testutil

import (
	"testing"

	"play-llm-server/config"
	"play-llm-server/models"
	"play-llm-server/utils"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database with foreign keys enforced
// and the full schema migrated. It is closed when the test ends.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	models.BcryptCost = bcrypt.MinCost

	db, err := utils.OpenDB(config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = utils.CloseDB(db) })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// CreateUser inserts a regular user whose password is "password123".
func CreateUser(t *testing.T, db *gorm.DB, email, username string) *models.User {
	t.Helper()

	u := &models.User{Email: email, Username: username}
	require.NoError(t, u.SetPassword("password123"))
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateSession(t *testing.T, db *gorm.DB, userID uint) *models.Session {
	t.Helper()

	s := &models.Session{UserID: userID}
	require.NoError(t, db.Create(s).Error)
	return s
}

func CreateModel(t *testing.T, db *gorm.DB, userID uint, name string) *models.Model {
	t.Helper()

	m := &models.Model{UserID: userID, Name: name, StoragePath: "ollama://" + name}
	require.NoError(t, db.Create(m).Error)
	return m
}

// CreatePrisonersDilemma creates a game with "cooperate" and "defect" actions
// and the classic payoff matrix. It returns the game and the two actions.
func CreatePrisonersDilemma(t *testing.T, db *gorm.DB, ownerID uint) (*models.Game, *models.GameAction, *models.GameAction) {
	t.Helper()

	g := &models.Game{Name: "Prisoner's Dilemma", UserID: ownerID}
	require.NoError(t, db.Create(g).Error)

	coop := &models.GameAction{Name: "cooperate", GameID: g.ID}
	defect := &models.GameAction{Name: "defect", GameID: g.ID}
	require.NoError(t, db.Create(coop).Error)
	require.NoError(t, db.Create(defect).Error)

	payoffs := []models.GameActionScore{
		{GameID: g.ID, SelfActionID: coop.ID, OpponentActionID: coop.ID, Score: 3},
		{GameID: g.ID, SelfActionID: coop.ID, OpponentActionID: defect.ID, Score: 0},
		{GameID: g.ID, SelfActionID: defect.ID, OpponentActionID: coop.ID, Score: 5},
		{GameID: g.ID, SelfActionID: defect.ID, OpponentActionID: defect.ID, Score: 1},
	}
	require.NoError(t, db.Create(&payoffs).Error)

	return g, coop, defect
}

// Count returns the number of rows in model's table.
func Count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
