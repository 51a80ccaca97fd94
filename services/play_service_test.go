package services

import (
	"context"
	"sync"
	"testing"

	"play-llm-server/models"
	"play-llm-server/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type playFixture struct {
	db     *gorm.DB
	svc    *PlayService
	player Actor
	game   *models.Game
	coop   *models.GameAction
	defect *models.GameAction
	model  *models.Model
}

func newPlayFixture(t *testing.T) playFixture {
	t.Helper()

	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "ada@example.com", "ada")
	session := testutil.CreateSession(t, db, user.ID)
	game, coop, defect := testutil.CreatePrisonersDilemma(t, db, user.ID)

	return playFixture{
		db:     db,
		svc:    NewPlayService(db),
		player: Actor{UserID: user.ID, SessionID: session.ID, Role: models.RoleRegular},
		game:   game,
		coop:   coop,
		defect: defect,
		model:  testutil.CreateModel(t, db, user.ID, "llama3"),
	}
}

func TestStartUserGame(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	ug, err := f.svc.StartUserGame(ctx, f.player, StartUserGameInput{GameID: f.game.ID, ModelID: f.model.ID})
	require.NoError(t, err)
	assert.Equal(t, f.player.SessionID, ug.SessionID)
	assert.Zero(t, ug.Rounds)
	assert.Zero(t, ug.UserScore)
	assert.Zero(t, ug.ModelScore)

	_, err = f.svc.StartUserGame(ctx, f.player, StartUserGameInput{GameID: 9999, ModelID: f.model.ID})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.StartUserGame(ctx, f.player, StartUserGameInput{GameID: f.game.ID, ModelID: 9999})
	assert.ErrorIs(t, err, ErrNotFound)

	stranger := testutil.CreateUser(t, f.db, "bob@example.com", "bob")
	strangerSession := testutil.CreateSession(t, f.db, stranger.ID)
	_, err = f.svc.StartUserGame(ctx, Actor{UserID: stranger.ID, SessionID: strangerSession.ID},
		StartUserGameInput{GameID: f.game.ID, ModelID: f.model.ID})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRecordActionUpdatesRunningTotals(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	ug, err := f.svc.StartUserGame(ctx, f.player, StartUserGameInput{GameID: f.game.ID, ModelID: f.model.ID})
	require.NoError(t, err)

	reason := "the model always cooperates first"
	moves := []RecordActionInput{
		{Round: 1, Role: models.ActorUser, GameActionID: f.defect.ID, Score: 5, Reason: &reason},
		{Round: 1, Role: models.ActorModel, GameActionID: f.coop.ID, Score: 0},
		{Round: 2, Role: models.ActorUser, GameActionID: f.defect.ID, Score: 1},
		{Round: 2, Role: models.ActorModel, GameActionID: f.defect.ID, Score: 1},
	}
	var last *UserGameDetail
	for _, m := range moves {
		last, err = f.svc.RecordAction(ctx, f.player, ug.ID, m)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, last.Rounds)
	assert.Equal(t, 6.0, last.UserScore)
	assert.Equal(t, 1.0, last.ModelScore)

	// a late move for an earlier round never lowers the round count
	_, err = f.svc.RecordAction(ctx, f.player, ug.ID, RecordActionInput{Round: 1, Role: models.ActorUser, GameActionID: f.coop.ID})
	require.NoError(t, err)

	detail, err := f.svc.GetUserGame(ctx, f.player, ug.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Rounds)
	require.Len(t, detail.Actions, 5)
	for i := 1; i < len(detail.Actions); i++ {
		assert.LessOrEqual(t, detail.Actions[i-1].Round, detail.Actions[i].Round)
	}
	require.NotNil(t, detail.Actions[0].Reason)
	assert.Equal(t, reason, *detail.Actions[0].Reason)
}

func TestRecordActionRejectsBadMoves(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	ug, err := f.svc.StartUserGame(ctx, f.player, StartUserGameInput{GameID: f.game.ID, ModelID: f.model.ID})
	require.NoError(t, err)

	_, err = f.svc.RecordAction(ctx, f.player, ug.ID, RecordActionInput{Round: 1, Role: "referee", GameActionID: f.coop.ID})
	assert.ErrorIs(t, err, models.ErrInvalidActorRole)

	_, err = f.svc.RecordAction(ctx, f.player, ug.ID, RecordActionInput{Round: 0, Role: models.ActorUser, GameActionID: f.coop.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, otherCoop, _ := testutil.CreatePrisonersDilemma(t, f.db, f.player.UserID)
	_, err = f.svc.RecordAction(ctx, f.player, ug.ID, RecordActionInput{Round: 1, Role: models.ActorUser, GameActionID: otherCoop.ID})
	assert.ErrorIs(t, err, ErrActionNotInGame)

	_, err = f.svc.RecordAction(ctx, f.player, 9999, RecordActionInput{Round: 1, Role: models.ActorUser, GameActionID: f.coop.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	stranger := testutil.CreateUser(t, f.db, "bob@example.com", "bob")
	_, err = f.svc.RecordAction(ctx, Actor{UserID: stranger.ID}, ug.ID, RecordActionInput{Round: 1, Role: models.ActorUser, GameActionID: f.coop.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, int64(0), testutil.Count(t, f.db, &models.UserGameAction{}))
	var stored models.UserGame
	require.NoError(t, f.db.First(&stored, ug.ID).Error)
	assert.Zero(t, stored.Rounds)
	assert.Zero(t, stored.UserScore)
}

func TestRecordActionConcurrentTotalsStayConsistent(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	ug, err := f.svc.StartUserGame(ctx, f.player, StartUserGameInput{GameID: f.game.ID, ModelID: f.model.ID})
	require.NoError(t, err)

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for r := 1; r <= rounds; r++ {
		for _, role := range []models.ActorRole{models.ActorUser, models.ActorModel} {
			wg.Add(1)
			go func(round int, role models.ActorRole) {
				defer wg.Done()
				_, err := f.svc.RecordAction(ctx, f.player, ug.ID, RecordActionInput{
					Round: round, Role: role, GameActionID: f.coop.ID, Score: 3,
				})
				errs <- err
			}(r, role)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var stored models.UserGame
	require.NoError(t, f.db.First(&stored, ug.ID).Error)
	assert.Equal(t, rounds, stored.Rounds)
	assert.Equal(t, float64(3*rounds), stored.UserScore)
	assert.Equal(t, float64(3*rounds), stored.ModelScore)
	assert.Equal(t, int64(rounds*2), testutil.Count(t, f.db, &models.UserGameAction{}))
}

func TestListUserGamesAcrossSessions(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartUserGame(ctx, f.player, StartUserGameInput{GameID: f.game.ID, ModelID: f.model.ID})
	require.NoError(t, err)

	second := testutil.CreateSession(t, f.db, f.player.UserID)
	again := f.player
	again.SessionID = second.ID
	_, err = f.svc.StartUserGame(ctx, again, StartUserGameInput{GameID: f.game.ID, ModelID: f.model.ID})
	require.NoError(t, err)

	stranger := testutil.CreateUser(t, f.db, "bob@example.com", "bob")
	list, err := f.svc.ListUserGames(ctx, Actor{UserID: stranger.ID}, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.ListUserGames(ctx, f.player, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, ug := range list {
		require.NotNil(t, ug.Game)
		require.NotNil(t, ug.Model)
		assert.Equal(t, "llama3", ug.Model.Name)
	}
}
