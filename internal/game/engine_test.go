package game_test

import (
	"context"
	"testing"

	"github.com/edwardwawrzynek/chess/internal/game"
	gamechess "github.com/edwardwawrzynek/chess/internal/game/chess"
	"github.com/edwardwawrzynek/chess/internal/session"
	"github.com/edwardwawrzynek/chess/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	received []string
}

func (f *fakeSender) Send(msg string) bool {
	f.received = append(f.received, msg)
	return true
}

func newTestEngine(t *testing.T) (*game.Engine, *session.Router) {
	t.Helper()
	registry := game.NewRegistry()
	gamechess.Register(registry)
	router := session.New()
	eng := game.NewEngine(context.Background(), store.NewFake(), router, registry)
	return eng, router
}

func TestNewGameRejectsUnknownType(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.NewGame(context.Background(), 1, "checkers")
	require.Error(t, err)
}

func TestJoinLeaveBeforeStart(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	gid, err := eng.NewGame(ctx, 1, "chess")
	require.NoError(t, err)

	require.NoError(t, eng.JoinGame(ctx, gid, 1))
	require.Error(t, eng.JoinGame(ctx, gid, 1), "joining twice must fail")

	require.NoError(t, eng.JoinGame(ctx, gid, 2))
	require.NoError(t, eng.LeaveGame(ctx, gid, 2))
	require.Error(t, eng.LeaveGame(ctx, gid, 2), "leaving twice must fail")
}

func TestStartGameRequiresOwner(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	gid, err := eng.NewGame(ctx, 1, "chess")
	require.NoError(t, err)
	require.NoError(t, eng.JoinGame(ctx, gid, 1))
	require.NoError(t, eng.JoinGame(ctx, gid, 2))

	err = eng.StartGame(ctx, gid, 2)
	require.Error(t, err)

	require.NoError(t, eng.StartGame(ctx, gid, 1))
	require.Error(t, eng.StartGame(ctx, gid, 1), "starting twice must fail")
}

func TestStartGameRejectsWrongPlayerCount(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	gid, err := eng.NewGame(ctx, 1, "chess")
	require.NoError(t, err)
	require.NoError(t, eng.JoinGame(ctx, gid, 1))

	err = eng.StartGame(ctx, gid, 1)
	require.Error(t, err)
}

func TestMakeMoveRejectsOutOfTurn(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	gid, err := eng.NewGame(ctx, 1, "chess")
	require.NoError(t, err)
	require.NoError(t, eng.JoinGame(ctx, gid, 1))
	require.NoError(t, eng.JoinGame(ctx, gid, 2))
	require.NoError(t, eng.StartGame(ctx, gid, 1))

	err = eng.MakeMove(ctx, gid, 2, "e7e5")
	require.Error(t, err)
}

func TestFoolsMatePlaysThroughEngineAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	eng, router := newTestEngine(t)

	white, black := &fakeSender{}, &fakeSender{}
	router.InsertClient("white", white)
	router.InsertClient("black", black)
	router.AddAsUser(1, "white")
	router.AddAsUser(2, "black")
	router.AddToTopic(session.GameTopic(1), "white")

	gid, err := eng.NewGame(ctx, 1, "chess")
	require.NoError(t, err)
	require.Equal(t, int64(1), gid)
	require.NoError(t, eng.JoinGame(ctx, gid, 1))
	require.NoError(t, eng.JoinGame(ctx, gid, 2))
	require.NoError(t, eng.StartGame(ctx, gid, 1))

	require.NotEmpty(t, white.received, "owner subscribed to the game topic should see the start broadcast")
	require.Empty(t, black.received, "black hasn't been prompted yet; white moves first")

	moves := []struct {
		userID int64
		move   string
	}{
		{1, "e2e4"},
		{2, "f7f6"},
		{1, "a2a3"},
		{2, "g7g5"},
		{1, "d1h5"},
	}
	for i, mv := range moves {
		require.NoError(t, eng.MakeMove(ctx, gid, mv.userID, mv.move))
		if i == 0 {
			require.NotEmpty(t, black.received, "black's private topic should carry the turn prompt once it becomes black's move")
		}
	}

	view, err := eng.View(ctx, gid)
	require.NoError(t, err)
	require.True(t, view.Finished)
	require.NotNil(t, view.Winner)
	require.Equal(t, int64(1), *view.Winner)
	require.Contains(t, *view.State, "rnbqkbnr/ppppp2p/5p2/6pQ/4P3/P7/1PPP1PPP/RNB1KBNR b KQkq - 0 3")
}
