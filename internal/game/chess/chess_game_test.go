package chess

import (
	"testing"

	"github.com/edwardwawrzynek/chess/internal/game"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsWrongPlayerCount(t *testing.T) {
	gt := gameType{}
	_, err := gt.New([]int64{1})
	require.Error(t, err)
}

func TestTurnAlternatesByJoinOrder(t *testing.T) {
	gt := gameType{}
	inst, err := gt.New([]int64{10, 20})
	require.NoError(t, err)

	turn := inst.Turn()
	require.Equal(t, int64(10), turn.UserID)

	require.NoError(t, inst.MakeMove(10, "e2e4"))
	turn = inst.Turn()
	require.Equal(t, int64(20), turn.UserID)
}

func TestMakeMoveRejectsOutOfTurnPlayer(t *testing.T) {
	gt := gameType{}
	inst, err := gt.New([]int64{10, 20})
	require.NoError(t, err)

	err = inst.MakeMove(20, "e7e5")
	require.Error(t, err)
}

func TestFoolsMateEndsInWinForWhite(t *testing.T) {
	gt := gameType{}
	inst, err := gt.New([]int64{10, 20})
	require.NoError(t, err)

	moves := []struct {
		userID int64
		move   string
	}{
		{10, "e2e4"},
		{20, "f7f6"},
		{10, "a2a3"},
		{20, "g7g5"},
		{10, "d1h5"},
	}
	for _, mv := range moves {
		require.NoError(t, inst.MakeMove(mv.userID, mv.move))
	}

	require.Equal(t, game.TurnFinished, inst.Turn().Status)
	end := inst.EndState()
	require.Equal(t, game.EndWin, end.Kind)
	require.Equal(t, int64(10), end.Winner)

	scores := inst.Scores()
	require.Equal(t, 1.0, scores[10])
	require.Equal(t, 0.0, scores[20])
}

func TestDeserializeRoundTrip(t *testing.T) {
	gt := gameType{}
	inst, err := gt.New([]int64{1, 2})
	require.NoError(t, err)
	require.NoError(t, inst.MakeMove(1, "e2e4"))

	blob := inst.Serialize()
	inst2, err := gt.Deserialize(blob, []int64{1, 2})
	require.NoError(t, err)
	require.Equal(t, blob, inst2.Serialize())
	require.Equal(t, inst.Turn(), inst2.Turn())
}
