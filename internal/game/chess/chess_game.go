// Package chess adapts internal/chess's board and move engine into the
// game.GameInstance/game.GameType contract, the only concrete game type
// this server registers (spec.md §8's acceptance scenarios).
package chess

import (
	"fmt"

	chessrules "github.com/edwardwawrzynek/chess/internal/chess"
	"github.com/edwardwawrzynek/chess/internal/game"
)

// TypeName is the wire game-type tag clients pass to new_game.
const TypeName = "chess"

// gameType implements game.GameType for chess.
type gameType struct{}

// Register installs the chess game type into registry.
func Register(registry *game.Registry) {
	registry.Register(gameType{})
}

func (gameType) Name() string { return TypeName }

func (gameType) New(playerIDs []int64) (game.GameInstance, error) {
	if len(playerIDs) != 2 {
		return nil, fmt.Errorf("chess requires exactly 2 players, found %d", len(playerIDs))
	}
	return &instance{
		pos:       chessrules.NewPosition(),
		playerIDs: [2]int64{playerIDs[0], playerIDs[1]},
	}, nil
}

func (gameType) Deserialize(stateBlob string, playerIDs []int64) (game.GameInstance, error) {
	if len(playerIDs) != 2 {
		return nil, fmt.Errorf("chess requires exactly 2 players, found %d", len(playerIDs))
	}
	pos, err := chessrules.Deserialize(stateBlob)
	if err != nil {
		return nil, fmt.Errorf("deserializing chess game: %w", err)
	}
	return &instance{
		pos:       pos,
		playerIDs: [2]int64{playerIDs[0], playerIDs[1]},
	}, nil
}

// instance is one running chess game: White is playerIDs[0], Black is
// playerIDs[1] -- the join order at start_game time.
type instance struct {
	pos       *chessrules.Position
	playerIDs [2]int64
}

func (g *instance) colorIndex(c chessrules.Color) int {
	if c == chessrules.White {
		return 0
	}
	return 1
}

func (g *instance) Serialize() string {
	return g.pos.Serialize()
}

func (g *instance) Turn() game.Turn {
	if g.pos.IsCheckmate() || g.pos.IsStalemate() {
		return game.Turn{Status: game.TurnFinished}
	}
	return game.Turn{
		Status: game.TurnInProgress,
		UserID: g.playerIDs[g.colorIndex(g.pos.SideToMove)],
	}
}

func (g *instance) EndState() game.EndState {
	switch {
	case g.pos.IsCheckmate():
		winnerColor := g.pos.SideToMove.Other()
		return game.EndState{Kind: game.EndWin, Winner: g.playerIDs[g.colorIndex(winnerColor)]}
	case g.pos.IsStalemate():
		return game.EndState{Kind: game.EndTie}
	default:
		return game.EndState{Kind: game.EndInProgress}
	}
}

func (g *instance) Scores() map[int64]float64 {
	switch {
	case g.pos.IsCheckmate():
		winnerColor := g.pos.SideToMove.Other()
		winner := g.playerIDs[g.colorIndex(winnerColor)]
		loser := g.playerIDs[g.colorIndex(g.pos.SideToMove)]
		return map[int64]float64{winner: 1, loser: 0}
	case g.pos.IsStalemate():
		return map[int64]float64{g.playerIDs[0]: 0.5, g.playerIDs[1]: 0.5}
	default:
		return nil
	}
}

func (g *instance) MakeMove(userID int64, moveStr string) error {
	turn := g.Turn()
	if turn.Status != game.TurnInProgress || turn.UserID != userID {
		return fmt.Errorf("it is not %d's turn", userID)
	}
	m, err := chessrules.ParseMove(moveStr)
	if err != nil {
		return err
	}
	next, err := g.pos.ApplyMove(m)
	if err != nil {
		return err
	}
	g.pos = next
	return nil
}
