// Package game implements the game lifecycle and time-control engine:
// creation, join/leave, start, move application, turn transitions,
// end-state detection, and the chess-clock-style per-turn timer with
// turn_id fencing (spec.md §4.4).
package game

// TurnStatus distinguishes an in-progress turn from a finished game.
type TurnStatus int

const (
	TurnInProgress TurnStatus = iota
	TurnFinished
)

// Turn reports who is to move, or that the game has ended.
type Turn struct {
	Status TurnStatus
	UserID int64 // valid only when Status == TurnInProgress
}

// EndKind distinguishes the three ways a game can conclude.
type EndKind int

const (
	EndInProgress EndKind = iota
	EndWin
	EndTie
)

// EndState reports whether, and how, a game has ended.
type EndState struct {
	Kind   EndKind
	Winner int64 // valid only when Kind == EndWin
}

// GameInstance is the opaque runtime object embodying one game's rules and
// position (spec.md §4.4.4). The engine treats it, and the state blob it
// serializes to, as opaque -- it only calls through this interface.
type GameInstance interface {
	Serialize() string
	Turn() Turn
	EndState() EndState
	MakeMove(userID int64, moveStr string) error
	// Scores returns a per-user score map, or nil if the game type has no
	// notion of scores for in-progress games.
	Scores() map[int64]float64
}

// GameType is a registered game kind (tag -> capability object), the
// polymorphism-over-game-types design spec.md §9 calls for in place of
// inheritance.
type GameType interface {
	Name() string
	New(playerIDs []int64) (GameInstance, error)
	Deserialize(stateBlob string, playerIDs []int64) (GameInstance, error)
}
