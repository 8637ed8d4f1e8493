// Package store is the persistence layer: typed records for users, games,
// and game-players, and the repository operations the engine and router
// need. A Postgres implementation is the only concrete store; the Store
// interface exists so the engine and dispatcher can be tested against an
// in-memory fake.
package store

// User is a durable account record. Email and PasswordHash are optional;
// ApiKeyHash is always present (it is the credential every account has).
type User struct {
	ID           int64
	Email        *string
	Name         string
	IsAdmin      bool
	PasswordHash *string
	ApiKeyHash   string
}

// Game is a durable game record. State is the opaque serialized
// GameInstance blob; the engine is the only component that interprets it.
type Game struct {
	ID                 int64
	OwnerID            int64
	GameType           string
	State              *string
	Finished           bool
	Winner             *int64
	IsTie              *bool
	PerMoveMs          int64
	SuddenDeathMs      int64
	CurrentMoveStartMs *int64
	TurnID             *int64
}

// GamePlayer is a durable join-row between a game and a user.
type GamePlayer struct {
	ID             int64
	GameID         int64
	UserID         int64
	Score          *float64
	WaitingForMove bool
	TimeMs         int64
}
