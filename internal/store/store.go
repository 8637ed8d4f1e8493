package store

import "context"

// Store is the persistence contract the engine, router, and dispatcher
// depend on. Postgres is the only production implementation
// (internal/store/postgres.go); tests use an in-memory fake implementing
// the same interface.
type Store interface {
	// Users
	FindUser(ctx context.Context, id int64) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByApiKeyHash(ctx context.Context, hash string) (*User, error)
	InsertUser(ctx context.Context, u *User) (int64, error)
	UpdateUser(ctx context.Context, u *User) error

	// Games
	InsertGame(ctx context.Context, g *Game) (int64, error)
	FindGame(ctx context.Context, id int64) (*Game, error)
	UpdateGame(ctx context.Context, g *Game) error
	FindGamePlayers(ctx context.Context, gameID int64) ([]*GamePlayer, error)
	FindGamePlayer(ctx context.Context, gameID, userID int64) (*GamePlayer, error)
	FindWaitingGamesForUser(ctx context.Context, userID int64) ([]*Game, error)
	FindOldestWaitingGameForUser(ctx context.Context, userID int64) (*Game, error)

	// GamePlayers
	InsertGamePlayer(ctx context.Context, gp *GamePlayer) (int64, error)
	UpdateGamePlayer(ctx context.Context, gp *GamePlayer) error
	DeleteGamePlayer(ctx context.Context, id int64) error

	// WithGameLock locks the game row for the duration of fn (row-level lock
	// on Postgres), so a move application and a concurrent join/leave on the
	// same game serialize. All reads/writes to the game and its players
	// inside fn must go through the supplied GameTx, not through Store,
	// or they escape the lock.
	WithGameLock(ctx context.Context, gameID int64, fn func(ctx context.Context, tx GameTx) error) error
}

// GameTx scopes game/game-player operations to the transaction opened by
// WithGameLock.
type GameTx interface {
	Game() *Game
	UpdateGame(ctx context.Context, g *Game) error
	FindGamePlayers(ctx context.Context, gameID int64) ([]*GamePlayer, error)
	FindGamePlayer(ctx context.Context, gameID, userID int64) (*GamePlayer, error)
	InsertGamePlayer(ctx context.Context, gp *GamePlayer) (int64, error)
	UpdateGamePlayer(ctx context.Context, gp *GamePlayer) error
	DeleteGamePlayer(ctx context.Context, id int64) error
}
