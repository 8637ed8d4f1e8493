package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Store, backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and verifies connectivity before returning.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperrDBf("connecting to database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrDBf("pinging database", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() { p.pool.Close() }

// Pool exposes the underlying pgxpool.Pool, e.g. for migrations.
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

func apperrDBf(action string, err error) error {
	return fmt.Errorf("%s: %w", action, err)
}

func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (p *Postgres) FindUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, name, is_admin, password_hash, api_key_hash FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.PasswordHash, &u.ApiKeyHash)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user %d: %w", id, err)
	}
	return &u, nil
}

func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, name, is_admin, password_hash, api_key_hash FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.PasswordHash, &u.ApiKeyHash)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by email %q: %w", email, err)
	}
	return &u, nil
}

func (p *Postgres) FindUserByApiKeyHash(ctx context.Context, hash string) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, name, is_admin, password_hash, api_key_hash FROM users WHERE api_key_hash = $1`, hash,
	).Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.PasswordHash, &u.ApiKeyHash)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by api key: %w", err)
	}
	return &u, nil
}

func (p *Postgres) InsertUser(ctx context.Context, u *User) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, is_admin, password_hash, api_key_hash)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		u.Email, u.Name, u.IsAdmin, u.PasswordHash, u.ApiKeyHash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting user %q: %w", u.Name, err)
	}
	return id, nil
}

func (p *Postgres) UpdateUser(ctx context.Context, u *User) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE users SET email = $1, name = $2, is_admin = $3, password_hash = $4, api_key_hash = $5 WHERE id = $6`,
		u.Email, u.Name, u.IsAdmin, u.PasswordHash, u.ApiKeyHash, u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	return nil
}

func (p *Postgres) InsertGame(ctx context.Context, g *Game) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO games (owner_id, game_type, state, finished, winner, is_tie,
		                     dur_per_move_ms, dur_sudden_death_ms, current_move_start_ms, turn_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		g.OwnerID, g.GameType, g.State, g.Finished, g.Winner, g.IsTie,
		g.PerMoveMs, g.SuddenDeathMs, g.CurrentMoveStartMs, g.TurnID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting game (type %q): %w", g.GameType, err)
	}
	return id, nil
}

func (p *Postgres) FindGame(ctx context.Context, id int64) (*Game, error) {
	return p.findGame(ctx, p.pool, id)
}

func (p *Postgres) findGame(ctx context.Context, q querier, id int64) (*Game, error) {
	var g Game
	err := q.QueryRow(ctx,
		`SELECT id, owner_id, game_type, state, finished, winner, is_tie,
		        dur_per_move_ms, dur_sudden_death_ms, current_move_start_ms, turn_id
		 FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.OwnerID, &g.GameType, &g.State, &g.Finished, &g.Winner, &g.IsTie,
		&g.PerMoveMs, &g.SuddenDeathMs, &g.CurrentMoveStartMs, &g.TurnID)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying game %d: %w", id, err)
	}
	return &g, nil
}

func (p *Postgres) UpdateGame(ctx context.Context, g *Game) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE games SET owner_id=$1, game_type=$2, state=$3, finished=$4, winner=$5, is_tie=$6,
		        dur_per_move_ms=$7, dur_sudden_death_ms=$8, current_move_start_ms=$9, turn_id=$10
		 WHERE id=$11`,
		g.OwnerID, g.GameType, g.State, g.Finished, g.Winner, g.IsTie,
		g.PerMoveMs, g.SuddenDeathMs, g.CurrentMoveStartMs, g.TurnID, g.ID,
	)
	if err != nil {
		return fmt.Errorf("updating game %d: %w", g.ID, err)
	}
	return nil
}

func (p *Postgres) FindGamePlayers(ctx context.Context, gameID int64) ([]*GamePlayer, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, game_id, user_id, score, waiting_for_move, time_ms
		 FROM game_players WHERE game_id = $1 ORDER BY id ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying game players for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []*GamePlayer
	for rows.Next() {
		var gp GamePlayer
		if err := rows.Scan(&gp.ID, &gp.GameID, &gp.UserID, &gp.Score, &gp.WaitingForMove, &gp.TimeMs); err != nil {
			return nil, fmt.Errorf("scanning game player row: %w", err)
		}
		out = append(out, &gp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game players for game %d: %w", gameID, err)
	}
	return out, nil
}

func (p *Postgres) FindGamePlayer(ctx context.Context, gameID, userID int64) (*GamePlayer, error) {
	var gp GamePlayer
	err := p.pool.QueryRow(ctx,
		`SELECT id, game_id, user_id, score, waiting_for_move, time_ms
		 FROM game_players WHERE game_id = $1 AND user_id = $2`, gameID, userID,
	).Scan(&gp.ID, &gp.GameID, &gp.UserID, &gp.Score, &gp.WaitingForMove, &gp.TimeMs)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying game player (game %d, user %d): %w", gameID, userID, err)
	}
	return &gp, nil
}

func (p *Postgres) FindWaitingGamesForUser(ctx context.Context, userID int64) ([]*Game, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT g.id, g.owner_id, g.game_type, g.state, g.finished, g.winner, g.is_tie,
		        g.dur_per_move_ms, g.dur_sudden_death_ms, g.current_move_start_ms, g.turn_id
		 FROM games g JOIN game_players gp ON gp.game_id = g.id
		 WHERE gp.user_id = $1 AND gp.waiting_for_move = true AND g.finished = false
		 ORDER BY g.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying waiting games for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []*Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.GameType, &g.State, &g.Finished, &g.Winner, &g.IsTie,
			&g.PerMoveMs, &g.SuddenDeathMs, &g.CurrentMoveStartMs, &g.TurnID); err != nil {
			return nil, fmt.Errorf("scanning waiting game row: %w", err)
		}
		out = append(out, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating waiting games for user %d: %w", userID, err)
	}
	return out, nil
}

func (p *Postgres) FindOldestWaitingGameForUser(ctx context.Context, userID int64) (*Game, error) {
	games, err := p.FindWaitingGamesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}
	return games[0], nil
}

func (p *Postgres) InsertGamePlayer(ctx context.Context, gp *GamePlayer) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO game_players (game_id, user_id, score, waiting_for_move, time_ms)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		gp.GameID, gp.UserID, gp.Score, gp.WaitingForMove, gp.TimeMs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting game player (game %d, user %d): %w", gp.GameID, gp.UserID, err)
	}
	return id, nil
}

func (p *Postgres) UpdateGamePlayer(ctx context.Context, gp *GamePlayer) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE game_players SET score=$1, waiting_for_move=$2, time_ms=$3 WHERE id=$4`,
		gp.Score, gp.WaitingForMove, gp.TimeMs, gp.ID,
	)
	if err != nil {
		return fmt.Errorf("updating game player %d: %w", gp.ID, err)
	}
	return nil
}

func (p *Postgres) DeleteGamePlayer(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM game_players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting game player %d: %w", id, err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting findGame be
// reused inside WithGameLock's transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithGameLock begins a transaction, reads the game row with FOR UPDATE
// (serializing against any other move/join/leave on the same game), runs
// fn against a tx-scoped store.GameTx, and commits. fn's error aborts the
// transaction.
func (p *Postgres) WithGameLock(ctx context.Context, gameID int64, fn func(ctx context.Context, tx GameTx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction for game %d: %w", gameID, err)
	}
	defer tx.Rollback(ctx)

	var g Game
	err = tx.QueryRow(ctx,
		`SELECT id, owner_id, game_type, state, finished, winner, is_tie,
		        dur_per_move_ms, dur_sudden_death_ms, current_move_start_ms, turn_id
		 FROM games WHERE id = $1 FOR UPDATE`, gameID,
	).Scan(&g.ID, &g.OwnerID, &g.GameType, &g.State, &g.Finished, &g.Winner, &g.IsTie,
		&g.PerMoveMs, &g.SuddenDeathMs, &g.CurrentMoveStartMs, &g.TurnID)
	if err != nil {
		if noRows(err) {
			return fmt.Errorf("locking game %d: no such game", gameID)
		}
		return fmt.Errorf("locking game %d: %w", gameID, err)
	}

	gtx := &pgGameTx{tx: tx, game: &g}
	if err := fn(ctx, gtx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction for game %d: %w", gameID, err)
	}
	return nil
}

// pgGameTx implements store.GameTx against a single pgx.Tx, so every
// operation performed inside WithGameLock's callback participates in the
// same locked transaction.
type pgGameTx struct {
	tx   pgx.Tx
	game *Game
}

func (g *pgGameTx) Game() *Game { return g.game }

func (g *pgGameTx) UpdateGame(ctx context.Context, game *Game) error {
	_, err := g.tx.Exec(ctx,
		`UPDATE games SET owner_id=$1, game_type=$2, state=$3, finished=$4, winner=$5, is_tie=$6,
		        dur_per_move_ms=$7, dur_sudden_death_ms=$8, current_move_start_ms=$9, turn_id=$10
		 WHERE id=$11`,
		game.OwnerID, game.GameType, game.State, game.Finished, game.Winner, game.IsTie,
		game.PerMoveMs, game.SuddenDeathMs, game.CurrentMoveStartMs, game.TurnID, game.ID,
	)
	if err != nil {
		return fmt.Errorf("updating game %d: %w", game.ID, err)
	}
	g.game = game
	return nil
}

func (g *pgGameTx) FindGamePlayers(ctx context.Context, gameID int64) ([]*GamePlayer, error) {
	rows, err := g.tx.Query(ctx,
		`SELECT id, game_id, user_id, score, waiting_for_move, time_ms
		 FROM game_players WHERE game_id = $1 ORDER BY id ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying game players for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []*GamePlayer
	for rows.Next() {
		var gp GamePlayer
		if err := rows.Scan(&gp.ID, &gp.GameID, &gp.UserID, &gp.Score, &gp.WaitingForMove, &gp.TimeMs); err != nil {
			return nil, fmt.Errorf("scanning game player row: %w", err)
		}
		out = append(out, &gp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game players for game %d: %w", gameID, err)
	}
	return out, nil
}

func (g *pgGameTx) FindGamePlayer(ctx context.Context, gameID, userID int64) (*GamePlayer, error) {
	var gp GamePlayer
	err := g.tx.QueryRow(ctx,
		`SELECT id, game_id, user_id, score, waiting_for_move, time_ms
		 FROM game_players WHERE game_id = $1 AND user_id = $2`, gameID, userID,
	).Scan(&gp.ID, &gp.GameID, &gp.UserID, &gp.Score, &gp.WaitingForMove, &gp.TimeMs)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying game player (game %d, user %d): %w", gameID, userID, err)
	}
	return &gp, nil
}

func (g *pgGameTx) InsertGamePlayer(ctx context.Context, gp *GamePlayer) (int64, error) {
	var id int64
	err := g.tx.QueryRow(ctx,
		`INSERT INTO game_players (game_id, user_id, score, waiting_for_move, time_ms)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		gp.GameID, gp.UserID, gp.Score, gp.WaitingForMove, gp.TimeMs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting game player (game %d, user %d): %w", gp.GameID, gp.UserID, err)
	}
	return id, nil
}

func (g *pgGameTx) UpdateGamePlayer(ctx context.Context, gp *GamePlayer) error {
	_, err := g.tx.Exec(ctx,
		`UPDATE game_players SET score=$1, waiting_for_move=$2, time_ms=$3 WHERE id=$4`,
		gp.Score, gp.WaitingForMove, gp.TimeMs, gp.ID,
	)
	if err != nil {
		return fmt.Errorf("updating game player %d: %w", gp.ID, err)
	}
	return nil
}

func (g *pgGameTx) DeleteGamePlayer(ctx context.Context, id int64) error {
	_, err := g.tx.Exec(ctx, `DELETE FROM game_players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting game player %d: %w", id, err)
	}
	return nil
}
