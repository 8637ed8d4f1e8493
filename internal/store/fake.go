package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/edwardwawrzynek/chess/internal/identity"
)

// Fake is an in-memory Store used by engine/dispatcher tests in
// place of a real Postgres instance, mirroring the teacher's own split
// between fast unit tests and an opt-in, Docker-backed integration suite.
type Fake struct {
	mu          sync.Mutex
	users       map[int64]*User
	games       map[int64]*Game
	gamePlayers map[int64]*GamePlayer
	nextUser    int64
	nextGame    int64
	nextGP      int64
}

// NewFake returns an empty in-memory store.
func NewFake() *Fake {
	return &Fake{
		users:       make(map[int64]*User),
		games:       make(map[int64]*Game),
		gamePlayers: make(map[int64]*GamePlayer),
	}
}

func cloneUser(u *User) *User {
	c := *u
	return &c
}

func cloneGame(g *Game) *Game {
	c := *g
	return &c
}

func cloneGP(gp *GamePlayer) *GamePlayer {
	c := *gp
	return &c
}

func (f *Fake) FindUser(_ context.Context, id int64) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (f *Fake) FindUserByEmail(_ context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (f *Fake) FindUserByApiKeyHash(_ context.Context, hash string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		// Unlike FindUserByEmail, this scan compares secret hash material, so
		// it uses a constant-time comparison rather than Go's built-in ==
		// (the Postgres path compares inside the database with a plain
		// WHERE api_key_hash = $1 lookup).
		if identity.ConstantTimeEqualHash(u.ApiKeyHash, hash) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (f *Fake) InsertUser(_ context.Context, u *User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUser++
	id := f.nextUser
	c := cloneUser(u)
	c.ID = id
	f.users[id] = c
	return id, nil
}

func (f *Fake) UpdateUser(_ context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return fmt.Errorf("updating user %d: no such user", u.ID)
	}
	f.users[u.ID] = cloneUser(u)
	return nil
}

func (f *Fake) InsertGame(_ context.Context, g *Game) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextGame++
	id := f.nextGame
	c := cloneGame(g)
	c.ID = id
	f.games[id] = c
	return id, nil
}

func (f *Fake) FindGame(_ context.Context, id int64) (*Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return nil, nil
	}
	return cloneGame(g), nil
}

func (f *Fake) UpdateGame(_ context.Context, g *Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.games[g.ID]; !ok {
		return fmt.Errorf("updating game %d: no such game", g.ID)
	}
	f.games[g.ID] = cloneGame(g)
	return nil
}

func (f *Fake) FindGamePlayers(_ context.Context, gameID int64) ([]*GamePlayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findGamePlayersLocked(gameID), nil
}

func (f *Fake) findGamePlayersLocked(gameID int64) []*GamePlayer {
	var out []*GamePlayer
	for _, gp := range f.gamePlayers {
		if gp.GameID == gameID {
			out = append(out, cloneGP(gp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *Fake) FindGamePlayer(_ context.Context, gameID, userID int64) (*GamePlayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, gp := range f.gamePlayers {
		if gp.GameID == gameID && gp.UserID == userID {
			return cloneGP(gp), nil
		}
	}
	return nil, nil
}

func (f *Fake) FindWaitingGamesForUser(_ context.Context, userID int64) ([]*Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var gps []*GamePlayer
	for _, gp := range f.gamePlayers {
		if gp.UserID == userID && gp.WaitingForMove {
			gps = append(gps, gp)
		}
	}
	sort.Slice(gps, func(i, j int) bool { return gps[i].GameID < gps[j].GameID })
	var out []*Game
	for _, gp := range gps {
		g, ok := f.games[gp.GameID]
		if !ok || g.Finished {
			continue
		}
		out = append(out, cloneGame(g))
	}
	return out, nil
}

func (f *Fake) FindOldestWaitingGameForUser(ctx context.Context, userID int64) (*Game, error) {
	games, err := f.FindWaitingGamesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}
	return games[0], nil
}

func (f *Fake) InsertGamePlayer(_ context.Context, gp *GamePlayer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextGP++
	id := f.nextGP
	c := cloneGP(gp)
	c.ID = id
	f.gamePlayers[id] = c
	return id, nil
}

func (f *Fake) UpdateGamePlayer(_ context.Context, gp *GamePlayer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.gamePlayers[gp.ID]; !ok {
		return fmt.Errorf("updating game player %d: no such row", gp.ID)
	}
	f.gamePlayers[gp.ID] = cloneGP(gp)
	return nil
}

func (f *Fake) DeleteGamePlayer(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.gamePlayers, id)
	return nil
}

// WithGameLock takes the fake store's single mutex for the duration of fn,
// which is sufficient serialization for single-process tests (there is no
// real concurrent row lock to emulate).
func (f *Fake) WithGameLock(ctx context.Context, gameID int64, fn func(ctx context.Context, tx GameTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.games[gameID]
	if !ok {
		return fmt.Errorf("locking game %d: no such game", gameID)
	}
	gtx := &fakeGameTx{f: f, game: cloneGame(g)}
	if err := fn(ctx, gtx); err != nil {
		return err
	}
	return nil
}

// fakeGameTx implements store.GameTx directly against Fake's maps. Fake.mu
// is already held by the caller (WithGameLock), so it operates on the maps
// without re-locking.
type fakeGameTx struct {
	f    *Fake
	game *Game
}

func (g *fakeGameTx) Game() *Game { return g.game }

func (g *fakeGameTx) UpdateGame(_ context.Context, game *Game) error {
	if _, ok := g.f.games[game.ID]; !ok {
		return fmt.Errorf("updating game %d: no such game", game.ID)
	}
	g.f.games[game.ID] = cloneGame(game)
	g.game = cloneGame(game)
	return nil
}

func (g *fakeGameTx) FindGamePlayers(_ context.Context, gameID int64) ([]*GamePlayer, error) {
	return g.f.findGamePlayersLocked(gameID), nil
}

func (g *fakeGameTx) FindGamePlayer(_ context.Context, gameID, userID int64) (*GamePlayer, error) {
	for _, gp := range g.f.gamePlayers {
		if gp.GameID == gameID && gp.UserID == userID {
			return cloneGP(gp), nil
		}
	}
	return nil, nil
}

func (g *fakeGameTx) InsertGamePlayer(_ context.Context, gp *GamePlayer) (int64, error) {
	g.f.nextGP++
	id := g.f.nextGP
	c := cloneGP(gp)
	c.ID = id
	g.f.gamePlayers[id] = c
	return id, nil
}

func (g *fakeGameTx) UpdateGamePlayer(_ context.Context, gp *GamePlayer) error {
	if _, ok := g.f.gamePlayers[gp.ID]; !ok {
		return fmt.Errorf("updating game player %d: no such row", gp.ID)
	}
	g.f.gamePlayers[gp.ID] = cloneGP(gp)
	return nil
}

func (g *fakeGameTx) DeleteGamePlayer(_ context.Context, id int64) error {
	delete(g.f.gamePlayers, id)
	return nil
}
