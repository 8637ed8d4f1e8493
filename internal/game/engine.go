package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/edwardwawrzynek/chess/internal/apperr"
	"github.com/edwardwawrzynek/chess/internal/protocol"
	"github.com/edwardwawrzynek/chess/internal/session"
	"github.com/edwardwawrzynek/chess/internal/store"
)

// Default turn budgets. The wire protocol's new_game verb takes only a
// game-type argument (spec.md §4.2's arity table), so per-game time
// controls are not client-configurable; every game gets the same budget.
const (
	DefaultPerMoveMs     = 30_000
	DefaultSuddenDeathMs = 300_000
)

// expiryEvent is what a fired turn timer enqueues for the engine to
// process; see spec.md §4.4.2.
type expiryEvent struct {
	GameID int64
	TurnID int64
	UserID int64
}

// Engine is the game lifecycle and time-control engine of spec.md §4.4. It
// owns no durable state itself -- every operation reads and writes through
// Store and publishes via Router.
type Engine struct {
	store    store.Store
	router   *session.Router
	registry *Registry
	expiryCh chan expiryEvent
	ctx      context.Context
	nowMs    func() int64
}

// NewEngine builds an engine bound to ctx: background timers and the
// expiry-processing loop (Run) live for ctx's lifetime.
func NewEngine(ctx context.Context, st store.Store, router *session.Router, registry *Registry) *Engine {
	return &Engine{
		store:    st,
		router:   router,
		registry: registry,
		expiryCh: make(chan expiryEvent, 256),
		ctx:      ctx,
		nowMs:    func() int64 { return time.Now().UnixMilli() },
	}
}

// Run drains the expiry queue until ctx is done. Callers run this under an
// errgroup alongside the accept loop, per SPEC_FULL's ambient-stack choice
// of golang.org/x/sync/errgroup.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.expiryCh:
			if err := e.handleExpiry(ctx, ev); err != nil {
				slog.Error("handling turn expiry", "game", ev.GameID, "error", err)
			}
		}
	}
}

func freshTurnID() int64 {
	return int64(rand.Uint64())
}

func (e *Engine) scheduleExpiry(gameID, turnID, userID int64, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		select {
		case e.expiryCh <- expiryEvent{GameID: gameID, TurnID: turnID, UserID: userID}:
		case <-e.ctx.Done():
		}
	})
}

// NewGame creates an Unstarted game of the given type, owned by ownerID.
func (e *Engine) NewGame(ctx context.Context, ownerID int64, gameType string) (int64, error) {
	if _, ok := e.registry.Lookup(gameType); !ok {
		return 0, apperr.New(apperr.NoSuchGameType, gameType)
	}
	g := &store.Game{
		OwnerID:       ownerID,
		GameType:      gameType,
		Finished:      false,
		PerMoveMs:     DefaultPerMoveMs,
		SuddenDeathMs: DefaultSuddenDeathMs,
	}
	id, err := e.store.InsertGame(ctx, g)
	if err != nil {
		return 0, apperr.Wrap(apperr.DBError, err)
	}
	return id, nil
}

// GameView is the formatted, read-only snapshot of a game used for the
// observe_game reply and for the Game(gid) broadcast.
type GameView struct {
	ID       int64
	GameType string
	Owner    int64
	Started  bool
	Finished bool
	Winner   *int64
	IsTie    bool
	Players  []protocol.GamePlayerScore
	State    *string
}

// View reads a game's current state for formatting. It performs no
// locking: an observer's snapshot racing a concurrent move is expected and
// tolerated (spec.md §5's ordering notes apply to publishes, not reads).
func (e *Engine) View(ctx context.Context, gameID int64) (*GameView, error) {
	g, err := e.store.FindGame(ctx, gameID)
	if err != nil {
		return nil, apperr.Wrap(apperr.DBError, err)
	}
	if g == nil {
		return nil, apperr.New(apperr.NoSuchGame)
	}
	players, err := e.store.FindGamePlayers(ctx, gameID)
	if err != nil {
		return nil, apperr.Wrap(apperr.DBError, err)
	}
	return gameViewFrom(g, players), nil
}

func gameViewFrom(g *store.Game, players []*store.GamePlayer) *GameView {
	scores := make([]protocol.GamePlayerScore, len(players))
	for i, p := range players {
		scores[i] = protocol.GamePlayerScore{UserID: p.UserID, Score: p.Score}
	}
	isTie := g.IsTie != nil && *g.IsTie
	return &GameView{
		ID:       g.ID,
		GameType: g.GameType,
		Owner:    g.OwnerID,
		Started:  g.State != nil,
		Finished: g.Finished,
		Winner:   g.Winner,
		IsTie:    isTie,
		Players:  scores,
		State:    g.State,
	}
}

func (v *GameView) render() string {
	return protocol.Game(v.ID, v.GameType, v.Owner, v.Started, v.Finished, v.Winner, v.IsTie, v.Players, v.State)
}

// broadcastGameUpdate re-reads the committed game state and publishes it
// on Game(gameID), per spec.md §4.4.3.
func (e *Engine) broadcastGameUpdate(ctx context.Context, gameID int64) {
	v, err := e.View(ctx, gameID)
	if err != nil {
		slog.Error("rendering game update", "game", gameID, "error", err)
		return
	}
	e.router.Publish(session.GameTopic(gameID), v.render())
}

// sendTurnPrompt delivers the private per-mover prompt on UserPrivate(uid),
// formatted per the subscriber's own protocol version (spec.md §4.4.3).
func (e *Engine) sendTurnPrompt(moverID int64, gameID int64, gameType string, perMoveLeft, suddenDeathLeft int64, state string) {
	e.router.PublishVersioned(session.UserPrivateTopic(moverID), func(version int) string {
		if version >= 2 {
			return protocol.Go(gameID, gameType, perMoveLeft, suddenDeathLeft, state)
		}
		return protocol.Board(state)
	})
}

func isUnstarted(g *store.Game) bool { return g.State == nil && !g.Finished }

// JoinGame adds userID to gameID while it is Unstarted.
func (e *Engine) JoinGame(ctx context.Context, gameID, userID int64) error {
	err := e.store.WithGameLock(ctx, gameID, func(ctx context.Context, tx store.GameTx) error {
		g := tx.Game()
		if !isUnstarted(g) {
			return apperr.New(apperr.GameAlreadyStarted)
		}
		existing, err := tx.FindGamePlayer(ctx, gameID, userID)
		if err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}
		if existing != nil {
			return apperr.New(apperr.AlreadyInGame)
		}
		_, err = tx.InsertGamePlayer(ctx, &store.GamePlayer{
			GameID:         gameID,
			UserID:         userID,
			WaitingForMove: false,
			TimeMs:         g.SuddenDeathMs,
		})
		if err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.broadcastGameUpdate(ctx, gameID)
	return nil
}

// LeaveGame removes userID from gameID while it is Unstarted.
func (e *Engine) LeaveGame(ctx context.Context, gameID, userID int64) error {
	err := e.store.WithGameLock(ctx, gameID, func(ctx context.Context, tx store.GameTx) error {
		g := tx.Game()
		if !isUnstarted(g) {
			return apperr.New(apperr.GameAlreadyStarted)
		}
		gp, err := tx.FindGamePlayer(ctx, gameID, userID)
		if err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}
		if gp == nil {
			return apperr.New(apperr.NotInGame)
		}
		if err := tx.DeleteGamePlayer(ctx, gp.ID); err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.broadcastGameUpdate(ctx, gameID)
	return nil
}

// StartGame transitions gameID from Unstarted to InProgress, owned by
// userID, and arms the clock for the first turn.
func (e *Engine) StartGame(ctx context.Context, gameID, userID int64) error {
	var (
		firstMoverID         int64
		perMoveMs, bankMs    int64
		turnID               int64
		startMs              int64
		stateAfterStart      string
		gameType             string
	)

	err := e.store.WithGameLock(ctx, gameID, func(ctx context.Context, tx store.GameTx) error {
		g := tx.Game()
		if g.OwnerID != userID {
			return apperr.New(apperr.DontOwnGame)
		}
		if !isUnstarted(g) {
			return apperr.New(apperr.GameAlreadyStarted)
		}
		players, err := tx.FindGamePlayers(ctx, gameID)
		if err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}
		playerIDs := make([]int64, len(players))
		for i, p := range players {
			playerIDs[i] = p.UserID
		}

		gt, ok := e.registry.Lookup(g.GameType)
		if !ok {
			return apperr.New(apperr.NoSuchGameType, g.GameType)
		}
		instance, err := gt.New(playerIDs)
		if err != nil {
			return apperr.New(apperr.InvalidNumberOfPlayers)
		}

		state := instance.Serialize()
		turn := instance.Turn()
		if turn.Status != TurnInProgress {
			return apperr.New(apperr.InvalidNumberOfPlayers)
		}

		turnID = freshTurnID()
		startMs = e.nowMs()
		g.State = &state
		g.TurnID = &turnID
		g.CurrentMoveStartMs = &startMs
		if err := tx.UpdateGame(ctx, g); err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}

		var moverBank int64
		for _, p := range players {
			waiting := p.UserID == turn.UserID
			p.WaitingForMove = waiting
			if waiting {
				moverBank = p.TimeMs
			}
			if err := tx.UpdateGamePlayer(ctx, p); err != nil {
				return apperr.Wrap(apperr.DBError, err)
			}
		}

		firstMoverID = turn.UserID
		perMoveMs = remainingPerMove(g.PerMoveMs, 0)
		bankMs = remainingSuddenDeath(moverBank, g.PerMoveMs, 0)
		stateAfterStart = state
		gameType = g.GameType
		return nil
	})
	if err != nil {
		return err
	}

	e.scheduleExpiry(gameID, turnID, firstMoverID, time.Duration(perMoveMs+bankMs)*time.Millisecond)
	e.broadcastGameUpdate(ctx, gameID)
	e.sendTurnPrompt(firstMoverID, gameID, gameType, perMoveMs, bankMs, stateAfterStart)
	return nil
}

// MakeMove applies moveStr as userID's move in gameID.
func (e *Engine) MakeMove(ctx context.Context, gameID, userID int64, moveStr string) error {
	var (
		finished                bool
		nextMoverID             int64
		perMoveMs, nextBankMs   int64
		nextTurnID              int64
		stateAfter              string
		gameType                string
		shouldSchedule          bool
	)

	err := e.store.WithGameLock(ctx, gameID, func(ctx context.Context, tx store.GameTx) error {
		g := tx.Game()
		if g.Finished || g.State == nil || g.TurnID == nil || g.CurrentMoveStartMs == nil {
			return apperr.New(apperr.NotTurn)
		}

		players, err := tx.FindGamePlayers(ctx, gameID)
		if err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}
		playerIDs := make([]int64, len(players))
		for i, p := range players {
			playerIDs[i] = p.UserID
		}

		gt, ok := e.registry.Lookup(g.GameType)
		if !ok {
			return apperr.New(apperr.NoSuchGameType, g.GameType)
		}
		instance, err := gt.Deserialize(*g.State, playerIDs)
		if err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}

		turn := instance.Turn()
		if turn.Status != TurnInProgress || turn.UserID != userID {
			return apperr.New(apperr.NotTurn)
		}

		if err := instance.MakeMove(userID, moveStr); err != nil {
			return apperr.New(apperr.InvalidMove, err.Error())
		}

		elapsed := e.nowMs() - *g.CurrentMoveStartMs
		mover, err := tx.FindGamePlayer(ctx, gameID, userID)
		if err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}
		mover.TimeMs = subtractElapsed(mover.TimeMs, g.PerMoveMs, elapsed)
		if err := tx.UpdateGamePlayer(ctx, mover); err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}

		newState := instance.Serialize()
		g.State = &newState
		gameType = g.GameType
		stateAfter = newState

		end := instance.EndState()
		nextTurn := instance.Turn()
		if end.Kind != EndInProgress || nextTurn.Status == TurnFinished {
			g.Finished = true
			g.CurrentMoveStartMs = nil
			g.TurnID = nil
			switch end.Kind {
			case EndWin:
				winner := end.Winner
				g.Winner = &winner
			case EndTie:
				isTie := true
				g.IsTie = &isTie
			}
			if err := tx.UpdateGame(ctx, g); err != nil {
				return apperr.Wrap(apperr.DBError, err)
			}

			scores := instance.Scores()
			players, err = tx.FindGamePlayers(ctx, gameID)
			if err != nil {
				return apperr.Wrap(apperr.DBError, err)
			}
			for _, p := range players {
				p.WaitingForMove = false
				if scores != nil {
					if s, ok := scores[p.UserID]; ok {
						score := s
						p.Score = &score
					}
				}
				if err := tx.UpdateGamePlayer(ctx, p); err != nil {
					return apperr.Wrap(apperr.DBError, err)
				}
			}
			finished = true
			return nil
		}

		nextTurnID = freshTurnID()
		nextStart := e.nowMs()
		g.TurnID = &nextTurnID
		g.CurrentMoveStartMs = &nextStart
		if err := tx.UpdateGame(ctx, g); err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}

		players, err = tx.FindGamePlayers(ctx, gameID)
		if err != nil {
			return apperr.Wrap(apperr.DBError, err)
		}
		var moverBank int64
		for _, p := range players {
			waiting := p.UserID == nextTurn.UserID
			p.WaitingForMove = waiting
			if waiting {
				moverBank = p.TimeMs
			}
			if err := tx.UpdateGamePlayer(ctx, p); err != nil {
				return apperr.Wrap(apperr.DBError, err)
			}
		}
		nextMoverID = nextTurn.UserID
		perMoveMs = remainingPerMove(g.PerMoveMs, 0)
		nextBankMs = remainingSuddenDeath(moverBank, g.PerMoveMs, 0)
		shouldSchedule = true
		return nil
	})
	if err != nil {
		return err
	}

	if shouldSchedule {
		e.scheduleExpiry(gameID, nextTurnID, nextMoverID, time.Duration(perMoveMs+nextBankMs)*time.Millisecond)
	}
	e.broadcastGameUpdate(ctx, gameID)
	if !finished {
		e.sendTurnPrompt(nextMoverID, gameID, gameType, perMoveMs, nextBankMs, stateAfter)
	}
	return nil
}

// handleExpiry processes one fired turn timer. A stale event (the game no
// longer exists, or its current turn_id no longer matches) is a silent
// no-op -- the fencing rule of spec.md §4.4.2.
func (e *Engine) handleExpiry(ctx context.Context, ev expiryEvent) error {
	var shouldBroadcast bool

	existing, err := e.store.FindGame(ctx, ev.GameID)
	if err != nil {
		return fmt.Errorf("reading expired game %d: %w", ev.GameID, err)
	}
	if existing == nil {
		return nil // stale: the game no longer exists
	}

	err = e.store.WithGameLock(ctx, ev.GameID, func(ctx context.Context, tx store.GameTx) error {
		g := tx.Game()
		if g.Finished || g.TurnID == nil || *g.TurnID != ev.TurnID {
			return nil // stale: superseded by a move or another expiry
		}

		players, err := tx.FindGamePlayers(ctx, ev.GameID)
		if err != nil {
			return fmt.Errorf("reading players for expired game %d: %w", ev.GameID, err)
		}
		var winner int64
		for _, p := range players {
			if p.UserID != ev.UserID {
				winner = p.UserID
			}
			p.WaitingForMove = false
			if err := tx.UpdateGamePlayer(ctx, p); err != nil {
				return fmt.Errorf("clearing waiting_for_move on expiry: %w", err)
			}
		}

		g.Finished = true
		g.Winner = &winner
		g.CurrentMoveStartMs = nil
		g.TurnID = nil
		if err := tx.UpdateGame(ctx, g); err != nil {
			return fmt.Errorf("finalizing expired game %d: %w", ev.GameID, err)
		}
		shouldBroadcast = true
		return nil
	})
	if err != nil {
		return err
	}
	if shouldBroadcast {
		e.broadcastGameUpdate(ctx, ev.GameID)
	}
	return nil
}
