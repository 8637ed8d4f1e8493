// Package dispatch is the per-command dispatcher of spec.md §4.7: it
// authorizes, opens persistence, applies one operation, maps failures onto
// the error taxonomy, and builds the single reply every inbound frame gets.
package dispatch

import (
	"context"
	"strconv"
	"strings"

	"github.com/edwardwawrzynek/chess/internal/apperr"
	"github.com/edwardwawrzynek/chess/internal/game"
	"github.com/edwardwawrzynek/chess/internal/identity"
	"github.com/edwardwawrzynek/chess/internal/protocol"
	"github.com/edwardwawrzynek/chess/internal/session"
	"github.com/edwardwawrzynek/chess/internal/store"
)

// Conn is the connection-local state the dispatcher needs beyond the
// router's addr->user_id map: the sticky protocol version negotiated by
// this socket (spec.md §6, "version selection is sticky per-connection").
// The transport layer's connection type satisfies this by duck typing;
// dispatch never imports transport, which would cycle back here.
type Conn interface {
	ID() session.ClientID
	Version() int
	SetVersion(v int)
}

// Dispatcher wires the identity, game, and session layers together behind
// the wire protocol.
type Dispatcher struct {
	store  store.Store
	router *session.Router
	engine *game.Engine
}

// New builds a dispatcher over the given collaborators.
func New(st store.Store, router *session.Router, engine *game.Engine) *Dispatcher {
	return &Dispatcher{store: st, router: router, engine: engine}
}

// Dispatch handles one already-parsed command and returns its reply.
// hasReply is false only for the single documented silent case (`version
// 1`): every other path yields exactly one line, per spec.md §4.2/§4.6.
func (d *Dispatcher) Dispatch(ctx context.Context, conn Conn, cmd protocol.ClientCommand) (reply string, hasReply bool) {
	if err := protocol.Validate(cmd); err != nil {
		return protocol.ErrorReply(err), true
	}

	uid, authed := d.router.IsUser(conn.ID())
	if protocol.RequiresAuth(cmd.Verb) && !authed {
		return protocol.ErrorReply(apperr.New(apperr.NotLoggedIn)), true
	}

	var err error
	switch cmd.Verb {
	case protocol.VerbVersion:
		return d.version(conn, cmd.Args[0])
	case protocol.VerbNewUser:
		reply, err = d.newUser(ctx, conn, cmd.Args[0], cmd.Args[1], cmd.Args[2])
	case protocol.VerbNewTmpUser:
		reply, err = d.newTmpUser(ctx, conn, cmd.Args[0])
	case protocol.VerbApikey:
		reply, err = d.apikeyLogin(ctx, conn, cmd.Args[0])
	case protocol.VerbLogin:
		reply, err = d.login(ctx, conn, cmd.Args[0], cmd.Args[1])
	case protocol.VerbLogout:
		d.router.RemoveAsUser(conn.ID())
		reply = protocol.Okay()
	case protocol.VerbName:
		err = d.setName(ctx, uid, cmd.Args[0])
	case protocol.VerbPassword:
		err = d.setPassword(ctx, uid, cmd.Args[0])
	case protocol.VerbGenApikey:
		reply, err = d.genApikey(ctx, uid)
	case protocol.VerbSelfUserInfo:
		reply, err = d.selfUserInfo(ctx, uid)
	case protocol.VerbNewGame:
		reply, err = d.newGame(ctx, uid, cmd.Args[0])
	case protocol.VerbObserveGame:
		reply, err = d.observeGame(ctx, conn, cmd.Args[0])
	case protocol.VerbStopObserveGame:
		reply, err = d.stopObserveGame(conn, cmd.Args[0])
	case protocol.VerbJoinGame:
		err = d.engineGameOp(ctx, cmd.Args[0], uid, d.engine.JoinGame)
	case protocol.VerbLeaveGame:
		err = d.engineGameOp(ctx, cmd.Args[0], uid, d.engine.LeaveGame)
	case protocol.VerbStartGame:
		err = d.engineGameOp(ctx, cmd.Args[0], uid, d.engine.StartGame)
	case protocol.VerbPlay:
		err = d.play(ctx, conn, uid, cmd.Args)
	case protocol.VerbMove:
		err = d.move(ctx, uid, cmd.Args)
	default:
		err = apperr.New(apperr.InvalidCommand, cmd.Verb)
	}

	if err != nil {
		return protocol.ErrorReply(err), true
	}
	if reply == "" {
		reply = protocol.Okay()
	}
	return reply, true
}

func (d *Dispatcher) version(conn Conn, arg string) (string, bool) {
	switch arg {
	case "1":
		conn.SetVersion(1)
		return "", false
	case "2":
		conn.SetVersion(2)
		return protocol.Okay(), true
	default:
		return protocol.ErrorReply(apperr.New(apperr.InvalidProtocolVersion)), true
	}
}

func (d *Dispatcher) newUser(ctx context.Context, conn Conn, name, email, pass string) (string, error) {
	existing, err := d.store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	if existing != nil {
		return "", apperr.New(apperr.EmailAlreadyTaken)
	}
	passHash, err := identity.HashPassword(pass)
	if err != nil {
		return "", apperr.Wrap(apperr.BCryptError, err)
	}
	key, err := identity.NewApiKey()
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	keyHash := key.Hash()
	id, err := d.store.InsertUser(ctx, &store.User{
		Email:        &email,
		Name:         name,
		PasswordHash: &passHash,
		ApiKeyHash:   keyHash,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	d.router.AddAsUser(id, conn.ID())
	return protocol.Okay(), nil
}

func (d *Dispatcher) newTmpUser(ctx context.Context, conn Conn, name string) (string, error) {
	key, err := identity.NewApiKey()
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	id, err := d.store.InsertUser(ctx, &store.User{
		Name:       name,
		ApiKeyHash: key.Hash(),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	d.router.AddAsUser(id, conn.ID())
	return protocol.Okay(), nil
}

func (d *Dispatcher) apikeyLogin(ctx context.Context, conn Conn, key string) (string, error) {
	hash, err := identity.HashApiKeyString(key)
	if err != nil {
		return "", apperr.New(apperr.MalformedApiKey)
	}
	u, err := d.store.FindUserByApiKeyHash(ctx, hash)
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	if u == nil {
		return "", apperr.New(apperr.InvalidApiKey)
	}
	d.router.AddAsUser(u.ID, conn.ID())
	return protocol.Okay(), nil
}

func (d *Dispatcher) login(ctx context.Context, conn Conn, email, pass string) (string, error) {
	u, err := d.store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	if u == nil {
		return "", apperr.New(apperr.NoSuchUser)
	}
	if u.PasswordHash == nil || !identity.VerifyPassword(*u.PasswordHash, pass) {
		return "", apperr.New(apperr.IncorrectCredentials)
	}
	d.router.AddAsUser(u.ID, conn.ID())
	return protocol.Okay(), nil
}

func (d *Dispatcher) setName(ctx context.Context, uid int64, name string) error {
	u, err := d.store.FindUser(ctx, uid)
	if err != nil {
		return apperr.Wrap(apperr.DBError, err)
	}
	if u == nil {
		return apperr.New(apperr.NoSuchUser)
	}
	u.Name = name
	if err := d.store.UpdateUser(ctx, u); err != nil {
		return apperr.Wrap(apperr.DBError, err)
	}
	return nil
}

func (d *Dispatcher) setPassword(ctx context.Context, uid int64, pass string) error {
	u, err := d.store.FindUser(ctx, uid)
	if err != nil {
		return apperr.Wrap(apperr.DBError, err)
	}
	if u == nil {
		return apperr.New(apperr.NoSuchUser)
	}
	hash, err := identity.HashPassword(pass)
	if err != nil {
		return apperr.Wrap(apperr.BCryptError, err)
	}
	u.PasswordHash = &hash
	if err := d.store.UpdateUser(ctx, u); err != nil {
		return apperr.Wrap(apperr.DBError, err)
	}
	return nil
}

func (d *Dispatcher) genApikey(ctx context.Context, uid int64) (string, error) {
	u, err := d.store.FindUser(ctx, uid)
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	if u == nil {
		return "", apperr.New(apperr.NoSuchUser)
	}
	key, err := identity.NewApiKey()
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	u.ApiKeyHash = key.Hash()
	if err := d.store.UpdateUser(ctx, u); err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	return protocol.GenApikey(key.String()), nil
}

func (d *Dispatcher) selfUserInfo(ctx context.Context, uid int64) (string, error) {
	u, err := d.store.FindUser(ctx, uid)
	if err != nil {
		return "", apperr.Wrap(apperr.DBError, err)
	}
	if u == nil {
		return "", apperr.New(apperr.NoSuchUser)
	}
	return protocol.SelfUserInfo(u.ID, u.Name, u.Email), nil
}

func (d *Dispatcher) newGame(ctx context.Context, uid int64, gameType string) (string, error) {
	id, err := d.engine.NewGame(ctx, uid, gameType)
	if err != nil {
		return "", err
	}
	return protocol.NewGame(id), nil
}

func (d *Dispatcher) observeGame(ctx context.Context, conn Conn, gidStr string) (string, error) {
	gid, err := parseGameID(gidStr)
	if err != nil {
		return "", err
	}
	view, verr := d.engine.View(ctx, gid)
	if verr != nil {
		return "", verr
	}
	d.router.AddToTopic(session.GameTopic(gid), conn.ID())
	return protocol.Game(view.ID, view.GameType, view.Owner, view.Started, view.Finished, view.Winner, view.IsTie, view.Players, view.State), nil
}

func (d *Dispatcher) stopObserveGame(conn Conn, gidStr string) (string, error) {
	gid, err := parseGameID(gidStr)
	if err != nil {
		return "", err
	}
	d.router.RemoveFromTopic(session.GameTopic(gid), conn.ID())
	return protocol.Okay(), nil
}

func (d *Dispatcher) engineGameOp(ctx context.Context, gidStr string, uid int64, op func(ctx context.Context, gid, uid int64) error) error {
	gid, err := parseGameID(gidStr)
	if err != nil {
		return err
	}
	return op(ctx, gid, uid)
}

func (d *Dispatcher) play(ctx context.Context, conn Conn, uid int64, args []string) error {
	if conn.Version() < 2 {
		return apperr.New(apperr.WrongVersionForCommand)
	}
	gid, err := parseGameID(args[0])
	if err != nil {
		return err
	}
	moveText := strings.Join(args[1:], ", ")
	return d.engine.MakeMove(ctx, gid, uid, moveText)
}

func (d *Dispatcher) move(ctx context.Context, uid int64, args []string) error {
	g, err := d.store.FindOldestWaitingGameForUser(ctx, uid)
	if err != nil {
		return apperr.Wrap(apperr.DBError, err)
	}
	if g == nil {
		return apperr.New(apperr.NoSuchGame)
	}
	moveText := strings.Join(args, ", ")
	return d.engine.MakeMove(ctx, g.ID, uid, moveText)
}

func parseGameID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.NoSuchGame)
	}
	return id, nil
}
