package dispatch_test

import (
	"context"
	"testing"

	"github.com/edwardwawrzynek/chess/internal/dispatch"
	"github.com/edwardwawrzynek/chess/internal/game"
	gamechess "github.com/edwardwawrzynek/chess/internal/game/chess"
	"github.com/edwardwawrzynek/chess/internal/protocol"
	"github.com/edwardwawrzynek/chess/internal/session"
	"github.com/edwardwawrzynek/chess/internal/store"
	"github.com/stretchr/testify/require"
)

type testConn struct {
	id      session.ClientID
	version int
}

func (c *testConn) ID() session.ClientID { return c.id }
func (c *testConn) Version() int         { return c.version }
func (c *testConn) SetVersion(v int)     { c.version = v }

type testSender struct {
	conn     *testConn
	received []string
}

func (s *testSender) Send(msg string) bool {
	s.received = append(s.received, msg)
	return true
}
func (s *testSender) Version() int { return s.conn.version }

func newHarness(t *testing.T) (*dispatch.Dispatcher, *session.Router, func(id string) *testConn) {
	t.Helper()
	registry := game.NewRegistry()
	gamechess.Register(registry)
	router := session.New()
	st := store.NewFake()
	eng := game.NewEngine(context.Background(), st, router, registry)
	d := dispatch.New(st, router, eng)

	connect := func(id string) *testConn {
		c := &testConn{id: session.ClientID(id), version: 1}
		router.InsertClient(c.id, &testSender{conn: c})
		return c
	}
	return d, router, connect
}

func dispatchLine(t *testing.T, d *dispatch.Dispatcher, conn *testConn, line string) (string, bool) {
	t.Helper()
	cmd := protocol.ParseCommand(line)
	return d.Dispatch(context.Background(), conn, cmd)
}

func TestVersionHandshake(t *testing.T) {
	d, _, connect := newHarness(t)
	c := connect("a")

	reply, has := dispatchLine(t, d, c, "version 2")
	require.True(t, has)
	require.Equal(t, "okay", reply)

	reply, has = dispatchLine(t, d, c, "version 3")
	require.True(t, has)
	require.Equal(t, "error invalid protocol version", reply)
}

func TestTempUserSelfInfoLogout(t *testing.T) {
	d, _, connect := newHarness(t)
	c := connect("a")

	reply, _ := dispatchLine(t, d, c, "new_tmp_user Test")
	require.Equal(t, "okay", reply)

	reply, _ = dispatchLine(t, d, c, "self_user_info")
	require.Equal(t, "self_user_info 1, Test, -", reply)

	reply, _ = dispatchLine(t, d, c, "logout")
	require.Equal(t, "okay", reply)

	reply, _ = dispatchLine(t, d, c, "self_user_info")
	require.Equal(t, "error you are not logged in", reply)
}

func TestRegisterAndCredentialedLogin(t *testing.T) {
	d, _, connect := newHarness(t)
	owner := connect("owner")
	other := connect("other")

	reply, _ := dispatchLine(t, d, owner, "new_user Test, test@example.com, password")
	require.Equal(t, "okay", reply)

	reply, _ = dispatchLine(t, d, other, "login test@example.com, password")
	require.Equal(t, "okay", reply)

	reply, _ = dispatchLine(t, d, other, "self_user_info")
	require.Equal(t, "self_user_info 1, Test, test@example.com", reply)

	third := connect("third")
	reply, _ = dispatchLine(t, d, third, "login test@example.com, wrong")
	require.Equal(t, "error incorrect login credentials", reply)
}

func TestObserverSeesJoinAndLeave(t *testing.T) {
	d, router, connect := newHarness(t)
	owner := connect("owner")
	observer := connect("observer")
	observed := &testSender{conn: observer}
	router.InsertClient(observer.ID(), observed)

	_, _ = dispatchLine(t, d, owner, "new_tmp_user Owner")
	_, _ = dispatchLine(t, d, observer, "new_tmp_user Observer")

	reply, _ := dispatchLine(t, d, owner, "new_game chess")
	require.Equal(t, "new_game 1", reply)

	reply, _ = dispatchLine(t, d, observer, "observe_game 1")
	require.Equal(t, "game 1, chess, 1, false, false, -, [], -", reply)

	reply, _ = dispatchLine(t, d, owner, "join_game 1")
	require.Equal(t, "okay", reply)
	require.Equal(t, []string{"game 1, chess, 1, false, false, -, [[1, 0]], -"}, observed.received)

	reply, _ = dispatchLine(t, d, owner, "leave_game 1")
	require.Equal(t, "okay", reply)
	require.Equal(t, []string{
		"game 1, chess, 1, false, false, -, [[1, 0]], -",
		"game 1, chess, 1, false, false, -, [], -",
	}, observed.received)
}

func TestPlayRequiresVersion2(t *testing.T) {
	d, _, connect := newHarness(t)
	c := connect("a")
	_, _ = dispatchLine(t, d, c, "new_tmp_user Test")

	reply, _ := dispatchLine(t, d, c, "play 1, a1a1")
	require.Equal(t, "error that command is only available in protocol version 2 (you are in version 1)", reply)
}
