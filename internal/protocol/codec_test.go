package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommandSplitsVerbAndTrimsArgs(t *testing.T) {
	cmd := ParseCommand("new_user User Name, a@b.com, secret")
	require.Equal(t, "new_user", cmd.Verb)
	require.Equal(t, []string{"User Name", "a@b.com", "secret"}, cmd.Args)
}

func TestParseCommandNoArgs(t *testing.T) {
	cmd := ParseCommand("logout")
	require.Equal(t, "logout", cmd.Verb)
	require.Empty(t, cmd.Args)
}

func TestValidateUnknownVerb(t *testing.T) {
	err := Validate(ClientCommand{Verb: "frobnicate"})
	require.EqualError(t, err, "unrecognized command: frobnicate")
}

func TestValidateWrongArity(t *testing.T) {
	err := Validate(ClientCommand{Verb: VerbLogin, Args: []string{"only-one"}})
	require.EqualError(t, err, "invalid number of arguments for command login - expected 2, found 1")
}

func TestValidateVariadicArityAcceptsAtLeastOne(t *testing.T) {
	require.NoError(t, Validate(ClientCommand{Verb: VerbMove, Args: []string{"e2e4"}}))
	err := Validate(ClientCommand{Verb: VerbMove, Args: nil})
	require.EqualError(t, err, "invalid number of arguments for command move - expected at least 1, found 0")
}

func TestGameRendersPlaceholdersAndTieAndScores(t *testing.T) {
	require.Equal(t, "game 1, chess, 1, false, false, -, [], -",
		Game(1, "chess", 1, false, false, nil, false, nil, nil))

	state := "somefen"
	require.Equal(t, "game 1, chess, 1, false, false, -, [[1, 0]], somefen",
		Game(1, "chess", 1, false, false, nil, false, []GamePlayerScore{{UserID: 1}}, &state))

	winner := int64(1)
	score1, score2 := 1.0, 0.0
	require.Equal(t, "game 1, chess, 1, true, true, 1, [[1, 1], [2, 0]], somefen",
		Game(1, "chess", 1, true, true, &winner, false,
			[]GamePlayerScore{{UserID: 1, Score: &score1}, {UserID: 2, Score: &score2}}, &state))

	require.Equal(t, "game 1, chess, 1, true, true, tie, [], -",
		Game(1, "chess", 1, true, true, nil, true, nil, nil))
}

func TestOptStringAndOptScore(t *testing.T) {
	require.Equal(t, Placeholder, OptString(nil))
	s := "x"
	require.Equal(t, "x", OptString(&s))

	require.Equal(t, 0.0, OptScore(nil))
	f := 2.5
	require.Equal(t, 2.5, OptScore(&f))
}
