package protocol

import (
	"fmt"
	"strings"

	"github.com/edwardwawrzynek/chess/internal/apperr"
)

// ParseCommand splits one inbound text frame into a verb and its trimmed,
// comma-separated arguments, per spec.md §4.2: the verb is the longest
// non-whitespace prefix; everything after the first run of whitespace is
// split on commas and each piece is trimmed.
//
// ParseCommand only performs the lexical split -- it does not validate the
// verb is known or that the arity matches; callers should follow up with
// Validate.
func ParseCommand(line string) ClientCommand {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return ClientCommand{Verb: line}
	}
	verb := line[:idx]
	rest := strings.TrimLeft(line[idx:], " \t")
	if rest == "" {
		return ClientCommand{Verb: verb}
	}
	parts := strings.Split(rest, ",")
	args := make([]string, len(parts))
	for i, p := range parts {
		args[i] = strings.TrimSpace(p)
	}
	return ClientCommand{Verb: verb, Args: args}
}

// Validate checks a parsed command against the verb table: unknown verb ->
// InvalidCommand, wrong arity -> InvalidNumberOfArguments.
func Validate(cmd ClientCommand) error {
	if !KnownVerb(cmd.Verb) {
		return apperr.New(apperr.InvalidCommand, cmd.Verb)
	}
	expected, _ := Arity(cmd.Verb)
	actual := len(cmd.Args)
	if expected == -1 {
		if actual < 1 {
			return apperr.New(apperr.InvalidNumberOfArguments, cmd.Verb, "at least 1", actual)
		}
		return nil
	}
	if actual != expected {
		return apperr.New(apperr.InvalidNumberOfArguments, cmd.Verb, expected, actual)
	}
	return nil
}

// Placeholder is the wire representation of an absent optional string.
const Placeholder = "-"

// OptString renders s as Placeholder if nil, else its value.
func OptString(s *string) string {
	if s == nil {
		return Placeholder
	}
	return *s
}

// OptScore renders an optional score, unwrapping None to 0 per spec.md
// §4.2 ("Scores serialize with optional unwrapping None -> 0").
func OptScore(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Okay renders the bare success reply.
func Okay() string { return "okay" }

// ErrorReply renders the fixed error reply shape: exactly one "error <msg>"
// per spec.md §4.2/§7.
func ErrorReply(err error) string {
	return fmt.Sprintf("error %s", err.Error())
}

// GenApikey renders the one-time plaintext key reply.
func GenApikey(key string) string {
	return fmt.Sprintf("gen_apikey %s", key)
}

// SelfUserInfo renders a user's own profile.
func SelfUserInfo(id int64, name string, email *string) string {
	return fmt.Sprintf("self_user_info %d, %s, %s", id, name, OptString(email))
}

// NewGame renders the id of a freshly created game.
func NewGame(id int64) string {
	return fmt.Sprintf("new_game %d", id)
}

// GamePlayerScore is one entry of a Game broadcast's player/score list.
type GamePlayerScore struct {
	UserID int64
	Score  *float64
}

// Game renders the full game-state broadcast (v2 and v1 share this shape;
// only the turn-prompt messages below differ by version).
func Game(id int64, gameType string, owner int64, started, finished bool, winner *int64, isTie bool, players []GamePlayerScore, state *string) string {
	var winnerField string
	switch {
	case isTie:
		winnerField = "tie"
	case winner != nil:
		winnerField = fmt.Sprintf("%d", *winner)
	default:
		winnerField = Placeholder
	}

	scores := make([]string, len(players))
	for i, p := range players {
		scores[i] = fmt.Sprintf("[%d, %s]", p.UserID, formatScore(OptScore(p.Score)))
	}

	return fmt.Sprintf("game %d, %s, %d, %s, %s, %s, [%s], %s",
		id, gameType, owner, formatBool(started), formatBool(finished), winnerField,
		strings.Join(scores, ", "), OptString(state))
}

// Go renders the v2 turn prompt.
func Go(gameID int64, gameType string, perMoveMsLeft, suddenDeathMsLeft int64, state string) string {
	return fmt.Sprintf("go %d, %s, %d, %d, %s", gameID, gameType, perMoveMsLeft, suddenDeathMsLeft, state)
}

// Board renders the v1 turn prompt.
func Board(state string) string {
	return fmt.Sprintf("board %s", state)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatScore(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
