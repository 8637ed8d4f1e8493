// Package protocol implements the line-based client<->server command
// protocol of spec.md §4.2: a compact verb-plus-comma-args wire shape, in
// two coexisting versions.
package protocol

// ClientCommand is a parsed inbound command. Verb identifies which of the
// table in spec.md §4.2 it is; Args holds the trimmed argument list exactly
// as split on commas (arity is validated by the codec against the table).
type ClientCommand struct {
	Verb string
	Args []string
}

// Known client verbs (spec.md §4.2).
const (
	VerbVersion          = "version"
	VerbNewUser          = "new_user"
	VerbNewTmpUser       = "new_tmp_user"
	VerbApikey           = "apikey"
	VerbLogin            = "login"
	VerbLogout           = "logout"
	VerbName             = "name"
	VerbPassword         = "password"
	VerbGenApikey        = "gen_apikey"
	VerbSelfUserInfo     = "self_user_info"
	VerbNewGame          = "new_game"
	VerbObserveGame      = "observe_game"
	VerbStopObserveGame  = "stop_observe_game"
	VerbJoinGame         = "join_game"
	VerbLeaveGame        = "leave_game"
	VerbStartGame        = "start_game"
	VerbPlay             = "play"
	VerbMove             = "move"
)

// arities maps each known verb to its required argument count. play/move
// use -1 to mean "at least one", checked specially by the codec.
var arities = map[string]int{
	VerbVersion:         1,
	VerbNewUser:         3,
	VerbNewTmpUser:      1,
	VerbApikey:          1,
	VerbLogin:           2,
	VerbLogout:          0,
	VerbName:            1,
	VerbPassword:        1,
	VerbGenApikey:       0,
	VerbSelfUserInfo:    0,
	VerbNewGame:         1,
	VerbObserveGame:     1,
	VerbStopObserveGame: 1,
	VerbJoinGame:        1,
	VerbLeaveGame:       1,
	VerbStartGame:       1,
	VerbPlay:            -1,
	VerbMove:            -1,
}

// unauthenticatedVerbs lists verbs usable before authentication.
var unauthenticatedVerbs = map[string]bool{
	VerbVersion:    true,
	VerbNewUser:    true,
	VerbNewTmpUser: true,
	VerbApikey:     true,
	VerbLogin:      true,
}

// RequiresAuth reports whether verb needs an authenticated session.
func RequiresAuth(verb string) bool {
	return !unauthenticatedVerbs[verb]
}

// KnownVerb reports whether verb is in the closed verb table.
func KnownVerb(verb string) bool {
	_, ok := arities[verb]
	return ok
}

// Arity returns the verb's required argument count, or -1 for the
// variable-arity play/move verbs. ok is false for unknown verbs.
func Arity(verb string) (n int, ok bool) {
	n, ok = arities[verb]
	return n, ok
}
