// Package apperr defines the closed set of application-level failure kinds
// that the dispatcher maps onto a single wire-level error reply.
package apperr

import "fmt"

// Kind identifies a member of the closed error taxonomy. The wire text for
// each kind is fixed; callers never construct ad-hoc messages for these.
type Kind int

const (
	NoSuchUser Kind = iota
	MalformedApiKey
	InvalidApiKey
	IncorrectCredentials
	EmailAlreadyTaken
	InvalidCommand
	InvalidNumberOfArguments
	NoSuchConnectedClient
	MessageParseError
	NotLoggedIn
	NoSuchGameType
	NoSuchGame
	AlreadyInGame
	NotInGame
	GameAlreadyStarted
	DontOwnGame
	InvalidNumberOfPlayers
	NotTurn
	InvalidMove
	WrongVersionForCommand
	InvalidProtocolVersion
	DBError
	PoolError
	BCryptError
)

// Error is the concrete error value carried through the engine and
// dispatcher. Args holds the values interpolated into the kind's wire
// template (verb, message fragment, expected/actual counts, ...).
type Error struct {
	Kind Kind
	Args []any
	// Wrapped, when set, is the underlying cause for DBError/PoolError/
	// BCryptError kinds. Error() renders its message after the kind's fixed
	// prefix (e.g. "database error: <cause>").
	Wrapped error
}

func (e *Error) Error() string {
	switch e.Kind {
	case NoSuchUser:
		return "no such user"
	case MalformedApiKey:
		return "malformed api key"
	case InvalidApiKey:
		return "invalid api key"
	case IncorrectCredentials:
		return "incorrect login credentials"
	case EmailAlreadyTaken:
		return "email is already taken"
	case InvalidCommand:
		return fmt.Sprintf("unrecognized command: %v", e.Args[0])
	case InvalidNumberOfArguments:
		return fmt.Sprintf("invalid number of arguments for command %v - expected %v, found %v", e.Args[0], e.Args[1], e.Args[2])
	case NoSuchConnectedClient:
		return "no such connected client"
	case MessageParseError:
		return "couldn't parse client command as text (make sure to use utf-8 encoded messages)"
	case NotLoggedIn:
		return "you are not logged in"
	case NoSuchGameType:
		return fmt.Sprintf("no such game type: %v", e.Args[0])
	case NoSuchGame:
		return "no such game"
	case AlreadyInGame:
		return "you are already in that game"
	case NotInGame:
		return "you aren't in that game"
	case GameAlreadyStarted:
		return "that game has already started"
	case DontOwnGame:
		return "you aren't the owner of that game"
	case InvalidNumberOfPlayers:
		return "invalid number of players"
	case NotTurn:
		return "it is not your turn"
	case InvalidMove:
		return fmt.Sprintf("invalid move: %v", e.Args[0])
	case WrongVersionForCommand:
		return "that command is only available in protocol version 2 (you are in version 1)"
	case InvalidProtocolVersion:
		return "invalid protocol version"
	case DBError:
		return fmt.Sprintf("database error: %v", e.Wrapped)
	case PoolError:
		return fmt.Sprintf("database pool error: %v", e.Wrapped)
	case BCryptError:
		return fmt.Sprintf("bcrypt error: %v", e.Wrapped)
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds a taxonomy error with interpolated arguments.
func New(k Kind, args ...any) *Error {
	return &Error{Kind: k, Args: args}
}

// Wrap builds a taxonomy error around an internal cause (DB, pool, bcrypt).
func Wrap(k Kind, cause error) *Error {
	return &Error{Kind: k, Wrapped: cause}
}

// Is reports whether err is an *Error of the given kind. Mirrors the
// errors.Is convention used throughout the store and engine packages.
func Is(err error, k Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == k
}
