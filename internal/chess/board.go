// Package chess implements chess rules: board representation, legal move
// generation, check/checkmate/stalemate detection, and FEN serialization.
// It has no knowledge of the game-lifecycle engine; internal/game/chess
// adapts it to the engine's GameInstance contract.
package chess

import "fmt"

// Piece identifies an occupant of a square, or Empty.
type Piece uint8

const (
	Empty Piece = iota
	WP
	WN
	WB
	WR
	WQ
	WK
	BP
	BN
	BB
	BR
	BQ
	BK
)

// Color is White or Black.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// Color reports the occupant's color. Callers must not call this on Empty.
func (p Piece) Color() Color {
	if p >= BP {
		return Black
	}
	return White
}

// IsEmpty reports whether the square is unoccupied.
func (p Piece) IsEmpty() bool { return p == Empty }

// letter is the piece's FEN letter, uppercase for white, lowercase for black.
func (p Piece) letter() byte {
	switch p {
	case WP:
		return 'P'
	case WN:
		return 'N'
	case WB:
		return 'B'
	case WR:
		return 'R'
	case WQ:
		return 'Q'
	case WK:
		return 'K'
	case BP:
		return 'p'
	case BN:
		return 'n'
	case BB:
		return 'b'
	case BR:
		return 'r'
	case BQ:
		return 'q'
	case BK:
		return 'k'
	default:
		return '.'
	}
}

func pieceFromLetter(b byte) (Piece, error) {
	switch b {
	case 'P':
		return WP, nil
	case 'N':
		return WN, nil
	case 'B':
		return WB, nil
	case 'R':
		return WR, nil
	case 'Q':
		return WQ, nil
	case 'K':
		return WK, nil
	case 'p':
		return BP, nil
	case 'n':
		return BN, nil
	case 'b':
		return BB, nil
	case 'r':
		return BR, nil
	case 'q':
		return BQ, nil
	case 'k':
		return BK, nil
	default:
		return Empty, fmt.Errorf("unrecognized fen piece letter %q", b)
	}
}

// pieceOfColor returns the colored piece for an uncolored kind letter
// ('n','b','r','q') used in promotion suffixes.
func pieceOfColor(kind byte, c Color) (Piece, error) {
	var white, black Piece
	switch kind {
	case 'n':
		white, black = WN, BN
	case 'b':
		white, black = WB, BB
	case 'r':
		white, black = WR, BR
	case 'q':
		white, black = WQ, BQ
	default:
		return Empty, fmt.Errorf("invalid promotion piece %q", kind)
	}
	if c == White {
		return white, nil
	}
	return black, nil
}

// Square is a board index 0..63; a1=0, b1=1, ..., h1=7, a2=8, ..., h8=63
// (little-endian rank-file mapping).
type Square int8

// NoSquare marks an absent square (e.g. no en passant target).
const NoSquare Square = -1

func squareOf(file, rank int) Square { return Square(rank*8 + file) }

func (s Square) file() int { return int(s) % 8 }
func (s Square) rank() int { return int(s) / 8 }

// String renders algebraic coordinates, e.g. "e4".
func (s Square) String() string {
	if s < 0 || s > 63 {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+s.file(), '1'+s.rank())
}

// parseSquare parses algebraic coordinates like "e4".
func parseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return squareOf(file, rank), nil
}

// Board is a flat 64-square mailbox.
type Board [64]Piece

func (b *Board) clone() Board {
	return *b
}

func initialBoard() Board {
	var b Board
	back := [8]Piece{WR, WN, WB, WQ, WK, WB, WN, WR}
	for f := 0; f < 8; f++ {
		b[squareOf(f, 0)] = back[f]
		b[squareOf(f, 1)] = WP
		b[squareOf(f, 6)] = BP
		b[squareOf(f, 7)] = back[f] + (BP - WP)
	}
	return b
}
