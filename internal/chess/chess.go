package chess

import (
	"fmt"
	"strings"
)

// Position is a full chess position plus the move history since the game's
// start, which is what gets serialized alongside the FEN (spec.md §8's
// literal scenario 5 expects exactly this shape).
type Position struct {
	Board      Board
	SideToMove Color
	CastleWK   bool
	CastleWQ   bool
	CastleBK   bool
	CastleBQ   bool
	EnPassant  Square
	Halfmove   int
	Fullmove   int
	History    []Move
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	return &Position{
		Board:      initialBoard(),
		SideToMove: White,
		CastleWK:   true,
		CastleWQ:   true,
		CastleBK:   true,
		CastleBQ:   true,
		EnPassant:  NoSquare,
		Halfmove:   0,
		Fullmove:   1,
	}
}

// ParseMove parses coordinate notation such as "e2e4" or "e7e8q". Trailing
// check/mate decoration ('+' or '#') is accepted and ignored, since it is
// display annotation, not part of the move itself.
func ParseMove(s string) (Move, error) {
	s = strings.TrimRight(s, "+#")
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("malformed move %q", s)
	}
	from, err := parseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("malformed move %q: %w", s, err)
	}
	to, err := parseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("malformed move %q: %w", s, err)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		// Promotion color is resolved against the mover once ApplyMove
		// knows the position; here we just record the uncolored kind and
		// let ApplyMove recolor it.
		m.Promotion = uncoloredPromotionMarker(s[4])
		if m.Promotion == Empty {
			return Move{}, fmt.Errorf("invalid promotion piece %q in move %q", s[4], s)
		}
	}
	return m, nil
}

// uncoloredPromotionMarker stores promotion kind using the white piece
// constants as a color-agnostic marker; ApplyMove recolors it to the mover.
func uncoloredPromotionMarker(b byte) Piece {
	switch b {
	case 'n':
		return WN
	case 'b':
		return WB
	case 'r':
		return WR
	case 'q':
		return WQ
	default:
		return Empty
	}
}

// ApplyMove validates that m is legal in the current position and, if so,
// returns the resulting position. The receiver is not mutated.
func (p *Position) ApplyMove(m Move) (*Position, error) {
	mover := p.Board[m.From]
	if mover.IsEmpty() || mover.Color() != p.SideToMove {
		return nil, fmt.Errorf("no %s piece on %s", p.SideToMove, m.From)
	}

	// Recolor a bare promotion marker (parsed without knowing the mover's
	// color) to match the side actually moving.
	if m.Promotion != Empty {
		kind := byte(0)
		switch m.Promotion {
		case WN, BN:
			kind = 'n'
		case WB, BB:
			kind = 'b'
		case WR, BR:
			kind = 'r'
		case WQ, BQ:
			kind = 'q'
		}
		recolored, err := pieceOfColor(kind, p.SideToMove)
		if err != nil {
			return nil, err
		}
		m.Promotion = recolored
	}

	for _, legal := range p.LegalMoves() {
		if legal.From == m.From && legal.To == m.To && legal.Promotion == m.Promotion {
			next := p.applyUnchecked(legal)
			next.History = append(append([]Move{}, p.History...), legal)
			return next, nil
		}
	}
	return nil, fmt.Errorf("%s is not a legal move", m)
}

// IsCheckmate reports whether the side to move has no legal moves and is
// in check.
func (p *Position) IsCheckmate() bool {
	return p.inCheck(p.SideToMove) && len(p.LegalMoves()) == 0
}

// IsStalemate reports whether the side to move has no legal moves and is
// not in check.
func (p *Position) IsStalemate() bool {
	return !p.inCheck(p.SideToMove) && len(p.LegalMoves()) == 0
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.inCheck(p.SideToMove)
}
