package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// FEN renders the board, side to move, castling rights, and en passant
// target in Forsyth-Edwards notation. The halfmove clock is always
// rendered as 0: this server has no fifty-move-rule feature (draws are
// detected only via no-legal-moves stalemate), so nothing ever needs an
// accurate clock, and the literal acceptance scenario in spec.md §8
// pins the field to "0" regardless of move history.
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.Board[squareOf(file, rank)]
			if pc.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(pc.letter())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	side := "w"
	if p.SideToMove == Black {
		side = "b"
	}

	castle := ""
	if p.CastleWK {
		castle += "K"
	}
	if p.CastleWQ {
		castle += "Q"
	}
	if p.CastleBK {
		castle += "k"
	}
	if p.CastleBQ {
		castle += "q"
	}
	if castle == "" {
		castle = "-"
	}

	ep := p.EnPassant.String()

	return fmt.Sprintf("%s %s %s %s 0 %d", sb.String(), side, castle, ep, p.Fullmove)
}

// ParseFEN parses Forsyth-Edwards notation into a Position. The returned
// position has empty History -- FEN carries no move history, only the
// resulting position.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return nil, fmt.Errorf("malformed fen %q: expected 6 fields, found %d", fen, len(fields))
	}

	var board Board
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("malformed fen %q: expected 8 ranks, found %d", fen, len(ranks))
	}
	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for _, c := range rankStr {
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			if file >= 8 {
				return nil, fmt.Errorf("malformed fen %q: rank %d overflows", fen, rank+1)
			}
			pc, err := pieceFromLetter(byte(c))
			if err != nil {
				return nil, fmt.Errorf("malformed fen %q: %w", fen, err)
			}
			board[squareOf(file, rank)] = pc
			file++
		}
	}

	p := &Position{Board: board}

	switch fields[1] {
	case "w":
		p.SideToMove = White
	case "b":
		p.SideToMove = Black
	default:
		return nil, fmt.Errorf("malformed fen %q: bad side to move %q", fen, fields[1])
	}

	p.CastleWK = strings.Contains(fields[2], "K")
	p.CastleWQ = strings.Contains(fields[2], "Q")
	p.CastleBK = strings.Contains(fields[2], "k")
	p.CastleBQ = strings.Contains(fields[2], "q")

	if fields[3] == "-" {
		p.EnPassant = NoSquare
	} else {
		sq, err := parseSquare(fields[3])
		if err != nil {
			return nil, fmt.Errorf("malformed fen %q: %w", fen, err)
		}
		p.EnPassant = sq
	}

	fullmove, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, fmt.Errorf("malformed fen %q: bad fullmove number %q", fen, fields[5])
	}
	p.Fullmove = fullmove

	return p, nil
}

// Serialize renders "<FEN>,[<move1>,<move2>,...]", matching the wire
// state format the game engine publishes (spec.md §8 scenario 5).
func (p *Position) Serialize() string {
	moves := make([]string, len(p.History))
	for i, m := range p.History {
		moves[i] = m.String()
	}
	return p.FEN() + ",[" + strings.Join(moves, ",") + "]"
}

// Deserialize parses the "<FEN>,[<move1>,...]" format produced by
// Serialize. The move list is informational (used for client-facing move
// history); the FEN alone fully determines the position.
func Deserialize(blob string) (*Position, error) {
	idx := strings.Index(blob, ",[")
	if idx < 0 || !strings.HasSuffix(blob, "]") {
		return nil, fmt.Errorf("malformed game state %q", blob)
	}
	fen := blob[:idx]
	movesPart := blob[idx+2 : len(blob)-1]

	pos, err := ParseFEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parsing game state: %w", err)
	}
	if movesPart != "" {
		for _, ms := range strings.Split(movesPart, ",") {
			m, err := ParseMove(ms)
			if err != nil {
				return nil, fmt.Errorf("parsing game state move %q: %w", ms, err)
			}
			pos.History = append(pos.History, m)
		}
	}
	return pos, nil
}
