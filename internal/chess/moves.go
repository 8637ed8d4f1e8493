package chess

// Move is a single ply: source and destination square, plus an optional
// promotion piece (Empty when not a promotion).
type Move struct {
	From, To  Square
	Promotion Piece
}

// String renders coordinate notation, e.g. "e2e4" or "e7e8q". No check/mate
// decoration is ever appended -- that belongs to display layers, not to the
// move's canonical form (spec.md's own move-history serialization omits it).
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	switch m.Promotion {
	case WN, BN:
		s += "n"
	case WB, BB:
		s += "b"
	case WR, BR:
		s += "r"
	case WQ, BQ:
		s += "q"
	}
	return s
}

var knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
var kingOffsets = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
var bishopDirs = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var rookDirs = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func onBoard(file, rank int) bool { return file >= 0 && file < 8 && rank >= 0 && rank < 8 }

// pseudoLegalMoves generates all moves for the side to move, ignoring
// whether the mover's own king would be left in check. Filtering that out
// is LegalMoves's job.
func (p *Position) pseudoLegalMoves() []Move {
	var moves []Move
	us := p.SideToMove
	for sq := Square(0); sq < 64; sq++ {
		pc := p.Board[sq]
		if pc.IsEmpty() || pc.Color() != us {
			continue
		}
		switch pc {
		case WP, BP:
			moves = append(moves, p.pawnMoves(sq)...)
		case WN, BN:
			moves = append(moves, p.stepMoves(sq, knightOffsets)...)
		case WB, BB:
			moves = append(moves, p.slideMoves(sq, bishopDirs)...)
		case WR, BR:
			moves = append(moves, p.slideMoves(sq, rookDirs)...)
		case WQ, BQ:
			moves = append(moves, p.slideMoves(sq, bishopDirs)...)
			moves = append(moves, p.slideMoves(sq, rookDirs)...)
		case WK, BK:
			moves = append(moves, p.stepMoves(sq, kingOffsets)...)
			moves = append(moves, p.castlingMoves(sq)...)
		}
	}
	return moves
}

func (p *Position) pawnMoves(sq Square) []Move {
	var moves []Move
	us := p.Board[sq].Color()
	file, rank := sq.file(), sq.rank()
	dir := 1
	startRank, promoteRank := 1, 7
	if us == Black {
		dir = -1
		startRank, promoteRank = 6, 0
	}

	addPawn := func(to Square) {
		if to.rank() == promoteRank {
			for _, k := range []byte{'q', 'r', 'b', 'n'} {
				promo, _ := pieceOfColor(k, us)
				moves = append(moves, Move{From: sq, To: to, Promotion: promo})
			}
		} else {
			moves = append(moves, Move{From: sq, To: to})
		}
	}

	// Single push.
	if onBoard(file, rank+dir) && p.Board[squareOf(file, rank+dir)].IsEmpty() {
		addPawn(squareOf(file, rank+dir))
		// Double push from start rank.
		if rank == startRank && p.Board[squareOf(file, rank+2*dir)].IsEmpty() {
			moves = append(moves, Move{From: sq, To: squareOf(file, rank+2*dir)})
		}
	}
	// Captures (including en passant).
	for _, df := range []int{-1, 1} {
		nf, nr := file+df, rank+dir
		if !onBoard(nf, nr) {
			continue
		}
		to := squareOf(nf, nr)
		if !p.Board[to].IsEmpty() && p.Board[to].Color() != us {
			addPawn(to)
		} else if to == p.EnPassant {
			moves = append(moves, Move{From: sq, To: to})
		}
	}
	return moves
}

func (p *Position) stepMoves(sq Square, offsets [8][2]int) []Move {
	var moves []Move
	us := p.Board[sq].Color()
	file, rank := sq.file(), sq.rank()
	for _, o := range offsets {
		nf, nr := file+o[0], rank+o[1]
		if !onBoard(nf, nr) {
			continue
		}
		to := squareOf(nf, nr)
		if p.Board[to].IsEmpty() || p.Board[to].Color() != us {
			moves = append(moves, Move{From: sq, To: to})
		}
	}
	return moves
}

func (p *Position) slideMoves(sq Square, dirs [4][2]int) []Move {
	var moves []Move
	us := p.Board[sq].Color()
	file, rank := sq.file(), sq.rank()
	for _, d := range dirs {
		nf, nr := file+d[0], rank+d[1]
		for onBoard(nf, nr) {
			to := squareOf(nf, nr)
			if p.Board[to].IsEmpty() {
				moves = append(moves, Move{From: sq, To: to})
			} else {
				if p.Board[to].Color() != us {
					moves = append(moves, Move{From: sq, To: to})
				}
				break
			}
			nf += d[0]
			nr += d[1]
		}
	}
	return moves
}

func (p *Position) castlingMoves(kingSq Square) []Move {
	var moves []Move
	us := p.Board[kingSq].Color()
	them := us.Other()
	rank := 0
	if us == Black {
		rank = 7
	}
	if kingSq != squareOf(4, rank) {
		return nil
	}
	if p.inCheck(us) {
		return nil
	}

	canKingside := (us == White && p.CastleWK) || (us == Black && p.CastleBK)
	if canKingside &&
		p.Board[squareOf(5, rank)].IsEmpty() && p.Board[squareOf(6, rank)].IsEmpty() &&
		!p.isAttacked(squareOf(5, rank), them) && !p.isAttacked(squareOf(6, rank), them) {
		moves = append(moves, Move{From: kingSq, To: squareOf(6, rank)})
	}

	canQueenside := (us == White && p.CastleWQ) || (us == Black && p.CastleBQ)
	if canQueenside &&
		p.Board[squareOf(3, rank)].IsEmpty() && p.Board[squareOf(2, rank)].IsEmpty() && p.Board[squareOf(1, rank)].IsEmpty() &&
		!p.isAttacked(squareOf(3, rank), them) && !p.isAttacked(squareOf(2, rank), them) {
		moves = append(moves, Move{From: kingSq, To: squareOf(2, rank)})
	}
	return moves
}

// isAttacked reports whether sq is attacked by any piece of color by.
func (p *Position) isAttacked(sq Square, by Color) bool {
	file, rank := sq.file(), sq.rank()

	// Pawn attacks: a by-colored pawn attacks sq if it sits one diagonal
	// step "behind" sq from by's perspective.
	pawnDir := -1
	if by == Black {
		pawnDir = 1
	}
	for _, df := range []int{-1, 1} {
		nf, nr := file+df, rank+pawnDir
		if onBoard(nf, nr) {
			pc := p.Board[squareOf(nf, nr)]
			if (by == White && pc == WP) || (by == Black && pc == BP) {
				return true
			}
		}
	}

	for _, o := range knightOffsets {
		nf, nr := file+o[0], rank+o[1]
		if onBoard(nf, nr) {
			pc := p.Board[squareOf(nf, nr)]
			if (by == White && pc == WN) || (by == Black && pc == BN) {
				return true
			}
		}
	}

	for _, o := range kingOffsets {
		nf, nr := file+o[0], rank+o[1]
		if onBoard(nf, nr) {
			pc := p.Board[squareOf(nf, nr)]
			if (by == White && pc == WK) || (by == Black && pc == BK) {
				return true
			}
		}
	}

	for _, d := range bishopDirs {
		nf, nr := file+d[0], rank+d[1]
		for onBoard(nf, nr) {
			pc := p.Board[squareOf(nf, nr)]
			if !pc.IsEmpty() {
				if pc.Color() == by && (pc == WB || pc == BB || pc == WQ || pc == BQ) {
					return true
				}
				break
			}
			nf += d[0]
			nr += d[1]
		}
	}

	for _, d := range rookDirs {
		nf, nr := file+d[0], rank+d[1]
		for onBoard(nf, nr) {
			pc := p.Board[squareOf(nf, nr)]
			if !pc.IsEmpty() {
				if pc.Color() == by && (pc == WR || pc == BR || pc == WQ || pc == BQ) {
					return true
				}
				break
			}
			nf += d[0]
			nr += d[1]
		}
	}

	return false
}

func (p *Position) kingSquare(c Color) Square {
	want := WK
	if c == Black {
		want = BK
	}
	for sq := Square(0); sq < 64; sq++ {
		if p.Board[sq] == want {
			return sq
		}
	}
	return NoSquare
}

func (p *Position) inCheck(c Color) bool {
	ks := p.kingSquare(c)
	if ks == NoSquare {
		return false
	}
	return p.isAttacked(ks, c.Other())
}

// LegalMoves returns every move available to the side to move that does not
// leave that side's own king in check.
func (p *Position) LegalMoves() []Move {
	us := p.SideToMove
	var legal []Move
	for _, m := range p.pseudoLegalMoves() {
		next := p.applyUnchecked(m)
		if !next.inCheck(us) {
			legal = append(legal, m)
		}
	}
	return legal
}

// applyUnchecked executes m against a cloned position without verifying
// legality; callers (LegalMoves, ApplyMove) are responsible for legality
// checks.
func (p *Position) applyUnchecked(m Move) *Position {
	next := &Position{
		Board:      p.Board.clone(),
		SideToMove: p.SideToMove.Other(),
		CastleWK:   p.CastleWK,
		CastleWQ:   p.CastleWQ,
		CastleBK:   p.CastleBK,
		CastleBQ:   p.CastleBQ,
		EnPassant:  NoSquare,
		Halfmove:   p.Halfmove + 1,
		Fullmove:   p.Fullmove,
	}
	if p.SideToMove == Black {
		next.Fullmove++
	}

	mover := p.Board[m.From]
	captured := p.Board[m.To]

	if mover == WP || mover == BP || !captured.IsEmpty() {
		next.Halfmove = 0
	}

	next.Board[m.From] = Empty
	placed := mover
	if m.Promotion != Empty {
		placed = m.Promotion
	}
	next.Board[m.To] = placed

	// En passant capture: pawn moved diagonally into an empty square that
	// was the en passant target.
	if (mover == WP || mover == BP) && m.To == p.EnPassant && m.From.file() != m.To.file() {
		capturedSq := squareOf(m.To.file(), m.From.rank())
		next.Board[capturedSq] = Empty
	}

	// Double push sets a fresh en passant target.
	if mover == WP && m.From.rank() == 1 && m.To.rank() == 3 {
		next.EnPassant = squareOf(m.From.file(), 2)
	} else if mover == BP && m.From.rank() == 6 && m.To.rank() == 4 {
		next.EnPassant = squareOf(m.From.file(), 5)
	}

	// Castling: move the rook too.
	if mover == WK && m.From == squareOf(4, 0) {
		if m.To == squareOf(6, 0) {
			next.Board[squareOf(5, 0)] = WR
			next.Board[squareOf(7, 0)] = Empty
		} else if m.To == squareOf(2, 0) {
			next.Board[squareOf(3, 0)] = WR
			next.Board[squareOf(0, 0)] = Empty
		}
	}
	if mover == BK && m.From == squareOf(4, 7) {
		if m.To == squareOf(6, 7) {
			next.Board[squareOf(5, 7)] = BR
			next.Board[squareOf(7, 7)] = Empty
		} else if m.To == squareOf(2, 7) {
			next.Board[squareOf(3, 7)] = BR
			next.Board[squareOf(0, 7)] = Empty
		}
	}

	// Castling rights: moving the king or a rook, or a rook being
	// captured, revokes the corresponding right.
	switch m.From {
	case squareOf(4, 0):
		next.CastleWK, next.CastleWQ = false, false
	case squareOf(4, 7):
		next.CastleBK, next.CastleBQ = false, false
	case squareOf(0, 0):
		next.CastleWQ = false
	case squareOf(7, 0):
		next.CastleWK = false
	case squareOf(0, 7):
		next.CastleBQ = false
	case squareOf(7, 7):
		next.CastleBK = false
	}
	switch m.To {
	case squareOf(0, 0):
		next.CastleWQ = false
	case squareOf(7, 0):
		next.CastleWK = false
	case squareOf(0, 7):
		next.CastleBQ = false
	case squareOf(7, 7):
		next.CastleBK = false
	}

	return next
}
