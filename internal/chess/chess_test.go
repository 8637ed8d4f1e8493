package chess

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitialPositionFEN(t *testing.T) {
	p := NewPosition()
	require.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", p.FEN())
}

func TestInitialPositionHas20LegalMoves(t *testing.T) {
	p := NewPosition()
	require.Len(t, p.LegalMoves(), 20)
}

func TestFoolsMateVariant(t *testing.T) {
	p := NewPosition()
	moves := []string{"e2e4", "f7f6", "a2a3", "g7g5", "d1h5"}

	var err error
	for _, ms := range moves {
		m, perr := ParseMove(ms)
		require.NoError(t, perr)
		p, err = p.ApplyMove(m)
		require.NoError(t, err)
	}

	require.True(t, p.IsCheckmate())
	require.Equal(t,
		"rnbqkbnr/ppppp2p/5p2/6pQ/4P3/P7/1PPP1PPP/RNB1KBNR b KQkq - 0 3,[e2e4,f7f6,a2a3,g7g5,d1h5]",
		p.Serialize(),
	)
}

func TestParseMoveStripsCheckAndMateDecoration(t *testing.T) {
	m1, err := ParseMove("d1h5#")
	require.NoError(t, err)
	m2, err := ParseMove("d1h5")
	require.NoError(t, err)
	require.Equal(t, m1, m2)
}

func TestPromotion(t *testing.T) {
	p, err := ParseFEN("8/P6k/8/8/8/8/7K/8 w - - 0 1")
	require.NoError(t, err)

	m, err := ParseMove("a7a8q")
	require.NoError(t, err)
	next, err := p.ApplyMove(m)
	require.NoError(t, err)
	require.Equal(t, WQ, next.Board[squareOf(0, 7)])
}

func TestDeserializeRoundTrip(t *testing.T) {
	p := NewPosition()
	m, err := ParseMove("e2e4")
	require.NoError(t, err)
	next, err := p.ApplyMove(m)
	require.NoError(t, err)

	blob := next.Serialize()
	parsed, err := Deserialize(blob)
	require.NoError(t, err)
	require.Equal(t, next.FEN(), parsed.FEN())
	require.Equal(t, blob, parsed.Serialize())
}

func TestStalemateIsNotCheckmate(t *testing.T) {
	// Classic stalemate: black king a8, white king c7, white queen b6;
	// black to move has no legal moves and is not in check.
	p, err := ParseFEN("k7/2K5/1Q6/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)
	require.True(t, p.IsStalemate())
	require.False(t, p.IsCheckmate())
}
