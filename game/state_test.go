package game

import (
	"math/bits"
	"testing"
)

// playAll is a test helper applying a move sequence to a fresh board.
func playAll(t *testing.T, cols ...int) State {
	t.Helper()
	var s State
	for i, c := range cols {
		if !s.LegalMoves()[c] {
			t.Fatalf("move %d: column %d illegal", i, c)
		}
		s.Play(c)
	}
	return s
}

func TestHorizontalWin(t *testing.T) {
	s := playAll(t, 0, 0, 1, 1, 2, 2, 3)
	if got := s.GameOver(); got != Won {
		t.Fatalf("GameOver()=%d want %d (X holds row 0 cols 0-3)", got, Won)
	}
}

func TestVerticalWin(t *testing.T) {
	s := playAll(t, 3, 0, 3, 0, 3, 0, 3)
	if got := s.GameOver(); got != Won {
		t.Fatalf("GameOver()=%d want %d (X holds col 3 rows 0-3)", got, Won)
	}
}

func TestRisingDiagonalWin(t *testing.T) {
	s := playAll(t, 0, 1, 1, 2, 2, 3, 2, 3, 3, 5, 3)
	if got := s.GameOver(); got != Won {
		t.Fatalf("GameOver()=%d want %d (X holds the / diagonal from (0,0))", got, Won)
	}
}

func TestFallingDiagonalWin(t *testing.T) {
	s := playAll(t, 6, 5, 5, 4, 4, 3, 4, 3, 3, 1, 3)
	if got := s.GameOver(); got != Won {
		t.Fatalf("GameOver()=%d want %d (X holds the \\ diagonal from (0,6))", got, Won)
	}
}

func TestDraw(t *testing.T) {
	seq := []int{
		0, 1, 0, 1, 0, 1, 1, 0, 1, 0, 1, 0,
		2, 3, 2, 3, 2, 3, 3, 2, 3, 2, 3, 2,
		4, 5, 4, 5, 4, 5, 5, 4, 5, 4, 5, 4,
		6, 6, 6, 6, 6, 6,
	}
	var s State
	for i, c := range seq {
		if got := s.GameOver(); got != Ongoing {
			t.Fatalf("game ended early at move %d: %d", i, got)
		}
		s.Play(c)
	}
	if s.MoveCount() != Cells {
		t.Fatalf("MoveCount()=%d want %d", s.MoveCount(), Cells)
	}
	if got := s.GameOver(); got != Drawn {
		t.Fatalf("GameOver()=%d want %d", got, Drawn)
	}
}

func TestNoEarlyWin(t *testing.T) {
	s := playAll(t, 0, 0, 1, 1, 2, 2)
	if got := s.GameOver(); got != Ongoing {
		t.Fatalf("GameOver()=%d want %d (three in a row is not a win)", got, Ongoing)
	}
}

func TestMaskInvariants(t *testing.T) {
	seq := []int{3, 3, 2, 4, 4, 2, 5, 1, 0, 6, 3, 3}
	var s State
	for i, c := range seq {
		s.Play(c)
		x, o := s.Masks()
		if x&o != 0 {
			t.Fatalf("move %d: masks overlap: %x & %x", i, x, o)
		}
		if (x|o)>>Cells != 0 {
			t.Fatalf("move %d: bits above cell 41 set", i)
		}
		if got := bits.OnesCount64(x) + bits.OnesCount64(o); got != s.MoveCount() {
			t.Fatalf("move %d: popcount=%d moveCount=%d", i, got, s.MoveCount())
		}
	}
}

func TestPlayUndoRoundTrip(t *testing.T) {
	seq := []int{3, 3, 2, 4, 4, 2, 5, 1, 0, 6}
	var s State
	for i, c := range seq {
		before := s
		s.Play(c)
		s.Undo()
		if s != before {
			t.Fatalf("move %d: play+undo did not restore state bit-for-bit", i)
		}
		s.Play(c)
	}
}

func TestUndoBelowStartIsNoop(t *testing.T) {
	s := ParsePosition("7/7/7/7/7/xo5")
	if s.MoveCount() != 2 {
		t.Fatalf("MoveCount()=%d want 2", s.MoveCount())
	}
	before := s
	s.Undo()
	if s != before {
		t.Fatal("undo below start count mutated the state")
	}
	s.Play(3)
	s.Undo()
	if s != before {
		t.Fatal("play+undo above start count did not restore the state")
	}
}

func TestLegalMoves(t *testing.T) {
	var s State
	for c, ok := range s.LegalMoves() {
		if !ok {
			t.Fatalf("column %d illegal on the empty board", c)
		}
	}
	// Fill column 3.
	for i := 0; i < Rows; i++ {
		s.Play(3)
	}
	legal := s.LegalMoves()
	for c := 0; c < Cols; c++ {
		want := c != 3
		if legal[c] != want {
			t.Fatalf("legal[%d]=%v want %v", c, legal[c], want)
		}
	}
	if !s.HasLegalMoves() {
		t.Fatal("HasLegalMoves()=false with open columns")
	}
}

func TestEncode(t *testing.T) {
	var s State
	enc := s.Encoded()
	if len(enc) != EncodedSize {
		t.Fatalf("len=%d want %d", len(enc), EncodedSize)
	}
	// X to move: the turn channel is 1 everywhere, the rest 0.
	for i := 0; i < Cells; i++ {
		if enc[i*3] != 1 || enc[i*3+1] != 0 || enc[i*3+2] != 0 {
			t.Fatalf("cell %d: got (%v,%v,%v) want (1,0,0)", i, enc[i*3], enc[i*3+1], enc[i*3+2])
		}
	}

	s.Play(0) // X at (row 0, col 0)
	enc = s.Encoded()
	base := (0*Rows + 0) * 3
	if enc[base] != 0 {
		t.Fatal("turn channel still set with O to move")
	}
	if enc[base+1] != 1 {
		t.Fatal("X channel not set at the played cell")
	}
	if enc[base+2] != 0 {
		t.Fatal("O channel set at an X cell")
	}

	s.Play(1) // O at (row 0, col 1)
	enc = s.Encoded()
	base = (1*Rows + 0) * 3
	if enc[base+2] != 1 {
		t.Fatal("O channel not set at the played cell")
	}
}
