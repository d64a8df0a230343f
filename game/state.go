// Package game implements the Connect Four board as a pair of bitboards.
//
// Cell (row, col) maps to bit row*7+col with row 0 at the bottom:
//
//	35  36  37  38  39  40  41
//	28  29  30  31  32  33  34
//	21  22  23  24  25  26  27
//	14  15  16  17  18  19  20
//	7   8   9   10  11  12  13
//	0   1   2   3   4   5   6
//
// The representation is designed for O(1) play/undo and a win check anchored
// at the last-placed cell, so MCTS can probe terminal states cheaply.
package game

const (
	// Cols and Rows are the board dimensions.
	Cols = 7
	Rows = 6
	// Cells is the number of playable cells.
	Cells = Cols * Rows
)

// Game outcome codes returned by GameOver.
const (
	Ongoing = -1
	Drawn   = 0
	Won     = 1
)

// State is a Connect Four position.
//
// X always moves on even plies. startN records the ply at which the position
// was externally set; Undo never rewinds below it.
type State struct {
	x uint64
	o uint64

	moveN  int
	startN int

	history [Cells]int8
}

// MoveCount returns the number of tokens on the board.
func (s *State) MoveCount() int { return s.moveN }

// StartCount returns the ply at which the position was set.
func (s *State) StartCount() int { return s.startN }

// XToMove reports whether X is the side to move.
func (s *State) XToMove() bool { return s.moveN%2 == 0 }

// Masks returns the raw X and O bitboards.
func (s *State) Masks() (x, o uint64) { return s.x, s.o }

// LegalMoves reports which columns still have an empty top cell.
func (s *State) LegalMoves() [Cols]bool {
	var legal [Cols]bool
	occupied := s.x | s.o
	for c := 0; c < Cols; c++ {
		legal[c] = occupied&(1<<(35+c)) == 0
	}
	return legal
}

// HasLegalMoves reports whether any column is playable.
func (s *State) HasLegalMoves() bool {
	return (s.x|s.o)&(0x7F<<35) != 0x7F<<35
}

// cellFor returns the lowest empty cell index of col, or -1 if the column is
// full. Full columns are only reachable through illegal play.
func (s *State) cellFor(col int) int {
	occupied := s.x | s.o
	for row := 0; row < Rows; row++ {
		cell := row*Cols + col
		if occupied&(1<<cell) == 0 {
			return cell
		}
	}
	return -1
}

// Play drops the side-to-move's token into col.
//
// col must be legal; the hot path does not check.
func (s *State) Play(col int) {
	cell := s.cellFor(col)
	if s.moveN%2 == 0 {
		s.x |= 1 << cell
	} else {
		s.o |= 1 << cell
	}
	s.history[s.moveN] = int8(cell)
	s.moveN++
}

// Undo reverts the most recent move. Rewinding below the externally-set
// starting position is a no-op.
func (s *State) Undo() {
	if s.moveN == s.startN {
		return
	}
	s.moveN--
	cell := s.history[s.moveN]
	if s.moveN%2 == 0 {
		s.x ^= 1 << cell
	} else {
		s.o ^= 1 << cell
	}
	s.history[s.moveN] = 0
}

// CheckWin reports whether the side that just moved has four in a row through
// the last-placed cell. Only a freshly created four is detectable, which is
// sufficient under legal play: a pre-existing four would already have ended
// the game.
func (s *State) CheckWin() bool {
	if s.moveN < 7 {
		return false
	}
	if s.moveN == s.startN {
		// Externally set position, no last-move anchor.
		return false
	}
	pcs := s.o
	if s.moveN%2 == 1 {
		pcs = s.x
	}
	last := int(s.history[s.moveN-1])
	row := last / Cols
	col := last % Cols

	// Vertical.
	run := 0
	for i := 1; last+i*Cols < Cells; i++ {
		if pcs&(1<<(last+i*Cols)) == 0 {
			break
		}
		run++
	}
	for i := 1; last-i*Cols >= 0; i++ {
		if pcs&(1<<(last-i*Cols)) == 0 {
			break
		}
		run++
	}
	if run >= 3 {
		return true
	}

	// Horizontal.
	run = 0
	for i := 1; i <= col; i++ {
		if pcs&(1<<(last-i)) == 0 {
			break
		}
		run++
	}
	for i := 1; i <= 6-col; i++ {
		if pcs&(1<<(last+i)) == 0 {
			break
		}
		run++
	}
	if run >= 3 {
		return true
	}

	// Rising diagonal (/).
	run = 0
	for i := 1; i <= min(5-row, 6-col); i++ {
		if pcs&(1<<(last+i*8)) == 0 {
			break
		}
		run++
	}
	for i := 1; i <= min(row, col); i++ {
		if pcs&(1<<(last-i*8)) == 0 {
			break
		}
		run++
	}
	if run >= 3 {
		return true
	}

	// Falling diagonal (\).
	run = 0
	for i := 1; i <= min(5-row, col); i++ {
		if pcs&(1<<(last+i*6)) == 0 {
			break
		}
		run++
	}
	for i := 1; i <= min(row, 6-col); i++ {
		if pcs&(1<<(last-i*6)) == 0 {
			break
		}
		run++
	}
	return run >= 3
}

// GameOver returns Won if the side that just moved has four in a row, Drawn
// if the board is full without a win, and Ongoing otherwise.
func (s *State) GameOver() int {
	if s.CheckWin() {
		return Won
	}
	if s.moveN == Cells {
		return Drawn
	}
	return Ongoing
}
