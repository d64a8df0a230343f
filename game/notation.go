package game

import "strings"

// ParsePosition builds a State from its textual form.
//
// The string is read top row (row 5) first, left to right: digits skip that
// many empty cells, 'x'/'o' (either case) place a token, and '/' separates
// rows and is only legal at column 0. Any structural error, including content
// past cell 42, resets the board to empty. The parsed move count becomes the
// start count, so Undo cannot rewind below the set position.
func ParsePosition(posstr string) State {
	var s State
	gridN := 0
	bad := false
	for _, r := range posstr {
		if gridN >= Cells {
			bad = true
			break
		}
		c := r
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		switch {
		case c >= '0' && c <= '9':
			gridN += int(c - '0')
		case c == 'x' || c == 'o':
			col := gridN % Cols
			row := 5 - gridN/Cols
			if c == 'x' {
				s.x |= 1 << (row*Cols + col)
			} else {
				s.o |= 1 << (row*Cols + col)
			}
			gridN++
			s.moveN++
		default:
			// Row separator; anything else in row-separator position is
			// equally structural.
			if gridN%Cols != 0 {
				bad = true
			}
		}
		if bad {
			break
		}
	}
	if bad {
		s = State{}
	}
	s.startN = s.moveN
	return s
}

// Position renders the board in the textual position format accepted by
// ParsePosition.
func (s *State) Position() string {
	var sb strings.Builder
	for row := Rows - 1; row >= 0; row-- {
		skip := 0
		for col := 0; col < Cols; col++ {
			cell := uint64(1) << (row*Cols + col)
			var tok byte
			switch {
			case s.x&cell != 0:
				tok = 'x'
			case s.o&cell != 0:
				tok = 'o'
			default:
				skip++
				continue
			}
			if skip > 0 {
				sb.WriteByte(byte('0' + skip))
				skip = 0
			}
			sb.WriteByte(tok)
		}
		if skip > 0 {
			sb.WriteByte(byte('0' + skip))
		}
		if row > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// String renders the board for terminals, top row first.
func (s *State) String() string {
	var sb strings.Builder
	for row := Rows - 1; row >= 0; row-- {
		for col := 0; col < Cols; col++ {
			cell := uint64(1) << (row*Cols + col)
			switch {
			case s.x&cell != 0:
				sb.WriteString("| X ")
			case s.o&cell != 0:
				sb.WriteString("| O ")
			default:
				sb.WriteString("|   ")
			}
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("-----------------------------\n  0   1   2   3   4   5   6")
	return sb.String()
}
