package selfplay

import (
	"fmt"
	"os"

	"github.com/muesli/termenv"

	"github.com/brensch/c4uct/game"
)

// PrintBoard renders the board to stdout with colored tokens when the
// terminal supports it.
func PrintBoard(board *game.State) {
	out := termenv.NewOutput(os.Stdout)
	x := out.String("X").Foreground(out.Color("1")).Bold()
	o := out.String("O").Foreground(out.Color("3")).Bold()

	xMask, oMask := board.Masks()
	for row := game.Rows - 1; row >= 0; row-- {
		for col := 0; col < game.Cols; col++ {
			cell := uint64(1) << (row*game.Cols + col)
			switch {
			case xMask&cell != 0:
				fmt.Printf("| %s ", x)
			case oMask&cell != 0:
				fmt.Printf("| %s ", o)
			default:
				fmt.Print("|   ")
			}
		}
		fmt.Println("|")
	}
	fmt.Println("-----------------------------")
	fmt.Println("  0   1   2   3   4   5   6")
}
