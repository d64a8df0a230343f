// Package mcts implements a PUCT-guided Monte Carlo Tree Search for Connect
// Four. Nodes live inside a fixed-capacity open-addressed arena keyed by a
// content-addressed identifier derived from the move sequence, which lets the
// whole tree be relocated and relinked after a move is committed.
package mcts

import (
	"github.com/chewxy/math32"

	"github.com/brensch/c4uct/game"
)

// Predictor produces a policy prior and value estimate for an encoded
// position. The policy need not be normalized; callers renormalize over legal
// moves. The value is in [-1, 1] from the evaluated side-to-move's
// perspective.
type Predictor interface {
	Predict(features []float32) (policy []float32, value float32, err error)
}

// terminalWinValue is returned by value() for terminal children with a
// non-zero score so a winning reply is always selected. Arbitrarily large,
// impossible as a real PUCT value.
const terminalWinValue = 999

// pow7 holds 7^0..7^21 for identifier arithmetic.
var pow7 [22]uint64

func init() {
	pow7[0] = 1
	for i := 1; i < len(pow7); i++ {
		pow7[i] = pow7[i-1] * 7
	}
}

// childID returns the identifier of the child reached by playing move in
// column col from a node with identifier id at the given parent depth.
//
// The identifier pair is a base-7 numeral of the move sequence: the move
// creating a node of depth d contributes 7^d*col, with depths below 21
// accumulating into id[0] and the rest into id[1].
func childID(id [2]uint64, parentDepth int32, col int) [2]uint64 {
	d := parentDepth + 1
	if d < 21 {
		id[0] += pow7[d] * uint64(col)
	} else {
		id[1] += pow7[d-21] * uint64(col)
	}
	return id
}

// Node is a search tree node. Nodes are owned by the arena; parent and
// children are non-owning pointers into its backing array, rebuilt by
// RefreshChildren after every arena rebuild.
type Node struct {
	id    [2]uint64
	depth int32

	move          int8
	terminal      bool
	active        bool
	terminalScore float32

	P float32
	N uint64
	W float32

	parent   *Node
	children [game.Cols]*Node
}

// ID returns the node's content-addressed identifier.
func (n *Node) ID() [2]uint64 { return n.id }

// Depth returns the number of moves from the arena's original root (depth 0,
// created for the engine's starting position) to this node.
func (n *Node) Depth() int32 { return n.depth }

// Move returns the column played to reach this node from its parent.
func (n *Node) Move() int { return int(n.move) }

// Visits returns the visit count.
func (n *Node) Visits() uint64 { return n.N }

// Prior returns the (renormalized) policy prior for the move into this node.
func (n *Node) Prior() float32 { return n.P }

// ValueSum returns the cumulative backpropagated value.
func (n *Node) ValueSum() float32 { return n.W }

// Terminal reports whether the node's position has ended, and the score for
// the side that just moved into it.
func (n *Node) Terminal() (bool, float32) { return n.terminal, n.terminalScore }

// Active reports whether the node occupies a live arena slot.
func (n *Node) Active() bool { return n.active }

// Parent returns the parent node, nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Child returns the child for column col, nil if absent.
func (n *Node) Child(col int) *Node { return n.children[col] }

// Q is the mean action value, -1 (first-play urgency) with no visits.
func (n *Node) Q() float32 {
	if n.N == 0 {
		return -1
	}
	return n.W / float32(n.N)
}

// value scores this node for greedy selection at its parent:
//
//	(log((parentN + 19653) / 19652) + cPuct) * P * sqrt(parentN) / (1 + N) + Q
//
// The log term is the AlphaZero exploration schedule; the constants are load
// bearing. Terminal wins short-circuit to a sentinel so a winning reply is
// always taken; a drawn terminal is not boosted.
func (n *Node) value(cPuct float32) float32 {
	if n.terminal && n.terminalScore != 0 {
		return terminalWinValue
	}
	parentN := float32(n.parent.N)
	u := (math32.Log((parentN+19653)/19652) + cPuct) * n.P * math32.Sqrt(parentN) / (1 + float32(n.N))
	return n.Q() + u
}

// Expand creates one child per legal move of state, with priors renormalized
// over the legal columns. Each candidate move is probed on state (play, check
// terminal, undo) so terminal children carry their score at creation.
func (n *Node) Expand(state *game.State, priors []float32, arena *Arena) {
	legal := state.LegalMoves()
	legalSum := float32(0)
	for col := 0; col < game.Cols; col++ {
		if legal[col] {
			legalSum += priors[col]
		}
	}
	for col := 0; col < game.Cols; col++ {
		if !legal[col] {
			continue
		}
		state.Play(col)
		res := state.GameOver()
		n.children[col] = arena.CreateChild(n, col, priors[col]/legalSum, res > game.Ongoing, float32(res))
		state.Undo()
	}
}

// Backprop adds value to this node and propagates the negation up the parent
// chain, incrementing visit counts along the way.
func (n *Node) Backprop(value float32) {
	n.N++
	n.W += value
	if n.parent != nil {
		n.parent.Backprop(-value)
	}
}

// ToLeaf descends from this node by greedy PUCT selection, applying each
// chosen move to position, and returns the first node without children.
func (n *Node) ToLeaf(cPuct float32, position *game.State) *Node {
	bestCol := -1
	bestValue := float32(-terminalWinValue)
	for col := 0; col < game.Cols; col++ {
		child := n.children[col]
		if child == nil {
			continue
		}
		if v := child.value(cPuct); v > bestValue {
			bestValue = v
			bestCol = col
		}
	}
	if bestCol == -1 {
		return n
	}
	position.Play(bestCol)
	return n.children[bestCol].ToLeaf(cPuct, position)
}

// SetInactive releases this node's arena slot and cascades through every
// existing child.
func (n *Node) SetInactive() {
	n.active = false
	for _, child := range n.children {
		if child == nil {
			continue
		}
		child.SetInactive()
	}
}

// RefreshChildren recomputes this subtree's parent and child pointers from
// identifiers. Invoked top-down on the surviving root after an arena rebuild
// relocates every node.
func (n *Node) RefreshChildren(arena *Arena) {
	for col := 0; col < game.Cols; col++ {
		n.children[col] = arena.Lookup(childID(n.id, n.depth, col), n.depth+1)
	}
	for _, child := range n.children {
		if child == nil {
			continue
		}
		child.parent = n
		child.RefreshChildren(arena)
	}
}

// WritePV appends the most-visited line from this node to pv. Children with
// zero visits are ignored; ties go to the lowest column.
func (n *Node) WritePV(pv []int) []int {
	var bestN uint64
	var best *Node
	for _, child := range n.children {
		if child == nil {
			continue
		}
		if child.N > bestN {
			bestN = child.N
			best = child
		}
	}
	if best == nil {
		return pv
	}
	return best.WritePV(append(pv, int(best.move)))
}
