package mcts

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/rs/zerolog/log"

	"github.com/brensch/c4uct/game"
)

// nodeSize is used to derive arena capacity from a memory budget.
const nodeSize = uint64(unsafe.Sizeof(Node{}))

// pvLogInterval is how often DoPlayouts re-derives the PV in verbose mode.
const pvLogInterval = 50

// Engine runs playouts from a base position, keeping the search tree inside
// a node arena so the subtree behind a committed move can be retained across
// moves.
//
// The engine is single-threaded: selection, expansion, evaluation and
// backpropagation all happen on the caller's goroutine, and the predictor is
// called synchronously.
type Engine struct {
	arena *Arena
	root  *Node

	base     game.State
	client   Predictor
	cPuct    float32
	playouts uint64
}

// NewEngine creates an engine searching from position with the given playout
// budget. The arena is provisioned at 8*playouts+1 slots, which in practice
// comfortably exceeds the node count a search of that size creates; running
// out is treated as an invariant violation, not a resize trigger.
func NewEngine(position game.State, client Predictor, cPuct float32, playouts uint64) *Engine {
	return newEngine(position, client, cPuct, playouts, playouts*8+1)
}

// NewEngineWithMemory creates an engine whose arena is sized to fit a
// megabyte budget instead of the playout heuristic.
func NewEngineWithMemory(position game.State, client Predictor, cPuct float32, playouts, megabytes uint64) *Engine {
	return newEngine(position, client, cPuct, playouts, megabytes*1024*1024/nodeSize)
}

func newEngine(position game.State, client Predictor, cPuct float32, playouts, capacity uint64) *Engine {
	arena := NewArena(capacity)
	return &Engine{
		arena:    arena,
		root:     arena.CreateRoot(),
		base:     position,
		client:   client,
		cPuct:    cPuct,
		playouts: playouts,
	}
}

// Root returns the current top node.
func (e *Engine) Root() *Node { return e.root }

// ArenaStats returns the arena's active node count and capacity. Diagnostic.
func (e *Engine) ArenaStats() (active, capacity uint64) {
	return e.arena.CountActive(), e.arena.Capacity()
}

// DumpArena logs every arena slot. Diagnostic, debug console only.
func (e *Engine) DumpArena() {
	for i := range e.arena.slots {
		node := &e.arena.slots[i]
		if !node.active {
			log.Info().Int("slot", i).Msg("inactive")
			continue
		}
		log.Info().
			Int("slot", i).
			Uint64("id0", node.id[0]).
			Uint64("id1", node.id[1]).
			Int32("depth", node.depth).
			Float32("p", node.P).
			Msg("active")
	}
}

// DoPlayouts runs select/expand/evaluate/backpropagate iterations until the
// root's visit count reaches the playout budget.
//
// In verbose mode a PV line is emitted every 50 playouts when the PV has
// changed, and a per-child summary at the end.
func (e *Engine) DoPlayouts(verbose bool) error {
	var lastPV []int
	for e.root.N < e.playouts {
		working := e.base
		leaf := e.root.ToLeaf(e.cPuct, &working)

		if leaf.terminal {
			leaf.Backprop(leaf.terminalScore)
			continue
		}

		policy, value, err := e.client.Predict(working.Encoded())
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}

		leaf.Expand(&working, policy, e.arena)
		// The predictor values the evaluated position for its own side to
		// move; the leaf accumulates from the side that moved into it.
		leaf.Backprop(-value)

		if verbose && e.root.N%pvLogInterval == 0 {
			pv := e.GetPV()
			if !slices.Equal(pv, lastPV) {
				lastPV = pv
				log.Info().Uint64("playouts", e.root.N).Ints("pv", pv).Msg("pv changed")
			}
		}
	}

	if verbose {
		for col := 0; col < game.Cols; col++ {
			child := e.root.children[col]
			if child == nil {
				continue
			}
			log.Info().
				Int("move", col).
				Uint64("n", child.N).
				Float32("q", child.Q()).
				Float32("p", child.P).
				Msg("root child")
		}
	}
	return nil
}

// MoveProbs runs any outstanding playouts and returns the visit distribution
// over the root's children. Absent children get 0.
//
// The divisor is playouts-1: the root's own expansion visit never descends
// into a child, so the children's visit counts sum to root.N - 1.
func (e *Engine) MoveProbs() ([game.Cols]float32, error) {
	var probs [game.Cols]float32
	if err := e.DoPlayouts(false); err != nil {
		return probs, err
	}
	for col := 0; col < game.Cols; col++ {
		child := e.root.children[col]
		if child == nil {
			continue
		}
		probs[col] = float32(child.N) / float32(e.playouts-1)
	}
	return probs, nil
}

// GetPV returns the principal variation from the root: the line formed by
// repeatedly taking the most-visited child.
func (e *Engine) GetPV() []int {
	return e.root.WritePV(nil)
}

// RecycleTree commits the move in column col: the chosen child's subtree
// becomes the new tree and everything else is discarded.
//
// Sibling subtrees are cascade-deactivated and the old root released, then
// the arena is rebuilt at its current capacity. The rebuild relocates every
// surviving node, so the new root is re-located by identifier afterwards and
// its parent link cleared.
func (e *Engine) RecycleTree(col int) {
	for c := 0; c < game.Cols; c++ {
		if c == col || e.root.children[c] == nil {
			continue
		}
		e.root.children[c].SetInactive()
	}

	newRootID := childID(e.root.id, e.root.depth, col)
	newRootDepth := e.root.depth + 1

	e.root.active = false
	e.arena.Rebuild(e.arena.Capacity())

	e.base.Play(col)

	e.root = e.arena.Lookup(newRootID, newRootDepth)
	if e.root == nil {
		// The chosen move was never expanded; start a fresh subtree.
		e.root = insert(Node{
			id:     newRootID,
			depth:  newRootDepth,
			move:   int8(col),
			active: true,
		}, e.arena.slots)
		return
	}
	e.root.parent = nil
}

// SetHashSize rebuilds the arena at a new slot count, preserving the tree.
func (e *Engine) SetHashSize(capacity uint64) {
	rootID := e.root.id
	rootDepth := e.root.depth
	e.arena.Rebuild(capacity)
	e.root = e.arena.Lookup(rootID, rootDepth)
}

// SetHashSizeMB rebuilds the arena to fit a megabyte budget.
func (e *Engine) SetHashSizeMB(megabytes uint64) {
	e.SetHashSize(megabytes * 1024 * 1024 / nodeSize)
}
