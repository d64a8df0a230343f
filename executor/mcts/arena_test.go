package mcts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/c4uct/game"
)

var uniformPriors = []float32{1, 1, 1, 1, 1, 1, 1}

// expandRoot is a test helper: a root with all seven children on capacity
// slots.
func expandRoot(t *testing.T, arena *Arena) *Node {
	t.Helper()
	root := arena.CreateRoot()
	require.NotNil(t, root)
	var state game.State
	root.Expand(&state, uniformPriors, arena)
	return root
}

func TestProbeCorrectness(t *testing.T) {
	arena := NewArena(17)
	root := expandRoot(t, arena)
	require.EqualValues(t, 8, arena.CountActive())

	for _, col := range []int{1, 3, 5} {
		root.Child(col).SetInactive()
	}
	require.EqualValues(t, 5, arena.CountActive())

	// Deactivation leaves gaps in probe chains; direct lookup still works
	// for the survivors.
	found := arena.Lookup(childID(root.id, 0, 4), 1)
	require.NotNil(t, found)
	require.Equal(t, 4, found.Move())

	arena.Rebuild(17)
	require.EqualValues(t, 5, arena.CountActive())

	for _, col := range []int{0, 2, 4, 6} {
		node := arena.Lookup(childID([2]uint64{}, 0, col), 1)
		require.NotNil(t, node, "column %d lost in rebuild", col)
		require.Equal(t, col, node.Move())
	}
	for _, col := range []int{1, 3, 5} {
		require.Nil(t, arena.Lookup(childID([2]uint64{}, 0, col), 1), "column %d resurrected by rebuild", col)
	}
}

func TestRebuildRepairsLinks(t *testing.T) {
	arena := NewArena(257)
	root := expandRoot(t, arena)

	// Grow one grandchild layer under column 2.
	var state game.State
	state.Play(2)
	child := root.Child(2)
	child.Expand(&state, uniformPriors, arena)

	arena.Rebuild(101)

	newRoot := arena.Lookup([2]uint64{}, 0)
	require.NotNil(t, newRoot)

	var walk func(n *Node)
	walk = func(n *Node) {
		require.True(t, n.Active())
		require.Same(t, n, arena.Lookup(n.ID(), n.Depth()), "lookup must return the node's own slot")
		for col := 0; col < game.Cols; col++ {
			c := n.Child(col)
			if c == nil {
				continue
			}
			require.Equal(t, childID(n.ID(), n.Depth(), col), c.ID())
			require.Equal(t, n.Depth()+1, c.Depth())
			require.Same(t, n, c.Parent(), "child %d parent back-reference broken", col)
			walk(c)
		}
	}
	walk(newRoot)
}

func TestCreateChildOverfull(t *testing.T) {
	arena := NewArena(3)
	root := arena.CreateRoot()
	require.NotNil(t, root)

	var state game.State
	root.Expand(&state, uniformPriors, arena)

	// Two children fit beside the root; the rest must fail cleanly.
	created := 0
	for col := 0; col < game.Cols; col++ {
		if root.Child(col) != nil {
			created++
		}
	}
	require.Equal(t, 2, created)
	require.EqualValues(t, 3, arena.CountActive())
}

func TestLookupMissStopsAtInactive(t *testing.T) {
	arena := NewArena(17)
	root := expandRoot(t, arena)

	missing := childID(root.id, 0, 3)
	arena.Deactivate(missing, 1)
	require.Nil(t, arena.Lookup(missing, 1))

	// Unrelated identifiers miss without a full wrap too.
	require.Nil(t, arena.Lookup([2]uint64{123456, 0}, 9))
}

func TestChildIDDepthSplit(t *testing.T) {
	// Moves below depth 21 accumulate in id[0], the rest in id[1].
	id := [2]uint64{}
	depth := int32(0)
	for d := 0; d < 25; d++ {
		id = childID(id, depth, 3)
		depth++
	}
	var lo, hi uint64
	for d := int32(1); d <= 25; d++ {
		if d < 21 {
			lo += pow7[d] * 3
		} else {
			hi += pow7[d-21] * 3
		}
	}
	require.Equal(t, [2]uint64{lo, hi}, id)
}
