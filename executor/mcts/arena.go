package mcts

import (
	"github.com/rs/zerolog/log"
)

// Arena is a fixed-capacity open-addressed table owning all node storage.
//
// Slots are addressed by primary hash (id0+id1) mod capacity with linear
// probing. Lookup treats the first inactive slot as a miss, so deactivating a
// node can hide active slots further along its probe chain; that is tolerated
// between rebuilds, because creation fills the first inactive slot under the
// same rule, and every committed move triggers a full rebuild that restores
// canonical probe placement.
type Arena struct {
	slots []Node
}

// NewArena allocates an arena with the given number of slots.
func NewArena(capacity uint64) *Arena {
	return &Arena{slots: make([]Node, capacity)}
}

// Capacity returns the number of slots.
func (a *Arena) Capacity() uint64 { return uint64(len(a.slots)) }

// CountActive returns the number of live nodes. Diagnostic.
func (a *Arena) CountActive() uint64 {
	var n uint64
	for i := range a.slots {
		if a.slots[i].active {
			n++
		}
	}
	return n
}

// insert places node into the first inactive slot of its probe chain in
// slots, returning nil if every slot is active.
func insert(node Node, slots []Node) *Node {
	capacity := uint64(len(slots))
	pos := (node.id[0] + node.id[1]) % capacity
	for offset := uint64(0); offset < capacity; offset++ {
		i := (pos + offset) % capacity
		if !slots[i].active {
			slots[i] = node
			return &slots[i]
		}
	}
	return nil
}

// CreateRoot inserts a fresh root node: identifier (0,0), depth 0.
func (a *Arena) CreateRoot() *Node {
	root := Node{active: true}
	slot := insert(root, a.slots)
	if slot == nil {
		log.Error().Msg("node arena overfull, failed to create root")
	}
	return slot
}

// CreateChild inserts the child of parent reached by playing col, with the
// given renormalized prior and terminal state. An overfull arena is an
// invariant violation: it is logged as critical and nil is returned.
func (a *Arena) CreateChild(parent *Node, col int, prior float32, terminal bool, terminalScore float32) *Node {
	node := Node{
		id:            childID(parent.id, parent.depth, col),
		depth:         parent.depth + 1,
		move:          int8(col),
		terminal:      terminal,
		terminalScore: terminalScore,
		active:        true,
		P:             prior,
		parent:        parent,
	}
	slot := insert(node, a.slots)
	if slot == nil {
		log.Error().
			Uint64("id0", node.id[0]).
			Uint64("id1", node.id[1]).
			Int32("depth", node.depth).
			Msg("node arena overfull, failed to create node")
	}
	return slot
}

// Lookup returns the active node with the given identifier and depth, or nil.
// The probe stops at the first inactive slot or after a full wrap.
func (a *Arena) Lookup(id [2]uint64, depth int32) *Node {
	capacity := uint64(len(a.slots))
	pos := (id[0] + id[1]) % capacity
	for offset := uint64(0); offset < capacity; offset++ {
		i := (pos + offset) % capacity
		slot := &a.slots[i]
		if !slot.active {
			return nil
		}
		if slot.id == id && slot.depth == depth {
			return slot
		}
	}
	return nil
}

// Deactivate releases the slot holding (id, depth) without cascading into
// its subtree. No-op if the node does not exist.
func (a *Arena) Deactivate(id [2]uint64, depth int32) {
	if node := a.Lookup(id, depth); node != nil {
		node.active = false
	}
}

// Rebuild compacts the arena into a fresh backing array of newCapacity
// slots. Every active node is re-inserted at its canonical probe position,
// then parent/child pointers are repaired top-down from the surviving node of
// minimum depth. All previously held node pointers are invalid afterwards;
// callers re-locate nodes by identifier.
func (a *Arena) Rebuild(newCapacity uint64) {
	fresh := make([]Node, newCapacity)
	minDepth := int32(-1)
	var minID [2]uint64
	for i := range a.slots {
		node := &a.slots[i]
		if !node.active {
			continue
		}
		insert(*node, fresh)
		if minDepth == -1 || node.depth < minDepth {
			minDepth = node.depth
			minID = node.id
		}
	}
	a.slots = fresh
	if minDepth == -1 {
		return
	}
	if top := a.Lookup(minID, minDepth); top != nil {
		top.RefreshChildren(a)
	}
}
