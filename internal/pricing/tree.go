package pricing

import (
	"fmt"
	"sort"
)

// Block groups line items. A block without ParentID is a root.
type Block struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	ParentID  string     `json:"parentId,omitempty"`
	SortOrder int        `json:"sortOrder"`
	Items     []LineItem `json:"items"`
}

// Tree is an arena of blocks plus a parent -> children index.
// Blocks reference parents by ID only; the index is rebuilt from scratch by NewTree.
type Tree struct {
	blocks   map[string]*Block
	children map[string][]string
}

// NewTree indexes blocks and rejects duplicate IDs, unknown parents and cycles.
func NewTree(blocks []Block) (*Tree, error) {
	t := &Tree{
		blocks:   make(map[string]*Block, len(blocks)),
		children: make(map[string][]string),
	}

	order := make([]string, 0, len(blocks))
	for i := range blocks {
		b := blocks[i]
		if b.ID == "" {
			return nil, ErrMissingBlockID
		}
		if _, dup := t.blocks[b.ID]; dup {
			return nil, fmt.Errorf("block %s: %w", b.ID, ErrDuplicateBlock)
		}
		t.blocks[b.ID] = &b
		order = append(order, b.ID)
	}

	for _, id := range order {
		b := t.blocks[id]
		if b.ParentID != "" {
			if _, ok := t.blocks[b.ParentID]; !ok {
				return nil, fmt.Errorf("block %s: parent %s: %w", b.ID, b.ParentID, ErrUnknownParent)
			}
		}
		t.children[b.ParentID] = append(t.children[b.ParentID], id)
	}
	for parent := range t.children {
		t.sortChildren(parent)
	}

	// Anything not reachable from a root sits on a parent cycle.
	reached := t.reachable()
	if len(reached) != len(t.blocks) {
		for _, id := range sortedIDs(t.blocks) {
			if _, ok := reached[id]; !ok {
				return nil, fmt.Errorf("block %s: %w", id, ErrBlockCycle)
			}
		}
	}

	return t, nil
}

// Len returns the number of blocks in the tree.
func (t *Tree) Len() int {
	return len(t.blocks)
}

// Block returns a copy of the block with the given ID.
func (t *Tree) Block(id string) (Block, bool) {
	b, ok := t.blocks[id]
	if !ok {
		return Block{}, false
	}
	return *b, true
}

// Roots returns the root blocks in sort order.
func (t *Tree) Roots() []Block {
	return t.Children("")
}

// Children returns the direct children of id in sort order.
func (t *Tree) Children(id string) []Block {
	ids := t.children[id]
	out := make([]Block, 0, len(ids))
	for _, childID := range ids {
		out = append(out, *t.blocks[childID])
	}
	return out
}

// Ancestors returns the parent chain of id, nearest first.
func (t *Tree) Ancestors(id string) []string {
	var chain []string
	b, ok := t.blocks[id]
	for ok && b.ParentID != "" {
		chain = append(chain, b.ParentID)
		b, ok = t.blocks[b.ParentID]
	}
	return chain
}

// CheckReparent validates moving id under newParent ("" moves it to the root level).
func (t *Tree) CheckReparent(id, newParent string) error {
	if _, ok := t.blocks[id]; !ok {
		return fmt.Errorf("block %s: %w", id, ErrUnknownBlock)
	}
	if newParent == "" {
		return nil
	}
	if _, ok := t.blocks[newParent]; !ok {
		return fmt.Errorf("block %s: parent %s: %w", id, newParent, ErrUnknownParent)
	}
	if newParent == id {
		return fmt.Errorf("block %s: %w", id, ErrBlockCycle)
	}
	for _, ancestor := range t.Ancestors(newParent) {
		if ancestor == id {
			return fmt.Errorf("block %s under %s: %w", id, newParent, ErrBlockCycle)
		}
	}
	return nil
}

// Reparent moves id under newParent after CheckReparent succeeds.
func (t *Tree) Reparent(id, newParent string) error {
	if err := t.CheckReparent(id, newParent); err != nil {
		return err
	}

	b := t.blocks[id]
	old := t.children[b.ParentID]
	for i, childID := range old {
		if childID == id {
			t.children[b.ParentID] = append(old[:i:i], old[i+1:]...)
			break
		}
	}
	b.ParentID = newParent
	t.children[newParent] = append(t.children[newParent], id)
	t.sortChildren(newParent)
	return nil
}

func (t *Tree) sortChildren(parent string) {
	ids := t.children[parent]
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.blocks[ids[i]], t.blocks[ids[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})
}

func (t *Tree) reachable() map[string]struct{} {
	seen := make(map[string]struct{}, len(t.blocks))
	stack := append([]string(nil), t.children[""]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		stack = append(stack, t.children[id]...)
	}
	return seen
}

func sortedIDs(blocks map[string]*Block) []string {
	ids := make([]string, 0, len(blocks))
	for id := range blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
