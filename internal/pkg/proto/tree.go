package proto

import (
	"github.com/endorses/lcdissect/internal/pkg/ftypes"
)

// ValueObserver is told about every value a tree constructs and frees.
// It exists for leak accounting in tests and diagnostics.
type ValueObserver interface {
	ValueConstructed(fv *ftypes.FValue)
	ValueFreed(fv *ftypes.FValue)
}

// TreeData is the state shared by every node of one tree.
type TreeData struct {
	// Visible makes the tree render item labels as items are added.
	// Invisible trees compute labels only when asked.
	Visible bool

	interesting map[FieldID][]*FieldInfo
	items       int
	maxItems    int
	observer    ValueObserver
}

// TreeOption configures a new tree.
type TreeOption func(*TreeData)

// WithVisible sets whether labels are rendered eagerly.
func WithVisible(visible bool) TreeOption {
	return func(d *TreeData) {
		d.Visible = visible
	}
}

// WithMaxItems caps the number of items a tree accepts. Zero means no cap.
func WithMaxItems(n int) TreeOption {
	return func(d *TreeData) {
		d.maxItems = n
	}
}

// WithValueObserver installs an observer for value construction and release.
func WithValueObserver(o ValueObserver) TreeOption {
	return func(d *TreeData) {
		d.observer = o
	}
}

// Tree is the protocol tree of one frame. A tree is owned by the goroutine
// that builds it; once that goroutine hands it on, it is read-only.
type Tree struct {
	reg  *Registry
	root *Node
	data *TreeData
}

// Node is one item of a tree. The root node carries no FieldInfo.
type Node struct {
	info     *FieldInfo
	parent   *Node
	children []*Node
	tree     *Tree
}

// NewTree creates an empty tree whose items are described by reg.
func NewTree(reg *Registry, opts ...TreeOption) *Tree {
	data := &TreeData{
		Visible:     true,
		interesting: make(map[FieldID][]*FieldInfo),
	}
	for _, opt := range opts {
		opt(data)
	}
	t := &Tree{reg: reg, data: data}
	t.root = &Node{tree: t}
	return t
}

// Root returns the synthetic root node, or nil once the tree is destroyed.
func (t *Tree) Root() *Node {
	return t.root
}

// Data returns the shared tree state, or nil once the tree is destroyed.
func (t *Tree) Data() *TreeData {
	return t.data
}

// Registry returns the registry describing the tree's items.
func (t *Tree) Registry() *Registry {
	return t.reg
}

// ItemCount returns the number of items added so far.
func (t *Tree) ItemCount() int {
	if t.data == nil {
		return 0
	}
	return t.data.items
}

// Destroyed reports whether Destroy has run.
func (t *Tree) Destroyed() bool {
	return t.root == nil
}

// PrimeFieldID asks the tree to index items of id as they are added, so
// FindFieldsByID answers without a traversal. Items added before priming
// are not indexed.
func (t *Tree) PrimeFieldID(id FieldID) {
	t.reg.LookupByID(id)
	if t.data == nil {
		contractViolation("prime", "", "tree destroyed")
	}
	if _, ok := t.data.interesting[id]; !ok {
		t.data.interesting[id] = nil
	}
}

// IsPrimed reports whether id is indexed.
func (t *Tree) IsPrimed(id FieldID) bool {
	if t.data == nil {
		return false
	}
	_, ok := t.data.interesting[id]
	return ok
}

// FindFieldsByID returns the items of id in insertion order. Primed IDs
// are answered from the index; others by a pre-order traversal. The
// returned slice must not be modified.
func (t *Tree) FindFieldsByID(id FieldID) []*FieldInfo {
	if t.data == nil {
		return nil
	}
	if list, ok := t.data.interesting[id]; ok {
		return list[:len(list):len(list)]
	}
	var out []*FieldInfo
	t.Walk(func(n *Node) bool {
		if n.info != nil && n.info.HField.ID == id {
			out = append(out, n.info)
		}
		return true
	})
	return out
}

// FindFieldsByAbbrev returns the items of every descriptor registered
// under abbrev, in tree order.
func (t *Tree) FindFieldsByAbbrev(abbrev string) ([]*FieldInfo, error) {
	if _, err := t.reg.LookupByName(abbrev); err != nil {
		return nil, err
	}
	var out []*FieldInfo
	t.Walk(func(n *Node) bool {
		if n.info != nil && n.info.HField.Abbrev == abbrev {
			out = append(out, n.info)
		}
		return true
	})
	return out, nil
}

// Walk visits every node below the root in pre-order. Returning false from
// fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	if t.root == nil {
		return
	}
	for _, c := range t.root.children {
		c.walk(fn)
	}
}

func (n *Node) walk(fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}

// Destroy frees every value in the tree, children before parents, and
// releases the nodes. It is safe on a tree that is still being built and
// does nothing when called again.
func (t *Tree) Destroy() {
	if t.root == nil {
		return
	}
	t.root.release(t.data.observer)
	t.root = nil
	t.data = nil
}

func (n *Node) release(obs ValueObserver) {
	for _, c := range n.children {
		c.release(obs)
	}
	if n.info != nil && n.info.Value != nil {
		n.info.Value.Free()
		if obs != nil {
			obs.ValueFreed(n.info.Value)
		}
		n.info.Value = nil
	}
	n.children = nil
	n.parent = nil
	n.tree = nil
}

// Info returns the node's item, or nil for the root.
func (n *Node) Info() *FieldInfo {
	return n.info
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's children in insertion order. The slice must
// not be modified.
func (n *Node) Children() []*Node {
	return n.children[:len(n.children):len(n.children)]
}

// IsRoot reports whether n is a tree's root.
func (n *Node) IsRoot() bool {
	return n.info == nil
}

// Depth returns the number of ancestors below the root; the root's
// children are at depth 0.
func (n *Node) Depth() int {
	d := -1
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Tree returns the tree the node belongs to.
func (n *Node) Tree() *Tree {
	return n.tree
}

// Label returns the node's text, or "" for the root.
func (n *Node) Label() string {
	if n.info == nil {
		return ""
	}
	return n.info.Label()
}

func (n *Node) live(op string) *Tree {
	if n.tree == nil || n.tree.data == nil {
		contractViolation(op, "", "tree destroyed")
	}
	return n.tree
}

func (n *Node) mustItem(op string) *FieldInfo {
	n.live(op)
	if n.info == nil {
		contractViolation(op, "", "root node has no item")
	}
	return n.info
}
