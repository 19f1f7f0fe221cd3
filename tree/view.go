// ABOUTME: Navigation helpers over reconciled UI trees: visible-row flattening and expansion edits.
// ABOUTME: Expansion edits touch only UI state and never the wrapped data records.
package tree

// Path addresses a node by child indices from the roots.
type Path []int

// Row is one visible line of a flattened tree.
type Row[T Item[T]] struct {
	Node *Node[T]
	Path Path
}

// Visible flattens roots depth-first, descending only into expanded nodes.
func Visible[T Item[T]](roots []*Node[T]) []Row[T] {
	var rows []Row[T]
	var visit func(nodes []*Node[T], prefix Path)
	visit = func(nodes []*Node[T], prefix Path) {
		for i, n := range nodes {
			p := make(Path, len(prefix)+1)
			copy(p, prefix)
			p[len(prefix)] = i
			rows = append(rows, Row[T]{Node: n, Path: p})
			if n.Expanded {
				visit(n.Children, p)
			}
		}
	}
	visit(roots, nil)
	return rows
}

// Find returns the node at path, or nil if the path does not resolve.
func Find[T Item[T]](roots []*Node[T], path Path) *Node[T] {
	nodes := roots
	var n *Node[T]
	for _, idx := range path {
		if idx < 0 || idx >= len(nodes) {
			return nil
		}
		n = nodes[idx]
		nodes = n.Children
	}
	return n
}

// SetExpanded changes the expansion of the node at path. It reports
// whether a node was found.
func SetExpanded[T Item[T]](roots []*Node[T], path Path, expanded bool) bool {
	n := Find(roots, path)
	if n == nil {
		return false
	}
	n.Expanded = expanded
	return true
}

// Toggle flips the expansion of the node at path.
func Toggle[T Item[T]](roots []*Node[T], path Path) bool {
	n := Find(roots, path)
	if n == nil {
		return false
	}
	n.Expanded = !n.Expanded
	return true
}

// SetAll expands or collapses every node that has children.
func SetAll[T Item[T]](roots []*Node[T], expanded bool) {
	walk(roots, func(n *Node[T]) {
		if n.Expandable() {
			n.Expanded = expanded
		}
	})
}

// ExpandToLevel shows nodes at depths 0..level-1: nodes above that depth are
// expanded, the rest collapsed.
func ExpandToLevel[T Item[T]](roots []*Node[T], level int) {
	walk(roots, func(n *Node[T]) {
		if n.Expandable() {
			n.Expanded = n.Depth < level-1
		}
	})
}

// Count returns the total number of nodes, visible or not.
func Count[T Item[T]](roots []*Node[T]) int {
	total := 0
	walk(roots, func(*Node[T]) { total++ })
	return total
}

func walk[T Item[T]](nodes []*Node[T], fn func(*Node[T])) {
	for _, n := range nodes {
		fn(n)
		walk(n.Children, fn)
	}
}
