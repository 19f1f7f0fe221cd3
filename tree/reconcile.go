// ABOUTME: Reconciles freshly received hierarchical snapshots against the previously displayed tree.
// ABOUTME: Carries expand/collapse state across snapshots by matching siblings on name and ordinal.
package tree

// Item is a hierarchical record whose siblings are distinguished only by
// name. TreeChildren returns nil when the children have not been loaded
// and an empty slice when the node is a leaf.
type Item[T any] interface {
	TreeName() string
	TreeChildren() []T
}

// Node wraps one data record with its UI state. The data is replaced on
// every reconciliation; Expanded survives as long as a matching node keeps
// appearing in new snapshots.
type Node[T Item[T]] struct {
	Data     T
	Depth    int
	Expanded bool
	Children []*Node[T] // nil when the record's children are not loaded
}

// Name returns the record's name.
func (n *Node[T]) Name() string { return n.Data.TreeName() }

// Expandable reports whether the node has any loaded children to show.
func (n *Node[T]) Expandable() bool { return len(n.Children) > 0 }

// DefaultExpanded is the initial expansion for a node with no prior match:
// top-level rows open, everything below closed.
func DefaultExpanded(depth int) bool {
	return depth < 1
}

// Reconcile builds the UI tree for items, reusing the expansion state of
// nodes in prev. Among siblings the i-th node named "X" inherits from the
// i-th previous sibling named "X"; extras get DefaultExpanded. prev is not
// modified. Children are reconciled eagerly, including those of collapsed
// nodes, so expanding later shows state carried from earlier snapshots.
//
// Matching is positional within a name. When the server reorders siblings
// that share a name, their states swap; no stable identifier exists to do
// better.
func Reconcile[T Item[T]](items []T, prev []*Node[T]) []*Node[T] {
	return reconcileLevel(items, prev, 0)
}

func reconcileLevel[T Item[T]](items []T, prev []*Node[T], depth int) []*Node[T] {
	if items == nil {
		return nil
	}

	queues := make(map[string][]*Node[T], len(prev))
	for _, p := range prev {
		if p == nil {
			continue
		}
		name := p.Name()
		queues[name] = append(queues[name], p)
	}

	out := make([]*Node[T], 0, len(items))
	for _, item := range items {
		name := item.TreeName()

		var match *Node[T]
		if q := queues[name]; len(q) > 0 {
			match, queues[name] = q[0], q[1:]
		}

		node := &Node[T]{
			Data:     item,
			Depth:    depth,
			Expanded: DefaultExpanded(depth),
		}
		var prevChildren []*Node[T]
		if match != nil {
			node.Expanded = match.Expanded
			prevChildren = match.Children
		}
		node.Children = reconcileLevel(item.TreeChildren(), prevChildren, depth+1)
		out = append(out, node)
	}
	return out
}
