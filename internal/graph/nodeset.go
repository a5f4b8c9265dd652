package graph

// NodeSet is a set of nodes that remembers insertion order, so iteration
// and every export built on it are deterministic.
type NodeSet struct {
	order []*Node
	index map[*Node]struct{}
}

// NewNodeSet returns a set holding nodes in the given order.
func NewNodeSet(nodes ...*Node) *NodeSet {
	s := &NodeSet{index: make(map[*Node]struct{}, len(nodes))}
	for _, n := range nodes {
		s.Add(n)
	}
	return s
}

// Add inserts n and reports whether it was absent.
func (s *NodeSet) Add(n *Node) bool {
	if _, ok := s.index[n]; ok {
		return false
	}
	if s.index == nil {
		s.index = make(map[*Node]struct{})
	}
	s.index[n] = struct{}{}
	s.order = append(s.order, n)
	return true
}

// AddAll inserts every member of other.
func (s *NodeSet) AddAll(other *NodeSet) {
	if other == nil {
		return
	}
	for _, n := range other.order {
		s.Add(n)
	}
}

// Contains reports whether n is a member.
func (s *NodeSet) Contains(n *Node) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[n]
	return ok
}

// ContainsAll reports whether every member of other is a member of s.
func (s *NodeSet) ContainsAll(other *NodeSet) bool {
	for _, n := range other.Nodes() {
		if !s.Contains(n) {
			return false
		}
	}
	return true
}

// Len returns the number of members.
func (s *NodeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Nodes returns the members in insertion order. The slice must not be
// modified.
func (s *NodeSet) Nodes() []*Node {
	if s == nil {
		return nil
	}
	return s.order
}

// Names returns member names in insertion order.
func (s *NodeSet) Names() []string {
	names := make([]string, 0, s.Len())
	for _, n := range s.Nodes() {
		names = append(names, n.Name)
	}
	return names
}

// Retain drops every member for which keep returns false.
func (s *NodeSet) Retain(keep func(*Node) bool) {
	if s == nil {
		return
	}
	kept := s.order[:0]
	for _, n := range s.order {
		if keep(n) {
			kept = append(kept, n)
		} else {
			delete(s.index, n)
		}
	}
	clear(s.order[len(kept):])
	s.order = kept
}

// Clone returns an independent copy.
func (s *NodeSet) Clone() *NodeSet {
	return NewNodeSet(s.Nodes()...)
}
