package graph

// DirectDependencies returns the members of deps that are not already
// implied by another member: deps \ ⋃ closure(m) for m in deps.
// closure must be transitively closed for the result to be minimal.
func DirectDependencies(deps *NodeSet, closure func(*Node) *NodeSet) *NodeSet {
	direct := deps.Clone()
	for _, m := range deps.Nodes() {
		implied := closure(m)
		direct.Retain(func(n *Node) bool { return !implied.Contains(n) })
	}
	return direct
}

// OrderClosure returns n's order dependencies.
func OrderClosure(n *Node) *NodeSet { return n.OrderDependencies }

// InputClosure returns n's input dependencies.
func InputClosure(n *Node) *NodeSet { return n.InputDependencies }

// DirectOrderDependencies returns the order dependencies of n that are not
// implied by another one.
func (n *Node) DirectOrderDependencies() *NodeSet {
	return DirectDependencies(n.OrderDependencies, OrderClosure)
}

// DirectInputDependencies returns the input dependencies of n that are not
// implied by another one.
func (n *Node) DirectInputDependencies() *NodeSet {
	return DirectDependencies(n.InputDependencies, InputClosure)
}
