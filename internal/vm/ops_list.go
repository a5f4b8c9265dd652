package vm

import (
	"github.com/leapstack-labs/buildgraph/internal/bytecode"
	"github.com/leapstack-labs/buildgraph/internal/graph"
)

func init() {
	register(opListEmpty, bytecode.OpListEmpty)
	register(opListPush, bytecode.OpListPush)
	register(opListPushLazy, bytecode.OpListPushLazy)
	register(opListCount, bytecode.OpListCount)
	register(opListElement, bytecode.OpListElement)
	register(opListConcat, bytecode.OpListConcat)
	register(opListSetOp, bytecode.OpListUnion, bytecode.OpListExcept)
	register(opListSelect, bytecode.OpListSelect, bytecode.OpListWhere)
	register(opListDistinct, bytecode.OpListDistinct)
	register(opListContains, bytecode.OpListContains)
	register(opListLazy, bytecode.OpListLazy)
	register(opListOption, bytecode.OpListOption)

	register(opNodeOutputs, bytecode.OpNodeOutputs)
	register(opNodeOutput, bytecode.OpNodeOutput)
}

func opListEmpty(_ *Interpreter, _ *Frame, _ bytecode.Opcode) (Value, error) {
	return NewList(), nil
}

func opListPush(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	l, err := evalAs[*List](in, f)
	if err != nil {
		return nil, err
	}
	v, err := in.eval(f)
	if err != nil {
		return nil, err
	}
	return l.Push(v), nil
}

// The pushed item is produced by calling the fragment with the current
// frame's arguments each time the list is enumerated.
func opListPushLazy(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	l, err := evalAs[*List](in, f)
	if err != nil {
		return nil, err
	}
	fragment, err := in.readFragment(f)
	if err != nil {
		return nil, err
	}
	args := f.args
	return l.PushLazy(func() (Value, error) {
		return in.call(fragment, args)
	}), nil
}

// The whole list is produced by jumping into the fragment, so it is built
// at most once per frame however often it is enumerated.
func opListLazy(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	fragment, err := in.readFragment(f)
	if err != nil {
		return nil, err
	}
	return Deferred(func() (*List, error) {
		v, err := in.jump(f, fragment)
		if err != nil {
			return nil, err
		}
		l, ok := v.(*List)
		if !ok {
			return nil, &MalformedError{Msg: "lazy list fragment produced a " + v.Kind().String()}
		}
		return l, nil
	}), nil
}

func opListCount(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	items, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	return Int(len(items)), nil
}

func opListElement(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	items, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	i, err := in.evalInt(f)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= int64(len(items)) {
		return nil, in.malformedf(f, "index %d out of range for list of %d", i, len(items))
	}
	return items[i], nil
}

func opListConcat(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	a, err := evalAs[*List](in, f)
	if err != nil {
		return nil, err
	}
	b, err := evalAs[*List](in, f)
	if err != nil {
		return nil, err
	}
	return a.Concat(b), nil
}

func opListSetOp(in *Interpreter, f *Frame, op bytecode.Opcode) (Value, error) {
	a, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	b, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	if op == bytecode.OpListUnion {
		return NewList(distinct(append(a, b...))...), nil
	}
	exclude := make(map[Value]bool, len(b))
	for _, v := range b {
		exclude[v] = true
	}
	var out []Value
	for _, v := range distinct(a) {
		if !exclude[v] {
			out = append(out, v)
		}
	}
	return NewList(out...), nil
}

// opListSelect maps or filters a list through a fragment called once per
// element, with the element bound to argument 0.
func opListSelect(in *Interpreter, f *Frame, op bytecode.Opcode) (Value, error) {
	items, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	fragment, err := in.readFragment(f)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, len(items))
	for _, item := range items {
		v, err := in.call(fragment, []Value{item})
		if err != nil {
			return nil, err
		}
		if op == bytecode.OpListSelect {
			out = append(out, v)
			continue
		}
		keep, ok := v.(Bool)
		if !ok {
			return nil, in.malformedf(f, "filter produced a %s, not a bool", v.Kind())
		}
		if keep {
			out = append(out, item)
		}
	}
	return NewList(out...), nil
}

func opListDistinct(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	items, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	return NewList(distinct(items)...), nil
}

func opListContains(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	items, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	v, err := in.eval(f)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item == v {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func (in *Interpreter) evalNode(f *Frame) (*graph.Node, error) {
	n, err := evalAs[NodeValue](in, f)
	return n.Node, err
}

// opNodeOutputs yields the node's outputs followed by those of every node
// it consumes.
func opNodeOutputs(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	n, err := in.evalNode(f)
	if err != nil {
		return nil, err
	}
	var out []Value
	for _, o := range n.Outputs {
		out = append(out, OutputValue{o})
	}
	for _, dep := range n.InputDependencies.Nodes() {
		for _, o := range dep.Outputs {
			out = append(out, OutputValue{o})
		}
	}
	return NewList(out...), nil
}

func opNodeOutput(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	n, err := in.evalNode(f)
	if err != nil {
		return nil, err
	}
	i, err := f.reader.ReadCount()
	if err != nil {
		return nil, err
	}
	if i >= len(n.Outputs) {
		return nil, in.malformedf(f, "node %q has no output %d", n.Name, i)
	}
	return OutputValue{n.Outputs[i]}, nil
}
