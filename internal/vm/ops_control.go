package vm

import (
	"github.com/leapstack-labs/buildgraph/internal/bytecode"
)

func init() {
	register(opMapEmpty, bytecode.OpMapEmpty)
	register(opMapGet, bytecode.OpMapGet)
	register(opMapSet, bytecode.OpMapSet)

	register(opCall, bytecode.OpCall)
	register(opArgument, bytecode.OpArgument)
	register(opJump, bytecode.OpJump)
	register(opChoose, bytecode.OpChoose)
	register(opThrow, bytecode.OpThrow)
	register(opNull, bytecode.OpNull)
}

func opMapEmpty(_ *Interpreter, _ *Frame, _ bytecode.Opcode) (Value, error) {
	return NewMap(), nil
}

// The default expression is only evaluated when the key is missing.
func opMapGet(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	m, err := evalAs[*Map](in, f)
	if err != nil {
		return nil, err
	}
	key, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	if v, ok := m.Get(key); ok {
		if err := in.skip(f); err != nil {
			return nil, err
		}
		return v, nil
	}
	return in.eval(f)
}

func opMapSet(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	m, err := evalAs[*Map](in, f)
	if err != nil {
		return nil, err
	}
	key, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	v, err := in.eval(f)
	if err != nil {
		return nil, err
	}
	return m.Set(key, v), nil
}

func opCall(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	n, err := f.reader.ReadCount()
	if err != nil {
		return nil, err
	}
	args := make([]Value, n)
	for i := range args {
		if args[i], err = in.eval(f); err != nil {
			return nil, err
		}
	}
	fragment, err := in.readFragment(f)
	if err != nil {
		return nil, err
	}
	return in.call(fragment, args)
}

func opArgument(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	i, err := f.reader.ReadCount()
	if err != nil {
		return nil, err
	}
	if i >= len(f.args) {
		return nil, in.malformedf(f, "argument %d out of range, frame has %d", i, len(f.args))
	}
	return f.args[i], nil
}

func opJump(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	fragment, err := in.readFragment(f)
	if err != nil {
		return nil, err
	}
	return in.jump(f, fragment)
}

func opChoose(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	cond, err := in.evalBool(f)
	if err != nil {
		return nil, err
	}
	whenTrue, err := in.readFragment(f)
	if err != nil {
		return nil, err
	}
	whenFalse, err := in.readFragment(f)
	if err != nil {
		return nil, err
	}
	if cond {
		return in.jump(f, whenTrue)
	}
	return in.jump(f, whenFalse)
}

func opThrow(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	file, err := f.reader.ReadString()
	if err != nil {
		return nil, err
	}
	line, err := f.reader.ReadCount()
	if err != nil {
		return nil, err
	}
	msg, err := in.eval(f)
	if err != nil {
		return nil, err
	}
	text, err := Format(msg)
	if err != nil {
		return nil, err
	}
	return nil, &ScriptError{File: file, Line: line, Message: text}
}

func opNull(_ *Interpreter, _ *Frame, _ bytecode.Opcode) (Value, error) {
	return Null{}, nil
}
