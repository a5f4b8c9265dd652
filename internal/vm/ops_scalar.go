package vm

import (
	"github.com/leapstack-labs/buildgraph/internal/bytecode"
)

func init() {
	register(opBoolLiteral, bytecode.OpBoolFalse, bytecode.OpBoolTrue)
	register(opBoolNot, bytecode.OpBoolNot)
	register(opBoolBinary, bytecode.OpBoolAnd, bytecode.OpBoolOr, bytecode.OpBoolXor, bytecode.OpBoolEq)
	register(opBoolOption, bytecode.OpBoolOption)

	register(opIntLiteral, bytecode.OpIntLiteral, bytecode.OpEnumConstant)
	register(opIntCompare, bytecode.OpIntEq, bytecode.OpIntLt, bytecode.OpIntGt)
	register(opIntArith, bytecode.OpIntAdd, bytecode.OpIntMultiply, bytecode.OpIntDivide, bytecode.OpIntModulo)
	register(opIntNegate, bytecode.OpIntNegate)
	register(opIntOption, bytecode.OpIntOption)
}

func opBoolLiteral(_ *Interpreter, _ *Frame, op bytecode.Opcode) (Value, error) {
	return Bool(op == bytecode.OpBoolTrue), nil
}

func opBoolNot(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	b, err := in.evalBool(f)
	if err != nil {
		return nil, err
	}
	return Bool(!b), nil
}

// Both operands are always evaluated: either may build graph objects.
func opBoolBinary(in *Interpreter, f *Frame, op bytecode.Opcode) (Value, error) {
	a, err := in.evalBool(f)
	if err != nil {
		return nil, err
	}
	b, err := in.evalBool(f)
	if err != nil {
		return nil, err
	}
	switch op {
	case bytecode.OpBoolAnd:
		return Bool(a && b), nil
	case bytecode.OpBoolOr:
		return Bool(a || b), nil
	case bytecode.OpBoolXor:
		return Bool(a != b), nil
	default:
		return Bool(a == b), nil
	}
}

func opIntLiteral(_ *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	v, err := f.reader.ReadSigned()
	if err != nil {
		return nil, err
	}
	return Int(v), nil
}

func (in *Interpreter) evalIntPair(f *Frame) (int64, int64, error) {
	a, err := in.evalInt(f)
	if err != nil {
		return 0, 0, err
	}
	b, err := in.evalInt(f)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func opIntCompare(in *Interpreter, f *Frame, op bytecode.Opcode) (Value, error) {
	a, b, err := in.evalIntPair(f)
	if err != nil {
		return nil, err
	}
	switch op {
	case bytecode.OpIntLt:
		return Bool(a < b), nil
	case bytecode.OpIntGt:
		return Bool(a > b), nil
	default:
		return Bool(a == b), nil
	}
}

func opIntArith(in *Interpreter, f *Frame, op bytecode.Opcode) (Value, error) {
	a, b, err := in.evalIntPair(f)
	if err != nil {
		return nil, err
	}
	switch op {
	case bytecode.OpIntAdd:
		return Int(a + b), nil
	case bytecode.OpIntMultiply:
		return Int(a * b), nil
	}
	if b == 0 {
		return nil, in.malformedf(f, "%s by zero", op)
	}
	if op == bytecode.OpIntDivide {
		return Int(a / b), nil
	}
	return Int(a % b), nil
}

func opIntNegate(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	v, err := in.evalInt(f)
	if err != nil {
		return nil, err
	}
	return Int(-v), nil
}
