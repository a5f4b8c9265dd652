package bytecode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxWalkDepth bounds expression nesting for the disassembler and
// SkipExpression.
const MaxWalkDepth = 1000

// instruction is one decoded expression and its operands.
type instruction struct {
	offset   int
	op       Opcode
	raw      []byte
	operands []string
	children []*instruction
}

// SkipExpression advances r past one complete expression without
// evaluating it.
func SkipExpression(r *Reader) error {
	_, err := decode(r, 0)
	return err
}

func decode(r *Reader, depth int) (*instruction, error) {
	start := r.Offset()
	if depth > MaxWalkDepth {
		return nil, formatErrorf(start, "expression nesting exceeds %d", MaxWalkDepth)
	}

	op, err := r.ReadOpcode()
	if err != nil {
		return nil, err
	}
	info, ok := LookupOpcode(op)
	if !ok {
		return nil, formatErrorf(start, "unknown opcode 0x%02X", byte(op))
	}

	ins := &instruction{offset: start, op: op, raw: []byte{byte(op)}}
	for _, kind := range info.Operands {
		from := r.Offset()
		switch kind {
		case OperandExpr:
			child, err := decode(r, depth+1)
			if err != nil {
				return nil, err
			}
			ins.children = append(ins.children, child)
			continue
		case OperandExprList:
			n, err := r.ReadCount()
			if err != nil {
				return nil, err
			}
			ins.raw = append(ins.raw, r.Slice(from, r.Offset())...)
			ins.operands = append(ins.operands, "n="+strconv.Itoa(n))
			for i := 0; i < n; i++ {
				child, err := decode(r, depth+1)
				if err != nil {
					return nil, err
				}
				ins.children = append(ins.children, child)
			}
			continue
		case OperandUnsigned:
			v, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			ins.operands = append(ins.operands, strconv.FormatUint(v, 10))
		case OperandSigned:
			v, err := r.ReadSigned()
			if err != nil {
				return nil, err
			}
			ins.operands = append(ins.operands, strconv.FormatInt(v, 10))
		case OperandString:
			v, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			ins.operands = append(ins.operands, strconv.Quote(v))
		case OperandFragment:
			v, err := r.ReadUnsigned()
			if err != nil {
				return nil, err
			}
			ins.operands = append(ins.operands, "@"+strconv.FormatUint(v, 10))
		}
		ins.raw = append(ins.raw, r.Slice(from, r.Offset())...)
	}
	return ins, nil
}

// Disassemble writes a listing of every fragment in p: one line per
// expression with its offset, raw opcode and inline operand bytes, mnemonic
// and decoded operands. Nested expressions are indented under their parent.
func Disassemble(w io.Writer, p *Program) error {
	if _, err := fmt.Fprintf(w, "; buildgraph bytecode v%d, %d fragments\n", Version, p.FragmentCount()); err != nil {
		return err
	}

	for i := 0; i < p.FragmentCount(); i++ {
		offset, _ := p.FragmentOffset(i)
		length := p.FragmentLength(i)
		if _, err := fmt.Fprintf(w, "\nfragment %d (offset 0x%04X, %d bytes)\n", i, offset, length); err != nil {
			return err
		}

		r := p.Reader(offset)
		root, err := decode(&r, 0)
		if err != nil {
			return fmt.Errorf("fragment %d: %w", i, err)
		}

		var sb strings.Builder
		writeInstruction(&sb, root, 0)
		if used := r.Offset() - offset; used != length {
			fmt.Fprintf(&sb, "; %d of %d bytes used\n", used, length)
		}
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeInstruction(sb *strings.Builder, ins *instruction, depth int) {
	fmt.Fprintf(sb, "%04X  %-20s %s%s", ins.offset, hexBytes(ins.raw, 6), strings.Repeat("  ", depth), ins.op)
	if len(ins.operands) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(ins.operands, ", "))
	}
	sb.WriteString("\n")
	for _, child := range ins.children {
		writeInstruction(sb, child, depth+1)
	}
}

// hexBytes renders at most limit bytes, marking truncation with "..".
func hexBytes(b []byte, limit int) string {
	parts := make([]string, 0, limit+1)
	for i, c := range b {
		if i == limit {
			parts = append(parts, "..")
			break
		}
		parts = append(parts, fmt.Sprintf("%02X", c))
	}
	return strings.Join(parts, " ")
}
