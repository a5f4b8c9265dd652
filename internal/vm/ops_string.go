package vm

import (
	"strconv"
	"strings"

	"golang.org/x/text/collate"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
)

// Comparison modes of StrCompare.
const (
	CompareOrdinal uint64 = iota
	CompareOrdinalIgnoreCase
	CompareCulture
	CompareCultureIgnoreCase
)

func init() {
	register(opStrEmpty, bytecode.OpStrEmpty)
	register(opStrLiteral, bytecode.OpStrLiteral)
	register(opStrCompare, bytecode.OpStrCompare)
	register(opStrConcat, bytecode.OpStrConcat)
	register(opStrFormat, bytecode.OpStrFormat)
	register(opStrSplit, bytecode.OpStrSplit)
	register(opStrJoin, bytecode.OpStrJoin)
	register(opStrMatch, bytecode.OpStrMatch)
	register(opStrReplace, bytecode.OpStrReplace)
	register(opStrOption, bytecode.OpStrOption)

	register(opEnumParse, bytecode.OpEnumParse)
	register(opEnumToString, bytecode.OpEnumToString)
}

func opStrEmpty(_ *Interpreter, _ *Frame, _ bytecode.Opcode) (Value, error) {
	return String(""), nil
}

func opStrLiteral(_ *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	s, err := f.reader.ReadString()
	if err != nil {
		return nil, err
	}
	return String(s), nil
}

func (in *Interpreter) evalStringPair(f *Frame) (string, string, error) {
	a, err := in.evalString(f)
	if err != nil {
		return "", "", err
	}
	b, err := in.evalString(f)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func opStrCompare(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	a, b, err := in.evalStringPair(f)
	if err != nil {
		return nil, err
	}
	mode, err := f.reader.ReadUnsigned()
	if err != nil {
		return nil, err
	}
	switch mode {
	case CompareOrdinal:
		return Int(strings.Compare(a, b)), nil
	case CompareOrdinalIgnoreCase:
		return Int(strings.Compare(strings.ToUpper(a), strings.ToUpper(b))), nil
	case CompareCulture, CompareCultureIgnoreCase:
		return Int(in.collator(mode == CompareCultureIgnoreCase).CompareString(a, b)), nil
	default:
		return nil, in.malformedf(f, "unknown comparison mode %d", mode)
	}
}

func (in *Interpreter) collator(ignoreCase bool) *collate.Collator {
	if c, ok := in.collators[ignoreCase]; ok {
		return c
	}
	var opts []collate.Option
	if ignoreCase {
		opts = append(opts, collate.IgnoreCase)
	}
	c := collate.New(in.culture, opts...)
	in.collators[ignoreCase] = c
	return c
}

func opStrConcat(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	a, b, err := in.evalStringPair(f)
	if err != nil {
		return nil, err
	}
	return String(a + b), nil
}

func opStrFormat(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	format, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	n, err := f.reader.ReadCount()
	if err != nil {
		return nil, err
	}
	args := make([]string, n)
	for i := range args {
		v, err := in.eval(f)
		if err != nil {
			return nil, err
		}
		if args[i], err = Format(v); err != nil {
			return nil, err
		}
	}
	s, ok := formatPositional(format, args)
	if !ok {
		return nil, in.malformedf(f, "invalid format string %q for %d arguments", format, n)
	}
	return String(s), nil
}

// formatPositional substitutes {i} with args[i]. Braces are escaped by
// doubling them.
func formatPositional(format string, args []string) (string, bool) {
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return "", false
			}
			idx, err := strconv.Atoi(format[i+1 : i+end])
			if err != nil || idx < 0 || idx >= len(args) {
				return "", false
			}
			sb.WriteString(args[idx])
			i += end
		case c == '}':
			return "", false
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), true
}

func opStrSplit(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	source, sep, err := in.evalStringPair(f)
	if err != nil {
		return nil, err
	}
	var parts []string
	if sep == "" {
		parts = []string{source}
	} else {
		parts = strings.Split(source, sep)
	}
	out := make([]Value, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, String(p))
		}
	}
	return NewList(out...), nil
}

func opStrJoin(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	sep, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	items, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	joined, err := formatAll(items, sep)
	if err != nil {
		return nil, err
	}
	return String(joined), nil
}

func opStrMatch(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	input, pattern, err := in.evalStringPair(f)
	if err != nil {
		return nil, err
	}
	re, err := in.compile(f, pattern)
	if err != nil {
		return nil, err
	}
	return Bool(re.MatchString(input)), nil
}

func opStrReplace(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	input, pattern, err := in.evalStringPair(f)
	if err != nil {
		return nil, err
	}
	replacement, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	re, err := in.compile(f, pattern)
	if err != nil {
		return nil, err
	}
	return String(re.ReplaceAllString(input, replacement)), nil
}

// evalEnumTable reads the parallel names and values lists of an enum.
func (in *Interpreter) evalEnumTable(f *Frame) ([]string, []int64, error) {
	names, err := in.evalStrings(f)
	if err != nil {
		return nil, nil, err
	}
	items, err := in.evalItems(f)
	if err != nil {
		return nil, nil, err
	}
	if len(items) != len(names) {
		return nil, nil, in.malformedf(f, "enum has %d names but %d values", len(names), len(items))
	}
	values := make([]int64, len(items))
	for i, v := range items {
		n, ok := v.(Int)
		if !ok {
			return nil, nil, in.malformedf(f, "enum value %d is %s", i, v.Kind())
		}
		values[i] = int64(n)
	}
	return names, values, nil
}

func opEnumParse(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	text, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	names, values, err := in.evalEnumTable(f)
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		if strings.EqualFold(name, text) {
			return Int(values[i]), nil
		}
	}
	return nil, in.malformedf(f, "%q is not one of %s", text, strings.Join(names, ", "))
}

func opEnumToString(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	v, err := in.evalInt(f)
	if err != nil {
		return nil, err
	}
	names, values, err := in.evalEnumTable(f)
	if err != nil {
		return nil, err
	}
	for i, value := range values {
		if value == v {
			return String(names[i]), nil
		}
	}
	return String(strconv.FormatInt(v, 10)), nil
}
