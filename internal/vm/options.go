package vm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
)

// OptionDecl describes an option read while evaluating a program.
type OptionDecl struct {
	Name        string
	Description string
	Kind        Kind
	// Value is the effective value rendered as text.
	Value string
	// FromDefault is set when no value was supplied and the default
	// expression was evaluated instead.
	FromDefault bool
}

// DeclaredOptions returns the options read so far, in first-read order.
func (in *Interpreter) DeclaredOptions() []OptionDecl {
	out := make([]OptionDecl, len(in.declared))
	copy(out, in.declared)
	return out
}

func (in *Interpreter) declare(d OptionDecl) {
	key := strings.ToLower(d.Name)
	if i, ok := in.declaredIdx[key]; ok {
		in.declared[i] = d
		return
	}
	in.declaredIdx[key] = len(in.declared)
	in.declared = append(in.declared, d)
}

// readOption reads the name and description operands and looks the name
// up. When the option is set, the trailing default expression is skipped
// by the caller.
func (in *Interpreter) readOption(f *Frame) (name, desc, value string, set bool, err error) {
	if name, err = f.reader.ReadString(); err != nil {
		return
	}
	if desc, err = f.reader.ReadString(); err != nil {
		return
	}
	value, set = in.options[strings.ToLower(name)]
	return
}

func (in *Interpreter) skip(f *Frame) error {
	return bytecode.SkipExpression(&f.reader)
}

func opBoolOption(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, desc, raw, set, err := in.readOption(f)
	if err != nil {
		return nil, err
	}
	if !set {
		b, err := in.evalBool(f)
		if err != nil {
			return nil, err
		}
		in.declare(OptionDecl{Name: name, Description: desc, Kind: KindBool, Value: strconv.FormatBool(b), FromDefault: true})
		return Bool(b), nil
	}
	if err := in.skip(f); err != nil {
		return nil, err
	}
	b, perr := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
	if perr != nil {
		return nil, &OptionError{Name: name, Value: raw, Reason: "not a boolean"}
	}
	in.declare(OptionDecl{Name: name, Description: desc, Kind: KindBool, Value: strconv.FormatBool(b)})
	return Bool(b), nil
}

func (in *Interpreter) evalBound(f *Frame) (int64, bool, error) {
	v, err := in.eval(f)
	if err != nil {
		return 0, false, err
	}
	switch v := v.(type) {
	case Null:
		return 0, false, nil
	case Int:
		return int64(v), true, nil
	default:
		return 0, false, in.malformedf(f, "expected int or null bound, got %s", v.Kind())
	}
}

func opIntOption(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, desc, raw, set, err := in.readOption(f)
	if err != nil {
		return nil, err
	}
	lo, hasLo, err := in.evalBound(f)
	if err != nil {
		return nil, err
	}
	hi, hasHi, err := in.evalBound(f)
	if err != nil {
		return nil, err
	}
	if !set {
		v, err := in.evalInt(f)
		if err != nil {
			return nil, err
		}
		in.declare(OptionDecl{Name: name, Description: desc, Kind: KindInt, Value: strconv.FormatInt(v, 10), FromDefault: true})
		return Int(v), nil
	}
	if err := in.skip(f); err != nil {
		return nil, err
	}
	v, perr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if perr != nil {
		return nil, &OptionError{Name: name, Value: raw, Reason: "not an integer"}
	}
	if hasLo && v < lo {
		return nil, &OptionError{Name: name, Value: raw, Reason: fmt.Sprintf("less than the minimum of %d", lo)}
	}
	if hasHi && v > hi {
		return nil, &OptionError{Name: name, Value: raw, Reason: fmt.Sprintf("greater than the maximum of %d", hi)}
	}
	in.declare(OptionDecl{Name: name, Description: desc, Kind: KindInt, Value: strconv.FormatInt(v, 10)})
	return Int(v), nil
}

func opStrOption(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, desc, raw, set, err := in.readOption(f)
	if err != nil {
		return nil, err
	}
	pattern, hasPattern, err := in.evalOptionalString(f)
	if err != nil {
		return nil, err
	}
	message, hasMessage, err := in.evalOptionalString(f)
	if err != nil {
		return nil, err
	}
	allowed, err := in.eval(f)
	if err != nil {
		return nil, err
	}

	if !set {
		v, err := in.evalString(f)
		if err != nil {
			return nil, err
		}
		in.declare(OptionDecl{Name: name, Description: desc, Kind: KindString, Value: v, FromDefault: true})
		return String(v), nil
	}
	if err := in.skip(f); err != nil {
		return nil, err
	}

	if hasPattern {
		re, err := in.compile(f, "^(?:"+pattern+")$")
		if err != nil {
			return nil, err
		}
		if !re.MatchString(raw) {
			reason := fmt.Sprintf("does not match pattern %q", pattern)
			if hasMessage {
				reason = message
			}
			return nil, &OptionError{Name: name, Value: raw, Reason: reason}
		}
	}
	switch allowed := allowed.(type) {
	case Null:
	case *List:
		values, err := allowed.Items()
		if err != nil {
			return nil, err
		}
		if len(values) > 0 {
			ok, err := containsFold(values, raw)
			if err != nil {
				return nil, err
			}
			if !ok {
				names, err := formatAll(values, ", ")
				if err != nil {
					return nil, err
				}
				return nil, &OptionError{Name: name, Value: raw, Reason: "must be one of " + names}
			}
		}
	default:
		return nil, in.malformedf(f, "expected list or null of allowed values, got %s", allowed.Kind())
	}

	in.declare(OptionDecl{Name: name, Description: desc, Kind: KindString, Value: raw})
	return String(raw), nil
}

func containsFold(values []Value, s string) (bool, error) {
	for _, v := range values {
		text, err := Format(v)
		if err != nil {
			return false, err
		}
		if strings.EqualFold(text, s) {
			return true, nil
		}
	}
	return false, nil
}

// splitOptionList splits a list option on ';', '+' and ','.
func splitOptionList(raw string) []Value {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '+' || r == ','
	})
	out := make([]Value, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, String(p))
		}
	}
	return out
}

func opListOption(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, desc, raw, set, err := in.readOption(f)
	if err != nil {
		return nil, err
	}
	if !set {
		l, err := evalAs[*List](in, f)
		if err != nil {
			return nil, err
		}
		// the default is forced once so the declared value matches what
		// the program reads
		items, err := l.Items()
		if err != nil {
			return nil, err
		}
		text, err := formatAll(items, ";")
		if err != nil {
			return nil, err
		}
		in.declare(OptionDecl{Name: name, Description: desc, Kind: KindList, Value: text, FromDefault: true})
		return NewList(items...), nil
	}
	if err := in.skip(f); err != nil {
		return nil, err
	}
	values := splitOptionList(raw)
	text, err := formatAll(values, ";")
	if err != nil {
		return nil, err
	}
	in.declare(OptionDecl{Name: name, Description: desc, Kind: KindList, Value: text})
	return NewList(values...), nil
}

func (in *Interpreter) compile(f *Frame, pattern string) (*regexp.Regexp, error) {
	if re, ok := in.regexps[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &MalformedError{Offset: f.reader.Offset(), Msg: "invalid pattern", Err: err}
	}
	in.regexps[pattern] = re
	return re, nil
}
