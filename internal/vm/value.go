package vm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/buildgraph/internal/graph"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindString
	KindList
	KindMap
	KindOutput
	KindAgent
	KindNode
	KindAggregate
	KindLabel
	KindReport
	KindBadge
	KindDiagnostic
	KindGraph
)

var kindNames = [...]string{
	KindNull:       "null",
	KindBool:       "bool",
	KindInt:        "int",
	KindString:     "string",
	KindList:       "list",
	KindMap:        "map",
	KindOutput:     "output",
	KindAgent:      "agent",
	KindNode:       "node",
	KindAggregate:  "aggregate",
	KindLabel:      "label",
	KindReport:     "report",
	KindBadge:      "badge",
	KindDiagnostic: "diagnostic",
	KindGraph:      "graph",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a value produced by evaluating an expression. The set of
// implementations is closed. Every Value is comparable with ==: scalars
// compare by content, everything else by identity.
type Value interface {
	Kind() Kind
	value()
}

type (
	Null   struct{}
	Bool   bool
	Int    int64
	String string

	OutputValue     struct{ Output *graph.Output }
	AgentValue      struct{ Agent *graph.Agent }
	NodeValue       struct{ Node *graph.Node }
	AggregateValue  struct{ Aggregate *graph.Aggregate }
	LabelValue      struct{ Label *graph.Label }
	ReportValue     struct{ Report *graph.Report }
	BadgeValue      struct{ Badge *graph.Badge }
	DiagnosticValue struct{ Diagnostic *graph.Diagnostic }
	GraphValue      struct{ Graph *graph.Graph }
)

func (Null) Kind() Kind            { return KindNull }
func (Bool) Kind() Kind            { return KindBool }
func (Int) Kind() Kind             { return KindInt }
func (String) Kind() Kind          { return KindString }
func (*List) Kind() Kind           { return KindList }
func (*Map) Kind() Kind            { return KindMap }
func (OutputValue) Kind() Kind     { return KindOutput }
func (AgentValue) Kind() Kind      { return KindAgent }
func (NodeValue) Kind() Kind       { return KindNode }
func (AggregateValue) Kind() Kind  { return KindAggregate }
func (LabelValue) Kind() Kind      { return KindLabel }
func (ReportValue) Kind() Kind     { return KindReport }
func (BadgeValue) Kind() Kind      { return KindBadge }
func (DiagnosticValue) Kind() Kind { return KindDiagnostic }
func (GraphValue) Kind() Kind      { return KindGraph }

func (Null) value()            {}
func (Bool) value()            {}
func (Int) value()             {}
func (String) value()          {}
func (*List) value()           {}
func (*Map) value()            {}
func (OutputValue) value()     {}
func (AgentValue) value()      {}
func (NodeValue) value()       {}
func (AggregateValue) value()  {}
func (LabelValue) value()      {}
func (ReportValue) value()     {}
func (BadgeValue) value()      {}
func (DiagnosticValue) value() {}
func (GraphValue) value()      {}

// Format renders v the way string formatting and task arguments see it.
// Lists are forced as by Items and joined with ';'. An error from a lazy
// element is returned unchanged.
func Format(v Value) (string, error) {
	switch v := v.(type) {
	case *List:
		items, err := v.Items()
		if err != nil {
			return "", err
		}
		return formatAll(items, ";")
	case *Map:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			s, err := Format(v.entries[k])
			if err != nil {
				return "", err
			}
			parts[i] = k + "=" + s
		}
		return strings.Join(parts, ";"), nil
	default:
		return scalarText(v), nil
	}
}

func formatAll(values []Value, sep string) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		s, err := Format(v)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

// scalarText renders every value that holds no list.
func scalarText(v Value) string {
	switch v := v.(type) {
	case Null:
		return ""
	case Bool:
		return strconv.FormatBool(bool(v))
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case String:
		return string(v)
	case OutputValue:
		return v.Output.TagName
	case AgentValue:
		return v.Agent.Name
	case NodeValue:
		return v.Node.Name
	case AggregateValue:
		return v.Aggregate.Name
	case LabelValue:
		return v.Label.Name()
	case ReportValue:
		return v.Report.Name
	case BadgeValue:
		return v.Badge.Name
	case DiagnosticValue:
		return v.Diagnostic.Message
	case GraphValue:
		return v.Graph.Describe()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Map is an immutable string-keyed map. Set returns a new map and leaves
// the receiver untouched.
type Map struct {
	entries map[string]Value
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{entries: map[string]Value{}}
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Set returns a copy of m with key bound to v.
func (m *Map) Set(key string, v Value) *Map {
	entries := make(map[string]Value, len(m.entries)+1)
	for k, existing := range m.entries {
		entries[k] = existing
	}
	entries[key] = v
	return &Map{entries: entries}
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Keys returns the keys in sorted order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
