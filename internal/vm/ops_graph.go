package vm

import (
	"strconv"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
	"github.com/leapstack-labs/buildgraph/internal/graph"
)

func init() {
	register(opAgent, bytecode.OpAgent)
	register(opNode, bytecode.OpNode)
	register(opAggregate, bytecode.OpAggregate)
	register(opLabel, bytecode.OpLabel)
	register(opBadge, bytecode.OpBadge)
	register(opReport, bytecode.OpReport)
	register(opDiagnostic, bytecode.OpDiagnostic)
	register(opGraph, bytecode.OpGraph)
}

func opAgent(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	types, err := in.evalStrings(f)
	if err != nil {
		return nil, err
	}
	return AgentValue{graph.NewAgent(name, types)}, nil
}

// evalOutputs evaluates a list of references. An element may be an
// output, a node (meaning its default output), a nested list or null.
func (in *Interpreter) evalOutputs(f *Frame) ([]*graph.Output, error) {
	items, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	return in.appendOutputs(f, nil, items)
}

func (in *Interpreter) appendOutputs(f *Frame, out []*graph.Output, items []Value) ([]*graph.Output, error) {
	for _, v := range items {
		switch v := v.(type) {
		case OutputValue:
			out = append(out, v.Output)
		case NodeValue:
			out = append(out, v.Node.DefaultOutput())
		case *List:
			nested, err := v.Items()
			if err != nil {
				return nil, err
			}
			if out, err = in.appendOutputs(f, out, nested); err != nil {
				return nil, err
			}
		case Null:
		default:
			return nil, in.malformedf(f, "expected output reference, got %s", v.Kind())
		}
	}
	return out, nil
}

func (in *Interpreter) handler(f *Frame, i int) (string, error) {
	if len(in.handlers) == 0 {
		return strconv.Itoa(i), nil
	}
	if i >= len(in.handlers) {
		return "", in.malformedf(f, "handler %d out of range, table has %d", i, len(in.handlers))
	}
	return in.handlers[i], nil
}

func opNode(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	agent, err := evalAs[AgentValue](in, f)
	if err != nil {
		return nil, err
	}
	handlerIndex, err := f.reader.ReadCount()
	if err != nil {
		return nil, err
	}
	handler, err := in.handler(f, handlerIndex)
	if err != nil {
		return nil, err
	}
	argValues, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	inputs, err := in.evalOutputs(f)
	if err != nil {
		return nil, err
	}
	fences, err := in.evalOutputs(f)
	if err != nil {
		return nil, err
	}
	outputCount, err := f.reader.ReadCount()
	if err != nil {
		return nil, err
	}
	runEarly, err := in.evalBool(f)
	if err != nil {
		return nil, err
	}
	labelValues, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	notifyUsers, err := in.evalStrings(f)
	if err != nil {
		return nil, err
	}
	notifySubmitters, err := in.evalStrings(f)
	if err != nil {
		return nil, err
	}
	notifyOnWarnings, err := in.evalBool(f)
	if err != nil {
		return nil, err
	}

	n := graph.NewNode(name, agent.Agent, inputs, fences, outputCount)
	n.RunEarly = runEarly
	n.NotifyUsers = notifyUsers
	n.NotifySubmitters = notifySubmitters
	n.NotifyOnWarnings = notifyOnWarnings
	for _, v := range labelValues {
		switch v := v.(type) {
		case LabelValue:
			n.Labels = append(n.Labels, v.Label)
		case Null:
		default:
			return nil, in.malformedf(f, "expected label, got %s", v.Kind())
		}
	}
	args := make([]string, len(argValues))
	for i, v := range argValues {
		if args[i], err = Format(v); err != nil {
			return nil, err
		}
	}
	n.Tasks = []graph.Task{{Handler: handler, Arguments: args}}
	return NodeValue{n}, nil
}

func opAggregate(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	outputs, err := in.evalOutputs(f)
	if err != nil {
		return nil, err
	}
	v, err := in.eval(f)
	if err != nil {
		return nil, err
	}
	var label *graph.Label
	switch v := v.(type) {
	case LabelValue:
		label = v.Label
	case Null:
	default:
		return nil, in.malformedf(f, "expected label or null, got %s", v.Kind())
	}
	return AggregateValue{graph.NewAggregate(name, outputs, label)}, nil
}

func opLabel(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	l := graph.NewLabel()
	for _, field := range []*string{&l.DashboardName, &l.DashboardCategory, &l.UgsBadge, &l.UgsProject} {
		s, _, err := in.evalOptionalString(f)
		if err != nil {
			return nil, err
		}
		*field = s
	}
	change, _, err := in.evalBound(f)
	if err != nil {
		return nil, err
	}
	switch graph.LabelChange(change) {
	case graph.LabelChangeCurrent, graph.LabelChangeCode:
		l.Change = graph.LabelChange(change)
	default:
		return nil, in.malformedf(f, "unknown label change type %d", change)
	}
	return LabelValue{l}, nil
}

func opBadge(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	project, _, err := in.evalOptionalString(f)
	if err != nil {
		return nil, err
	}
	change, _, err := in.evalBound(f)
	if err != nil {
		return nil, err
	}
	requires, err := in.evalOutputs(f)
	if err != nil {
		return nil, err
	}
	targets, err := in.evalOutputs(f)
	if err != nil {
		return nil, err
	}
	return BadgeValue{graph.NewBadge(name, project, int(change), requires, targets)}, nil
}

func opReport(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	name, err := in.evalString(f)
	if err != nil {
		return nil, err
	}
	requires, err := in.evalOutputs(f)
	if err != nil {
		return nil, err
	}
	notify, err := in.evalStrings(f)
	if err != nil {
		return nil, err
	}
	return ReportValue{graph.NewReport(name, requires, notify)}, nil
}

func opDiagnostic(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	file, err := f.reader.ReadString()
	if err != nil {
		return nil, err
	}
	line, err := f.reader.ReadCount()
	if err != nil {
		return nil, err
	}
	severity, err := in.evalInt(f)
	if err != nil {
		return nil, err
	}
	if severity < int64(graph.SeverityInfo) || severity > int64(graph.SeverityError) {
		return nil, in.malformedf(f, "unknown severity %d", severity)
	}
	msg, err := in.eval(f)
	if err != nil {
		return nil, err
	}
	text, err := Format(msg)
	if err != nil {
		return nil, err
	}
	d := &graph.Diagnostic{File: file, Line: line, Severity: graph.Severity(severity), Message: text}
	owner, err := in.eval(f)
	if err != nil {
		return nil, err
	}
	switch owner := owner.(type) {
	case NodeValue:
		d.Node = owner.Node
	case AgentValue:
		d.Agent = owner.Agent
	case Null:
	default:
		return nil, in.malformedf(f, "diagnostic owner must be a node or agent, got %s", owner.Kind())
	}
	return DiagnosticValue{d}, nil
}

// opGraph registers every node dependency-first, then the groupings that
// may pull in further nodes, then the diagnostics.
func opGraph(in *Interpreter, f *Frame, _ bytecode.Opcode) (Value, error) {
	var lists [5][]Value
	for i := range lists {
		items, err := in.evalItems(f)
		if err != nil {
			return nil, err
		}
		lists[i] = items
	}
	nodes, aggregates, reports, badges, diagnostics := lists[0], lists[1], lists[2], lists[3], lists[4]

	b := graph.NewBuilder()
	wrap := func(err error) error {
		return &MalformedError{Offset: f.reader.Offset(), Msg: "invalid graph", Err: err}
	}
	for _, v := range nodes {
		n, ok := v.(NodeValue)
		if !ok {
			return nil, in.malformedf(f, "graph node list holds a %s", v.Kind())
		}
		if err := b.RegisterNode(n.Node); err != nil {
			return nil, wrap(err)
		}
	}
	for _, v := range aggregates {
		a, ok := v.(AggregateValue)
		if !ok {
			return nil, in.malformedf(f, "graph aggregate list holds a %s", v.Kind())
		}
		if err := b.AddAggregate(a.Aggregate); err != nil {
			return nil, wrap(err)
		}
	}
	for _, v := range reports {
		r, ok := v.(ReportValue)
		if !ok {
			return nil, in.malformedf(f, "graph report list holds a %s", v.Kind())
		}
		if err := b.AddReport(r.Report); err != nil {
			return nil, wrap(err)
		}
	}
	for _, v := range badges {
		bv, ok := v.(BadgeValue)
		if !ok {
			return nil, in.malformedf(f, "graph badge list holds a %s", v.Kind())
		}
		if err := b.AddBadge(bv.Badge); err != nil {
			return nil, wrap(err)
		}
	}
	for _, v := range diagnostics {
		d, ok := v.(DiagnosticValue)
		if !ok {
			return nil, in.malformedf(f, "graph diagnostic list holds a %s", v.Kind())
		}
		b.AddDiagnostic(d.Diagnostic)
	}
	return GraphValue{b.Graph()}, nil
}
