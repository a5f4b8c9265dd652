package bytecode

import (
	"fmt"
	"sort"
)

// Opcode identifies one expression in a compiled graph program.
// Opcodes are grouped into ranges by the kind of value they produce.
type Opcode byte

const (
	// ========================================================================
	// Bool (0x00-0x0F)
	// ========================================================================

	OpBoolFalse  Opcode = 0x00
	OpBoolTrue   Opcode = 0x01
	OpBoolNot    Opcode = 0x02 // BoolNot <expr>
	OpBoolAnd    Opcode = 0x03 // BoolAnd <expr> <expr>
	OpBoolOr     Opcode = 0x04
	OpBoolXor    Opcode = 0x05
	OpBoolEq     Opcode = 0x06
	OpBoolOption Opcode = 0x07 // BoolOption <name:str> <description:str> <default:expr>

	// ========================================================================
	// Int (0x10-0x1F)
	// ========================================================================

	OpIntLiteral  Opcode = 0x10 // IntLiteral <value:svarint>
	OpIntEq       Opcode = 0x11
	OpIntLt       Opcode = 0x12
	OpIntGt       Opcode = 0x13
	OpIntAdd      Opcode = 0x14
	OpIntMultiply Opcode = 0x15
	OpIntDivide   Opcode = 0x16
	OpIntModulo   Opcode = 0x17
	OpIntNegate   Opcode = 0x18
	OpIntOption   Opcode = 0x19 // IntOption <name:str> <description:str> <min:expr> <max:expr> <default:expr>

	// ========================================================================
	// String (0x20-0x2F)
	// ========================================================================

	OpStrEmpty   Opcode = 0x20
	OpStrLiteral Opcode = 0x21 // StrLiteral <value:str>
	OpStrCompare Opcode = 0x22 // StrCompare <expr> <expr> <mode:uvarint>
	OpStrConcat  Opcode = 0x23
	OpStrFormat  Opcode = 0x24 // StrFormat <format:expr> <count:uvarint> <arg:expr>...
	OpStrSplit   Opcode = 0x25
	OpStrJoin    Opcode = 0x26 // StrJoin <separator:expr> <list:expr>
	OpStrMatch   Opcode = 0x27
	OpStrReplace Opcode = 0x28
	OpStrOption  Opcode = 0x29 // StrOption <name:str> <description:str> <pattern> <message> <values> <default>

	// ========================================================================
	// Enum (0x30-0x3F)
	// ========================================================================

	OpEnumConstant Opcode = 0x30
	OpEnumParse    Opcode = 0x31 // EnumParse <text:expr> <names:expr> <values:expr>
	OpEnumToString Opcode = 0x32

	// ========================================================================
	// List (0x40-0x4F)
	// ========================================================================

	OpListEmpty    Opcode = 0x40
	OpListPush     Opcode = 0x41
	OpListPushLazy Opcode = 0x42 // ListPushLazy <list:expr> <fragment>
	OpListCount    Opcode = 0x43
	OpListElement  Opcode = 0x44
	OpListConcat   Opcode = 0x45
	OpListUnion    Opcode = 0x46
	OpListExcept   Opcode = 0x47
	OpListSelect   Opcode = 0x48 // ListSelect <list:expr> <fragment>
	OpListWhere    Opcode = 0x49 // ListWhere <list:expr> <fragment>
	OpListDistinct Opcode = 0x4A
	OpListContains Opcode = 0x4B
	OpListLazy     Opcode = 0x4C // ListLazy <fragment>
	OpListOption   Opcode = 0x4D

	// ========================================================================
	// Output sets (0x50-0x5F)
	// ========================================================================

	OpNodeOutputs Opcode = 0x50 // NodeOutputs <node:expr>
	OpNodeOutput  Opcode = 0x51 // NodeOutput <node:expr> <index:uvarint>

	// ========================================================================
	// Map (0x60-0x6F)
	// ========================================================================

	OpMapEmpty Opcode = 0x60
	OpMapGet   Opcode = 0x61 // MapGet <map> <key> <default>
	OpMapSet   Opcode = 0x62 // MapSet <map> <key> <value>

	// ========================================================================
	// Control (0x70-0x7F)
	// ========================================================================

	OpCall     Opcode = 0x70 // Call <count:uvarint> <arg:expr>... <fragment>
	OpArgument Opcode = 0x71 // Argument <index:uvarint>
	OpJump     Opcode = 0x72 // Jump <fragment>
	OpChoose   Opcode = 0x73 // Choose <cond:expr> <true:fragment> <false:fragment>
	OpThrow    Opcode = 0x74 // Throw <file:str> <line:uvarint> <message:expr>
	OpNull     Opcode = 0x75

	// ========================================================================
	// Graph (0x80-0x8F)
	// ========================================================================

	OpAgent      Opcode = 0x80
	OpNode       Opcode = 0x81
	OpAggregate  Opcode = 0x82
	OpLabel      Opcode = 0x83
	OpBadge      Opcode = 0x84
	OpReport     Opcode = 0x85
	OpDiagnostic Opcode = 0x86
	OpGraph      Opcode = 0x87
)

// OperandKind describes how one operand is encoded after its opcode byte.
type OperandKind byte

const (
	OperandExpr     OperandKind = iota // nested expression
	OperandUnsigned                    // uvarint
	OperandSigned                      // zigzag svarint
	OperandString                      // uvarint length + UTF-8 bytes
	OperandFragment                    // uvarint fragment index
	OperandExprList                    // uvarint count followed by that many expressions
)

func (k OperandKind) String() string {
	switch k {
	case OperandExpr:
		return "expr"
	case OperandUnsigned:
		return "uint"
	case OperandSigned:
		return "int"
	case OperandString:
		return "str"
	case OperandFragment:
		return "fragment"
	case OperandExprList:
		return "exprs"
	default:
		return fmt.Sprintf("OperandKind(%d)", byte(k))
	}
}

// Category groups opcodes by the value kind they operate on.
type Category string

const (
	CategoryBool    Category = "bool"
	CategoryInt     Category = "int"
	CategoryString  Category = "string"
	CategoryEnum    Category = "enum"
	CategoryList    Category = "list"
	CategoryOutputs Category = "outputs"
	CategoryMap     Category = "map"
	CategoryControl Category = "control"
	CategoryGraph   Category = "graph"
)

// OpcodeInfo describes the name and operand layout of an opcode.
type OpcodeInfo struct {
	Name     string
	Category Category
	Operands []OperandKind
}

var opcodeInfoTable = buildOpcodeInfoTable()

func buildOpcodeInfoTable() map[Opcode]OpcodeInfo {
	const (
		e    = OperandExpr
		u    = OperandUnsigned
		s    = OperandSigned
		str  = OperandString
		frag = OperandFragment
		list = OperandExprList
	)

	return map[Opcode]OpcodeInfo{
		OpBoolFalse:  {"BoolFalse", CategoryBool, nil},
		OpBoolTrue:   {"BoolTrue", CategoryBool, nil},
		OpBoolNot:    {"BoolNot", CategoryBool, []OperandKind{e}},
		OpBoolAnd:    {"BoolAnd", CategoryBool, []OperandKind{e, e}},
		OpBoolOr:     {"BoolOr", CategoryBool, []OperandKind{e, e}},
		OpBoolXor:    {"BoolXor", CategoryBool, []OperandKind{e, e}},
		OpBoolEq:     {"BoolEq", CategoryBool, []OperandKind{e, e}},
		OpBoolOption: {"BoolOption", CategoryBool, []OperandKind{str, str, e}},

		OpIntLiteral:  {"IntLiteral", CategoryInt, []OperandKind{s}},
		OpIntEq:       {"IntEq", CategoryInt, []OperandKind{e, e}},
		OpIntLt:       {"IntLt", CategoryInt, []OperandKind{e, e}},
		OpIntGt:       {"IntGt", CategoryInt, []OperandKind{e, e}},
		OpIntAdd:      {"IntAdd", CategoryInt, []OperandKind{e, e}},
		OpIntMultiply: {"IntMultiply", CategoryInt, []OperandKind{e, e}},
		OpIntDivide:   {"IntDivide", CategoryInt, []OperandKind{e, e}},
		OpIntModulo:   {"IntModulo", CategoryInt, []OperandKind{e, e}},
		OpIntNegate:   {"IntNegate", CategoryInt, []OperandKind{e}},
		OpIntOption:   {"IntOption", CategoryInt, []OperandKind{str, str, e, e, e}},

		OpStrEmpty:   {"StrEmpty", CategoryString, nil},
		OpStrLiteral: {"StrLiteral", CategoryString, []OperandKind{str}},
		OpStrCompare: {"StrCompare", CategoryString, []OperandKind{e, e, u}},
		OpStrConcat:  {"StrConcat", CategoryString, []OperandKind{e, e}},
		OpStrFormat:  {"StrFormat", CategoryString, []OperandKind{e, list}},
		OpStrSplit:   {"StrSplit", CategoryString, []OperandKind{e, e}},
		OpStrJoin:    {"StrJoin", CategoryString, []OperandKind{e, e}},
		OpStrMatch:   {"StrMatch", CategoryString, []OperandKind{e, e}},
		OpStrReplace: {"StrReplace", CategoryString, []OperandKind{e, e, e}},
		OpStrOption:  {"StrOption", CategoryString, []OperandKind{str, str, e, e, e, e}},

		OpEnumConstant: {"EnumConstant", CategoryEnum, []OperandKind{s}},
		OpEnumParse:    {"EnumParse", CategoryEnum, []OperandKind{e, e, e}},
		OpEnumToString: {"EnumToString", CategoryEnum, []OperandKind{e, e, e}},

		OpListEmpty:    {"ListEmpty", CategoryList, nil},
		OpListPush:     {"ListPush", CategoryList, []OperandKind{e, e}},
		OpListPushLazy: {"ListPushLazy", CategoryList, []OperandKind{e, frag}},
		OpListCount:    {"ListCount", CategoryList, []OperandKind{e}},
		OpListElement:  {"ListElement", CategoryList, []OperandKind{e, e}},
		OpListConcat:   {"ListConcat", CategoryList, []OperandKind{e, e}},
		OpListUnion:    {"ListUnion", CategoryList, []OperandKind{e, e}},
		OpListExcept:   {"ListExcept", CategoryList, []OperandKind{e, e}},
		OpListSelect:   {"ListSelect", CategoryList, []OperandKind{e, frag}},
		OpListWhere:    {"ListWhere", CategoryList, []OperandKind{e, frag}},
		OpListDistinct: {"ListDistinct", CategoryList, []OperandKind{e}},
		OpListContains: {"ListContains", CategoryList, []OperandKind{e, e}},
		OpListLazy:     {"ListLazy", CategoryList, []OperandKind{frag}},
		OpListOption:   {"ListOption", CategoryList, []OperandKind{str, str, e}},

		OpNodeOutputs: {"NodeOutputs", CategoryOutputs, []OperandKind{e}},
		OpNodeOutput:  {"NodeOutput", CategoryOutputs, []OperandKind{e, u}},

		OpMapEmpty: {"MapEmpty", CategoryMap, nil},
		OpMapGet:   {"MapGet", CategoryMap, []OperandKind{e, e, e}},
		OpMapSet:   {"MapSet", CategoryMap, []OperandKind{e, e, e}},

		OpCall:     {"Call", CategoryControl, []OperandKind{list, frag}},
		OpArgument: {"Argument", CategoryControl, []OperandKind{u}},
		OpJump:     {"Jump", CategoryControl, []OperandKind{frag}},
		OpChoose:   {"Choose", CategoryControl, []OperandKind{e, frag, frag}},
		OpThrow:    {"Throw", CategoryControl, []OperandKind{str, u, e}},
		OpNull:     {"Null", CategoryControl, nil},

		OpAgent: {"Agent", CategoryGraph, []OperandKind{e, e}},
		// name agent handler args inputs fences outputCount runEarly labels users submitters warnings
		OpNode:       {"Node", CategoryGraph, []OperandKind{e, e, u, e, e, e, u, e, e, e, e, e}},
		OpAggregate:  {"Aggregate", CategoryGraph, []OperandKind{e, e, e}},
		OpLabel:      {"Label", CategoryGraph, []OperandKind{e, e, e, e, e}},
		OpBadge:      {"Badge", CategoryGraph, []OperandKind{e, e, e, e, e}},
		OpReport:     {"Report", CategoryGraph, []OperandKind{e, e, e}},
		OpDiagnostic: {"Diagnostic", CategoryGraph, []OperandKind{str, u, e, e, e}},
		OpGraph:      {"Graph", CategoryGraph, []OperandKind{e, e, e, e, e}},
	}
}

// LookupOpcode returns the layout of op, or false if op is not defined.
func LookupOpcode(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// String returns the mnemonic, or UNKNOWN(0xNN) for undefined opcodes.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// AllOpcodes returns every defined opcode in ascending order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}
