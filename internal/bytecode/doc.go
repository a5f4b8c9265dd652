// Package bytecode defines the compiled form of a build graph program.
//
// A program is a header (format version, fragment count, fragment lengths)
// followed by the fragment bodies. Each fragment holds exactly one
// prefix-encoded expression: an opcode byte followed by its operands, which
// are either nested expressions or inline literals (unsigned and signed
// varints, length-prefixed strings, fragment indices).
//
// The package reads programs (Parse, Reader), writes them (Writer) and
// renders them for humans (Disassemble). Evaluation lives in package vm.
package bytecode
