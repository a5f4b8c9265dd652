// Package vm evaluates compiled graph programs.
//
// Evaluation starts at fragment 0 and recurses through nested
// expressions. A Jump evaluates a fragment at most once per Frame, which
// is what gives graph objects referenced from several places a single
// identity. A Call evaluates a fragment in a fresh Frame every time and is
// how list mapping and filtering apply a fragment per element.
//
// Errors fall into three groups: malformed programs (ErrMalformed),
// script errors raised by Throw (*ScriptError), and option values that
// fail validation (*OptionError).
package vm
