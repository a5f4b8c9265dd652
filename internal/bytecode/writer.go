package bytecode

import "math"

// Writer assembles a program fragment by fragment. Fragment 0, the entry
// point, exists from the start.
//
//	w := bytecode.NewWriter()
//	w.Root().Op(OpStrLiteral).Str("hello")
//	data := w.Bytes()
type Writer struct {
	fragments []*Fragment
}

// Fragment is a buffer being filled with one fragment's bytecode.
// Every method appends and returns the receiver so calls can be chained.
type Fragment struct {
	index int
	buf   []byte
}

// NewWriter returns a writer holding an empty entry fragment.
func NewWriter() *Writer {
	w := &Writer{}
	w.NewFragment()
	return w
}

// Root returns fragment 0.
func (w *Writer) Root() *Fragment { return w.fragments[0] }

// NewFragment appends an empty fragment and returns it.
func (w *Writer) NewFragment() *Fragment {
	f := &Fragment{index: len(w.fragments)}
	w.fragments = append(w.fragments, f)
	return f
}

// Bytes encodes the header and every fragment.
func (w *Writer) Bytes() []byte {
	var out []byte
	out = AppendUnsigned(out, Version)
	out = AppendUnsigned(out, uint64(len(w.fragments)))
	for _, f := range w.fragments {
		out = AppendUnsigned(out, uint64(len(f.buf)))
	}
	for _, f := range w.fragments {
		out = append(out, f.buf...)
	}
	return out
}

// Index returns the fragment's position in the fragment table.
func (f *Fragment) Index() int { return f.index }

// Len returns the number of bytes written so far.
func (f *Fragment) Len() int { return len(f.buf) }

// Op appends an opcode.
func (f *Fragment) Op(op Opcode) *Fragment {
	f.buf = append(f.buf, byte(op))
	return f
}

// Unsigned appends an unsigned varint.
func (f *Fragment) Unsigned(v uint64) *Fragment {
	f.buf = AppendUnsigned(f.buf, v)
	return f
}

// Signed appends a signed varint. It panics on math.MinInt64, which the
// encoding cannot represent.
func (f *Fragment) Signed(v int64) *Fragment {
	f.buf = AppendSigned(f.buf, v)
	return f
}

// Str appends a length-prefixed string.
func (f *Fragment) Str(s string) *Fragment {
	f.buf = AppendString(f.buf, s)
	return f
}

// Ref appends a reference to another fragment.
func (f *Fragment) Ref(target *Fragment) *Fragment {
	return f.Unsigned(uint64(target.index))
}

// Raw appends bytes verbatim.
func (f *Fragment) Raw(b ...byte) *Fragment {
	f.buf = append(f.buf, b...)
	return f
}

// AppendUnsigned appends v in LEB128 form.
func AppendUnsigned(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// AppendSigned appends v as its magnitude shifted left one bit, with the low
// bit set for negative values. The representable range is
// [-math.MaxInt64, math.MaxInt64]; AppendSigned panics on math.MinInt64.
func AppendSigned(buf []byte, v int64) []byte {
	if v == math.MinInt64 {
		panic("bytecode: math.MinInt64 has no signed varint encoding")
	}
	return AppendUnsigned(buf, encodeSigned(v))
}

// AppendString appends a length-prefixed string.
func AppendString(buf []byte, s string) []byte {
	buf = AppendUnsigned(buf, uint64(len(s)))
	return append(buf, s...)
}
