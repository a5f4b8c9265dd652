package bytecode

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// ErrMalformed is the root of every error caused by an invalid program.
var ErrMalformed = errors.New("malformed bytecode")

// maxVarintLen is the longest encoding of a 64-bit value.
const maxVarintLen = 10

// FormatError reports malformed bytecode at a buffer offset.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bytecode offset %d: %s", e.Offset, e.Msg)
}

// Unwrap lets callers match with errors.Is(err, ErrMalformed).
func (e *FormatError) Unwrap() error {
	return ErrMalformed
}

func formatErrorf(offset int, format string, args ...any) *FormatError {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// Reader is a cursor over a bytecode buffer. The zero value reads nothing.
// Readers are values: copying one forks the cursor.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a reader positioned at offset 0.
func NewReader(data []byte) Reader {
	return Reader{data: data}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.pos }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(offset int) { r.pos = offset }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Slice returns the raw bytes between two offsets.
func (r *Reader) Slice(from, to int) []byte {
	if from < 0 || to > len(r.data) || from > to {
		return nil
	}
	return r.data[from:to]
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos < 0 || r.pos >= len(r.data) {
		return 0, formatErrorf(r.pos, "unexpected end of buffer")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadOpcode reads an opcode byte without validating it.
func (r *Reader) ReadOpcode() (Opcode, error) {
	b, err := r.ReadByte()
	return Opcode(b), err
}

// ReadUnsigned reads a LEB128 unsigned integer.
func (r *Reader) ReadUnsigned() (uint64, error) {
	start := r.pos
	var v uint64
	for i := 0; i < maxVarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, formatErrorf(start, "truncated varint")
		}
		if i == maxVarintLen-1 && b > 1 {
			return 0, formatErrorf(start, "varint overflows 64 bits")
		}
		v |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, formatErrorf(start, "varint overflows 64 bits")
}

// ReadSigned reads a signed integer folded into the low bit of an unsigned one.
func (r *Reader) ReadSigned() (int64, error) {
	v, err := r.ReadUnsigned()
	if err != nil {
		return 0, err
	}
	return decodeSigned(v), nil
}

// ReadCount reads an unsigned integer used as a length or index and checks it
// fits in an int.
func (r *Reader) ReadCount() (int, error) {
	start := r.pos
	v, err := r.ReadUnsigned()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, formatErrorf(start, "count %d out of range", v)
	}
	return int(v), nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	start := r.pos
	n, err := r.ReadCount()
	if err != nil {
		return "", err
	}
	if n > r.Remaining() {
		return "", formatErrorf(start, "string of %d bytes exceeds buffer", n)
	}
	b := r.data[r.pos : r.pos+n]
	if !utf8.Valid(b) {
		return "", formatErrorf(start, "string is not valid UTF-8")
	}
	r.pos += n
	return string(b), nil
}

func decodeSigned(v uint64) int64 {
	if v&1 != 0 {
		return -int64(v >> 1)
	}
	return int64(v >> 1)
}

func encodeSigned(v int64) uint64 {
	if v < 0 {
		return uint64(-v)<<1 | 1
	}
	return uint64(v) << 1
}
