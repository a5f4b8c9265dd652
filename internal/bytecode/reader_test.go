package bytecode

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Unsigned(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		bytes []byte
	}{
		{name: "zero", value: 0, bytes: []byte{0x00}},
		{name: "one byte max", value: 127, bytes: []byte{0x7F}},
		{name: "two bytes", value: 128, bytes: []byte{0x80, 0x01}},
		{name: "three hundred", value: 300, bytes: []byte{0xAC, 0x02}},
		{name: "max uint64", value: math.MaxUint64, bytes: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.bytes, AppendUnsigned(nil, tt.value))

			r := NewReader(tt.bytes)
			got, err := r.ReadUnsigned()
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
			assert.Equal(t, 0, r.Remaining())
		})
	}
}

func TestReader_Signed(t *testing.T) {
	tests := []struct {
		value   int64
		encoded uint64
	}{
		{value: 0, encoded: 0},
		{value: 1, encoded: 2},
		{value: -1, encoded: 3},
		{value: 2, encoded: 4},
		{value: -2, encoded: 5},
		{value: 1000, encoded: 2000},
		{value: -1000, encoded: 2001},
		{value: math.MaxInt64, encoded: math.MaxUint64 - 1},
		{value: -math.MaxInt64, encoded: math.MaxUint64},
	}

	for _, tt := range tests {
		buf := AppendSigned(nil, tt.value)
		assert.Equal(t, AppendUnsigned(nil, tt.encoded), buf, "encoding of %d", tt.value)

		r := NewReader(buf)
		got, err := r.ReadSigned()
		require.NoError(t, err)
		assert.Equal(t, tt.value, got)
	}
}

func TestReader_SignedRejectsMinInt64(t *testing.T) {
	assert.PanicsWithValue(t, "bytecode: math.MinInt64 has no signed varint encoding", func() {
		AppendSigned(nil, math.MinInt64)
	})
	assert.Panics(t, func() {
		NewWriter().Root().Signed(math.MinInt64)
	})
}

func TestReader_String(t *testing.T) {
	buf := AppendString(nil, "Compile Win64")
	buf = AppendString(buf, "")
	buf = AppendString(buf, "héllo")

	r := NewReader(buf)
	for _, want := range []string{"Compile Win64", "", "héllo"} {
		got, err := r.ReadString()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, r.Remaining())
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		read    func(r *Reader) error
		wantMsg string
	}{
		{
			name:    "empty buffer",
			data:    nil,
			read:    func(r *Reader) error { _, err := r.ReadByte(); return err },
			wantMsg: "unexpected end of buffer",
		},
		{
			name:    "truncated varint",
			data:    []byte{0x80, 0x80},
			read:    func(r *Reader) error { _, err := r.ReadUnsigned(); return err },
			wantMsg: "truncated varint",
		},
		{
			name:    "overlong varint",
			data:    []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F},
			read:    func(r *Reader) error { _, err := r.ReadUnsigned(); return err },
			wantMsg: "overflows 64 bits",
		},
		{
			name:    "string past end",
			data:    []byte{0x05, 'a', 'b'},
			read:    func(r *Reader) error { _, err := r.ReadString(); return err },
			wantMsg: "exceeds buffer",
		},
		{
			name:    "invalid utf8",
			data:    []byte{0x02, 0xC3, 0x28},
			read:    func(r *Reader) error { _, err := r.ReadString(); return err },
			wantMsg: "not valid UTF-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			err := tt.read(&r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
			assert.Contains(t, err.Error(), tt.wantMsg)

			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, 0, fe.Offset)
		})
	}
}
