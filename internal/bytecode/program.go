package bytecode

// Version is the program format version this package reads and writes.
const Version = 1

// Program is a parsed bytecode buffer: a header followed by fragments.
// Fragment 0 is the entry point.
type Program struct {
	data    []byte
	offsets []int
	lengths []int
}

// Parse validates the program header and computes fragment offsets.
//
// The header is the format version, the fragment count and one length per
// fragment, all unsigned varints. Fragment bodies follow the header back to
// back and must consume the rest of the buffer exactly.
func Parse(data []byte) (*Program, error) {
	r := NewReader(data)

	version, err := r.ReadUnsigned()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, formatErrorf(0, "unsupported version %d (want %d)", version, Version)
	}

	count, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, formatErrorf(r.Offset(), "program has no fragments")
	}
	if count > r.Remaining() {
		return nil, formatErrorf(r.Offset(), "fragment count %d exceeds buffer", count)
	}

	lengths := make([]int, count)
	for i := range lengths {
		if lengths[i], err = r.ReadCount(); err != nil {
			return nil, err
		}
	}

	offsets := make([]int, count)
	next := r.Offset()
	for i, n := range lengths {
		offsets[i] = next
		next += n
		if next > len(data) {
			return nil, formatErrorf(offsets[i], "fragment %d overruns buffer", i)
		}
	}
	if next != len(data) {
		return nil, formatErrorf(next, "%d trailing bytes after last fragment", len(data)-next)
	}

	return &Program{data: data, offsets: offsets, lengths: lengths}, nil
}

// Data returns the whole buffer, header included.
func (p *Program) Data() []byte { return p.data }

// FragmentCount returns the number of fragments.
func (p *Program) FragmentCount() int { return len(p.offsets) }

// FragmentOffset returns the absolute offset of fragment i.
func (p *Program) FragmentOffset(i int) (int, bool) {
	if i < 0 || i >= len(p.offsets) {
		return 0, false
	}
	return p.offsets[i], true
}

// FragmentLength returns the encoded size of fragment i.
func (p *Program) FragmentLength(i int) int {
	if i < 0 || i >= len(p.lengths) {
		return 0
	}
	return p.lengths[i]
}

// Reader returns a cursor over the program buffer positioned at offset.
func (p *Program) Reader(offset int) Reader {
	r := NewReader(p.data)
	r.Seek(offset)
	return r
}
