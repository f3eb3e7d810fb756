package reader

// memBacking is a minimal in-memory ReaderWriterAtCloser used across this
// package's tests, standing in for reffile.RefFile.
type memBacking struct {
	data   []byte
	closed bool
}

func newMemBacking(data []byte) *memBacking {
	return &memBacking{data: data}
}

func (m *memBacking) ReadAt(b []byte, off int64) (int, error) {
	n := copy(b, m.data[off:])
	return n, nil
}

func (m *memBacking) WriteAt(b []byte, off int64) (int, error) {
	if int(off)+len(b) > len(m.data) {
		grown := make([]byte, int(off)+len(b))
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[off:], b)
	return n, nil
}

func (m *memBacking) Close() error {
	m.closed = true
	return nil
}

func (m *memBacking) Flush() error { return nil }
