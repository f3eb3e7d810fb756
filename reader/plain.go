package reader

// Plain implements the direct-passthrough variant: every operation seeks
// (via ReadAt/WriteAt) because the underlying RefFile may be shared among
// several readers.
type Plain struct {
	backing   ReaderAtCloser
	startLBA  uint32
	lengthLBA uint32
}

// NewPlain wraps backing as a plain reader over the LBA range
// [startLBA, startLBA+lengthLBA).
func NewPlain(backing ReaderAtCloser, startLBA, lengthLBA uint32) *Plain {
	return &Plain{backing: backing, startLBA: startLBA, lengthLBA: lengthLBA}
}

func (p *Plain) StartLBA() uint32  { return p.startLBA }
func (p *Plain) LengthLBA() uint32 { return p.lengthLBA }

func (p *Plain) Size() int64 { return int64(p.lengthLBA) * LBASize }

func (p *Plain) ReadAt(b []byte, off int64) (int, error) {
	return p.backing.ReadAt(b, int64(p.startLBA)*LBASize+off)
}

func (p *Plain) ReadLBA(dst []byte, lba, nlba uint32) (uint32, error) {
	if err := checkRange(lba, nlba, p.lengthLBA); err != nil {
		return 0, err
	}
	off := int64(p.startLBA+lba) * LBASize
	n, err := p.backing.ReadAt(dst[:int64(nlba)*LBASize], off)
	return uint32(n) / LBASize, err
}

func (p *Plain) WriteLBA(src []byte, lba, nlba uint32) (uint32, error) {
	if err := checkRange(lba, nlba, p.lengthLBA); err != nil {
		return 0, err
	}
	w, ok := p.backing.(interface {
		WriteAt([]byte, int64) (int, error)
	})
	if !ok {
		return 0, ErrReadOnly
	}
	off := int64(p.startLBA+lba) * LBASize
	n, err := w.WriteAt(src[:int64(nlba)*LBASize], off)
	return uint32(n) / LBASize, err
}

func (p *Plain) Flush() error {
	if f, ok := p.backing.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

func (p *Plain) Close() error { return p.backing.Close() }
