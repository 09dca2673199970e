// Package blockio implements the sector-addressed positioned read/write
// primitive every higher layer writes through. It is the one place
// erase-before-write and flush semantics live.
package blockio

import (
	"io"

	"github.com/juju/errors"
)

// Device is the minimal handle blockio needs: a positioned reader/writer
// that can be flushed. *os.File satisfies it.
type Device interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
}

// ReadExactAt reads exactly len(buf) bytes from dev starting at offset.
// A short read (io.ErrUnexpectedEOF, or any other error) is a hard failure;
// there is no partial-result return: a "zero-byte or
// negative return is a hard failure."
func ReadExactAt(dev io.ReaderAt, buf []byte, offset int64) error {
	n, err := io.ReadFull(&sectionReader{dev, offset}, buf)
	if err != nil {
		return errors.Annotatef(err, "short read at offset %d (got %d of %d bytes)", offset, n, len(buf))
	}
	return nil
}

// WriteExactAt writes buf to dev at offset. If eraseLen > 0, it first writes
// eraseLen zero bytes (from a zero buffer sized to at least eraseLen)
// starting at offset and flushes, then repositions and writes the real
// bytes. Flushing after the real write is the caller's responsibility
// (rationale: redundant multi-pass writers must control exactly when
// each pass becomes durable).
func WriteExactAt(dev io.WriterAt, buf []byte, offset int64, eraseLen int, sync func() error) error {
	if eraseLen > 0 {
		zero := make([]byte, eraseLen)
		if _, err := dev.WriteAt(zero, offset); err != nil {
			return errors.Annotatef(err, "erase write at offset %d (%d bytes)", offset, eraseLen)
		}
		if sync != nil {
			if err := sync(); err != nil {
				return errors.Annotate(err, "flush after erase")
			}
		}
	}
	if _, err := dev.WriteAt(buf, offset); err != nil {
		return errors.Annotatef(err, "write at offset %d (%d bytes)", offset, len(buf))
	}
	return nil
}

// sectionReader adapts an io.ReaderAt + fixed offset to io.Reader so
// io.ReadFull can be used to loop over short reads transparently.
type sectionReader struct {
	r   io.ReaderAt
	pos int64
}

func (s *sectionReader) Read(p []byte) (int, error) {
	n, err := s.r.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}
