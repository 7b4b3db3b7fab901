// Package ioutil defines the byte I/O capability traits the engine
// builds on: a random-access Reader, a forward-only SequentialReader,
// and a forward-only SequentialWriter, plus the Slice/Chain composition
// helpers that build virtual readers over other readers without
// copying.
package ioutil

import (
	"io"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
)

// Reader is a random-access byte source of known size.
type Reader interface {
	// Size returns the total number of bytes the reader exposes.
	Size() uint64
	// ReadAt fills p starting at offset, returning the number of bytes
	// read (which may be less than len(p) only at end of stream) and
	// any error encountered.
	ReadAt(offset uint64, p []byte) (int, error)
}

// ReadExact reads exactly len(p) bytes from r starting at offset,
// returning diffserr.KindIOReaderReadFailure if fewer are available.
func ReadExact(r Reader, offset uint64, p []byte) error {
	total := 0
	for total < len(p) {
		n, err := r.ReadAt(offset+uint64(total), p[total:])
		total += n
		if err != nil {
			if err == io.EOF && total == len(p) {
				return nil
			}
			return diffserr.Wrap(diffserr.KindIOReaderReadFailure, "short read", err)
		}
		if n == 0 {
			return diffserr.New(diffserr.KindIOReaderReadFailure, "reader returned no bytes and no error")
		}
	}
	return nil
}

// ReadAll reads the entirety of r into a new byte slice. Intended for
// tests and small items; production code paths should stream through
// SequentialReader instead.
func ReadAll(r Reader) ([]byte, error) {
	buf := make([]byte, r.Size())
	if err := ReadExact(r, 0, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// bytesReader is an in-memory Reader.
type bytesReader struct {
	data []byte
}

// NewBytesReader returns a Reader over an in-memory byte slice. The
// slice is not copied; callers must not mutate it afterward.
func NewBytesReader(data []byte) Reader {
	return &bytesReader{data: data}
}

func (b *bytesReader) Size() uint64 { return uint64(len(b.data)) }

func (b *bytesReader) ReadAt(offset uint64, p []byte) (int, error) {
	if offset >= uint64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[offset:])
	return n, nil
}

// allZerosReader yields length zero bytes and backs the all_zeros
// recipe.
type allZerosReader struct {
	length uint64
}

// NewAllZerosReader returns a Reader that yields length zero bytes.
func NewAllZerosReader(length uint64) Reader {
	return &allZerosReader{length: length}
}

func (a *allZerosReader) Size() uint64 { return a.length }

func (a *allZerosReader) ReadAt(offset uint64, p []byte) (int, error) {
	if offset >= a.length {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := len(p)
	if remaining := a.length - offset; uint64(n) > remaining {
		n = int(remaining)
	}
	for i := 0; i < n; i++ {
		p[i] = 0
	}
	return n, nil
}
