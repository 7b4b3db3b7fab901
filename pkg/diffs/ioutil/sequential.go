package ioutil

import (
	"io"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
)

// SequentialReader is a forward-only byte source of known total size.
type SequentialReader interface {
	// Read fills p with the next bytes in the stream, like io.Reader.
	Read(p []byte) (int, error)
	// Skip advances the stream by n bytes, reading and discarding them
	// if no cheaper path exists.
	Skip(n uint64) error
	// Size returns the total number of bytes the stream will yield.
	Size() uint64
	// Tell returns the number of bytes read (and skipped) so far.
	Tell() uint64
}

// SequentialWriter is a forward-only byte sink.
type SequentialWriter interface {
	Write(p []byte) (int, error)
	Flush() error
	Tell() uint64
}

// seqOverReader adapts a random-access Reader into a SequentialReader
// starting at offset 0.
type seqOverReader struct {
	r   Reader
	pos uint64
}

// NewSequentialReader wraps r as a forward-only stream starting at
// offset 0. This is how a Reader-kind prepared item satisfies
// MakeSequentialReader.
func NewSequentialReader(r Reader) SequentialReader {
	return &seqOverReader{r: r}
}

func (s *seqOverReader) Read(p []byte) (int, error) {
	if s.pos >= s.r.Size() {
		return 0, io.EOF
	}
	n, err := s.r.ReadAt(s.pos, p)
	s.pos += uint64(n)
	return n, err
}

func (s *seqOverReader) Skip(n uint64) error {
	remaining := s.r.Size() - s.pos
	if n > remaining {
		n = remaining
	}
	s.pos += n
	return nil
}

func (s *seqOverReader) Size() uint64 { return s.r.Size() }
func (s *seqOverReader) Tell() uint64 { return s.pos }

// DiscardSkip implements Skip by reading into a scratch buffer and
// discarding it, for SequentialReader implementations with no cheaper
// seek primitive (e.g. decompressor output).
func DiscardSkip(r SequentialReader, n uint64) error {
	buf := make([]byte, 32*1024)
	for n > 0 {
		chunk := uint64(len(buf))
		if n < chunk {
			chunk = n
		}
		read, err := r.Read(buf[:chunk])
		n -= uint64(read)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return diffserr.Wrap(diffserr.KindIOReaderReadFailure, "discard during skip", err)
		}
	}
	return nil
}

// CopyAll copies every byte of r into w, matching Write(writer) on a
// prepared item: "copies the whole item through a sequential reader."
func CopyAll(w SequentialWriter, r SequentialReader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return diffserr.Wrap(diffserr.KindIOReaderReadFailure, "write during copy", werr)
			}
		}
		if err != nil {
			if err == io.EOF {
				return w.Flush()
			}
			return diffserr.Wrap(diffserr.KindIOReaderReadFailure, "read during copy", err)
		}
	}
}
