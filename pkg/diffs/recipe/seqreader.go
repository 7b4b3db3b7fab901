package recipe

import (
	"io"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
)

// seqReader adapts a plain io.Reader of known total size (a
// compress/flate, compress/gzip, or compress/zlib decoder) to
// ioutil.SequentialReader, the shape every recipe's prepared output
// must satisfy.
type seqReader struct {
	r      io.Reader
	size   uint64
	pos    uint64
	closer io.Closer
}

func newSeqReader(r io.Reader, size uint64) ioutil.SequentialReader {
	return &seqReader{r: r, size: size}
}

// newSeqReaderWithCloser is the same as newSeqReader but also releases
// closer once the stream is fully consumed, for decoders (zstd) that
// hold background goroutines until closed.
func newSeqReaderWithCloser(r io.Reader, size uint64, closer io.Closer) ioutil.SequentialReader {
	return &seqReader{r: r, size: size, closer: closer}
}

func (s *seqReader) Read(p []byte) (int, error) {
	remain := s.size - s.pos
	if remain == 0 {
		s.closeOnce()
		return 0, io.EOF
	}
	if uint64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := s.r.Read(p)
	s.pos += uint64(n)
	if err == io.EOF || s.pos == s.size {
		s.closeOnce()
	}
	return n, err
}

func (s *seqReader) closeOnce() {
	if s.closer != nil {
		s.closer.Close()
		s.closer = nil
	}
}

func (s *seqReader) Skip(n uint64) error { return ioutil.DiscardSkip(s, n) }
func (s *seqReader) Size() uint64        { return s.size }
func (s *seqReader) Tell() uint64        { return s.pos }

// channelSeqReader adapts a streamchan.Channel to
// ioutil.SequentialReader, for recipes whose underlying library is
// push-based (writes a whole output via an io.Writer) rather than
// pull-based.
type channelSeqReader struct {
	ch   interface {
		ReadSome(p []byte) (int, error)
	}
	size uint64
	pos  uint64
}

func newChannelSeqReader(ch interface {
	ReadSome(p []byte) (int, error)
}, size uint64) ioutil.SequentialReader {
	return &channelSeqReader{ch: ch, size: size}
}

func (c *channelSeqReader) Read(p []byte) (int, error) {
	remain := c.size - c.pos
	if remain == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := c.ch.ReadSome(p)
	c.pos += uint64(n)
	return n, err
}

func (c *channelSeqReader) Skip(n uint64) error { return ioutil.DiscardSkip(c, n) }
func (c *channelSeqReader) Size() uint64        { return c.size }
func (c *channelSeqReader) Tell() uint64        { return c.pos }
