package ioutil

import (
	"os"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
)

// fileReader is a Reader backed directly by an *os.File, with no
// intermediate buffering layer — matching how shoal/internal/
// provisioner/oci.Storage opens blob files and reads them directly via
// os.Open/os.Stat rather than through a buffered wrapper.
type fileReader struct {
	f    *os.File
	size uint64
}

// NewFileReader opens path and returns a Reader over its contents. The
// caller is responsible for closing the returned io.Closer when the
// file is no longer needed (fileReader also implements io.Closer).
func NewFileReader(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diffserr.Wrap(diffserr.KindIOBinaryFileReaderFailedOpen, "open "+path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, diffserr.Wrap(diffserr.KindIOBinaryFileReaderFailedOpen, "stat "+path, err)
	}
	return &fileReader{f: f, size: uint64(info.Size())}, nil
}

func (r *fileReader) Size() uint64 { return r.size }

func (r *fileReader) ReadAt(offset uint64, p []byte) (int, error) {
	return r.f.ReadAt(p, int64(offset))
}

// Close releases the underlying file handle.
func (r *fileReader) Close() error { return r.f.Close() }

// fileWriter is a SequentialWriter backed directly by an *os.File.
type fileWriter struct {
	f   *os.File
	pos uint64
}

// NewFileWriter creates (truncating if necessary) path and returns a
// SequentialWriter over it.
func NewFileWriter(path string) (SequentialWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, diffserr.Wrap(diffserr.KindIOBinaryFileWriterFailedOpen, "create "+path, err)
	}
	return &fileWriter{f: f}, nil
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.pos += uint64(n)
	return n, err
}

func (w *fileWriter) Flush() error { return w.f.Sync() }

func (w *fileWriter) Tell() uint64 { return w.pos }

// Close releases the underlying file handle.
func (w *fileWriter) Close() error { return w.f.Close() }
