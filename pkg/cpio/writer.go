package cpio

import (
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
)

// Writer builds a cpio archive in a chosen format, mirroring
// cpio_archive's write-side responsibilities: ordered file entries plus
// the trailer record write closes every archive with.
type Writer struct {
	format  Format
	entries []Entry
	readers []ioutil.Reader
}

// NewWriter starts an empty archive of the given format. format must be
// FormatNewASCII or FormatNewCASCII.
func NewWriter(format Format) (*Writer, error) {
	if format != FormatNewASCII && format != FormatNewCASCII {
		return nil, diffserr.New(diffserr.KindCpioBinaryFormatUnsupported, "cpio writer only supports new_ascii and newc_ascii")
	}
	return &Writer{format: format}, nil
}

// AddFile appends a file entry, matching cpio_archive::add_file's fixed
// uid/gid/nlink/dev_major/dev_minor defaults for a newly added file.
func (w *Writer) AddFile(name string, inode uint32, payload ioutil.Reader) {
	entry := NewEntry(name, inode, payload.Size())
	w.entries = append(w.entries, entry)
	w.readers = append(w.readers, payload)
}

// Write serializes every added file followed by the trailer record to
// out, matching cpio_archive::write.
func (w *Writer) Write(out ioutil.SequentialWriter) error {
	for i, entry := range w.entries {
		if err := w.writeEntry(out, entry, w.readers[i]); err != nil {
			return err
		}
	}
	trailer := Entry{Name: trailerName, NLink: 1}
	return w.writeEntry(out, trailer, ioutil.NewBytesReader(nil))
}

func (w *Writer) writeEntry(out ioutil.SequentialWriter, entry Entry, payload ioutil.Reader) error {
	name := entry.Name
	namesize := uint32(len(name) + 1) // include NUL terminator

	var check uint32
	if w.format == FormatNewCASCII {
		c, err := newcChecksum(payload)
		if err != nil {
			return err
		}
		check = c
	}

	header := make([]byte, headerSize)
	magic := newASCIIMagic
	if w.format == FormatNewCASCII {
		magic = newCASCIIMagic
	}
	copy(header[offMagic:], magic[:])
	uint32ToHex(entry.Inode, header[offIno:offIno+8])
	uint32ToHex(entry.Mode, header[offMode:offMode+8])
	uint32ToHex(entry.UID, header[offUID:offUID+8])
	uint32ToHex(entry.GID, header[offGID:offGID+8])
	uint32ToHex(entry.NLink, header[offNLink:offNLink+8])
	uint32ToHex(entry.MTime, header[offMTime:offMTime+8])
	uint32ToHex(uint32(payload.Size()), header[offFilesize:offFilesize+8])
	uint32ToHex(entry.DevMajor, header[offDevMajor:offDevMajor+8])
	uint32ToHex(entry.DevMinor, header[offDevMinor:offDevMinor+8])
	uint32ToHex(entry.RDevMajor, header[offRDevMajor:offRDevMajor+8])
	uint32ToHex(entry.RDevMinor, header[offRDevMinor:offRDevMinor+8])
	uint32ToHex(namesize, header[offNamesize:offNamesize+8])
	uint32ToHex(check, header[offCheck:offCheck+8])

	if _, err := out.Write(header); err != nil {
		return diffserr.Wrap(diffserr.KindCpioHeaderInvalid, "writing cpio entry header", err)
	}
	nameBuf := make([]byte, namesize)
	copy(nameBuf, name)
	if _, err := out.Write(nameBuf); err != nil {
		return diffserr.Wrap(diffserr.KindCpioHeaderInvalid, "writing cpio entry name", err)
	}

	headerTotal := uint64(headerSize) + uint64(namesize)
	if padding := paddingNeeded(headerTotal, 4); padding > 0 {
		if _, err := out.Write(make([]byte, padding)); err != nil {
			return diffserr.Wrap(diffserr.KindCpioHeaderInvalid, "writing cpio header padding", err)
		}
	}

	payloadBytes, err := ioutil.ReadAll(payload)
	if err != nil {
		return err
	}
	if _, err := out.Write(payloadBytes); err != nil {
		return diffserr.Wrap(diffserr.KindCpioHeaderInvalid, "writing cpio entry payload", err)
	}

	payloadEnd := headerTotal + paddingNeeded(headerTotal, 4) + uint64(len(payloadBytes))
	if padding := paddingNeeded(payloadEnd, 4); padding > 0 {
		if _, err := out.Write(make([]byte, padding)); err != nil {
			return diffserr.Wrap(diffserr.KindCpioHeaderInvalid, "writing cpio payload padding", err)
		}
	}
	return nil
}
