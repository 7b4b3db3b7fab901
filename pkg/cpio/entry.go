package cpio

import "github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"

// Entry is one file record within a parsed cpio archive. Payload bytes
// are exposed lazily through the archive's Reader rather than copied
// into the entry.
type Entry struct {
	Name      string
	Inode     uint32
	Mode      uint32
	UID       uint32
	GID       uint32
	NLink     uint32
	MTime     uint32
	DevMajor  uint32
	DevMinor  uint32
	RDevMajor uint32
	RDevMinor uint32
	Check     uint32

	payloadOffset uint64
	payloadLength uint64
}

func (e *Entry) isTrailer() bool { return e.Name == trailerName }

// NewEntry builds an Entry for add_file-style insertion: the fields the
// original's cpio_file constructor sets for a newly added file (fixed
// uid/gid/nlink/dev_major/dev_minor, matching
// cpio_file::cpio_file(name, inode, format, reader)).
func NewEntry(name string, inode uint32, length uint64) Entry {
	return Entry{
		Name:          name,
		Inode:         inode,
		UID:           1000,
		GID:           1000,
		NLink:         1,
		DevMajor:      8,
		DevMinor:      1,
		payloadLength: length,
	}
}

// PayloadLength returns the entry's declared payload size.
func (e Entry) PayloadLength() uint64 { return e.payloadLength }

// payloadReader returns a Reader over e's payload bytes within source.
func (e Entry) payloadReader(source ioutil.Reader) ioutil.Reader {
	return ioutil.Slice(source, e.payloadOffset, e.payloadLength)
}
