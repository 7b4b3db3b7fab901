package legacy

import (
	"encoding/binary"
	"io"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
)

// readFull fills buf completely from sr, the legacy container's framing
// being length-prefixed rather than delimited, so a short read always
// means a truncated or corrupt archive.
func readFull(sr ioutil.SequentialReader, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := sr.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF && total == len(buf) {
				break
			}
			return diffserr.Wrap(diffserr.KindReadDiffSizeMismatch, "truncated legacy archive", err)
		}
	}
	return nil
}

func readUint8(sr ioutil.SequentialReader) (uint8, error) {
	var b [1]byte
	if err := readFull(sr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readUint32(sr ioutil.SequentialReader) (uint32, error) {
	var b [4]byte
	if err := readFull(sr, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint64(sr ioutil.SequentialReader) (uint64, error) {
	var b [8]byte
	if err := readFull(sr, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
