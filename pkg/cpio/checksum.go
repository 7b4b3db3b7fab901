package cpio

import "github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"

// newcChecksum sums every payload byte mod 2^32, matching
// compute_newc_checksum in cpio_file.cpp: the newc_ascii format's only
// difference from new_ascii is this per-entry payload checksum.
func newcChecksum(r ioutil.Reader) (uint32, error) {
	var sum uint32
	buf := make([]byte, 8*1024)
	var offset uint64
	for offset < r.Size() {
		want := uint64(len(buf))
		if remaining := r.Size() - offset; want > remaining {
			want = remaining
		}
		n, err := r.ReadAt(offset, buf[:want])
		for _, b := range buf[:n] {
			sum += uint32(b)
		}
		offset += uint64(n)
		if err != nil && n == 0 {
			break
		}
	}
	return sum, nil
}
