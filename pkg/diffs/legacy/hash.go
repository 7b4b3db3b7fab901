package legacy

import (
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
)

// Hash record algorithm tags, per distilled §6.1.
const (
	hashTagMD5    uint32 = 32771
	hashTagSHA256 uint32 = 32780
)

// readHashRecord reads a 4-byte algorithm tag followed by its fixed
// digest length. The same record shape is used for the header's
// archive-item/source-item hashes and every chunk's hash.
func readHashRecord(sr ioutil.SequentialReader) (diffitem.Algorithm, []byte, error) {
	tag, err := readUint32(sr)
	if err != nil {
		return 0, nil, err
	}
	var alg diffitem.Algorithm
	switch tag {
	case hashTagMD5:
		alg = diffitem.AlgorithmMD5
	case hashTagSHA256:
		alg = diffitem.AlgorithmSHA256
	default:
		return 0, nil, diffserr.Newf(diffserr.KindBadHashType, "unknown legacy hash algorithm tag %d", tag)
	}
	digest := make([]byte, alg.DigestLength())
	if err := readFull(sr, digest); err != nil {
		return 0, nil, err
	}
	return alg, digest, nil
}
