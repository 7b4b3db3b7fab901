package standard

import "github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"

func errUnknownHashAlgorithm(name string) error {
	return diffserr.Newf(diffserr.KindBadHashType, "unknown hash algorithm %q in standard container", name)
}

func errBadHashEncoding(name string, cause error) error {
	return diffserr.Wrapf(diffserr.KindBadHashType, cause, "malformed hex digest for algorithm %q", name)
}
