package cpio

import "github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"

// hexDigitValues mirrors hexadecimal_data.cpp's uppercase digit table;
// decoding accepts upper or lower case, matching
// hexadecimal_char_to_int's acceptance of both.
const hexDigitValues = "0123456789ABCDEF"

func hexToUint32(b []byte) (uint32, error) {
	var v uint32
	for _, c := range b {
		var digit uint32
		switch {
		case '0' <= c && c <= '9':
			digit = uint32(c - '0')
		case 'a' <= c && c <= 'f':
			digit = uint32(c-'a') + 10
		case 'A' <= c && c <= 'F':
			digit = uint32(c-'A') + 10
		default:
			return 0, diffserr.Newf(diffserr.KindCpioHeaderInvalid, "invalid cpio header hex digit %q", c)
		}
		v = v<<4 | digit
	}
	return v, nil
}

func uint32ToHex(v uint32, buf []byte) {
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = hexDigitValues[v%16]
		v /= 16
	}
}
