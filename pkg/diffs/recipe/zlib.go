package recipe

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/streamchan"
)

// zlib init types, per distilled §4.6.
const (
	zlibInitRawDeflate uint64 = 0
	zlibInitGzip       uint64 = 1
	zlibInitZlib       uint64 = 2
)

// zlibCompressionDefaultLevel is the sentinel number param meaning
// "use the codec's default level".
const zlibCompressionDefaultLevel uint64 = 0xFFFFFFFF

// ZlibDecompression wraps compress/flate, compress/gzip, or
// compress/zlib behind a SequentialReader, selected by init type.
// These decoders are already pull-based io.Readers, so no producer
// goroutine is needed here (contrast ZlibCompression and
// BspatchDecompression below, whose underlying libraries are
// push-based).
type ZlibDecompression struct {
	result   diffitem.Item
	initType uint64
	item     diffitem.Item
}

func NewZlibDecompression(result diffitem.Item, numberParams []uint64, itemParams []diffitem.Item) (kitchen.Recipe, error) {
	if len(itemParams) != 1 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "zlib_decompression expects 1 item param, got %d", len(itemParams))
	}
	if len(numberParams) != 1 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "zlib_decompression expects 1 number param, got %d", len(numberParams))
	}
	return &ZlibDecompression{result: result, initType: numberParams[0], item: itemParams[0]}, nil
}

func (r *ZlibDecompression) Name() string                { return "zlib_decompression" }
func (r *ZlibDecompression) Result() diffitem.Item       { return r.result }
func (r *ZlibDecompression) NumberParams() []uint64      { return []uint64{r.initType} }
func (r *ZlibDecompression) ItemParams() []diffitem.Item { return []diffitem.Item{r.item} }

func (r *ZlibDecompression) Prepare(k *kitchen.Kitchen, ingredients []*prepared.Item) (*prepared.Item, error) {
	src := ingredients[0]
	initType := r.initType
	resultLength := r.result.Length()

	return prepared.NewSequentialReader(r.result, func() (ioutil.SequentialReader, error) {
		compressed, err := src.MakeSequentialReader()
		if err != nil {
			return nil, err
		}
		dr, closer, err := newZlibInitReader(initType, compressed)
		if err != nil {
			return nil, err
		}
		return newSeqReaderWithCloser(dr, resultLength, closer), nil
	}), nil
}

func newZlibInitReader(initType uint64, src io.Reader) (io.Reader, io.Closer, error) {
	switch initType {
	case zlibInitRawDeflate:
		fr := flate.NewReader(src)
		return fr, fr, nil
	case zlibInitGzip:
		gr, err := gzip.NewReader(src)
		if err != nil {
			return nil, nil, diffserr.Wrap(diffserr.KindIOReaderReadFailure, "open gzip stream", err)
		}
		return gr, gr, nil
	case zlibInitZlib:
		zr, err := zlib.NewReader(src)
		if err != nil {
			return nil, nil, diffserr.Wrap(diffserr.KindIOReaderReadFailure, "open zlib stream", err)
		}
		return zr, zr, nil
	default:
		return nil, nil, diffserr.Newf(diffserr.KindRecipeParameterReadInvalid, "unknown zlib init type %d", initType)
	}
}

// ZlibCompression wraps compress/flate, compress/gzip, or
// compress/zlib's push-based Writer behind a streamchan.Channel, so
// its output can be pulled as a SequentialReader like every other
// recipe's result.
type ZlibCompression struct {
	result   diffitem.Item
	initType uint64
	level    uint64
	item     diffitem.Item
}

func NewZlibCompression(result diffitem.Item, numberParams []uint64, itemParams []diffitem.Item) (kitchen.Recipe, error) {
	if len(itemParams) != 1 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "zlib_compression expects 1 item param, got %d", len(itemParams))
	}
	if len(numberParams) != 2 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "zlib_compression expects 2 number params, got %d", len(numberParams))
	}
	level := numberParams[1]
	if level != zlibCompressionDefaultLevel && level > 9 {
		return nil, diffserr.Newf(diffserr.KindRecipeZlibCompressionLevelInvalid, "zlib compression level %d out of range 0-9", level)
	}
	return &ZlibCompression{result: result, initType: numberParams[0], level: level, item: itemParams[0]}, nil
}

func (r *ZlibCompression) Name() string                { return "zlib_compression" }
func (r *ZlibCompression) Result() diffitem.Item       { return r.result }
func (r *ZlibCompression) NumberParams() []uint64      { return []uint64{r.initType, r.level} }
func (r *ZlibCompression) ItemParams() []diffitem.Item { return []diffitem.Item{r.item} }

func (r *ZlibCompression) Prepare(k *kitchen.Kitchen, ingredients []*prepared.Item) (*prepared.Item, error) {
	src := ingredients[0]
	initType := r.initType
	level := goLevel(r.level)
	resultLength := r.result.Length()

	return prepared.NewSequentialReader(r.result, func() (ioutil.SequentialReader, error) {
		plain, err := src.MakeSequentialReader()
		if err != nil {
			return nil, err
		}
		ch := streamchan.New(resultLength, k.Config.ChannelRingCapacity)
		go runZlibCompressor(initType, level, plain, ch)
		return newChannelSeqReader(ch, resultLength), nil
	}), nil
}

func goLevel(level uint64) int {
	if level == zlibCompressionDefaultLevel {
		return flate.DefaultCompression
	}
	return int(level)
}

// runZlibCompressor drives the plaintext sequential reader through a
// compress/* Writer into ch, cancelling ch on any failure so a blocked
// consumer observes the error instead of hanging.
func runZlibCompressor(initType uint64, level int, plain io.Reader, ch *streamchan.Channel) {
	var w io.WriteCloser
	var err error
	switch initType {
	case zlibInitRawDeflate:
		w, err = flate.NewWriter(ch, level)
	case zlibInitGzip:
		w, err = gzip.NewWriterLevel(ch, level)
	case zlibInitZlib:
		w, err = zlib.NewWriterLevel(ch, level)
	default:
		ch.Cancel()
		return
	}
	if err != nil {
		ch.Cancel()
		return
	}
	if _, err := io.Copy(w, plain); err != nil {
		ch.Cancel()
		return
	}
	if err := w.Close(); err != nil {
		ch.Cancel()
		return
	}
}
