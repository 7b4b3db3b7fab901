// Package diffconfig holds the tunables the reconstruction engine needs
// that the original C++ implementation hardcodes as constants:
// streaming-channel ring size, zstd decoder window limits, and whether
// the optional SQLite resolution-trace recorder is active.
//
// Loading follows the same Default*/*FromEnv shape as
// shoal/internal/provisioner/config.RegistryConfig: a function returning
// sane defaults, and a loader that overlays environment variables onto
// those defaults, returning a descriptive error on malformed input.
package diffconfig

import (
	"fmt"
	"os"
	"strconv"
)

// MaxZstdWindowLog is the ceiling spec §4.6 places on zstd decompression
// window size (2^28 bytes, ~256 MiB), independent of Config so built-in
// recipe code can reference it without threading a Config through every
// call.
const MaxZstdWindowLog = 28

// Config carries engine-wide tunables.
type Config struct {
	// ChannelRingCapacity is the ring buffer size, in bytes, used by
	// every streamchan.Channel the kitchen creates during streaming
	// slicing. Spec §4.5.1 suggests 64 KiB.
	ChannelRingCapacity int

	// BspatchBufferSize is the buffer size used when draining the
	// bspatch_decompression recipe's patch worker into its channel.
	BspatchBufferSize int

	// TraceEnabled turns on the optional SQLite resolution-trace
	// recorder (internal/tracedb). Off by default. cmd/dumpdiff records
	// a trace to TracePath when this is set and no -trace path is given;
	// the kitchen itself does not read it.
	TraceEnabled bool

	// TracePath is the SQLite database path used when TraceEnabled is
	// true. Defaults to an in-memory database.
	TracePath string
}

// Default returns the engine's default configuration.
func Default() Config {
	return Config{
		ChannelRingCapacity: 64 * 1024,
		BspatchBufferSize:   32 * 1024,
		TraceEnabled:        false,
		TracePath:           ":memory:",
	}
}

// FromEnv overlays environment variables onto Default():
//
//   - DIFF_CHANNEL_RING_CAPACITY: positive integer byte count
//   - DIFF_BSPATCH_BUFFER_SIZE: positive integer byte count
//   - DIFF_TRACE_ENABLED: any value strconv.ParseBool accepts
//   - DIFF_TRACE_PATH: filesystem path or ":memory:"
func FromEnv() (Config, error) {
	cfg := Default()

	if val := os.Getenv("DIFF_CHANNEL_RING_CAPACITY"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid DIFF_CHANNEL_RING_CAPACITY value: %q", val)
		}
		cfg.ChannelRingCapacity = n
	}

	if val := os.Getenv("DIFF_BSPATCH_BUFFER_SIZE"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid DIFF_BSPATCH_BUFFER_SIZE value: %q", val)
		}
		cfg.BspatchBufferSize = n
	}

	if val := os.Getenv("DIFF_TRACE_ENABLED"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid DIFF_TRACE_ENABLED value: %q", val)
		}
		cfg.TraceEnabled = b
	}

	if val := os.Getenv("DIFF_TRACE_PATH"); val != "" {
		cfg.TracePath = val
	}

	return cfg, nil
}
