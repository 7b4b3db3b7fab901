// Package streamchan implements a bounded single-producer/single-consumer
// byte FIFO used to turn a sequential-only producer (a decompressor, a
// patch applier) into a source that many non-overlapping slice readers
// can consume independently. The lifecycle (Write from the producer
// side, ReadSome from consumer slices, Cancel to tear down early) is
// grounded on the start/stop-channel shape of
// shoal/internal/provisioner/oci.GarbageCollector.Start/Stop, adapted
// from a goroutine lifecycle to a byte-ring lifecycle.
package streamchan

import (
	"io"
	"sync"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
)

// Channel is a bounded ring buffer of bytes with exactly one producer
// goroutine and exactly one consumer goroutine at a time. The producer
// calls Write repeatedly until the expected total has been written; the
// consumer calls ReadSome repeatedly to drain it. Cancel unblocks both
// sides permanently.
type Channel struct {
	mu         sync.Mutex
	notEmpty   *sync.Cond
	notFull    *sync.Cond
	buf        []byte
	readPos    int
	writePos   int
	count      int
	expected   uint64
	written    uint64
	cancelled  bool
	closed     bool // producer has written everything it intends to
}

// New creates a Channel that expects expectedTotalRead bytes to be
// written in total, with an internal ring buffer of capacity bytes.
func New(expectedTotalRead uint64, capacity int) *Channel {
	if capacity <= 0 {
		capacity = 64 * 1024
	}
	c := &Channel{
		buf:      make([]byte, capacity),
		expected: expectedTotalRead,
	}
	c.notEmpty = sync.NewCond(&c.mu)
	c.notFull = sync.NewCond(&c.mu)
	return c
}

// Write appends p to the ring buffer, blocking while the buffer is
// full. It returns diffserr.KindIOWritingWhenDone if the channel was
// cancelled, or if the write would exceed the declared expected total.
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelled {
		return 0, diffserr.New(diffserr.KindIOWritingWhenDone, "write on cancelled channel")
	}
	if c.written+uint64(len(p)) > c.expected {
		return 0, diffserr.Newf(diffserr.KindIOWritingWhenDone,
			"write would exceed expected total %d (already wrote %d, got %d more)", c.expected, c.written, len(p))
	}

	total := 0
	for total < len(p) {
		for c.count == len(c.buf) && !c.cancelled {
			c.notFull.Wait()
		}
		if c.cancelled {
			return total, diffserr.New(diffserr.KindIOWritingWhenDone, "write on cancelled channel")
		}
		free := len(c.buf) - c.count
		n := len(p) - total
		if n > free {
			n = free
		}
		for i := 0; i < n; i++ {
			c.buf[(c.writePos+i)%len(c.buf)] = p[total+i]
		}
		c.writePos = (c.writePos + n) % len(c.buf)
		c.count += n
		total += n
		c.written += uint64(n)
		c.notEmpty.Signal()
	}
	if c.written == c.expected {
		c.closed = true
		c.notEmpty.Broadcast()
	}
	return total, nil
}

// ReadSome copies as many bytes as are currently available into p,
// blocking only if the buffer is empty and the producer has not yet
// finished. It returns io.EOF once every expected byte has been read.
// After Cancel, already-buffered bytes are still returned; only once
// the buffer is drained does ReadSome report io.EOF, per distilled
// §4.5.1's "reads return whatever is buffered and then 0" rule —
// cancellation never surfaces as a read-side error.
func (c *Channel) ReadSome(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.count == 0 && !c.closed && !c.cancelled {
		c.notEmpty.Wait()
	}
	if c.count == 0 {
		return 0, io.EOF
	}

	n := copy(p, c.buf[c.readPos:])
	if n > c.count {
		n = c.count
	}
	for i := 0; i < n; i++ {
		p[i] = c.buf[(c.readPos+i)%len(c.buf)]
	}
	c.readPos = (c.readPos + n) % len(c.buf)
	c.count -= n
	c.notFull.Signal()
	return n, nil
}

// Cancel permanently unblocks any pending or future Write/ReadSome
// calls, releasing both sides without requiring the expected total to
// be reached: Write then fails with KindIOWritingWhenDone, and ReadSome
// returns whatever is still buffered and then io.EOF. Safe to call more
// than once.
func (c *Channel) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return
	}
	c.cancelled = true
	c.notEmpty.Broadcast()
	c.notFull.Broadcast()
}

// Cancelled reports whether Cancel has been called.
func (c *Channel) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
