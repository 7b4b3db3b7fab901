package streamchan

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
)

func TestWriteReadRoundTrip(t *testing.T) {
	c := New(11, 1024)
	go func() {
		c.Write([]byte("hello "))
		c.Write([]byte("world"))
	}()

	var got []byte
	buf := make([]byte, 4)
	for {
		n, err := c.ReadSome(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSome: %v", err)
		}
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
}

// TestBoundedCapacityDoesNotDeadlock verifies a producer writing more
// bytes than the ring capacity blocks on a full buffer rather than
// deadlocking, and the consumer draining it unblocks the producer.
func TestBoundedCapacityDoesNotDeadlock(t *testing.T) {
	const total = 10000
	c := New(total, 16) // capacity much smaller than total

	payload := bytes.Repeat([]byte{0xAB}, total)

	done := make(chan error, 1)
	go func() {
		_, err := c.Write(payload)
		done <- err
	}()

	var got []byte
	buf := make([]byte, 7)
	for {
		n, err := c.ReadSome(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSome: %v", err)
		}
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("producer never unblocked: possible deadlock")
	}

	if !bytes.Equal(got, payload) {
		t.Fatalf("got %d bytes, want %d bytes matching payload", len(got), len(payload))
	}
}

// TestCancelUnblocksBlockedRead checks that calling Cancel while a
// consumer is blocked on an empty buffer releases it with a clean
// io.EOF rather than an error, and that Cancelled() reports true
// afterward.
func TestCancelUnblocksBlockedRead(t *testing.T) {
	c := New(1000, 4)

	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 4)
		_, err := c.ReadSome(buf)
		readErr <- err
	}()

	// Give the reader a moment to block on the empty buffer, then cancel.
	time.Sleep(10 * time.Millisecond)
	c.Cancel()

	select {
	case err := <-readErr:
		if err != io.EOF {
			t.Fatalf("expected io.EOF from ReadSome after Cancel on an empty buffer, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadSome never unblocked after Cancel: possible leaked goroutine")
	}

	if !c.Cancelled() {
		t.Fatal("Cancelled() = false after Cancel()")
	}
}

// TestCancelDrainsBufferedBytesBeforeEOF checks §4.5.1's contract: once
// cancelled, ReadSome still hands back whatever was already buffered
// before reporting a clean end, and only Write on the cancelled channel
// is an error.
func TestCancelDrainsBufferedBytesBeforeEOF(t *testing.T) {
	c := New(1000, 16)

	if _, err := c.Write([]byte("buffered")); err != nil {
		t.Fatalf("Write before cancel: %v", err)
	}
	c.Cancel()

	buf := make([]byte, 16)
	n, err := c.ReadSome(buf)
	if err != nil {
		t.Fatalf("ReadSome of buffered bytes after Cancel: %v", err)
	}
	if string(buf[:n]) != "buffered" {
		t.Fatalf("got %q, want %q", buf[:n], "buffered")
	}

	if _, err := c.ReadSome(buf); err != io.EOF {
		t.Fatalf("expected io.EOF once drained, got %v", err)
	}

	if _, err := c.Write([]byte{1}); !diffserr.Is(err, diffserr.KindIOWritingWhenDone) {
		t.Fatalf("expected KindIOWritingWhenDone writing to a cancelled channel, got %v", err)
	}
}

func TestWriteBeyondExpectedFails(t *testing.T) {
	c := New(4, 16)
	if _, err := c.Write([]byte{1, 2, 3, 4, 5}); err == nil {
		t.Fatal("expected error writing more than the declared expected total")
	}
}
