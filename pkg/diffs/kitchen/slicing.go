package kitchen

import (
	"io"
	"sort"
	"sync"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/streamchan"
)

// sliceState is the per-slice lifecycle of distilled §4.7: pending,
// then bound once the producer reaches its offset, then served once
// MakeReader has handed a reader back.
type sliceState int32

const (
	slicePending sliceState = iota
	sliceBound
	sliceServed
)

// pendingSlice tracks one slice-kind prepared item whose parent is
// sequential-only, registered via Kitchen.NewSlice, awaiting
// ResumeSlicing to bind it to a streaming buffer.
type pendingSlice struct {
	item          *prepared.Item
	parent        *prepared.Item
	offset, length uint64

	mu     sync.Mutex
	state  sliceState
	buffer []byte
	err    error
}

// slicingGroup is one sequential parent's producer goroutine plus the
// pending slices it feeds, ordered by offset. cursor tracks how many
// bytes of the parent the producer has delivered into the channel so
// far that a consumer has already drained, guarded by mu so multiple
// slices in the same group never race past each other out of order.
type slicingGroup struct {
	parent  *prepared.Item
	channel *streamchan.Channel
	slices  []*pendingSlice

	mu     sync.Mutex
	cursor uint64
}

// slicingSession holds every active group for one resume_slicing/
// cancel_slicing lifecycle.
type slicingSession struct {
	groups []*slicingGroup
	wg     sync.WaitGroup
}

// NewSlice builds a Slice-kind prepared item viewing [offset,
// offset+length) of parent and, if parent is sequential-only,
// registers it as a pending slice so a later ResumeSlicing call can
// discover it. Recipes should call this rather than prepared.NewSlice
// directly whenever their ingredient might be sequential-only.
func (k *Kitchen) NewSlice(def diffitem.Item, parent *prepared.Item, offset, length uint64) *prepared.Item {
	item := prepared.NewSlice(def, parent, offset, length, k)
	if parent.IsSequentialOnly() {
		k.mu.Lock()
		k.pending = append(k.pending, &pendingSlice{item: item, parent: parent, offset: offset, length: length})
		k.mu.Unlock()
	}
	return item
}

// ResumeSlicing implements distilled §4.5: it groups every still-
// pending slice by parent, sorted by offset, rejects overlaps within a
// group, and spawns one producer goroutine per group that drives the
// parent's sequential reader into a streamchan.Channel.
func (k *Kitchen) ResumeSlicing() error {
	k.mu.Lock()
	pending := k.pending
	k.pending = nil
	k.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	groupsByParent := map[*prepared.Item]*slicingGroup{}
	var order []*prepared.Item
	for _, ps := range pending {
		g, ok := groupsByParent[ps.parent]
		if !ok {
			g = &slicingGroup{parent: ps.parent}
			groupsByParent[ps.parent] = g
			order = append(order, ps.parent)
		}
		g.slices = append(g.slices, ps)
	}

	for _, parent := range order {
		g := groupsByParent[parent]
		sort.Slice(g.slices, func(i, j int) bool { return g.slices[i].offset < g.slices[j].offset })
		for i := 1; i < len(g.slices); i++ {
			prev, cur := g.slices[i-1], g.slices[i]
			if cur.offset < prev.offset+prev.length {
				return diffserr.Newf(diffserr.KindSlicingRequestSliceOverlap,
					"slice [%d,%d) overlaps slice [%d,%d) on the same sequential parent",
					cur.offset, cur.offset+cur.length, prev.offset, prev.offset+prev.length)
			}
		}
	}

	session := &slicingSession{}
	for _, parent := range order {
		g := groupsByParent[parent]
		g.channel = streamchan.New(parent.Definition().Length(), k.Config.ChannelRingCapacity)
		session.groups = append(session.groups, g)
		session.wg.Add(1)
		go k.runProducer(g, &session.wg)
	}

	k.mu.Lock()
	k.slicing = session
	k.mu.Unlock()
	k.setState(StateSlicing)
	return nil
}

// runProducer drives parent's sequential reader in order, writing every
// byte into the group's channel, grounded on GarbageCollector.run's
// goroutine shape (a single loop, a deferred completion signal, no
// retry on error — a read failure is fatal to the whole group and
// every bound-but-unread slice in it observes it via Cancel).
func (k *Kitchen) runProducer(g *slicingGroup, wg *sync.WaitGroup) {
	defer wg.Done()

	sr, err := g.parent.MakeSequentialReader()
	if err != nil {
		k.logger().Error("slicing producer failed to open sequential reader", "error", err)
		g.channel.Cancel()
		return
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := sr.Read(buf)
		if n > 0 {
			if _, werr := g.channel.Write(buf[:n]); werr != nil {
				return
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				k.logger().Error("slicing producer read failed", "error", rerr)
				g.channel.Cancel()
			}
			return
		}
	}
}

// ReaderForSlice implements prepared.SliceResolver: it materializes
// item's byte range by reading forward through its group's channel,
// discarding bytes already consumed by earlier slices in the group and
// buffering exactly item's length.
func (k *Kitchen) ReaderForSlice(item *prepared.Item) (ioutil.Reader, error) {
	k.mu.Lock()
	session := k.slicing
	k.mu.Unlock()
	if session == nil {
		return nil, diffserr.New(diffserr.KindSlicingInvalidState, "no active slicing session")
	}

	var ps *pendingSlice
	var group *slicingGroup
	for _, g := range session.groups {
		for _, s := range g.slices {
			if s.item == item {
				ps, group = s, g
				break
			}
		}
		if ps != nil {
			break
		}
	}
	if ps == nil {
		return nil, diffserr.New(diffserr.KindSlicingInvalidState, "item is not a registered pending slice")
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.state == sliceServed {
		return ioutil.NewBytesReader(ps.buffer), nil
	}

	group.mu.Lock()
	toSkip := ps.offset - group.cursor
	if err := discardChannelBytes(group.channel, toSkip); err != nil {
		group.mu.Unlock()
		ps.err = err
		return nil, err
	}
	ps.state = sliceBound
	buf := make([]byte, ps.length)
	if err := readChannelExact(group.channel, buf); err != nil {
		group.mu.Unlock()
		ps.err = err
		return nil, err
	}
	group.cursor = ps.offset + ps.length
	group.mu.Unlock()

	ps.state = sliceServed
	ps.buffer = buf
	return ioutil.NewBytesReader(buf), nil
}

func discardChannelBytes(c *streamchan.Channel, n uint64) error {
	buf := make([]byte, 32*1024)
	for n > 0 {
		chunk := uint64(len(buf))
		if n < chunk {
			chunk = n
		}
		read, err := c.ReadSome(buf[:chunk])
		n -= uint64(read)
		if err != nil {
			return diffserr.Wrap(diffserr.KindSlicingInvalidState, "discarding bytes ahead of slice offset", err)
		}
	}
	return nil
}

func readChannelExact(c *streamchan.Channel, p []byte) error {
	total := 0
	for total < len(p) {
		n, err := c.ReadSome(p[total:])
		total += n
		if err != nil {
			return diffserr.Wrap(diffserr.KindSlicingInvalidState, "reading slice bytes", err)
		}
	}
	return nil
}

// CancelSlicing implements distilled §4.5/§4.7: it cancels every active
// group's channel and waits for every producer goroutine to exit,
// matching GarbageCollector.Stop's close(stopCh); <-doneCh shape
// generalized to N producers via a sync.WaitGroup.
func (k *Kitchen) CancelSlicing() {
	k.mu.Lock()
	session := k.slicing
	k.slicing = nil
	k.mu.Unlock()

	if session == nil {
		return
	}
	k.setState(StateCancelled)
	for _, g := range session.groups {
		g.channel.Cancel()
	}
	session.wg.Wait()
	k.setState(StateIdle)
}
