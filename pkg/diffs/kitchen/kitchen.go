// Package kitchen implements the pantry/cookbook lookups and the
// resolution scheduler of distilled §4.3, plus the streaming slice
// machinery of §4.5 built on pkg/diffs/streamchan. The state machine
// and producer-goroutine lifecycle are grounded on
// shoal/internal/provisioner/oci.GarbageCollector.Start/Stop, adapted
// from one background loop to N per-group producers joined by a
// sync.WaitGroup.
package kitchen

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Azure/iot-hub-device-update-delta-sub001/internal/obslog"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffconfig"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffmetrics"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

// TraceRecorder receives one notification per resolution step the
// kitchen takes, for the optional internal/tracedb-backed diagnostic
// recorder. It has no SQL dependency of its own: only
// internal/tracedb.Recorder implements it.
type TraceRecorder interface {
	RecordStep(itemSortKey, recipeName, outcome string, duration time.Duration)
}

// State is the kitchen's slicing lifecycle state, per distilled §4.7.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateReady
	StateSlicing
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	case StateSlicing:
		return "slicing"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Kitchen coordinates a Pantry of ready prepared items, a Cookbook of
// recipes that can produce new ones, and the set of items callers have
// asked for. All public methods are safe to call from a single calling
// goroutine; the only additional concurrency is the per-group producer
// goroutines spawned by ResumeSlicing.
type Kitchen struct {
	Pantry   *Pantry
	Cookbook *Cookbook

	// Logger receives resolution and slicing diagnostics. Defaults to
	// slog.Default() when nil, per internal/obslog's convention.
	Logger *slog.Logger
	// Tracer, when set, is notified of every resolution step
	// ProcessRequestedItems takes. Left nil unless a caller (cmd/dumpdiff
	// with -trace) wires one in.
	Tracer TraceRecorder

	// Config carries the engine-wide tunables (channel ring capacity,
	// bspatch buffer size) sequential recipes pull from instead of
	// hardcoding their own constants. Defaults to diffconfig.Default().
	Config diffconfig.Config

	mu       sync.Mutex
	state    int32 // State, read/written via sync/atomic for lock-free metrics reads
	requested []diffitem.Item

	pending []*pendingSlice
	slicing *slicingSession
}

// New creates an empty Kitchen.
func New() *Kitchen {
	return &Kitchen{
		Pantry:   NewPantry(),
		Cookbook: NewCookbook(),
		Config:   diffconfig.Default(),
		state:    int32(StateIdle),
	}
}

// NewWith wraps an already-populated pantry and cookbook in a Kitchen,
// for callers (the archive deserializers) that build the pantry and
// cookbook directly while decoding and only need the kitchen for
// resolution afterward.
func NewWith(pantry *Pantry, cookbook *Cookbook) *Kitchen {
	return &Kitchen{
		Pantry:   pantry,
		Cookbook: cookbook,
		Config:   diffconfig.Default(),
		state:    int32(StateIdle),
	}
}

// SetLogger overrides the kitchen's diagnostic logger.
func (k *Kitchen) SetLogger(logger *slog.Logger) {
	k.Logger = logger
}

// SetConfig overrides the kitchen's engine tunables.
func (k *Kitchen) SetConfig(cfg diffconfig.Config) {
	k.Config = cfg
}

// SetTracer wires in the optional resolution trace recorder.
func (k *Kitchen) SetTracer(tracer TraceRecorder) {
	k.Tracer = tracer
}

func (k *Kitchen) logger() *slog.Logger {
	return obslog.Default(k.Logger)
}

// State returns the kitchen's current slicing lifecycle state.
func (k *Kitchen) State() State {
	return State(atomic.LoadInt32(&k.state))
}

func (k *Kitchen) setState(s State) {
	atomic.StoreInt32(&k.state, int32(s))
}

// StoreItem registers a ready prepared item in the pantry. Idempotent
// with respect to an already-stored, identical item.
func (k *Kitchen) StoreItem(def diffitem.Item, prep *prepared.Item) {
	k.Pantry.Store(def, prep)
}

// AddRecipe registers recipe in the cookbook.
func (k *Kitchen) AddRecipe(recipe Recipe) {
	k.Cookbook.Add(recipe)
}

// RequestItem marks def as needed, to be resolved by the next call to
// ProcessRequestedItems.
func (k *Kitchen) RequestItem(def diffitem.Item) {
	k.mu.Lock()
	defer k.mu.Unlock()
	already := k.Pantry.Has(def)
	diffmetrics.IncItemsRequested(already)
	if already {
		return
	}
	for _, r := range k.requested {
		if r.Compare(def) == 0 {
			return
		}
	}
	k.requested = append(k.requested, def)
}

// CanFetchItem reports whether a matching prepared item is already in
// the pantry.
func (k *Kitchen) CanFetchItem(def diffitem.Item) bool {
	return k.Pantry.Has(def)
}

// FetchItem returns the prepared item matching def, failing with
// diffserr.KindItemNotAvailable if none is present.
func (k *Kitchen) FetchItem(def diffitem.Item) (*prepared.Item, error) {
	if p, ok := k.Pantry.Find(def); ok {
		return p, nil
	}
	return nil, diffserr.Newf(diffserr.KindItemNotAvailable, "item of length %d not available in pantry", def.Length())
}

// ProcessRequestedItems runs the greedy fixed-point resolver of
// distilled §4.3. It returns (true, nil) once every requested item has
// been resolved into the pantry, or (false, nil) if a full pass made no
// progress. A resolution cycle (an item depending, directly or
// indirectly, on itself) is a hard failure surfaced as
// diffserr.KindItemNotAvailable.
func (k *Kitchen) ProcessRequestedItems() (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.State() == StateIdle {
		k.setState(StateResolving)
	}

	work := make([]diffitem.Item, 0, len(k.requested))
	for _, r := range k.requested {
		if !k.Pantry.Has(r) {
			work = append(work, r)
		}
	}
	sort.Slice(work, func(i, j int) bool { return work[i].Compare(work[j]) < 0 })

	for len(work) > 0 {
		diffmetrics.IncResolutionPass()
		k.logger().Debug("resolution pass", "pending_items", len(work))
		progressed := false
		var remaining []diffitem.Item

		for _, item := range work {
			if k.Pantry.Has(item) {
				progressed = true
				continue
			}
			resolving := map[string]struct{}{}
			ok, err := k.resolve(item, resolving)
			if err != nil {
				k.setState(StateIdle)
				return false, err
			}
			if ok {
				progressed = true
			} else {
				remaining = append(remaining, item)
			}
		}

		if !progressed {
			k.setState(StateIdle)
			return false, nil
		}
		work = remaining
		sort.Slice(work, func(i, j int) bool { return work[i].Compare(work[j]) < 0 })
	}

	k.requested = nil
	k.setState(StateReady)
	return true, nil
}

// resolve attempts to produce item and insert it into the pantry,
// recursively resolving ingredients as needed. resolving is the
// currently-resolving set for cycle detection on this path, keyed by
// Item.SortKey.
func (k *Kitchen) resolve(item diffitem.Item, resolving map[string]struct{}) (bool, error) {
	if _, ok := k.Pantry.Find(item); ok {
		return true, nil
	}

	key := item.SortKey()
	if _, seen := resolving[key]; seen {
		return false, diffserr.New(diffserr.KindItemNotAvailable,
			"cycle detected: item depends on itself through its own ingredients")
	}
	resolving[key] = struct{}{}
	defer delete(resolving, key)

	// Recipes whose ingredients are all in the pantry already are tried first.
	var candidates, waiting []Recipe
	for _, recipe := range k.Cookbook.FindRecipesFor(item) {
		inPantry := true
		for _, ing := range recipe.ItemParams() {
			inPantry = inPantry && k.Pantry.Has(ing)
		}
		if inPantry {
			candidates = append(candidates, recipe)
		} else {
			waiting = append(waiting, recipe)
		}
	}
	candidates = append(candidates, waiting...)
	for _, recipe := range candidates {
		ingredients := recipe.ItemParams()
		prepIngredients := make([]*prepared.Item, len(ingredients))
		ready := true
		for i, ing := range ingredients {
			if p, ok := k.Pantry.Find(ing); ok {
				prepIngredients[i] = p
				continue
			}
			ok, err := k.resolve(ing, resolving)
			if err != nil {
				return false, err
			}
			if !ok {
				ready = false
				break
			}
			p, found := k.Pantry.Find(ing)
			if !found {
				ready = false
				break
			}
			prepIngredients[i] = p
		}
		if !ready {
			continue
		}

		start := time.Now()
		result, err := recipe.Prepare(k, prepIngredients)
		duration := time.Since(start)
		diffmetrics.ObservePrepare(recipe.Name(), duration)
		if k.Tracer != nil {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			k.Tracer.RecordStep(key, recipe.Name(), outcome, duration)
		}
		if err != nil {
			k.logger().Error("recipe prepare failed", "recipe", recipe.Name(), "error", err)
			return false, err
		}
		k.Pantry.Store(item, result)
		return true, nil
	}
	return false, nil
}
