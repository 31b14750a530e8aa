// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package resolver turns record coordinates into place names. Records are scheduled by
// visibility, claimed by a single batch pump in groups of BatchSize, resolved through a
// geocode.Geocoder and merged into a Store. Sides that cannot be resolved fall back to a
// coordinate label and are retried once.
package resolver

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/wneessen/geonamer/internal/coord"
	"github.com/wneessen/geonamer/internal/geocode"
	"github.com/wneessen/geonamer/internal/logger"
	"github.com/wneessen/geonamer/internal/observability"
)

const (
	DefaultBatchSize    = 8
	DefaultInitialBatch = 8
	DefaultUnknownLabel = "Unknown location"
)

// Options configures a Resolver. Zero values select the defaults.
type Options struct {
	BatchSize    int
	InitialBatch int
	UnknownLabel string
	Metrics      *observability.Metrics
	Clock        clockwork.Clock
}

// Resolver owns the pending set, the retry set and the store of one session.
type Resolver struct {
	coder        geocode.Geocoder
	logger       *logger.Logger
	metrics      *observability.Metrics
	clock        clockwork.Clock
	store        *Store
	batchSize    int
	initialBatch int
	unknownLabel string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards everything below. busy and pending share it so that a Schedule racing with
	// the end of a drain either lands in the running pump or starts a new one.
	mu      sync.Mutex
	records map[string]Record
	pending *pendingSet
	busy    bool
	closed  bool
	idle    chan struct{}

	// retrying holds granted retries until their batch merges, retried the used ones.
	retrying map[string]struct{}
	retried  map[string]struct{}
}

type result struct {
	id    string
	names Names
	state State
}

// New returns a Resolver using coder for lookups. Lookups run on a context derived from
// ctx which is cancelled by Close.
func New(ctx context.Context, coder geocode.Geocoder, log *logger.Logger, opts Options) *Resolver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.InitialBatch <= 0 {
		opts.InitialBatch = DefaultInitialBatch
	}
	if opts.UnknownLabel == "" {
		opts.UnknownLabel = DefaultUnknownLabel
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	runCtx, cancel := context.WithCancel(ctx)
	idle := make(chan struct{})
	close(idle)

	return &Resolver{
		coder:        coder,
		logger:       log,
		metrics:      opts.Metrics,
		clock:        opts.Clock,
		store:        NewStore(),
		batchSize:    opts.BatchSize,
		initialBatch: opts.InitialBatch,
		unknownLabel: opts.UnknownLabel,
		ctx:          runCtx,
		cancel:       cancel,
		records:      make(map[string]Record),
		pending:      newPendingSet(),
		retrying:     make(map[string]struct{}),
		retried:      make(map[string]struct{}),
		idle:         idle,
	}
}

// Store returns the store the pump merges into.
func (r *Resolver) Store() *Store {
	return r.store
}

// LoadRecords replaces the record index and schedules the first records of the list. It
// returns the number of newly scheduled records.
func (r *Resolver) LoadRecords(records []Record) int {
	ids := make([]string, 0, len(records))

	r.mu.Lock()
	r.records = make(map[string]Record, len(records))
	for _, rec := range records {
		if _, dup := r.records[rec.ID]; !dup {
			ids = append(ids, rec.ID)
		}
		r.records[rec.ID] = rec
	}
	r.mu.Unlock()
	r.logger.Debug("records loaded", slog.Int("records", len(ids)))

	if len(ids) > r.initialBatch {
		ids = ids[:r.initialBatch]
	}
	return r.Schedule(ids...)
}

// ReportVisible schedules the records currently shown to the user.
func (r *Resolver) ReportVisible(ids ...string) int {
	return r.Schedule(ids...)
}

// Schedule enqueues every ID that has no names yet, or whose names fell back and which has
// not been retried. It returns the number of newly enqueued IDs and starts the pump if
// anything was added.
func (r *Resolver) Schedule(ids ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0
	}

	added := 0
	for _, id := range ids {
		if id == "" || r.pending.contains(id) {
			continue
		}
		if !r.shouldEnqueue(id) {
			continue
		}
		if r.pending.add(id) {
			added++
		}
	}
	if added == 0 {
		return 0
	}
	r.metrics.Pending(r.pending.len())
	r.startPumpLocked()
	return added
}

// Display returns the current names and state of a record for rendering. Rendering a
// record that fell back grants its retry, rendering an unresolved one schedules it.
func (r *Resolver) Display(id string) (Names, State) {
	r.Schedule(id)
	names, _ := r.store.Get(id)
	return names, r.store.State(id)
}

// Pending returns the number of IDs waiting for the pump.
func (r *Resolver) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.len()
}

// Wait blocks until the pump is idle and nothing is pending, or ctx is done.
func (r *Resolver) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		if !r.busy {
			r.mu.Unlock()
			return nil
		}
		idle := r.idle
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// Close stops accepting work, cancels in-flight lookups and waits for the pump to exit.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}

// shouldEnqueue must be called with mu held. A granted retry only counts as used once its
// batch is merged.
func (r *Resolver) shouldEnqueue(id string) bool {
	switch r.store.State(id) {
	case Unresolved:
		return true
	case Fallback:
		if _, done := r.retried[id]; done {
			return false
		}
		r.retrying[id] = struct{}{}
		r.logger.Debug("retrying record with fallback names", slog.String("id", id))
		return true
	default:
		return false
	}
}

func (r *Resolver) startPumpLocked() {
	if r.busy {
		return
	}
	r.busy = true
	r.idle = make(chan struct{})
	r.metrics.Running(true)
	r.wg.Add(1)
	go r.pump()
}

func (r *Resolver) pump() {
	defer r.wg.Done()
	for {
		batch := r.claim()
		if len(batch) == 0 {
			return
		}
		r.resolveBatch(batch)
		runtime.Gosched()
	}
}

// claim removes up to batchSize IDs from the pending set and marks the known ones as
// resolving. When nothing is left it clears the busy flag under the same lock.
func (r *Resolver) claim() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.ctx.Err() == nil {
		ids := r.pending.take(r.batchSize)
		if len(ids) == 0 {
			break
		}
		batch := make([]Record, 0, len(ids))
		claimed := make([]string, 0, len(ids))
		for _, id := range ids {
			rec, ok := r.records[id]
			if !ok {
				r.logger.Debug("skipping unknown record", slog.String("id", id))
				continue
			}
			batch = append(batch, rec)
			claimed = append(claimed, id)
		}
		r.metrics.Pending(r.pending.len())
		if len(batch) == 0 {
			continue
		}
		r.store.markResolving(claimed)
		return batch
	}

	r.pending.clear()
	r.metrics.Pending(0)
	r.busy = false
	r.metrics.Running(false)
	close(r.idle)
	return nil
}

// resolveBatch looks up both sides of every record concurrently and merges the whole
// batch once all lookups returned.
func (r *Resolver) resolveBatch(batch []Record) {
	start := r.clock.Now()
	results := make([]result, len(batch))

	var group errgroup.Group
	group.SetLimit(2 * r.batchSize)
	for i, rec := range batch {
		results[i].id = rec.ID
		group.Go(func() error {
			results[i].names.Origin, results[i].names.OriginFallback = r.resolveSide(rec.ID, rec.Origin)
			return nil
		})
		group.Go(func() error {
			results[i].names.Destination, results[i].names.DestinationFallback = r.resolveSide(rec.ID,
				rec.Destination)
			return nil
		})
	}
	_ = group.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		ids := make([]string, len(results))
		for i := range results {
			ids[i] = results[i].id
			delete(r.retrying, ids[i])
		}
		r.store.abandon(ids)
		r.logger.Debug("batch abandoned", slog.Int("records", len(ids)))
		return
	}
	for i := range results {
		results[i].state = r.stateOf(results[i].id, results[i].names)
	}
	r.store.merge(results)
	r.metrics.Batch(len(batch), r.clock.Since(start))
	r.logger.Debug("batch merged", slog.Int("records", len(batch)),
		slog.Int("pending", r.pending.len()))
}

// resolveSide returns the display name of a coordinate and whether it is a fallback.
func (r *Resolver) resolveSide(id string, c coord.Coordinate) (string, bool) {
	if c.IsZero() {
		r.metrics.Fallback()
		return r.unknownLabel, true
	}
	if !c.Valid() {
		r.logger.Warn("invalid coordinate, skipping lookup", slog.String("id", id),
			slog.Float64("lat", c.Lat), slog.Float64("lon", c.Lon))
		r.metrics.Fallback()
		return coord.Fallback(c), true
	}

	addr, err := r.coder.Reverse(r.ctx, c)
	if err != nil {
		r.logger.Debug("reverse geocoding failed, using coordinates", slog.String("id", id),
			slog.String("coordinates", coord.Fallback(c)), logger.Err(err))
		r.metrics.Fallback()
		return coord.Fallback(c), true
	}
	if !addr.AddressFound || addr.DisplayName == "" {
		r.logger.Debug("no address found, using coordinates", slog.String("id", id),
			slog.String("coordinates", coord.Fallback(c)))
		r.metrics.Fallback()
		return coord.Fallback(c), true
	}
	return addr.DisplayName, false
}

// stateOf must be called with mu held. It marks a granted retry as used.
func (r *Resolver) stateOf(id string, names Names) State {
	if _, retry := r.retrying[id]; retry {
		delete(r.retrying, id)
		r.retried[id] = struct{}{}
		r.metrics.Retry()
	}
	if !names.IsFallback() {
		return Resolved
	}
	if _, done := r.retried[id]; done {
		return RetriedFallback
	}
	return Fallback
}
