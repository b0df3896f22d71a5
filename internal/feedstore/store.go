// ABOUTME: The feed store actor: one worker goroutine owning config, counter and file
// ABOUTME: Serialises open/insert/retrieve/close and mediates kv, retention and rendering

package feedstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/feedstore/internal/feed"
	"github.com/2389/feedstore/internal/kv"
	"github.com/2389/feedstore/internal/retention"
)

// Store is a handle to a running feed store worker. All methods are safe for
// concurrent use; requests are executed one at a time in arrival order.
type Store struct {
	reqs     chan request
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	id      string
	logger  *slog.Logger
	now     func() time.Time
	driver  kv.Driver
	metrics *Metrics
	openKV  func(kv.Driver, string, *slog.Logger) (kv.Store, error)
	kvLog   *slog.Logger

	// Owned by the worker goroutine.
	st state
}

// state is only touched from inside the worker.
type state struct {
	opts    Options
	counter uint64
	seeded  bool
	open    bool
	kv      kv.Store
}

type request struct {
	ctx  context.Context
	fn   func(ctx context.Context, st *state)
	done chan struct{}
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for default timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDriver selects the kv driver used for the local store file.
func WithDriver(driver kv.Driver) Option {
	return func(s *Store) {
		if driver != "" {
			s.driver = driver
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// withKVOpener swaps the function used to open the local store file.
func withKVOpener(open func(kv.Driver, string, *slog.Logger) (kv.Store, error)) Option {
	return func(s *Store) {
		s.openKV = open
	}
}

// New starts a store worker in the Unopened state. Call Stop to release it.
func New(opts ...Option) *Store {
	s := &Store{
		reqs:   make(chan request),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		id:     uuid.New().String(),
		logger: slog.Default(),
		now:    time.Now,
		driver: kv.DefaultDriver,
		openKV: kv.Open,
		st:     state{opts: DefaultOptions()},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.kvLog = s.logger.With("store_id", s.id)
	s.logger = s.logger.With("component", "feedstore", "store_id", s.id)

	go s.run()
	return s
}

// ID returns the random identifier attached to this store's log lines.
func (s *Store) ID() string {
	return s.id
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case req := <-s.reqs:
			req.fn(req.ctx, &s.st)
			close(req.done)
		case <-s.quit:
			s.closeLocal(&s.st)
			s.logger.Debug("worker stopped")
			return
		}
	}
}

// call hands fn to the worker and waits for it to finish. ctx bounds only the
// wait for the worker to accept the request; an accepted request always runs
// to completion, with cancellation stripped from its context.
func (s *Store) call(ctx context.Context, fn func(ctx context.Context, st *state)) error {
	select {
	case <-s.quit:
		return ErrStopped
	default:
	}

	req := request{
		ctx:  context.WithoutCancel(ctx),
		fn:   fn,
		done: make(chan struct{}),
	}

	select {
	case s.reqs <- req:
	case <-s.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-req.done
	return nil
}

// Stop shuts the worker down after the request in progress and closes the
// local store file. Later calls fail with ErrStopped. Stop is idempotent.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

// Open configures the store. With opts.Backend set the call is forwarded to
// that backend and local state is left alone. Otherwise the local file is
// validated and opened, and opts replace the current configuration. The slot
// counter is kept across reopens.
func (s *Store) Open(ctx context.Context, opts Options) error {
	var err error
	if cerr := s.call(ctx, func(ctx context.Context, st *state) {
		err = s.open(ctx, st, opts)
	}); cerr != nil {
		return newError(OpOpen, "", cerr, nil)
	}
	return err
}

func (s *Store) open(ctx context.Context, st *state, opts Options) error {
	if opts.Backend != nil {
		if err := guard(func() error { return opts.Backend.Open(ctx, opts) }); err != nil {
			return newError(OpOpen, "", ErrDelegateFailed, err)
		}
		s.logger.Debug("delegated open", "backend", backendName(opts.Backend))
		return nil
	}

	opts = opts.withDefaults()

	// Same file: reconfigure in place.
	if st.open && st.opts.File == opts.File {
		st.opts = opts
		s.logger.Info("store reconfigured", "file", opts.File, "expire", opts.Expire, "days", opts.Days, "max", opts.MaxItems)
		return nil
	}

	s.closeLocal(st)

	if !kv.IsValidFile(s.driver, opts.File) {
		return newError(OpOpen, "", ErrNotAStoreFile, &fileError{path: opts.File})
	}

	handle, err := s.openKV(s.driver, opts.File, s.kvLog)
	if err != nil {
		return newError(OpOpen, "", ErrBackendOpenFailed, err)
	}

	if !st.seeded {
		counter, err := seedCounter(ctx, handle, opts.MaxItems)
		if err != nil {
			handle.Close()
			return newError(OpOpen, "", ErrBackendOpenFailed, err)
		}
		st.counter = counter
		st.seeded = true
		s.metrics.setSlot(counter)
	}

	st.kv = handle
	st.opts = opts
	st.open = true
	s.logger.Info("store opened",
		"file", opts.File,
		"slot", st.counter,
		"driver", s.driver,
		"expire", opts.Expire,
		"days", opts.Days,
		"max", opts.MaxItems,
	)
	return nil
}

// seedCounter derives a starting counter from the entries already in the
// file. Unbounded stores continue after the highest slot. Bounded stores
// continue after the slot holding the newest item, the highest slot winning
// ties. An empty file yields zero.
func seedCounter(ctx context.Context, store kv.Store, maxItems int) (uint64, error) {
	var (
		found    bool
		maxSlot  uint64
		newest   int64
		newestAt uint64
	)
	err := store.ForEach(ctx, func(_ string, slot uint64, item feed.Item) error {
		if slot > maxSlot {
			maxSlot = slot
		}
		if !found || item.CreatedAt > newest || (item.CreatedAt == newest && slot > newestAt) {
			newest, newestAt = item.CreatedAt, slot
		}
		found = true
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning for last slot: %w", err)
	}
	if !found {
		return 0, nil
	}
	if maxItems <= retention.Unbounded {
		return maxSlot, nil
	}
	return newestAt, nil
}

// Close closes the local store file. It never fails; closing an unopened or
// stopped store is a no-op.
func (s *Store) Close(ctx context.Context) error {
	_ = s.call(ctx, func(_ context.Context, st *state) {
		s.closeLocal(st)
	})
	return nil
}

// CloseBackend forwards a close to an external backend. Failures, panics
// included, are swallowed.
func (s *Store) CloseBackend(ctx context.Context, backend Backend, name string) error {
	if backend == nil {
		return nil
	}
	_ = s.call(ctx, func(ctx context.Context, _ *state) {
		if err := guard(func() error { return backend.Close(ctx, name) }); err != nil {
			s.logger.Debug("delegated close failed", "backend", backendName(backend), "name", name, "error", err)
		}
	})
	return nil
}

func (s *Store) closeLocal(st *state) {
	if !st.open {
		return
	}
	if err := st.kv.Close(); err != nil {
		s.logger.Debug("closing store file failed", "file", st.opts.File, "error", err)
	}
	st.kv = nil
	st.open = false
	s.logger.Info("store closed", "file", st.opts.File)
}

// InsertOption adjusts an item before it is inserted.
type InsertOption func(*feed.Item)

// WithCreator sets the item's creator. The default is empty.
func WithCreator(creator string) InsertOption {
	return func(it *feed.Item) {
		it.Creator = creator
	}
}

// WithCreatedAt sets the item's creation time in epoch seconds. The default
// is the time of the Insert call.
func WithCreatedAt(sec int64) InsertOption {
	return func(it *feed.Item) {
		it.CreatedAt = sec
	}
}

// Insert adds an item under tag. Local inserts advance the shared slot
// counter by one even if the write then fails.
func (s *Store) Insert(ctx context.Context, tag Tag, title, link, description string, opts ...InsertOption) error {
	item := feed.Item{
		Title:       title,
		Link:        link,
		Description: description,
		CreatedAt:   s.now().Unix(),
	}
	for _, opt := range opts {
		opt(&item)
	}

	var err error
	if cerr := s.call(ctx, func(ctx context.Context, st *state) {
		err = s.insert(ctx, st, tag, item)
	}); cerr != nil {
		return newError(OpInsert, tag.Name, cerr, nil)
	}
	return err
}

func (s *Store) insert(ctx context.Context, st *state, tag Tag, item feed.Item) error {
	if tag.Delegated() {
		err := guard(func() error { return tag.Backend.Insert(ctx, tag.Name, item) })
		s.metrics.observeInsert(targetDelegated, err)
		if err != nil {
			return newError(OpInsert, tag.Name, ErrDelegateFailed, err)
		}
		return nil
	}

	if !st.open {
		s.metrics.observeInsert(targetLocal, ErrNotOpen)
		return newError(OpInsert, tag.Name, ErrNotOpen, nil)
	}

	st.counter = retention.NextSlot(st.counter, st.opts.MaxItems)
	slot := st.counter
	s.metrics.setSlot(slot)

	err := st.kv.Put(ctx, tag.Name, slot, item)
	s.metrics.observeInsert(targetLocal, err)
	if err != nil {
		return newError(OpInsert, tag.Name, ErrBackendWriteFailed, err)
	}

	s.logger.Debug("item inserted", "tag", tag.Name, "slot", slot, "created_at", item.CreatedAt)
	return nil
}

// Retrieve renders the visible items of tag, oldest first. A tag with no
// visible items yields an empty payload and no error.
func (s *Store) Retrieve(ctx context.Context, tag Tag) ([]byte, error) {
	items, err := s.RetrieveItems(ctx, tag)
	if err != nil {
		return nil, err
	}
	return feed.Render(items), nil
}

// RetrieveItems returns the items Retrieve would render.
func (s *Store) RetrieveItems(ctx context.Context, tag Tag) ([]feed.Item, error) {
	var (
		items []feed.Item
		err   error
	)
	if cerr := s.call(ctx, func(ctx context.Context, st *state) {
		items, err = s.retrieve(ctx, st, tag)
	}); cerr != nil {
		return nil, newError(OpRetrieve, tag.Name, cerr, nil)
	}
	return items, err
}

func (s *Store) retrieve(ctx context.Context, st *state, tag Tag) ([]feed.Item, error) {
	if tag.Delegated() {
		items, err := guardValue(func() ([]feed.Item, error) { return tag.Backend.Retrieve(ctx, tag.Name) })
		if err != nil {
			s.metrics.observeRetrieve(targetDelegated, 0, err)
			return nil, newError(OpRetrieve, tag.Name, ErrDelegateFailed, err)
		}
		// Copy so sorting never reorders the backend's slice.
		out := make([]feed.Item, len(items))
		copy(out, items)
		feed.SortByCreated(out)
		s.metrics.observeRetrieve(targetDelegated, len(out), nil)
		return out, nil
	}

	if !st.open {
		s.metrics.observeRetrieve(targetLocal, 0, ErrNotOpen)
		return nil, newError(OpRetrieve, tag.Name, ErrNotOpen, nil)
	}

	var items []feed.Item
	err := st.kv.ForEach(ctx, func(t string, _ uint64, item feed.Item) error {
		if t == tag.Name {
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		s.metrics.observeRetrieve(targetLocal, 0, err)
		return nil, newError(OpRetrieve, tag.Name, ErrBackendReadFailed, err)
	}

	items = st.opts.Policy().Filter(items, s.now())
	feed.SortByCreated(items)
	s.metrics.observeRetrieve(targetLocal, len(items), nil)
	return items, nil
}

// Tidy deletes expired items from the local store file and returns how many
// were removed. It only acts when the store was opened with by-days expiry
// and RemoveExpired; otherwise it returns 0. Retrieve hides expired items
// whether or not Tidy ever runs.
func (s *Store) Tidy(ctx context.Context) (int, error) {
	var (
		n   int
		err error
	)
	if cerr := s.call(ctx, func(ctx context.Context, st *state) {
		n, err = s.tidy(ctx, st)
	}); cerr != nil {
		return 0, newError(OpTidy, "", cerr, nil)
	}
	return n, err
}

func (s *Store) tidy(ctx context.Context, st *state) (int, error) {
	if !st.open {
		return 0, newError(OpTidy, "", ErrNotOpen, nil)
	}
	if st.opts.Expire != retention.ExpireByDays || !st.opts.RemoveExpired {
		return 0, nil
	}

	type key struct {
		tag  string
		slot uint64
	}
	var (
		policy  = st.opts.Policy()
		now     = s.now()
		expired []key
	)
	if err := st.kv.ForEach(ctx, func(tag string, slot uint64, item feed.Item) error {
		if !policy.Keep(item, now) {
			expired = append(expired, key{tag, slot})
		}
		return nil
	}); err != nil {
		return 0, newError(OpTidy, "", ErrBackendReadFailed, err)
	}

	for i, k := range expired {
		if err := st.kv.Delete(ctx, k.tag, k.slot); err != nil {
			return i, newError(OpTidy, k.tag, ErrBackendWriteFailed, err)
		}
	}

	s.logger.Info("expired items removed", "count", len(expired), "cutoff", policy.Cutoff(now))
	return len(expired), nil
}

type fileError struct {
	path string
}

func (e *fileError) Error() string {
	return "file " + e.path
}

func backendName(b Backend) string {
	if s, ok := b.(interface{ String() string }); ok {
		return s.String()
	}
	return "external"
}
