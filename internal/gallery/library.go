// Package gallery owns the derived category list and the open image viewers.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/starford/quikpix/internal/apperr"
	"github.com/starford/quikpix/internal/catalog"
	"github.com/starford/quikpix/internal/media"
	"github.com/starford/quikpix/internal/models"
)

// Status is the lifecycle state of the category list.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// Snapshot is an immutable view of the last applied scan.
type Snapshot struct {
	Generation uint64    `json:"generation"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Records    int       `json:"records"`
	Categories int       `json:"categories"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`

	err  error
	cats []models.Category // first-seen order, preferences not applied
}

// Err returns the terminal error of the snapshot, if any.
func (s Snapshot) Err() error { return s.err }

// PrefStore persists per-category preferences.
type PrefStore interface {
	Prefs(ctx context.Context) (map[string]models.CategoryPrefs, error)
	// UpdatePrefs applies the non-nil flags atomically.
	UpdatePrefs(ctx context.Context, key string, pinned, hidden *bool) error
}

// Options configures a Library.
type Options struct {
	ThumbnailCap  int
	ResultLimit   int
	FriendlyNames map[string]string
	RefBase       string
	MIMETypes     []string
}

// Listener is notified on the library goroutine after each applied scan.
// It must not call back into the Library.
type Listener func(Snapshot)

type scanResult struct {
	gen     uint64
	cats    []models.Category
	records int
	err     error
}

type waitReq struct {
	gen  uint64
	resp chan Snapshot
}

// Library aggregates the media index into categories.
//
// Concurrency model: one event-loop goroutine owns the snapshot, the
// generation counter, listeners and waiters. Each Refresh bumps the
// generation, cancels the in-flight scan and starts a worker goroutine that
// hands its complete result back exactly once. Results whose generation is
// not the latest are discarded, so a slow earlier scan never overwrites a
// newer one.
type Library struct {
	src    media.Source
	prefs  PrefStore
	opts   Options
	ref    media.RefFunc
	logger *slog.Logger

	refreshCh  chan chan uint64
	resultCh   chan scanResult
	snapshotCh chan chan Snapshot
	listenCh   chan Listener
	waitCh     chan waitReq

	baseCtx    context.Context
	cancelBase context.CancelFunc
	stopCh     chan struct{}
	stopped    chan struct{}
	closed     atomic.Bool
}

// NewLibrary starts a library over src. prefs may be nil.
func NewLibrary(src media.Source, prefs PrefStore, opts Options, logger *slog.Logger) *Library {
	if opts.RefBase == "" {
		opts.RefBase = "/api/images"
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Library{
		src:        src,
		prefs:      prefs,
		opts:       opts,
		ref:        media.RefWithBase(opts.RefBase),
		logger:     logger,
		refreshCh:  make(chan chan uint64),
		resultCh:   make(chan scanResult),
		snapshotCh: make(chan chan Snapshot),
		listenCh:   make(chan Listener),
		waitCh:     make(chan waitReq),
		baseCtx:    ctx,
		cancelBase: cancel,
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Library) run() {
	defer close(l.stopped)

	snap := Snapshot{Status: StatusIdle}
	var (
		latest     uint64
		cancelScan context.CancelFunc
		listeners  []Listener
		waiters    []waitReq
	)

	for {
		select {
		case <-l.stopCh:
			if cancelScan != nil {
				cancelScan()
			}
			return

		case resp := <-l.refreshCh:
			latest++
			if cancelScan != nil {
				cancelScan()
			}
			var ctx context.Context
			ctx, cancelScan = context.WithCancel(l.baseCtx)
			snap.Generation = latest
			snap.Status = StatusLoading
			go l.scan(ctx, latest)
			resp <- latest

		case res := <-l.resultCh:
			if res.gen != latest {
				l.logger.Debug("library: stale scan discarded",
					slog.Uint64("generation", res.gen),
					slog.Uint64("latest", latest))
				continue
			}
			cancelScan()
			cancelScan = nil
			snap = l.apply(res)
			for _, fn := range listeners {
				fn(snap)
			}
			waiters = slices.DeleteFunc(waiters, func(w waitReq) bool {
				if snap.Generation >= w.gen {
					w.resp <- snap
					return true
				}
				return false
			})

		case resp := <-l.snapshotCh:
			resp <- snap

		case fn := <-l.listenCh:
			listeners = append(listeners, fn)

		case w := <-l.waitCh:
			if snap.Generation >= w.gen && snap.Status != StatusLoading {
				w.resp <- snap
				continue
			}
			waiters = append(waiters, w)
		}
	}
}

func (l *Library) scan(ctx context.Context, gen uint64) {
	start := time.Now()
	q := media.Query{MIMETypes: l.opts.MIMETypes, SortBy: media.SortDateModified}
	recs, err := media.Collect(ctx, l.src, q, l.ref, l.logger)

	res := scanResult{gen: gen, err: err}
	if err == nil {
		agg := catalog.Aggregate(recs, catalog.Options{
			ThumbnailCap:  l.opts.ThumbnailCap,
			FriendlyNames: l.opts.FriendlyNames,
		})
		res.cats = agg.List()
		res.records = agg.Records
	}
	l.logger.Debug("library: scan finished",
		slog.Uint64("generation", gen),
		slog.Int("categories", len(res.cats)),
		slog.Duration("took", time.Since(start)))

	select {
	case l.resultCh <- res:
	case <-l.stopCh:
	}
}

func (l *Library) apply(res scanResult) Snapshot {
	snap := Snapshot{
		Generation: res.gen,
		UpdatedAt:  time.Now().UTC(),
		Records:    res.records,
		Categories: len(res.cats),
		cats:       res.cats,
	}
	switch {
	case res.err != nil:
		snap.Status = StatusError
		snap.err = res.err
		snap.cats = nil
		snap.Records, snap.Categories = 0, 0
		if !errors.Is(res.err, apperr.ErrSourceUnavailable) {
			snap.err = fmt.Errorf("%v: %w", res.err, apperr.ErrSourceUnavailable)
		}
		snap.Error = snap.err.Error()
		l.logger.Error("library: scan failed",
			slog.Uint64("generation", res.gen),
			slog.String("error", snap.Error))
	case len(res.cats) == 0:
		snap.Status = StatusEmpty
		snap.err = apperr.ErrEmptyResult
		snap.Error = snap.err.Error()
		l.logger.Info("library: no images found", slog.Uint64("generation", res.gen))
	default:
		snap.Status = StatusReady
		l.logger.Info("library: categories updated",
			slog.Uint64("generation", res.gen),
			slog.Int("categories", len(res.cats)),
			slog.Int("records", res.records))
	}
	return snap
}

// Close stops the loop and cancels any in-flight scan.
func (l *Library) Close() {
	if l.closed.CompareAndSwap(false, true) {
		l.cancelBase()
		close(l.stopCh)
	}
	<-l.stopped
}

// Refresh starts a new scan and returns its generation. Zero means the
// library is closed.
func (l *Library) Refresh() uint64 {
	if l.closed.Load() {
		return 0
	}
	resp := make(chan uint64, 1)
	select {
	case l.refreshCh <- resp:
	case <-l.stopped:
		return 0
	}
	return <-resp
}

// Snapshot returns the current snapshot.
func (l *Library) Snapshot() Snapshot {
	resp := make(chan Snapshot, 1)
	select {
	case l.snapshotCh <- resp:
		return <-resp
	case <-l.stopped:
		return Snapshot{Status: StatusIdle}
	}
}

// OnChange registers fn for every applied scan result.
func (l *Library) OnChange(fn Listener) {
	select {
	case l.listenCh <- fn:
	case <-l.stopped:
	}
}

// Await blocks until a scan of generation gen or later has been applied.
func (l *Library) Await(ctx context.Context, gen uint64) (Snapshot, error) {
	w := waitReq{gen: gen, resp: make(chan Snapshot, 1)}
	select {
	case l.waitCh <- w:
	case <-l.stopped:
		return Snapshot{}, errors.New("gallery: library closed")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-w.resp:
		return snap, nil
	case <-l.stopped:
		return Snapshot{}, errors.New("gallery: library closed")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Categories returns the visible categories of the current snapshot with
// preferences applied, sorted by mode. Hidden categories are omitted.
func (l *Library) Categories(ctx context.Context, mode catalog.SortMode) ([]models.Category, Snapshot, error) {
	snap := l.Snapshot()
	cats, err := l.withPrefs(ctx, snap.cats)
	if err != nil {
		return nil, snap, err
	}
	visible := slices.DeleteFunc(cats, func(c models.Category) bool { return c.Hidden })
	return catalog.Sort(visible, mode), snap, nil
}

// HiddenCategories returns the categories the user hid, by recency.
func (l *Library) HiddenCategories(ctx context.Context) ([]models.Category, error) {
	cats, err := l.withPrefs(ctx, l.Snapshot().cats)
	if err != nil {
		return nil, err
	}
	hidden := slices.DeleteFunc(cats, func(c models.Category) bool { return !c.Hidden })
	return catalog.Sort(hidden, catalog.SortRecent), nil
}

// Category returns one category by key, hidden or not.
func (l *Library) Category(ctx context.Context, key string) (models.Category, error) {
	cats, err := l.withPrefs(ctx, l.Snapshot().cats)
	if err != nil {
		return models.Category{}, err
	}
	for _, c := range cats {
		if c.Key == key {
			return c, nil
		}
	}
	return models.Category{}, apperr.ErrNotFound
}

// SetPinned persists the pinned flag of an existing category.
func (l *Library) SetPinned(ctx context.Context, key string, pinned bool) (models.Category, error) {
	return l.UpdatePrefs(ctx, key, &pinned, nil)
}

// SetHidden persists the hidden flag of an existing category.
func (l *Library) SetHidden(ctx context.Context, key string, hidden bool) (models.Category, error) {
	return l.UpdatePrefs(ctx, key, nil, &hidden)
}

// UpdatePrefs persists the non-nil flags of an existing category in a single
// write; either both change or neither does.
func (l *Library) UpdatePrefs(ctx context.Context, key string, pinned, hidden *bool) (models.Category, error) {
	if pinned == nil && hidden == nil {
		return models.Category{}, fmt.Errorf("gallery: nothing to update: %w", apperr.ErrInvalidArgument)
	}
	if err := l.requirePrefs(ctx, key); err != nil {
		return models.Category{}, err
	}
	if err := l.prefs.UpdatePrefs(ctx, key, pinned, hidden); err != nil {
		return models.Category{}, err
	}
	return l.Category(ctx, key)
}

// Images lists a category's images, most recently taken first. limit <= 0
// uses the configured result limit (0 there means unlimited).
func (l *Library) Images(ctx context.Context, key string, limit int) ([]models.ImageRecord, error) {
	if key == "" {
		return nil, fmt.Errorf("gallery: category key is required: %w", apperr.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = l.opts.ResultLimit
	}
	recs, err := media.Collect(ctx, l.src, media.Query{
		MIMETypes: l.opts.MIMETypes,
		BucketID:  key,
		SortBy:    media.SortDateTaken,
		Limit:     limit,
	}, l.ref, l.logger)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, apperr.ErrNotFound
	}
	return recs, nil
}

func (l *Library) requirePrefs(ctx context.Context, key string) error {
	if l.prefs == nil {
		return fmt.Errorf("gallery: preferences are not persisted: %w", apperr.ErrInvalidArgument)
	}
	_, err := l.Category(ctx, key)
	return err
}

func (l *Library) withPrefs(ctx context.Context, cats []models.Category) ([]models.Category, error) {
	out := slices.Clone(cats)
	if l.prefs == nil || len(out) == 0 {
		return out, nil
	}
	prefs, err := l.prefs.Prefs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		p := prefs[out[i].Key]
		out[i].Pinned = p.Pinned
		out[i].Hidden = p.Hidden
	}
	return out, nil
}
