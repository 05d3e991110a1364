package core

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkarvela/davsync/internal/pathmap"
	"github.com/mkarvela/davsync/internal/webdav"
)

// ClientFunc yields the shared, endpoint-keyed remote store handle for
// pairs without embedded credentials (webdav.Pool backed in production).
type ClientFunc func(endpoint string) (webdav.RemoteStore, error)

// DialFunc builds a dedicated remote store handle for a pair that carries
// its own credentials.
type DialFunc func(endpoint, username, secret string) (webdav.RemoteStore, error)

// SecretFunc resolves a pair's secret when it is not stored inline, e.g.
// from the OS keyring.
type SecretFunc func(pairID string) (string, error)

// ProgressFunc receives incremental full-sync progress: 1-based position,
// total file count and the file about to be uploaded.
type ProgressFunc func(done, total int, path string)

// Options wires the engine's collaborators. Store is required; the rest
// default to production implementations.
type Options struct {
	Store   PairStore
	Shared  ClientFunc
	Dial    DialFunc
	Secrets SecretFunc
	// NoWatch suppresses filesystem watchers; used by one-shot commands
	// that only need SyncNow.
	NoWatch bool
	Timeout time.Duration
	Logger  zerolog.Logger
}

type pairState struct {
	mu     sync.Mutex
	pair   SyncPair
	queue  *changeQueue
	watch  *watcher
	client webdav.RemoteStore // dedicated handle, embedded-credential pairs only
}

// Engine orchestrates sync-pair lifecycle, local change observation,
// debounced batch processing and full-tree sync.
type Engine struct {
	mu    sync.Mutex
	pairs map[string]*pairState

	store   PairStore
	shared  ClientFunc
	dial    DialFunc
	secrets SecretFunc
	noWatch bool
	log     zerolog.Logger
	notify  *notifier
}

// New builds an engine around the given store and collaborators.
func New(opts Options) *Engine {
	log := opts.Logger

	shared := opts.Shared
	if shared == nil {
		pool := webdav.NewPool(nil, opts.Timeout, log)
		shared = func(endpoint string) (webdav.RemoteStore, error) {
			return pool.Get(endpoint)
		}
	}
	dial := opts.Dial
	if dial == nil {
		dial = func(endpoint, username, secret string) (webdav.RemoteStore, error) {
			return webdav.NewClient(webdav.Options{
				BaseURL:  endpoint,
				Username: username,
				Secret:   secret,
				Timeout:  opts.Timeout,
				Logger:   log,
			})
		}
	}

	return &Engine{
		pairs:   make(map[string]*pairState),
		store:   opts.Store,
		shared:  shared,
		dial:    dial,
		secrets: opts.Secrets,
		noWatch: opts.NoWatch,
		log:     log,
		notify:  newNotifier(),
	}
}

// Load reads every pair from the store and starts watching the enabled
// ones. A status left at "syncing" by a previous process is normalized
// back to idle.
func (e *Engine) Load() error {
	pairs, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("load sync pairs: %w", err)
	}

	for _, p := range pairs {
		if p.Status == StatusSyncing || p.Status == "" {
			p.Status = StatusIdle
		}
		st := &pairState{pair: p, queue: newChangeQueue()}
		e.mu.Lock()
		e.pairs[p.ID] = st
		e.mu.Unlock()

		if p.Enabled && !e.noWatch {
			if err := e.startWatching(st); err != nil {
				e.log.Error().Err(err).Str("pair", p.Name).Msg("cannot watch local path")
			}
		}
	}
	return nil
}

// Close stops all watchers and pending timers. In-flight batches past
// their drain point finish on their own.
func (e *Engine) Close() {
	e.mu.Lock()
	states := make([]*pairState, 0, len(e.pairs))
	for _, st := range e.pairs {
		states = append(states, st)
	}
	e.mu.Unlock()

	for _, st := range states {
		e.stopWatching(st)
	}
}

// Subscribe registers an observer for pair snapshots.
func (e *Engine) Subscribe() (<-chan PairSnapshot, func()) {
	return e.notify.Subscribe()
}

// Add registers and persists a pair and, if enabled, begins watching
// immediately. No duplicate checking is performed.
func (e *Engine) Add(p SyncPair) error {
	st := &pairState{pair: p, queue: newChangeQueue()}
	e.mu.Lock()
	e.pairs[p.ID] = st
	e.mu.Unlock()

	if err := e.store.Save(p); err != nil {
		return fmt.Errorf("persist pair %s: %w", p.Name, err)
	}
	if p.Enabled && !e.noWatch {
		if err := e.startWatching(st); err != nil {
			e.log.Error().Err(err).Str("pair", p.Name).Msg("cannot watch local path")
		}
	}
	e.publishState(st)
	return nil
}

// Remove stops watching, drops the queue and deletes the pair from the
// store. Unknown ids are a no-op.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	st, ok := e.pairs[id]
	if ok {
		delete(e.pairs, id)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}

	e.stopWatching(st)
	if err := e.store.Delete(id); err != nil {
		return fmt.Errorf("delete pair %s: %w", id, err)
	}
	return nil
}

// Update applies a patch to the pair and persists the result. Flipping
// the enabled flag starts or stops the watcher; other changes take effect
// on next use.
func (e *Engine) Update(id string, patch PairPatch) (SyncPair, error) {
	e.mu.Lock()
	st, ok := e.pairs[id]
	e.mu.Unlock()
	if !ok {
		return SyncPair{}, ErrPairNotFound
	}

	st.mu.Lock()
	old := st.pair
	st.pair = patch.Apply(old)
	next := st.pair
	if next.Username != old.Username || next.Secret != old.Secret || next.RemoteURL != old.RemoteURL {
		st.client = nil
	}
	st.mu.Unlock()

	if err := e.store.Save(next); err != nil {
		return SyncPair{}, fmt.Errorf("persist pair %s: %w", next.Name, err)
	}

	if !e.noWatch && old.Enabled != next.Enabled {
		if next.Enabled {
			if err := e.startWatching(st); err != nil {
				e.log.Error().Err(err).Str("pair", next.Name).Msg("cannot watch local path")
			}
		} else {
			e.stopWatching(st)
		}
	}

	e.publishState(st)
	return next, nil
}

// Get returns a pair by id.
func (e *Engine) Get(id string) (SyncPair, bool) {
	e.mu.Lock()
	st, ok := e.pairs[id]
	e.mu.Unlock()
	if !ok {
		return SyncPair{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pair, true
}

// Find resolves a pair by id or, failing that, by name.
func (e *Engine) Find(ref string) (SyncPair, bool) {
	if p, ok := e.Get(ref); ok {
		return p, true
	}
	for _, p := range e.List() {
		if p.Name == ref {
			return p, true
		}
	}
	return SyncPair{}, false
}

// List returns all pairs sorted by name.
func (e *Engine) List() []SyncPair {
	e.mu.Lock()
	states := make([]*pairState, 0, len(e.pairs))
	for _, st := range e.pairs {
		states = append(states, st)
	}
	e.mu.Unlock()

	out := make([]SyncPair, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.pair)
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SyncNow walks the pair's full local tree and uploads every file,
// fail-fast: the first error aborts the walk and is returned wrapped with
// its position. Progress is reported before each upload attempt.
func (e *Engine) SyncNow(ctx context.Context, id string, progress ProgressFunc) error {
	e.mu.Lock()
	st, ok := e.pairs[id]
	e.mu.Unlock()
	if !ok {
		return ErrPairNotFound
	}

	st.mu.Lock()
	pair := st.pair
	st.mu.Unlock()
	if !pair.Enabled {
		return ErrSyncDisabled
	}

	e.setStatus(st, StatusSyncing, "", false)

	fail := func(err error) error {
		e.setStatus(st, StatusError, err.Error(), false)
		return err
	}

	files, err := e.walkLocal(pair)
	if err != nil {
		return fail(fmt.Errorf("walk %s: %w", pair.LocalPath, err))
	}
	rs, err := e.clientFor(st)
	if err != nil {
		return fail(err)
	}

	total := len(files)
	for i, f := range files {
		if progress != nil {
			progress(i+1, total, f)
		}
		if err := e.syncFile(ctx, pair, rs, f, ChangeWrite); err != nil {
			return fail(fmt.Errorf("sync %d/%d (%s): %w", i+1, total, f, err))
		}
	}

	e.setStatus(st, StatusIdle, "", true)
	e.log.Info().Str("pair", pair.Name).Int("files", total).Msg("full sync complete")
	return nil
}

// handleEvent filters one watcher event against the pair's policy and, if
// it qualifies, coalesces it into the queue and resets the debounce timer.
func (e *Engine) handleEvent(id string, ev Event) {
	e.mu.Lock()
	st, ok := e.pairs[id]
	e.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	pair := st.pair
	st.mu.Unlock()

	rel := pathmap.Rel(pair.LocalPath, ev.Path)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	if !pair.SyncHidden && pathmap.HasHiddenSegment(rel) {
		return
	}
	if pathmap.IsExcluded(rel, pair.Exclude) {
		return
	}
	if ev.Kind == ChangeDelete {
		if !pair.SyncOnDelete {
			return
		}
	} else {
		if !pair.SyncOnSave {
			return
		}
		if info, err := os.Stat(ev.Path); err == nil && info.IsDir() {
			return
		}
	}

	delay := pair.Debounce
	if delay < 0 {
		delay = 0
	}
	n := st.queue.Upsert(ev.Path, ev.Kind, delay, func() { e.processPending(id) })

	st.mu.Lock()
	st.pair.FilesInQueue = n
	snap := snapshotOf(st.pair)
	st.mu.Unlock()
	e.notify.publish(snap)
}

// processPending drains the queue on debounce expiry and replays each
// captured entry against the remote store. Per-entry errors are counted
// and logged but never abort the batch; the aggregate drives the status
// transition. Failed entries are dropped, not retried.
func (e *Engine) processPending(id string) {
	e.mu.Lock()
	st, ok := e.pairs[id]
	e.mu.Unlock()
	if !ok {
		return
	}

	batch := st.queue.Drain()
	if len(batch) == 0 {
		return
	}

	st.mu.Lock()
	st.pair.FilesInQueue = st.queue.Len()
	st.pair.Status = StatusSyncing
	pair := st.pair
	snap := snapshotOf(st.pair)
	st.mu.Unlock()
	e.notify.publish(snap)

	ctx := context.Background()
	var okCount, errCount int
	var lastErr string

	rs, err := e.clientFor(st)
	if err != nil {
		errCount = len(batch)
		lastErr = err.Error()
		e.log.Error().Err(err).Str("pair", pair.Name).Msg("no remote client for batch")
	} else {
		for path, pc := range batch {
			if ferr := e.syncFile(ctx, pair, rs, path, pc.Kind); ferr != nil {
				errCount++
				lastErr = ferr.Error()
				e.log.Warn().Err(ferr).Str("pair", pair.Name).Str("path", path).Msg("batch entry failed")
			} else {
				okCount++
			}
		}
	}

	now := time.Now()
	st.mu.Lock()
	st.pair.LastSync = now
	if errCount > 0 {
		st.pair.Status = StatusError
		st.pair.LastError = lastErr
	} else {
		st.pair.Status = StatusIdle
		st.pair.LastError = ""
	}
	snap = snapshotOf(st.pair)
	st.mu.Unlock()
	e.notify.publish(snap)

	if uerr := e.store.UpdateRuntime(pair.ID, snap.Status, now, snap.LastError); uerr != nil {
		e.log.Debug().Err(uerr).Str("pair", pair.Name).Msg("runtime persist failed")
	}
	e.log.Info().Str("pair", pair.Name).
		Int("ok", okCount).Int("failed", errCount).
		Msg("batch processed")
}

// syncFile performs one remote operation for a local path. Deletes are
// idempotent: a 404 from the remote is a success. Uploads ensure the
// remote parent chain first and always overwrite.
func (e *Engine) syncFile(ctx context.Context, pair SyncPair, rs webdav.RemoteStore, localPath string, kind ChangeKind) error {
	remote := pair.RemotePathFor(localPath)

	if kind == ChangeDelete {
		if err := rs.DeleteFile(ctx, remote); err != nil {
			if webdav.IsStatus(err, http.StatusNotFound) {
				return nil
			}
			return fmt.Errorf("delete %s: %w", remote, err)
		}
		return nil
	}

	if err := e.ensureRemoteDirs(ctx, rs, remote, pair.RemoteBasePath()); err != nil {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	if err := rs.PutFileContents(ctx, remote, data, true); err != nil {
		return fmt.Errorf("upload %s: %w", remote, err)
	}
	return nil
}

// ensureRemoteDirs creates the missing ancestors of remotePath top-down.
// Ancestors at or above basePath are assumed to exist. A MKCOL rejected
// with 405 means another creator won the race; any other failure aborts
// the chain and the enclosing upload.
func (e *Engine) ensureRemoteDirs(ctx context.Context, rs webdav.RemoteStore, remotePath, basePath string) error {
	for _, dir := range pathmap.AncestorDirs(remotePath) {
		if pathmap.WithinBase(dir, basePath) {
			continue
		}
		if _, err := rs.Stat(ctx, dir); err == nil {
			continue
		}
		if err := rs.CreateDirectory(ctx, dir); err != nil {
			if webdav.IsStatus(err, http.StatusMethodNotAllowed) {
				continue
			}
			return fmt.Errorf("ensure remote directory %s: %w", dir, err)
		}
	}
	return nil
}

// walkLocal enumerates the files under the pair's root, honoring the
// exclusion globs and hidden-file policy, sorted for stable ordering.
func (e *Engine) walkLocal(pair SyncPair) ([]string, error) {
	var files []string
	err := filepath.WalkDir(pair.LocalPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := pathmap.Rel(pair.LocalPath, p)
		if rel == "." {
			return nil
		}
		if !pair.SyncHidden && pathmap.HasHiddenSegment(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if pathmap.IsExcluded(rel, pair.Exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// clientFor returns the remote store handle for a pair: a dedicated
// authenticated client when the pair embeds credentials, otherwise the
// shared endpoint-keyed handle.
func (e *Engine) clientFor(st *pairState) (webdav.RemoteStore, error) {
	st.mu.Lock()
	pair := st.pair
	cached := st.client
	st.mu.Unlock()

	if pair.Username == "" {
		return e.shared(pair.RemoteURL)
	}
	if cached != nil {
		return cached, nil
	}

	secret := pair.Secret
	if secret == "" && e.secrets != nil {
		s, err := e.secrets(pair.ID)
		if err != nil {
			e.log.Debug().Err(err).Str("pair", pair.Name).Msg("secret lookup failed")
		} else {
			secret = s
		}
	}

	rs, err := e.dial(pair.RemoteURL, pair.Username, secret)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", pair.RemoteURL, err)
	}
	st.mu.Lock()
	st.client = rs
	st.mu.Unlock()
	return rs, nil
}

func (e *Engine) startWatching(st *pairState) error {
	st.mu.Lock()
	pair := st.pair
	already := st.watch != nil
	st.mu.Unlock()
	if already {
		return nil
	}

	w, err := newWatcher(pair.LocalPath, e.log)
	if err != nil {
		return fmt.Errorf("watch %s: %w", pair.LocalPath, err)
	}
	st.mu.Lock()
	st.watch = w
	st.mu.Unlock()

	go func() {
		for ev := range w.Events() {
			e.handleEvent(pair.ID, ev)
		}
	}()

	e.log.Info().Str("pair", pair.Name).Str("path", pair.LocalPath).Msg("watching")
	if pair.Username != "" {
		go e.verifyCredentials(st)
	}
	return nil
}

func (e *Engine) stopWatching(st *pairState) {
	st.mu.Lock()
	w := st.watch
	st.watch = nil
	st.pair.FilesInQueue = 0
	st.mu.Unlock()

	if w != nil {
		w.Close()
	}
	st.queue.Stop()
	e.publishState(st)
}

// verifyCredentials lists the remote base once for diagnostics. Failure is
// logged and never blocks pair creation.
func (e *Engine) verifyCredentials(st *pairState) {
	st.mu.Lock()
	pair := st.pair
	st.mu.Unlock()

	rs, err := e.clientFor(st)
	if err != nil {
		e.log.Warn().Err(err).Str("pair", pair.Name).Msg("credential verification skipped")
		return
	}
	if _, err := rs.GetDirectoryContents(context.Background(), pair.RemoteBasePath(), false); err != nil {
		e.log.Warn().Err(err).Str("pair", pair.Name).Msg("credential verification failed")
		return
	}
	e.log.Info().Str("pair", pair.Name).Msg("credentials verified")
}

func (e *Engine) setStatus(st *pairState, status Status, lastErr string, touchLastSync bool) {
	now := time.Now()
	st.mu.Lock()
	st.pair.Status = status
	st.pair.LastError = lastErr
	if touchLastSync {
		st.pair.LastSync = now
	}
	pair := st.pair
	snap := snapshotOf(st.pair)
	st.mu.Unlock()
	e.notify.publish(snap)

	if status != StatusSyncing {
		if err := e.store.UpdateRuntime(pair.ID, status, pair.LastSync, lastErr); err != nil {
			e.log.Debug().Err(err).Str("pair", pair.Name).Msg("runtime persist failed")
		}
	}
}

func (e *Engine) publishState(st *pairState) {
	st.mu.Lock()
	snap := snapshotOf(st.pair)
	st.mu.Unlock()
	e.notify.publish(snap)
}

func snapshotOf(p SyncPair) PairSnapshot {
	return PairSnapshot{
		ID:           p.ID,
		Name:         p.Name,
		Status:       p.Status,
		LastSync:     p.LastSync,
		LastError:    p.LastError,
		FilesInQueue: p.FilesInQueue,
	}
}
