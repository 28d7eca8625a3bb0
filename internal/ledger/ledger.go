// Package ledger maintains the append-only changelog CSV. Rows are keyed by
// event id; an id already present is never written again, so replaying the
// same batch is a no-op.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/changes"
	"github.com/nyc-orr/governance-orgs/internal/model"
)

const (
	defaultLockTimeout = 30 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// Ledger is a changelog file guarded by an advisory lock file next to it.
type Ledger struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
}

// Open returns a Ledger for path. The file is created on first append.
func Open(path string) *Ledger {
	return &Ledger{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: defaultLockTimeout,
	}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// fileState describes what read found at the ledger path.
type fileState int

const (
	stateMissing fileState = iota
	stateValid
	stateInvalid
)

// Entries reads every well-formed row of the ledger. A missing file yields
// no entries, a file whose header is not exactly the changelog columns is
// treated as empty, and
// malformed rows are skipped with a warning.
func (l *Ledger) Entries() ([]model.ChangelogEntry, error) {
	entries, _, err := l.read()
	return entries, err
}

func (l *Ledger) read() ([]model.ChangelogEntry, fileState, error) {
	log := zap.L().With(zap.String("component", "ledger"), zap.String("path", l.path))

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, stateMissing, nil
	}
	if err != nil {
		return nil, stateMissing, eris.Wrapf(err, "ledger: open %s", l.path)
	}
	defer f.Close() //nolint:errcheck

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if errors.Is(err, io.EOF) {
		return nil, stateMissing, nil
	}
	if err != nil {
		log.Warn("ledger: unreadable header, treating as empty", zap.Error(err))
		return nil, stateInvalid, nil
	}
	// Rows are appended in column order, so any other header would misplace them.
	if !slices.Equal(dec.Header(), model.ChangelogColumns) {
		log.Warn("ledger: header does not match changelog columns, treating as empty",
			zap.Strings("header", dec.Header()),
			zap.Strings("want", model.ChangelogColumns),
		)
		return nil, stateInvalid, nil
	}

	var entries []model.ChangelogEntry
	skipped := 0
	for {
		var e model.ChangelogEntry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if isRowError(err) {
			skipped++
			continue
		}
		if err != nil {
			return nil, stateValid, eris.Wrapf(err, "ledger: read %s", l.path)
		}
		entries = append(entries, e)
	}
	if skipped > 0 {
		log.Warn("ledger: skipped malformed rows", zap.Int("skipped", skipped), zap.Int("rows_read", len(entries)))
	}
	return entries, stateValid, nil
}

// isRowError reports whether err concerns a single malformed row, after
// which reading can continue with the next line.
func isRowError(err error) bool {
	if err == nil {
		return false
	}
	var pe *csv.ParseError
	return errors.As(err, &pe) || errors.Is(err, csvutil.ErrFieldCount)
}

// EventIDs returns the set of event ids already recorded.
func (l *Ledger) EventIDs() (map[string]struct{}, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.EventID != "" {
			ids[e.EventID] = struct{}{}
		}
	}
	return ids, nil
}

// Append writes the entries whose event id is neither in existing nor
// already in the file, one flushed row at a time, and returns how many were
// written. existing may be nil; when non-nil it is updated with the ids
// written. The header is written only when the file is new or empty; an
// unreadable file is moved aside and a fresh ledger started.
func (l *Ledger) Append(ctx context.Context, entries []model.ChangelogEntry, existing map[string]struct{}) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return 0, eris.Wrapf(err, "ledger: create dir for %s", l.path)
	}

	unlock, err := l.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	onDisk, state, err := l.read()
	if err != nil {
		return 0, err
	}
	if state == stateInvalid {
		if err := l.quarantine(); err != nil {
			return 0, err
		}
	}
	seen := make(map[string]struct{}, len(onDisk)+len(existing))
	for _, e := range onDisk {
		seen[e.EventID] = struct{}{}
	}
	for id := range existing {
		seen[id] = struct{}{}
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return 0, eris.Wrapf(err, "ledger: open %s for append", l.path)
	}
	defer f.Close() //nolint:errcheck

	fresh, err := prepareTail(f)
	if err != nil {
		return 0, err
	}

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = false
	if fresh {
		if err := enc.EncodeHeader(model.ChangelogEntry{}); err != nil {
			return 0, eris.Wrap(err, "ledger: encode header")
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return 0, eris.Wrap(err, "ledger: write header")
		}
	}

	appended := 0
	for _, e := range entries {
		if e.EventID == "" {
			e.EventID = changes.ComputeEventID(e.RecordID, e.Field, e.OldValue, e.NewValue)
		}
		if _, dup := seen[e.EventID]; dup {
			continue
		}
		if err := enc.Encode(e); err != nil {
			return appended, eris.Wrapf(err, "ledger: encode event %s", e.EventID)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return appended, eris.Wrapf(err, "ledger: write event %s", e.EventID)
		}
		seen[e.EventID] = struct{}{}
		if existing != nil {
			existing[e.EventID] = struct{}{}
		}
		appended++
	}

	if err := f.Sync(); err != nil {
		return appended, eris.Wrap(err, "ledger: sync")
	}
	zap.L().Debug("ledger: appended",
		zap.String("path", l.path),
		zap.Int("offered", len(entries)),
		zap.Int("appended", appended),
	)
	return appended, nil
}

// quarantine moves an unreadable ledger aside so a fresh one can be started.
func (l *Ledger) quarantine() error {
	dest := fmt.Sprintf("%s.invalid-%s", l.path, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(l.path, dest); err != nil {
		return eris.Wrapf(err, "ledger: move unreadable ledger to %s", dest)
	}
	zap.L().Warn("ledger: moved unreadable ledger aside", zap.String("path", l.path), zap.String("moved_to", dest))
	return nil
}

// acquire takes the advisory lock, waiting up to lockTimeout.
func (l *Ledger) acquire(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()

	ok, err := l.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: lock %s", l.lock.Path())
	}
	if !ok {
		return nil, eris.Errorf("ledger: lock %s not acquired", l.lock.Path())
	}
	return func() {
		if err := l.lock.Unlock(); err != nil {
			zap.L().Warn("ledger: unlock failed", zap.String("lock", l.lock.Path()), zap.Error(err))
		}
	}, nil
}

// prepareTail reports whether f is empty and, when it is not, makes sure it
// ends with a newline so a row cut short by an earlier failure cannot merge
// with the next one.
func prepareTail(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, eris.Wrap(err, "ledger: stat")
	}
	if info.Size() == 0 {
		return true, nil
	}

	r, err := os.Open(f.Name())
	if err != nil {
		return false, eris.Wrap(err, "ledger: reopen for tail check")
	}
	defer r.Close() //nolint:errcheck

	last := make([]byte, 1)
	if _, err := r.ReadAt(last, info.Size()-1); err != nil {
		return false, eris.Wrap(err, "ledger: read tail")
	}
	if last[0] != '\n' {
		if _, err := f.Write([]byte("\n")); err != nil {
			return false, eris.Wrap(err, "ledger: terminate partial row")
		}
	}
	return false, nil
}

// AppendToLedger opens the ledger at path and appends entries to it.
func AppendToLedger(ctx context.Context, path string, entries []model.ChangelogEntry, existing map[string]struct{}) (int, error) {
	return Open(path).Append(ctx, entries, existing)
}

// ReadFile reads a changelog written by WriteFile. Unlike Entries it fails
// when the file is missing, empty or carries a header other than the
// changelog columns.
func ReadFile(path string) ([]model.ChangelogEntry, error) {
	entries, state, err := Open(path).read()
	if err != nil {
		return nil, err
	}
	switch state {
	case stateMissing:
		return nil, eris.Errorf("ledger: %s is missing or empty", path)
	case stateInvalid:
		return nil, eris.Errorf("ledger: %s does not have the changelog header", path)
	}
	return entries, nil
}

// WriteFile writes entries to a new changelog file at path, replacing any
// existing file. The header is written even when entries is empty.
func WriteFile(path string, entries []model.ChangelogEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "ledger: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "ledger: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = false
	if err := enc.EncodeHeader(model.ChangelogEntry{}); err != nil {
		return eris.Wrap(err, "ledger: encode header")
	}
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return eris.Wrapf(err, "ledger: encode event %s", e.EventID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "ledger: write %s", path)
	}
	return f.Close()
}
