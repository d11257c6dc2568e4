// Package filesystem watches a drop directory and ingests files written to it.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
	"github.com/custodia-labs/coworker/internal/logger"
)

// ChangeType is the kind of filesystem change observed.
type ChangeType string

// Change types.
const (
	ChangeUpserted ChangeType = "upserted"
	ChangeDeleted  ChangeType = "deleted"
)

// Change is one file event translated into an ingestion action.
type Change struct {
	Type ChangeType

	// DocumentID is the slash-separated path relative to the root.
	DocumentID string

	// Path is the absolute file path.
	Path string
}

// Watcher turns files in a directory into tenant documents. Writes are
// ingested through IngestFile; removals and renames delete the document.
// Hidden files and directories are skipped.
type Watcher struct {
	root   string
	tenant string
	ingest driving.IngestionService

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a watcher for root that ingests on behalf of tenant.
func New(root, tenant string, ingest driving.IngestionService) *Watcher {
	return &Watcher{root: root, tenant: tenant, ingest: ingest}
}

// Run ingests every existing file, then applies changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if strings.TrimSpace(w.tenant) == "" {
		return fmt.Errorf("%w: watch: %w", domain.ErrValidation, domain.ErrMissingTenant)
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Section("Watch")
	logger.Info("Watching %s for tenant %s", w.root, w.tenant)

	if err := w.Scan(ctx); err != nil {
		return err
	}
	for change := range changes {
		w.apply(ctx, change)
	}
	return ctx.Err()
}

// Scan ingests every visible regular file under the root.
// Unchanged files are skipped by ingestion itself.
func (w *Watcher) Scan(ctx context.Context) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != w.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		w.apply(ctx, Change{Type: ChangeUpserted, DocumentID: w.documentID(path), Path: path})
		return nil
	})
}

// Watch starts watching the root and its subdirectories.
// The returned channel is closed when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher is closed")
	}
	if info, err := os.Stat(w.root); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.addDirs(fw, w.root); err != nil {
		fw.Close()
		return nil, err
	}
	w.watcher = fw

	changes := make(chan Change)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
						if err := w.addDirs(fw, event.Name); err != nil {
							logger.Warn("watch: %v", err)
						}
					}
				}
				change := w.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch: %v", err)
			}
		}
	}()

	return changes, nil
}

// Close stops the underlying watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// handleFsEvent maps an fsnotify event to a change, or nil when ignored.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if hiddenPath(w.relative(event.Name)) {
		return nil
	}
	id := w.documentID(event.Name)

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, DocumentID: id, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		return &Change{Type: ChangeUpserted, DocumentID: id, Path: event.Name}
	}
	return nil
}

// apply performs one change. Failures are logged; the watch keeps running.
func (w *Watcher) apply(ctx context.Context, change Change) {
	switch change.Type {
	case ChangeDeleted:
		if err := w.ingest.Delete(ctx, w.tenant, change.DocumentID); err != nil {
			logger.Error("watch: delete %s: %v", change.DocumentID, err)
			return
		}
		logger.Debug("watch: deleted %s", change.DocumentID)

	case ChangeUpserted:
		data, err := os.ReadFile(change.Path)
		if err != nil {
			logger.Error("watch: read %s: %v", change.Path, err)
			return
		}
		report, err := w.ingest.IngestFile(ctx, domain.FileUpload{
			ID:       change.DocumentID,
			Tenant:   w.tenant,
			Name:     filepath.Base(change.Path),
			MIMEType: DetectMIMEType(change.Path),
			Data:     data,
			Metadata: map[string]any{"path": change.DocumentID},
		})
		if err != nil {
			logger.Warn("watch: skip %s: %v", change.DocumentID, err)
			return
		}
		if err := report.Err(); err != nil {
			logger.Error("watch: ingest %s: %v", change.DocumentID, err)
			return
		}
		logger.Debug("watch: ingested %s (%d new, %d unchanged)",
			change.DocumentID, len(report.Ingested), len(report.Unchanged))
	}
}

func (w *Watcher) addDirs(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}

func (w *Watcher) documentID(path string) string {
	return filepath.ToSlash(w.relative(path))
}

// fallbackMIMETypes covers extensions the system MIME table often lacks.
var fallbackMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".ts":       "text/typescript",
	".m4a":      "audio/x-m4a",
	".mp3":      "audio/mpeg",
	".wav":      "audio/wav",
}

// DetectMIMEType guesses a MIME type from the extension, without parameters.
func DetectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if mt, ok := fallbackMIMETypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		base, _, _ := strings.Cut(mt, ";")
		return strings.TrimSpace(base)
	}
	return "application/octet-stream"
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// hiddenPath reports whether any element of a relative path is hidden.
func hiddenPath(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if isHidden(part) {
			return true
		}
	}
	return false
}
