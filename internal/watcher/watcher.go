// Package watcher monitors the import directory for dropped CSV exports
// and feeds them into the resolver.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sydlexius/backbeat/internal/event"
	"github.com/sydlexius/backbeat/internal/record"
)

// Ingestor accepts parsed records, typically the resolver.
type Ingestor interface {
	IngestRecords(records []record.Record, source string)
}

// Service watches a single import directory for CSV files. Writes are
// coalesced per file with a debounce timer so partially written exports
// are not read mid-copy.
type Service struct {
	dir      string
	ingestor Ingestor
	eventBus *event.Bus
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	done    chan string // emits file paths after ingestion (for testing)
}

// NewService creates a new import directory watcher.
func NewService(dir string, ingestor Ingestor, eventBus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		dir:      dir,
		ingestor: ingestor,
		eventBus: eventBus,
		logger:   logger.With(slog.String("component", "import-watcher")),
		debounce: 2 * time.Second,
		pending:  make(map[string]*time.Timer),
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// notifyIngested registers a channel that receives each ingested file
// path (for testing).
func (s *Service) notifyIngested(ch chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = ch
}

// Start blocks until ctx is canceled. It ingests any CSV files already
// present in the directory, then watches for new ones.
func (s *Service) Start(ctx context.Context) {
	if s.dir == "" {
		s.logger.Info("no import directory configured, watcher disabled")
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Error("creating import directory", "dir", s.dir, "error", err)
		return
	}

	s.ingestExisting()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("fsnotify unavailable, import watcher disabled", "error", err)
		return
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(s.dir); err != nil {
		s.logger.Error("watching import directory", "dir", s.dir, "error", err)
		return
	}
	s.logger.Info("import watcher starting", "dir", s.dir)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("import watcher stopping")
			s.cancelPending()
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			s.handleFSEvent(ev)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)
		}
	}
}

func (s *Service) handleFSEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !isCSV(ev.Name) {
		return
	}

	// Each write resets the file's timer; ingestion happens once the
	// file has been quiet for the debounce interval.
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[ev.Name]; ok {
		t.Reset(s.debounce)
		return
	}
	path := ev.Name
	s.pending[path] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.pending, path)
		s.mu.Unlock()
		s.ingestFile(path)
	})
}

func (s *Service) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, t := range s.pending {
		t.Stop()
		delete(s.pending, path)
	}
}

func (s *Service) ingestExisting() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("reading import directory", "dir", s.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isCSV(entry.Name()) {
			continue
		}
		s.ingestFile(filepath.Join(s.dir, entry.Name()))
	}
}

func (s *Service) ingestFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Error("opening import file", "path", path, "error", err)
		return
	}
	records, err := record.ReadCSV(f)
	f.Close() //nolint:errcheck
	if err != nil {
		s.logger.Error("parsing import file", "path", path, "error", err)
		return
	}

	source := filepath.Base(path)
	s.ingestor.IngestRecords(records, source)
	s.logger.Info("import file ingested", "path", path, "records", len(records))

	s.eventBus.Publish(event.Event{
		Type: event.ImportCompleted,
		Data: map[string]any{
			"file":    source,
			"records": len(records),
		},
	})

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		select {
		case done <- path:
		default:
		}
	}
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
