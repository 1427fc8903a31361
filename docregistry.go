package main

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Dia-Souci/IsDBI/docstore"
	"github.com/fsnotify/fsnotify"
)

type corpusStore interface {
	Ingest(records []docstore.Record) error
	BuildIndex(ctx context.Context) error
	Replace(ctx context.Context, records []docstore.Record) error
	ChunkCount() int
}

type fileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

// CorpusRegistry assembles the document corpus from the JSON data file and
// an optional document directory, feeds it to the store, and keeps the
// index in sync when the sources change on disk.
type CorpusRegistry struct {
	log      *slog.Logger
	store    corpusStore
	dataPath string
	docRoot  string
	chunker  *chunker
	reader   fileReader
	debounce time.Duration

	mu      sync.Mutex
	lastCrc uint32
}

// Load performs the initial ingest and index build. The service must not
// accept traffic until Load returns.
func (cr *CorpusRegistry) Load(ctx context.Context) error {
	records, err := cr.collect()
	if err != nil {
		return err
	}

	if err := cr.store.Ingest(records); err != nil {
		return err
	}

	if err := cr.store.BuildIndex(ctx); err != nil {
		return err
	}

	cr.mu.Lock()
	cr.lastCrc = recordsCrc(records)
	cr.mu.Unlock()

	cr.log.Info("corpus loaded", "chunks", cr.store.ChunkCount())
	return nil
}

// Watch rebuilds the index when the data file or document root changes.
// Events are debounced; a rebuild producing the same corpus is skipped.
// The swap is atomic at the store, so queries never see a partial index.
func (cr *CorpusRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create corpus watcher: %w", err)
	}

	if cr.dataPath != "" {
		if err := watcher.Add(filepath.Dir(cr.dataPath)); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch data file: %w", err)
		}
	}
	if cr.docRoot != "" {
		if err := watcher.Add(cr.docRoot); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch doc root: %w", err)
		}
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				cr.log.Error("corpus watcher error", "error", err)
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(cr.debounce, func() {
					cr.reload(ctx)
				})
			}
		}
	}()

	return nil
}

// reload runs one at a time: a burst of events can fire overlapping
// debounce timers, and an older rebuild must not swap its index in over
// a newer one.
func (cr *CorpusRegistry) reload(ctx context.Context) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	records, err := cr.collect()
	if err != nil {
		cr.log.Error("corpus reload failed", "error", err)
		return
	}

	crc := recordsCrc(records)
	if crc == cr.lastCrc {
		return
	}

	if err := cr.store.Replace(ctx, records); err != nil {
		cr.log.Error("index rebuild failed", "error", err)
		return
	}

	cr.lastCrc = crc
	cr.log.Info("corpus reloaded", "chunks", cr.store.ChunkCount())
}

func (cr *CorpusRegistry) collect() ([]docstore.Record, error) {
	var records []docstore.Record

	if cr.dataPath != "" {
		fromFile, err := loadDataFile(cr.dataPath)
		if err != nil {
			return nil, err
		}
		records = append(records, fromFile...)
	}

	if cr.docRoot != "" {
		fromDir, err := cr.collectDocRoot()
		if err != nil {
			return nil, err
		}
		records = append(records, fromDir...)
	}

	return records, nil
}

// collectDocRoot converts every readable file under the doc root into a
// record, chunkified with sequential chunk numbers standing in for pages.
func (cr *CorpusRegistry) collectDocRoot() ([]docstore.Record, error) {
	var records []docstore.Record
	err := filepath.Walk(cr.docRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !cr.reader.CanRead(path) {
			cr.log.Warn("unsupported corpus file", "path", path)
			return nil
		}

		text, err := cr.reader.ReadText(path)
		if err != nil {
			return err
		}

		rec := docstore.Record{
			FileName: filepath.Base(path),
			Content:  []docstore.Page{},
		}
		for i, piece := range cr.chunker.split(text) {
			rec.Content = append(rec.Content, docstore.Page{Text: piece, Page: i + 1})
		}
		records = append(records, rec)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect documents from %s: %w", cr.docRoot, err)
	}

	return records, nil
}

func loadDataFile(path string) ([]docstore.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	var records []docstore.Record
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}

	return records, nil
}

func recordsCrc(records []docstore.Record) uint32 {
	buf, _ := json.Marshal(records)
	return crc32.Checksum(buf, crc32.IEEETable)
}
