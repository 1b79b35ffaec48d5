// Package journal appends pipeline outcomes to date-partitioned JSONL files.
// It is an audit log only; nothing in the engine reads it back.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RedirectRecord is written once per emitted redirect instruction.
type RedirectRecord struct {
	Timestamp time.Time `json:"timestamp"`
	TabID     string    `json:"tab_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Initiator string    `json:"initiator,omitempty"`
}

// BulkRunRecord is written once per bulk-clean run after all updates settle.
type BulkRunRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Tabs      int       `json:"tabs"`
	Updated   int       `json:"updated"`
	Failed    int       `json:"failed"`
}

// Writer asynchronously appends JSON lines to a date-partitioned file under
// baseDir. Writes never block the caller: when the buffer is full the record
// is dropped with a warning.
type Writer struct {
	baseDir   string
	maxSizeMB int
	writeCh   chan any
	done      chan struct{}
	wg        sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
}

// NewWriter starts a Writer with the given buffer capacity and per-file size
// cap in megabytes.
func NewWriter(baseDir string, bufferSize, maxSizeMB int) *Writer {
	w := &Writer{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan any, bufferSize),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Write queues a record for asynchronous writing.
func (w *Writer) Write(record any) error {
	select {
	case <-w.done:
		return fmt.Errorf("journal: writer is closed")
	default:
	}
	select {
	case w.writeCh <- record:
		return nil
	default:
		slog.Warn("journal buffer full, dropping record")
		return fmt.Errorf("journal: buffer full")
	}
}

// Close shuts down the writer and flushes pending records.
func (w *Writer) Close() error {
	close(w.done)
	w.wg.Wait()

	// Drain whatever arrived before the loop exited.
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		default:
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.logger != nil {
				return w.logger.Close()
			}
			return nil
		}
	}
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-w.done:
			return
		}
	}
}

func (w *Writer) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("journal marshal failed", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := time.Now().UTC().Format("2006-01-02")
	if w.logger == nil || date != w.currentDate {
		w.rotateForDate(date)
	}
	if w.logger == nil {
		return
	}

	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "error", err)
	}
}

func (w *Writer) rotateForDate(date string) {
	if w.logger != nil {
		if err := w.logger.Close(); err != nil {
			slog.Debug("journal close previous file failed", "error", err)
		}
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("journal mkdir failed", "dir", dir, "error", err)
		w.logger = nil
		return
	}

	filename := filepath.Join(dir, "decisions.jsonl")
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 30,
		MaxAge:     30,
		Compress:   false,
		LocalTime:  false,
	}
	w.currentDate = date
	slog.Info("journal file opened", "file", filename)
}
