// Package outbox keeps realtime events that could not be published in an
// append-only JSON-lines file until a retry loop delivers them.
package outbox

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

// Entry is one undelivered event
type Entry struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type Outbox struct {
	filePath string
	file     *os.File
	mu       sync.Mutex
}

func NewOutbox(filePath string) (*Outbox, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Outbox{
		filePath: filePath,
		file:     file,
	}, nil
}

// Append writes an entry and syncs it to disk
func (o *Outbox) Append(entry Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if _, err := o.file.Write(append(data, '\n')); err != nil {
		logger.Log.Error("Outbox: failed to write entry",
			zap.String("entry_id", entry.ID),
			zap.Error(err),
		)
		return err
	}

	if err := o.file.Sync(); err != nil {
		logger.Log.Error("Outbox: failed to sync to disk",
			zap.String("entry_id", entry.ID),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Debug("Outbox: entry stored", zap.String("entry_id", entry.ID))
	return nil
}

func (o *Outbox) ReadAll() ([]Entry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.readAllUnsafe()
}

// Remove drops delivered entries by rewriting the file through a temp file
func (o *Outbox) Remove(deliveredIDs []string) error {
	if len(deliveredIDs) == 0 {
		return nil
	}

	start := time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()

	allEntries, err := o.readAllUnsafe()
	if err != nil {
		return err
	}

	delivered := make(map[string]bool, len(deliveredIDs))
	for _, id := range deliveredIDs {
		delivered[id] = true
	}

	var remaining []Entry
	for _, entry := range allEntries {
		if !delivered[entry.ID] {
			remaining = append(remaining, entry)
		}
	}

	if err := o.file.Close(); err != nil {
		return err
	}

	tempFile := o.filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		logger.Log.Error("Outbox: failed to create temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		return o.reopen(err)
	}

	w := bufio.NewWriter(f)
	for _, entry := range remaining {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return o.reopen(err)
	}
	f.Sync()
	f.Close()

	if err := os.Rename(tempFile, o.filePath); err != nil {
		logger.Log.Error("Outbox: failed to rename temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		return o.reopen(err)
	}

	if err := o.reopen(nil); err != nil {
		return err
	}

	logger.Log.Info("Outbox: delivered entries removed",
		zap.Int("before_count", len(allEntries)),
		zap.Int("remaining_count", len(remaining)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// reopen restores the append handle after the file was closed and passes
// cause through when the reopen itself succeeds.
func (o *Outbox) reopen(cause error) error {
	file, err := os.OpenFile(o.filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		logger.Log.Error("Outbox: failed to reopen file",
			zap.String("file_path", o.filePath),
			zap.Error(err),
		)
		return err
	}
	o.file = file
	return cause
}

func (o *Outbox) readAllUnsafe() ([]Entry, error) {
	file, err := os.Open(o.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.file.Close()
}
