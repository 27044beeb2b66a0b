// Package inbox queues records dropped into a directory as JSON files.
//
// Each file holds one envelope:
//
//	{"kind": "herb-collection", "payload": {...}}
//
// A file is claimed by moving it into processing/ before it is submitted.
// Accepted files then move to processed/, rejected files move to failed/
// with a sibling .error file. Files that could not be queued because the
// store failed move back to the inbox and are retried on the next scan.
// Files left in processing/ by an interrupted run may already be queued,
// so Run moves them to failed/ instead of submitting them again.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driving"
	"github.com/custodia-labs/herbtrace/internal/logger"
)

// Subdirectories of the inbox.
const (
	ProcessingDir = "processing"
	ProcessedDir  = "processed"
	FailedDir     = "failed"
)

// DefaultSettle is how long a file must be quiet before it is read.
const DefaultSettle = 200 * time.Millisecond

// Envelope is the file format accepted by the inbox.
type Envelope struct {
	Kind    domain.RecordKind `json:"kind"`
	Payload json.RawMessage   `json:"payload"`
}

// Inbox watches a directory and submits envelopes through the capture service.
type Inbox struct {
	dir     string
	capture driving.CaptureService
	settle  time.Duration
}

// New creates an inbox rooted at dir.
func New(dir string, capture driving.CaptureService) *Inbox {
	return &Inbox{
		dir:     dir,
		capture: capture,
		settle:  DefaultSettle,
	}
}

// WithSettle overrides the quiet period before a changed file is read.
func (i *Inbox) WithSettle(d time.Duration) *Inbox {
	i.settle = d
	return i
}

// Dir returns the watched directory.
func (i *Inbox) Dir() string {
	return i.dir
}

// Run queues files already present and then every file written to the
// directory until ctx is done.
func (i *Inbox) Run(ctx context.Context) error {
	if err := i.ensureDirs(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating inbox watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(i.dir); err != nil {
		return fmt.Errorf("watching inbox: %w", err)
	}
	logger.Debug("Watching inbox %s", i.dir)

	i.quarantineClaimed()

	// Scan after the watch is registered so no file slips between the two.
	if _, err := i.Scan(ctx); err != nil {
		logger.Warn("Inbox scan: %v", err)
	}

	ready := make(chan string, 64)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := i.candidate(event)
			if path == "" {
				continue
			}
			if t, ok := pending[path]; ok {
				t.Reset(i.settle)
				continue
			}
			pending[path] = time.AfterFunc(i.settle, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(pending, path)
			if _, err := i.Process(ctx, path); err != nil {
				logger.Warn("Inbox %s: %v", filepath.Base(path), err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Inbox watcher error: %v", err)
		}
	}
}

// Scan processes every envelope currently in the directory and returns how
// many were queued.
func (i *Inbox) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		return 0, fmt.Errorf("reading inbox: %w", err)
	}

	queued := 0
	for _, e := range entries {
		if e.IsDir() || !isEnvelopeName(e.Name()) {
			continue
		}
		id, err := i.Process(ctx, filepath.Join(i.dir, e.Name()))
		if err != nil {
			logger.Warn("Inbox %s: %v", e.Name(), err)
			continue
		}
		if id != "" {
			queued++
		}
	}
	return queued, nil
}

// Process submits one envelope file and returns the queued client ID.
// Invalid envelopes are moved to failed/ and return an empty ID with no
// error. Store failures are returned and the file moves back to the inbox.
func (i *Inbox) Process(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	claimed := filepath.Join(i.dir, ProcessingDir, name)
	if err := os.Rename(path, claimed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("claiming envelope: %w", err)
	}

	data, err := os.ReadFile(claimed)
	if err != nil {
		i.release(claimed)
		return "", fmt.Errorf("reading envelope: %w", err)
	}

	env, err := decodeEnvelope(data)
	if err == nil {
		var id string
		id, err = i.capture.SubmitRecord(ctx, env.Kind, env.Payload)
		if err == nil {
			logger.Info("Inbox %s queued as %s", name, id)
			if merr := i.move(claimed, ProcessedDir); merr != nil {
				logger.Error("Inbox %s queued as %s but left in %s: %v", name, id, ProcessingDir, merr)
			}
			return id, nil
		}
	}

	if !errors.Is(err, domain.ErrInvalidInput) {
		i.release(claimed)
		return "", err
	}

	logger.Warn("Inbox %s rejected: %v", name, err)
	return "", i.reject(claimed, err.Error())
}

// quarantineClaimed moves files left in processing/ to failed/.
func (i *Inbox) quarantineClaimed() {
	entries, err := os.ReadDir(filepath.Join(i.dir, ProcessingDir))
	if err != nil {
		logger.Warn("Reading %s: %v", ProcessingDir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		logger.Warn("Inbox %s was interrupted while being queued; moving to %s", e.Name(), FailedDir)
		path := filepath.Join(i.dir, ProcessingDir, e.Name())
		if err := i.reject(path, "interrupted while queued; the record may already be queued"); err != nil {
			logger.Error("Inbox %s: %v", e.Name(), err)
		}
	}
}

// release returns a claimed file to the inbox for the next scan.
func (i *Inbox) release(claimed string) {
	if err := os.Rename(claimed, filepath.Join(i.dir, filepath.Base(claimed))); err != nil {
		logger.Error("Inbox %s not returned from %s: %v", filepath.Base(claimed), ProcessingDir, err)
	}
}

// reject writes a .error note and moves the file to failed/.
func (i *Inbox) reject(path, reason string) error {
	name := filepath.Base(path)
	if err := os.WriteFile(filepath.Join(i.dir, FailedDir, name+".error"), []byte(reason+"\n"), 0o644); err != nil {
		logger.Warn("Writing rejection note for %s: %v", name, err)
	}
	return i.move(path, FailedDir)
}

// candidate returns the path of an event worth processing, or "".
func (i *Inbox) candidate(event fsnotify.Event) string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return ""
	}
	if filepath.Dir(event.Name) != filepath.Clean(i.dir) || !isEnvelopeName(filepath.Base(event.Name)) {
		return ""
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return ""
	}
	return event.Name
}

func (i *Inbox) ensureDirs() error {
	for _, d := range []string{i.dir, filepath.Join(i.dir, ProcessingDir), filepath.Join(i.dir, ProcessedDir), filepath.Join(i.dir, FailedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating inbox directory: %w", err)
		}
	}
	return nil
}

func (i *Inbox) move(path, sub string) error {
	dst := filepath.Join(i.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		return fmt.Errorf("moving to %s: %w", sub, err)
	}
	return nil
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope: %w", domain.ErrInvalidInput, err)
	}
	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("%w: envelope has no kind", domain.ErrInvalidInput)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return Envelope{}, fmt.Errorf("%w: envelope has no payload", domain.ErrInvalidInput)
	}
	return env, nil
}

// isEnvelopeName skips hidden and temporary files so writers can write to
// ".name.json" and rename into place.
func isEnvelopeName(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".json")
}
