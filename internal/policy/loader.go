package policy

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// LoadFile reads and parses the policy at path. An empty file is rejected.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	// A file caught mid-write reads as empty.
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: policy file is empty", path)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Watcher keeps a gate in sync with a policy file. A file that fails to
// parse is reported and the previous policy stays in force.
type Watcher struct {
	path string
	gate *Gate

	// OnReload, when set, is called after every reload attempt.
	OnReload func(*Policy, error)
}

func NewWatcher(path string, gate *Gate) *Watcher {
	return &Watcher{path: filepath.Clean(path), gate: gate}
}

// Load applies the file once. The initial load must succeed.
func (w *Watcher) Load() error {
	p, err := LoadFile(w.path)
	if err != nil {
		return err
	}
	w.gate.SetPolicy(p)
	log.Printf("🛡️ Access policy loaded from %s (role=%s, %d customer(s), %d tool(s))",
		w.path, p.Role, len(p.AllowedCustomers), len(p.AllowedTools))
	return nil
}

// Start watches the file's directory until ctx is done. Editors often
// replace files by rename, so the directory is watched rather than the file.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					w.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ Policy watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (w *Watcher) reload() {
	p, err := LoadFile(w.path)
	if err != nil {
		log.Printf("⚠️ Policy reload rejected, keeping previous policy: %v", err)
	} else {
		w.gate.SetPolicy(p)
		log.Printf("🔄 Access policy reloaded (role=%s)", p.Role)
	}
	if w.OnReload != nil {
		w.OnReload(p, err)
	}
}
