// Package stage manages scoped temporary workspaces for the npk pipeline.
//
// Every pipeline run (foreign extraction, assembly staging, install staging)
// works inside a Workspace rooted in a fresh temp directory. Cleanup removes
// the whole tree and is safe to call on every exit path, so repeated builds
// never leak disk.
package stage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Workspace is a temp directory tree owned by one pipeline run.
type Workspace struct {
	root   string
	logger hclog.Logger
}

// New creates a workspace under the system temp directory. The prefix names
// the tool or stage that owns it, e.g. "npk-build".
func New(prefix string, logger hclog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	root, err := os.MkdirTemp("", prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	logger.Debug("workspace created", "root", root)
	return &Workspace{root: root, logger: logger}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Dir returns a named subdirectory of the workspace, creating it if needed.
func (w *Workspace) Dir(name string) (string, error) {
	dir := filepath.Join(w.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating workspace dir %s: %w", name, err)
	}
	return dir, nil
}

// Cleanup removes the workspace tree. Errors are logged, not returned:
// cleanup runs on failure paths where the original error must win.
func (w *Workspace) Cleanup() {
	if w == nil || w.root == "" {
		return
	}
	if err := os.RemoveAll(w.root); err != nil {
		w.logger.Warn("failed to remove workspace", "root", w.root, "error", err)
		return
	}
	w.logger.Debug("workspace removed", "root", w.root)
	w.root = ""
}
