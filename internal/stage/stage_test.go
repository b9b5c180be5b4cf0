package stage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspaceLifecycle(t *testing.T) {
	ws, err := New("npk-test", nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	root := ws.Root()
	if !strings.Contains(filepath.Base(root), "npk-test") {
		t.Errorf("workspace root %q does not carry the prefix", root)
	}

	dir, err := ws.Dir("data")
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Dir is idempotent.
	again, err := ws.Dir("data")
	if err != nil || again != dir {
		t.Errorf("Dir() second call = %q, %v", again, err)
	}

	ws.Cleanup()
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Error("workspace tree survived Cleanup")
	}

	// Repeated cleanup must be safe on every exit path.
	ws.Cleanup()
}

func TestCleanupNilWorkspace(t *testing.T) {
	var ws *Workspace
	ws.Cleanup()
}
