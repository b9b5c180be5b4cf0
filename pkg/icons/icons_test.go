package icons

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestGeneratePlaceholdersSynthesized(t *testing.T) {
	dest := t.TempDir()
	if err := GeneratePlaceholders("", "media-server", dest); err != nil {
		t.Fatalf("GeneratePlaceholders() error: %v", err)
	}

	for _, size := range Sizes {
		path := filepath.Join(dest, fmt.Sprintf("media-server_%d.png", size))
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("missing icon: %v", err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decoding %s: %v", path, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() != int(size) || bounds.Dy() != int(size) {
			t.Errorf("icon %s is %dx%d, want %dx%d", path, bounds.Dx(), bounds.Dy(), size, size)
		}
	}
}

// Placeholder icons derive their color from the package name, so rebuilds of
// the same package must produce identical bytes.
func TestGeneratePlaceholdersDeterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	if err := GeneratePlaceholders("", "sample", a); err != nil {
		t.Fatal(err)
	}
	if err := GeneratePlaceholders("", "sample", b); err != nil {
		t.Fatal(err)
	}

	for _, size := range Sizes {
		name := fmt.Sprintf("sample_%d.png", size)
		dataA, err := os.ReadFile(filepath.Join(a, name))
		if err != nil {
			t.Fatal(err)
		}
		dataB, err := os.ReadFile(filepath.Join(b, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(dataA, dataB) {
			t.Errorf("icon %s differs between identical runs", name)
		}
	}
}

func TestGeneratePlaceholdersFromSource(t *testing.T) {
	// Render a source from the synthesizer itself, then rescale it.
	srcDir := t.TempDir()
	if err := GeneratePlaceholders("", "src", srcDir); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(srcDir, fmt.Sprintf("src_%d.png", Sizes[0]))

	dest := t.TempDir()
	if err := GeneratePlaceholders(src, "app", dest); err != nil {
		t.Fatalf("GeneratePlaceholders() error: %v", err)
	}
	for _, size := range Sizes {
		if _, err := os.Stat(filepath.Join(dest, fmt.Sprintf("app_%d.png", size))); err != nil {
			t.Errorf("missing icon for size %d: %v", size, err)
		}
	}
}

func TestGeneratePlaceholdersMissingSource(t *testing.T) {
	err := GeneratePlaceholders(filepath.Join(t.TempDir(), "nope.png"), "app", t.TempDir())
	if err == nil {
		t.Error("GeneratePlaceholders() = nil, want error for missing source")
	}
}
