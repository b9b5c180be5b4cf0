// Package foreign resolves foreign package archives (deb, rpm) into an
// extracted payload tree plus normalized metadata, the raw material the
// container assembler packages up.
package foreign

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/nasforge/npk/internal/stage"
	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
	_ "github.com/nasforge/npk/pkg/npk/operations/compress" // register codecs
)

// Archive magic numbers, checked before falling back to the extension.
var (
	arMagic  = []byte("!<arch>\n")
	rpmMagic = []byte{0xed, 0xab, 0xee, 0xdb}
)

// Resolution is the outcome of resolving one foreign archive. It owns a
// temp workspace holding the extracted tree; Close releases it.
type Resolution struct {
	// Root is the extracted payload tree.
	Root string

	// Metadata is whatever the foreign control data declared.
	Metadata Metadata

	// Candidates are the discovered executables, relative to Root.
	Candidates []Candidate

	ws *stage.Workspace
}

// Close removes the extraction workspace.
func (r *Resolution) Close() {
	r.ws.Cleanup()
}

// Resolver turns foreign archives into Resolutions.
type Resolver struct {
	logger hclog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger hclog.Logger) *Resolver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Resolver{logger: logger}
}

// Resolve extracts the archive at path, parses its metadata and discovers
// executable candidates. The caller must Close the returned Resolution.
func (r *Resolver) Resolve(path string) (*Resolution, error) {
	kind, err := detectKind(path)
	if err != nil {
		return nil, err
	}
	r.logger.Info("🔍 resolving foreign archive", "archive", path, "kind", kind)

	ws, err := stage.New("npk-resolve", r.logger)
	if err != nil {
		return nil, npkerrors.Resolution("workspace", err)
	}

	root, err := ws.Dir("tree")
	if err != nil {
		ws.Cleanup()
		return nil, npkerrors.Resolution("workspace", err)
	}

	var meta Metadata
	switch kind {
	case "deb":
		meta, err = resolveDeb(path, root, r.logger)
	case "rpm":
		meta, err = resolveRPM(path, root, r.logger)
	}
	if err != nil {
		ws.Cleanup()
		return nil, err
	}

	if !HostArchitectureMatches(meta.Architecture) {
		r.logger.Warn("⚠️ archive architecture does not match host",
			"declared", meta.Architecture, "host", runtime.GOARCH)
	}

	candidates, err := DiscoverExecutables(root)
	if err != nil {
		ws.Cleanup()
		return nil, err
	}

	r.logger.Info("📋 archive resolved",
		"package", meta.Name, "version", meta.Version, "executables", len(candidates))
	return &Resolution{Root: root, Metadata: meta, Candidates: candidates, ws: ws}, nil
}

// detectKind classifies the archive by magic number, falling back to the
// file extension for short or unrecognized files.
func detectKind(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", npkerrors.Resolution("open archive", err)
	}
	defer f.Close()

	magic := make([]byte, len(arMagic))
	n, _ := f.Read(magic)
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, arMagic):
		return "deb", nil
	case bytes.HasPrefix(magic, rpmMagic):
		return "rpm", nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".deb":
		return "deb", nil
	case ".rpm":
		return "rpm", nil
	}

	return "", npkerrors.Resolution("detect archive",
		fmt.Errorf("%w: %s", npkerrors.ErrArchiveUnreadable, path))
}
