package foreign

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/hashicorp/go-hclog"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
	"github.com/nasforge/npk/pkg/npk/operations"
	"github.com/nasforge/npk/pkg/npk/operations/bundle"
)

// resolveDeb extracts a Debian binary package into destDir and returns its
// control metadata. When dpkg-deb is on PATH it does the extraction; the
// fallback splits the ar archive directly.
func resolveDeb(archivePath, destDir string, logger hclog.Logger) (Metadata, error) {
	if dpkg, err := exec.LookPath("dpkg-deb"); err == nil {
		logger.Debug("extracting with dpkg-deb", "binary", dpkg)
		return resolveDebWithDpkg(dpkg, archivePath, destDir, logger)
	}
	logger.Debug("dpkg-deb not found, splitting ar archive")
	return splitDeb(archivePath, destDir)
}

func resolveDebWithDpkg(dpkg, archivePath, destDir string, logger hclog.Logger) (Metadata, error) {
	cmd := exec.Command(dpkg, "-R", archivePath, destDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		logger.Debug("dpkg-deb failed", "output", strings.TrimSpace(string(output)))
		return Metadata{}, npkerrors.Resolution("dpkg-deb",
			fmt.Errorf("%w: %v", npkerrors.ErrArchiveUnreadable, err))
	}

	// dpkg-deb -R drops the maintainer scripts under DEBIAN/. They are
	// executable and must not leak into entry-point discovery.
	controlDir := filepath.Join(destDir, "DEBIAN")
	var meta Metadata
	if f, err := os.Open(filepath.Join(controlDir, "control")); err == nil {
		meta = ParseControl(f)
		f.Close()
	}
	if err := os.RemoveAll(controlDir); err != nil {
		return Metadata{}, npkerrors.Resolution("dpkg-deb", err)
	}
	return meta, nil
}

// splitDeb walks the ar members of a .deb: control.tar* yields the metadata,
// data.tar* yields the payload tree. Member order inside the archive does
// not matter.
func splitDeb(archivePath, destDir string) (Metadata, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Metadata{}, npkerrors.Resolution("open archive", err)
	}
	defer f.Close()

	var meta Metadata
	sawData := false

	arReader := ar.NewReader(f)
	for {
		header, err := arReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Metadata{}, npkerrors.Resolution("split ar archive",
				fmt.Errorf("%w: %v", npkerrors.ErrArchiveUnreadable, err))
		}

		name := path.Clean(strings.TrimSpace(header.Name))
		switch {
		case strings.HasPrefix(name, "control.tar"):
			archive, err := decompressMember(arReader, name)
			if err != nil {
				return Metadata{}, err
			}
			meta = parseControlArchive(archive)
		case strings.HasPrefix(name, "data.tar"):
			archive, err := decompressMember(arReader, name)
			if err != nil {
				return Metadata{}, err
			}
			if err := bundle.UnpackTree(bytes.NewReader(archive), destDir); err != nil {
				return Metadata{}, npkerrors.Resolution("unpack data.tar", err)
			}
			sawData = true
		}
	}

	if !sawData {
		return Metadata{}, npkerrors.Resolution("split ar archive",
			fmt.Errorf("%w: no data.tar member", npkerrors.ErrArchiveUnreadable))
	}
	return meta, nil
}

// decompressMember reverses the member's compression, selected by its file
// extension. A bare .tar member passes through untouched.
func decompressMember(r io.Reader, name string) ([]byte, error) {
	ext := filepath.Ext(name)
	if ext == ".tar" {
		ext = ""
	}

	op, err := operations.ForExtension(ext)
	if err != nil {
		return nil, npkerrors.Resolution("decompress "+name,
			fmt.Errorf("%w: %v", npkerrors.ErrArchiveUnreadable, err))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, npkerrors.Resolution("read "+name, err)
	}
	if op == nil {
		return data, nil
	}

	plain, err := op.Reverse(data)
	if err != nil {
		return nil, npkerrors.Resolution("decompress "+name,
			fmt.Errorf("%w: %v", npkerrors.ErrArchiveUnreadable, err))
	}
	return plain, nil
}

// parseControlArchive pulls the control member out of the decompressed
// control.tar. Metadata stays empty if the member is missing; resolution
// still succeeds on the payload alone.
func parseControlArchive(archive []byte) Metadata {
	tr := tar.NewReader(bytes.NewReader(archive))
	for {
		header, err := tr.Next()
		if err != nil {
			return Metadata{}
		}
		if path.Clean(header.Name) == "control" {
			return ParseControl(tr)
		}
	}
}
