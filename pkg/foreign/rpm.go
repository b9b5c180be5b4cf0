package foreign

import (
	"fmt"
	"io"
	"os"

	"github.com/cavaliergopher/rpm"
	"github.com/hashicorp/go-hclog"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
	"github.com/nasforge/npk/pkg/npk/operations"
)

// compressorExts maps the compressor names an rpm header declares to the
// codec extensions of the operations registry.
var compressorExts = map[string]string{
	"gzip":  ".gz",
	"bzip2": ".bz2",
	"xz":    ".xz",
	"zstd":  ".zst",
	"":      "",
}

// resolveRPM extracts an rpm package into destDir and returns its header
// metadata. The header parse positions the reader at the payload, which is
// decompressed with the declared compressor and unpacked as cpio.
func resolveRPM(archivePath, destDir string, logger hclog.Logger) (Metadata, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Metadata{}, npkerrors.Resolution("open archive", err)
	}
	defer f.Close()

	pkg, err := rpm.Read(f)
	if err != nil {
		return Metadata{}, npkerrors.Resolution("read rpm header",
			fmt.Errorf("%w: %v", npkerrors.ErrArchiveUnreadable, err))
	}

	meta := Metadata{
		Name:         pkg.Name(),
		Version:      pkg.Version(),
		Summary:      pkg.Summary(),
		Maintainer:   pkg.Packager(),
		Architecture: pkg.Architecture(),
	}
	if meta.Maintainer == "" {
		meta.Maintainer = pkg.Vendor()
	}

	if format := pkg.PayloadFormat(); format != "cpio" && format != "" {
		return Metadata{}, npkerrors.Resolution("read rpm payload",
			fmt.Errorf("%w: unsupported payload format %q", npkerrors.ErrArchiveUnreadable, format))
	}

	compressor := pkg.PayloadCompression()
	ext, ok := compressorExts[compressor]
	if !ok {
		return Metadata{}, npkerrors.Resolution("read rpm payload",
			fmt.Errorf("%w: unsupported payload compressor %q", npkerrors.ErrArchiveUnreadable, compressor))
	}
	logger.Debug("rpm payload", "compressor", compressor, "format", pkg.PayloadFormat())

	op, err := operations.ForExtension(ext)
	if err != nil {
		return Metadata{}, npkerrors.Resolution("read rpm payload", err)
	}

	payload, err := io.ReadAll(f)
	if err != nil {
		return Metadata{}, npkerrors.Resolution("read rpm payload", err)
	}
	if op != nil {
		payload, err = op.Reverse(payload)
		if err != nil {
			return Metadata{}, npkerrors.Resolution("decompress rpm payload",
				fmt.Errorf("%w: %v", npkerrors.ErrArchiveUnreadable, err))
		}
	}

	if err := extractCpio(payload, destDir); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}
