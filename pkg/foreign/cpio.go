package foreign

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
)

// cpio "new ASCII" (newc) constants. rpm payloads use this variant, with
// 070702 adding a checksum field this reader ignores.
const (
	cpioMagicNewc = "070701"
	cpioMagicCRC  = "070702"
	cpioHeaderLen = 110
	cpioTrailer   = "TRAILER!!!"

	cpioTypeMask    = 0o170000
	cpioTypeDir     = 0o040000
	cpioTypeRegular = 0o100000
	cpioTypeSymlink = 0o120000
)

// extractCpio unpacks a newc archive into destDir. Entry names outside the
// destination are rejected. Entry types other than directories, regular
// files and symlinks are skipped.
func extractCpio(archive []byte, destDir string) error {
	offset := 0
	for {
		if offset+cpioHeaderLen > len(archive) {
			return cpioErr("truncated header at offset %d", offset)
		}
		header := archive[offset : offset+cpioHeaderLen]

		magic := string(header[:6])
		if magic != cpioMagicNewc && magic != cpioMagicCRC {
			return cpioErr("bad magic %q at offset %d", magic, offset)
		}

		mode, err := cpioField(header, 1)
		if err != nil {
			return err
		}
		fileSize, err := cpioField(header, 6)
		if err != nil {
			return err
		}
		nameSize, err := cpioField(header, 11)
		if err != nil {
			return err
		}

		nameStart := offset + cpioHeaderLen
		if nameStart+int(nameSize) > len(archive) {
			return cpioErr("truncated name at offset %d", offset)
		}
		name := string(bytes.TrimRight(archive[nameStart:nameStart+int(nameSize)], "\x00"))

		dataStart := align4(nameStart + int(nameSize))
		dataEnd := dataStart + int(fileSize)
		if dataEnd > len(archive) {
			return cpioErr("truncated data for %s", name)
		}
		data := archive[dataStart:dataEnd]
		offset = align4(dataEnd)

		if name == cpioTrailer {
			return nil
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
		if rel == "" || rel == "." {
			continue
		}
		if !filepath.IsLocal(rel) {
			return cpioErr("entry escapes destination: %s", name)
		}
		target := filepath.Join(destDir, filepath.FromSlash(rel))

		switch mode & cpioTypeMask {
		case cpioTypeDir:
			if err := os.MkdirAll(target, fs.FileMode(mode&0o777)); err != nil {
				return npkerrors.Resolution("unpack cpio", err)
			}
		case cpioTypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return npkerrors.Resolution("unpack cpio", err)
			}
			if err := os.Symlink(string(data), target); err != nil {
				return npkerrors.Resolution("unpack cpio", err)
			}
		case cpioTypeRegular:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return npkerrors.Resolution("unpack cpio", err)
			}
			if err := os.WriteFile(target, data, fs.FileMode(mode&0o777)); err != nil {
				return npkerrors.Resolution("unpack cpio", err)
			}
		}
	}
}

// cpioField reads the n-th 8-digit hex field after the magic.
func cpioField(header []byte, n int) (uint64, error) {
	start := 6 + n*8
	value, err := strconv.ParseUint(string(header[start:start+8]), 16, 64)
	if err != nil {
		return 0, cpioErr("bad header field %d: %v", n, err)
	}
	return value, nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func cpioErr(format string, args ...any) error {
	return npkerrors.Resolution("unpack cpio",
		fmt.Errorf("%w: cpio: %s", npkerrors.ErrArchiveUnreadable, fmt.Sprintf(format, args...)))
}
