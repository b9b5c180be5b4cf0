package format

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
	"github.com/nasforge/npk/pkg/npk/operations"
	"github.com/nasforge/npk/pkg/npk/operations/bundle"
)

// Layout is the resolved byte layout of an opened container.
type Layout struct {
	PreambleLen int64 // L: self-reported, verified against file size
	DataLen     int64 // D: recovered from the control block record
	FileSize    int64
}

// ControlFile is one member of the decompressed control archive.
type ControlFile struct {
	Data []byte
	Mode fs.FileMode
}

// Reader reads NPK/1 containers. It resolves the block boundaries from the
// preamble's self-reported length and the control block's recorded data
// length; nothing is ever located by scanning.
type Reader struct {
	path   string
	file   *os.File
	logger hclog.Logger

	layout  *Layout
	desc    *Descriptor
	extras  map[string]string
	control map[string]ControlFile
	footer  *Footer
}

// NewReader creates a Reader for the container at path.
func NewReader(path string) *Reader {
	return NewReaderWithLogger(path, hclog.NewNullLogger())
}

// NewReaderWithLogger creates a Reader with a custom logger.
func NewReaderWithLogger(path string, logger hclog.Logger) *Reader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Reader{path: path, logger: logger}
}

// Open opens the container file.
func (r *Reader) Open() error {
	if r.file != nil {
		return nil
	}
	file, err := os.Open(r.path)
	if err != nil {
		return err
	}
	r.file = file
	return nil
}

// Close closes the container file.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Layout resolves and returns the container byte layout.
func (r *Reader) Layout() (*Layout, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	return r.layout, nil
}

// Descriptor returns the package descriptor recovered from the control block.
func (r *Reader) Descriptor() (*Descriptor, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	return r.desc, nil
}

// ControlFiles returns the decompressed control archive members.
func (r *Reader) ControlFiles() (map[string]ControlFile, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	return r.control, nil
}

// Footer returns the parsed container footer.
func (r *Reader) Footer() (*Footer, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	return r.footer, nil
}

// load resolves the layout, control archive, descriptor and footer once.
func (r *Reader) load() error {
	if r.layout != nil {
		return nil
	}
	if err := r.Open(); err != nil {
		return fmt.Errorf("opening container: %w", err)
	}

	info, err := r.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	minSize := int64(PreambleLenOffset+LengthFieldWidth) + ControlBlockSize + FooterSize
	if size < minSize {
		return fmt.Errorf("%w: %d bytes, need at least %d", npkerrors.ErrCorruptContainer, size, minSize)
	}

	header := make([]byte, PreambleLenOffset+LengthFieldWidth)
	if _, err := r.file.ReadAt(header, 0); err != nil {
		return fmt.Errorf("reading preamble header: %w", err)
	}
	if !strings.HasPrefix(string(header), preambleShebang) {
		return fmt.Errorf("%w: missing preamble shebang", npkerrors.ErrCorruptContainer)
	}

	preambleLen, err := parsePreambleLength(header)
	if err != nil {
		return fmt.Errorf("%w: %v", npkerrors.ErrCorruptContainer, err)
	}
	if preambleLen < int64(len(header)) || preambleLen+ControlBlockSize+FooterSize > size {
		return fmt.Errorf("%w: preamble length %d inconsistent with file size %d",
			npkerrors.ErrCorruptContainer, preambleLen, size)
	}

	controlBlock := make([]byte, ControlBlockSize)
	if _, err := r.file.ReadAt(controlBlock, preambleLen); err != nil {
		return fmt.Errorf("reading control block: %w", err)
	}
	control, err := unpackControl(controlBlock)
	if err != nil {
		return fmt.Errorf("%w: control block: %v", npkerrors.ErrCorruptContainer, err)
	}

	conf, ok := control[ConfName]
	if !ok {
		return fmt.Errorf("%w: control archive has no %s", npkerrors.ErrCorruptContainer, ConfName)
	}
	desc, extras, err := ParseConf(conf.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", npkerrors.ErrCorruptContainer, err)
	}

	dataField, ok := extras[KeyDataLength]
	if !ok {
		return fmt.Errorf("%w: control block records no %s", npkerrors.ErrCorruptContainer, KeyDataLength)
	}
	dataLen, err := strconv.ParseInt(dataField, 10, 64)
	if err != nil || dataLen < 0 {
		return fmt.Errorf("%w: bad %s %q", npkerrors.ErrCorruptContainer, KeyDataLength, dataField)
	}

	if preambleLen+ControlBlockSize+dataLen+FooterSize != size {
		return fmt.Errorf("%w: recorded lengths (%d+%d+%d+%d) do not match file size %d",
			npkerrors.ErrCorruptContainer, preambleLen, ControlBlockSize, dataLen, FooterSize, size)
	}

	footerBytes := make([]byte, FooterSize)
	if _, err := r.file.ReadAt(footerBytes, size-FooterSize); err != nil {
		return fmt.Errorf("reading footer: %w", err)
	}
	footer, err := ParseFooter(footerBytes)
	if err != nil {
		return err
	}

	r.layout = &Layout{PreambleLen: preambleLen, DataLen: dataLen, FileSize: size}
	r.desc = desc
	r.extras = extras
	r.control = control
	r.footer = footer

	r.logger.Debug("container layout resolved",
		"preamble", preambleLen, "data", dataLen, "size", size, "package", desc.Name)
	return nil
}

// ReadDataBlock returns the raw compressed data block.
func (r *Reader) ReadDataBlock() ([]byte, error) {
	if err := r.load(); err != nil {
		return nil, err
	}

	data := make([]byte, r.layout.DataLen)
	if _, err := r.file.ReadAt(data, r.layout.PreambleLen+ControlBlockSize); err != nil {
		return nil, fmt.Errorf("reading data block: %w", err)
	}
	return data, nil
}

// ExtractData decompresses the data block and unpacks the payload tree
// into dest.
func (r *Reader) ExtractData(dest string) error {
	compressed, err := r.ReadDataBlock()
	if err != nil {
		return err
	}

	gz, err := operations.Get(operations.OP_GZIP)
	if err != nil {
		return err
	}
	archive, err := gz.Reverse(compressed)
	if err != nil {
		return fmt.Errorf("%w: data block: %v", npkerrors.ErrCorruptContainer, err)
	}

	return bundle.UnpackTree(bytes.NewReader(archive), dest)
}

// ExtractControl writes the control archive members into destDir,
// preserving their modes.
func (r *Reader) ExtractControl(destDir string) error {
	control, err := r.ControlFiles()
	if err != nil {
		return err
	}

	for name, cf := range control {
		target := filepath.Join(destDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), DirPerms); err != nil {
			return err
		}
		if err := os.WriteFile(target, cf.Data, cf.Mode.Perm()); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks the container end to end: layout consistency, footer magic
// and both embedded archives decompressing cleanly.
func (r *Reader) Verify() error {
	if err := r.load(); err != nil {
		return err
	}

	compressed, err := r.ReadDataBlock()
	if err != nil {
		return err
	}
	gz, err := operations.Get(operations.OP_GZIP)
	if err != nil {
		return err
	}
	if _, err := gz.Reverse(compressed); err != nil {
		return fmt.Errorf("%w: data block: %v", npkerrors.ErrCorruptContainer, err)
	}
	return nil
}

// unpackControl decompresses the zero-padded control block and reads the tar
// members into memory. Multistream is disabled so the gzip reader stops at
// the end of the compressed stream instead of choking on the padding.
func unpackControl(block []byte) (map[string]ControlFile, error) {
	gr, err := gzip.NewReader(bytes.NewReader(block))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gr.Close()
	gr.Multistream(false)

	files := make(map[string]ControlFile)
	tr := tar.NewReader(gr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading control archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading control member %s: %w", header.Name, err)
		}
		files[header.Name] = ControlFile{
			Data: data,
			Mode: header.FileInfo().Mode(),
		}
	}

	return files, nil
}
