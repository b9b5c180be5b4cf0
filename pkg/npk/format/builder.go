package format

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nasforge/npk/internal/stage"
	"github.com/nasforge/npk/pkg/icons"
	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
	"github.com/nasforge/npk/pkg/npk/operations"
	"github.com/nasforge/npk/pkg/npk/operations/bundle"
	_ "github.com/nasforge/npk/pkg/npk/operations/compress" // register codecs
)

// BuildOptions describe one assembly run.
type BuildOptions struct {
	// Descriptor is the immutable package metadata. Required.
	Descriptor *Descriptor

	// PayloadPath is the chosen payload: a single executable or a staged
	// directory tree. Required.
	PayloadPath string

	// ExtraPaths are auxiliary files copied next to the payload.
	ExtraPaths []string

	// PayloadMode overrides the mode of a single-file payload; zero means
	// ExecutablePerms. Ignored for directory payloads, which keep their
	// own modes.
	PayloadMode fs.FileMode

	// HooksDir optionally holds lifecycle hook scripts by name.
	HooksDir string

	// IconPath optionally points at a source image for the icon set; when
	// empty a flat placeholder is synthesized.
	IconPath string

	// OutputPath is the container destination. Required.
	OutputPath string
}

// Builder assembles an NPK/1 container. The descriptor is immutable input;
// all mutable build state (staging directories, computed block lengths) is
// owned here and discarded after the run.
type Builder struct {
	opts   BuildOptions
	logger hclog.Logger

	ws         *stage.Workspace
	dataBlock  []byte // compressed data archive, length D
	controlBlk []byte // padded control block, exactly ControlBlockSize
	preamble   []byte // rendered extractor, length L
	buildTime  time.Time
}

// NewBuilder creates a Builder for one assembly run.
func NewBuilder(opts BuildOptions, logger hclog.Logger) *Builder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Builder{opts: opts, logger: logger, buildTime: time.Now().UTC()}
}

// Build runs the assembly pipeline: stage and compress the payload, build
// the padded control block, render the self-describing preamble, then write
// preamble + control + data + footer to a temporary path and rename into
// place. No partial container is ever left at the output path.
func (b *Builder) Build() error {
	d := b.opts.Descriptor
	if d == nil {
		return npkerrors.Assembly("validate", fmt.Errorf("descriptor is required"))
	}
	if err := d.Validate(); err != nil {
		return npkerrors.Assembly("validate", err)
	}
	if b.opts.OutputPath == "" {
		return npkerrors.Assembly("validate", fmt.Errorf("output path is required"))
	}

	ws, err := stage.New("npk-build", b.logger)
	if err != nil {
		return npkerrors.Assembly("workspace", err)
	}
	b.ws = ws
	defer ws.Cleanup()

	if err := b.buildDataBlock(); err != nil {
		return err
	}
	if err := b.buildControlBlock(); err != nil {
		return err
	}

	b.preamble, err = renderPreamble(d, int64(len(b.dataBlock)))
	if err != nil {
		return npkerrors.Assembly("render preamble", err)
	}

	if err := b.writeContainer(); err != nil {
		return err
	}

	b.logger.Info("✅ container assembled",
		"output", b.opts.OutputPath,
		"package", d.Name,
		"version", d.Version,
		"preamble", len(b.preamble),
		"data", len(b.dataBlock))
	return nil
}

// buildDataBlock stages the payload tree and compresses it into the
// variable-length data block.
func (b *Builder) buildDataBlock() error {
	payload := b.opts.PayloadPath
	if payload == "" {
		return npkerrors.Assembly("stage payload", npkerrors.ErrPayloadMissing)
	}

	info, err := os.Stat(payload)
	if err != nil {
		return npkerrors.Assembly("stage payload", fmt.Errorf("%w: %v", npkerrors.ErrPayloadMissing, err))
	}

	dataDir, err := b.ws.Dir("data")
	if err != nil {
		return npkerrors.Assembly("stage payload", err)
	}

	if info.IsDir() {
		if err := copyTree(payload, dataDir); err != nil {
			return npkerrors.Assembly("stage payload", err)
		}
	} else {
		mode := b.opts.PayloadMode
		if mode == 0 {
			mode = ExecutablePerms
		}
		dst := filepath.Join(dataDir, filepath.Base(payload))
		if err := copyFile(payload, dst, mode); err != nil {
			return npkerrors.Assembly("stage payload", err)
		}
	}

	for _, extra := range b.opts.ExtraPaths {
		einfo, err := os.Stat(extra)
		if err != nil {
			return npkerrors.Assembly("stage extras", err)
		}
		if einfo.IsDir() {
			err = copyTree(extra, filepath.Join(dataDir, filepath.Base(extra)))
		} else {
			err = copyFile(extra, filepath.Join(dataDir, filepath.Base(extra)), einfo.Mode().Perm())
		}
		if err != nil {
			return npkerrors.Assembly("stage extras", err)
		}
	}

	iconDir := filepath.Join(dataDir, "icons")
	if err := icons.GeneratePlaceholders(b.opts.IconPath, b.opts.Descriptor.Name, iconDir); err != nil {
		return npkerrors.Assembly("generate icons", err)
	}

	gz, err := operations.Get(operations.OP_GZIP)
	if err != nil {
		return npkerrors.Assembly("compress data", err)
	}

	archive, err := packTree(dataDir)
	if err != nil {
		return npkerrors.Assembly("bundle data", err)
	}
	b.dataBlock, err = gz.Apply(archive)
	if err != nil {
		return npkerrors.Assembly("compress data", err)
	}

	b.logger.Debug("data block built", "uncompressed", len(archive), "compressed", len(b.dataBlock))
	return nil
}

// buildControlBlock serializes the descriptor plus the recorded data length,
// bundles the lifecycle hooks, compresses, enforces the fixed budget and
// zero-pads to exactly ControlBlockSize.
func (b *Builder) buildControlBlock() error {
	controlDir, err := b.ws.Dir("control")
	if err != nil {
		return npkerrors.Assembly("stage control", err)
	}

	conf := b.opts.Descriptor.MarshalConf()
	conf = append(conf, []byte(fmt.Sprintf("%s=%q\n", KeyDataLength, fmt.Sprint(len(b.dataBlock))))...)
	if err := os.WriteFile(filepath.Join(controlDir, ConfName), conf, FilePerms); err != nil {
		return npkerrors.Assembly("stage control", err)
	}

	hooks, err := LoadHooks(b.opts.HooksDir)
	if err != nil {
		return npkerrors.Assembly("load hooks", err)
	}
	hooksDir := filepath.Join(controlDir, HooksDirName)
	if err := os.MkdirAll(hooksDir, DirPerms); err != nil {
		return npkerrors.Assembly("stage control", err)
	}
	for name, script := range hooks {
		if err := os.WriteFile(filepath.Join(hooksDir, name), script, ExecutablePerms); err != nil {
			return npkerrors.Assembly("stage control", err)
		}
	}

	archive, err := packTree(controlDir)
	if err != nil {
		return npkerrors.Assembly("bundle control", err)
	}

	gz, err := operations.Get(operations.OP_GZIP)
	if err != nil {
		return npkerrors.Assembly("compress control", err)
	}
	compressed, err := gz.Apply(archive)
	if err != nil {
		return npkerrors.Assembly("compress control", err)
	}

	// Hard ceiling: fail rather than truncate.
	if len(compressed) > ControlBlockSize {
		return npkerrors.Assembly("control budget",
			fmt.Errorf("%w: %d > %d bytes", npkerrors.ErrControlTooLarge, len(compressed), ControlBlockSize))
	}

	b.controlBlk = make([]byte, ControlBlockSize)
	copy(b.controlBlk, compressed)

	b.logger.Debug("control block built", "compressed", len(compressed), "padded", ControlBlockSize)
	return nil
}

// writeContainer concatenates the four regions into a temp file and renames
// it into place, marking the result executable.
func (b *Builder) writeContainer() error {
	d := b.opts.Descriptor

	display := d.DisplayName
	if display == "" {
		display = d.Name
	}
	footer := &Footer{
		Timestamp:   b.buildTime,
		DisplayName: display,
		Version:     d.Version,
	}

	outDir := filepath.Dir(b.opts.OutputPath)
	if err := os.MkdirAll(outDir, DirPerms); err != nil {
		return npkerrors.Assembly("write container", err)
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", b.opts.OutputPath, os.Getpid())
	out, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, ExecutablePerms)
	if err != nil {
		return npkerrors.Assembly("write container", err)
	}

	writeErr := func() error {
		for _, region := range [][]byte{b.preamble, b.controlBlk, b.dataBlock, footer.Pack()} {
			if _, err := out.Write(region); err != nil {
				return err
			}
		}
		return out.Close()
	}()
	if writeErr != nil {
		out.Close()
		os.Remove(tmpPath)
		return npkerrors.Assembly("write container", writeErr)
	}

	if err := os.Chmod(tmpPath, ExecutablePerms); err != nil {
		os.Remove(tmpPath)
		return npkerrors.Assembly("write container", err)
	}
	if err := os.Rename(tmpPath, b.opts.OutputPath); err != nil {
		os.Remove(tmpPath)
		return npkerrors.Assembly("write container", err)
	}
	return nil
}

// packTree bundles a directory tree into an in-memory tar archive.
func packTree(root string) ([]byte, error) {
	var buf bytes.Buffer
	if err := bundle.PackTree(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
