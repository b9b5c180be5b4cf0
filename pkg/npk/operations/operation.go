// Package operations defines the codec registry shared by the container
// assembler and the foreign package resolver.
//
// The assembler only ever produces GZIP streams, but foreign archive members
// arrive in whatever compression their producer chose, so the resolver looks
// codecs up by file extension and reverses them.
package operations

import (
	"fmt"
	"io"
)

// Operation identifiers. The numbering groups compression codecs in
// 0x10-0x2F, leaving low values for future bundling schemes.
const (
	OP_NONE  = 0x00
	OP_GZIP  = 0x10
	OP_BZIP2 = 0x13
	OP_XZ    = 0x16
	OP_ZSTD  = 0x1B
)

// Operation is a reversible byte-stream transformation.
type Operation interface {
	// ID returns the operation identifier (e.g. OP_GZIP)
	ID() uint8

	// Name returns the human-readable name
	Name() string

	// Apply applies the operation to input data
	Apply(input []byte) ([]byte, error)

	// ApplyStream applies the operation to a stream
	ApplyStream(input io.Reader, output io.Writer) error

	// Reverse reverses the operation (decompresses)
	Reverse(input []byte) ([]byte, error)

	// ReverseStream reverses the operation on a stream
	ReverseStream(input io.Reader, output io.Writer) error

	// CanApply reports whether the forward direction is implemented
	CanApply() bool
}

// BaseOperation provides common functionality for operations
type BaseOperation struct {
	OpID   uint8
	OpName string
}

func (o *BaseOperation) ID() uint8 {
	return o.OpID
}

func (o *BaseOperation) Name() string {
	return o.OpName
}

func (o *BaseOperation) CanApply() bool {
	return true
}

// Registry maps operation IDs to implementations
var Registry = make(map[uint8]Operation)

// Register registers an operation implementation
func Register(op Operation) {
	Registry[op.ID()] = op
}

// Get retrieves an operation by ID
func Get(id uint8) (Operation, error) {
	op, ok := Registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown operation: 0x%02x", id)
	}
	return op, nil
}

// extensions maps archive member suffixes to codec IDs. An empty extension
// (uncompressed member) maps to OP_NONE.
var extensions = map[string]uint8{
	"":     OP_NONE,
	".gz":  OP_GZIP,
	".bz2": OP_BZIP2,
	".xz":  OP_XZ,
	".zst": OP_ZSTD,
}

// ForExtension returns the codec registered for a member suffix such as
// ".gz" or ".zst". A nil Operation with a nil error means no codec is needed.
func ForExtension(ext string) (Operation, error) {
	id, ok := extensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported compression extension %q", ext)
	}
	if id == OP_NONE {
		return nil, nil
	}
	return Get(id)
}

// GetName returns the name of an operation by ID
func GetName(id uint8) string {
	switch id {
	case OP_NONE:
		return "NONE"
	case OP_GZIP:
		return "GZIP"
	case OP_BZIP2:
		return "BZIP2"
	case OP_XZ:
		return "XZ"
	case OP_ZSTD:
		return "ZSTD"
	default:
		return fmt.Sprintf("UNKNOWN_%02x", id)
	}
}
