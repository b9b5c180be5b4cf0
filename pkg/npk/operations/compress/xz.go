package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/nasforge/npk/pkg/npk/operations"
	"github.com/xi2/xz"
)

func init() {
	operations.Register(&XzOperation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_XZ,
			OpName: "XZ",
		},
	})
}

// ErrXzWriteUnsupported is returned by the forward direction: the resolver
// only ever needs to decompress xz members, and xi2/xz is a pure decoder.
var ErrXzWriteUnsupported = errors.New("xz compression not supported, decompress only")

// XzOperation implements XZ decompression for foreign archive members.
type XzOperation struct {
	operations.BaseOperation
}

// CanApply reports that the forward direction is not implemented.
func (o *XzOperation) CanApply() bool {
	return false
}

// Apply always fails; xz streams are only consumed, never produced.
func (o *XzOperation) Apply(input []byte) ([]byte, error) {
	return nil, ErrXzWriteUnsupported
}

// ApplyStream always fails; xz streams are only consumed, never produced.
func (o *XzOperation) ApplyStream(input io.Reader, output io.Writer) error {
	return ErrXzWriteUnsupported
}

// Reverse decompresses XZ data
func (o *XzOperation) Reverse(input []byte) ([]byte, error) {
	xr, err := xz.NewReader(bytes.NewReader(input), 0)
	if err != nil {
		return nil, fmt.Errorf("creating xz reader: %w", err)
	}

	data, err := io.ReadAll(xr)
	if err != nil {
		return nil, fmt.Errorf("reading xz data: %w", err)
	}

	return data, nil
}

// ReverseStream decompresses an XZ stream
func (o *XzOperation) ReverseStream(input io.Reader, output io.Writer) error {
	xr, err := xz.NewReader(input, 0)
	if err != nil {
		return fmt.Errorf("creating xz reader: %w", err)
	}

	if _, err := io.Copy(output, xr); err != nil {
		return fmt.Errorf("decompressing stream: %w", err)
	}

	return nil
}
