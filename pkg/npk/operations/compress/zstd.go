package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/nasforge/npk/pkg/npk/operations"
)

func init() {
	operations.Register(&ZstdOperation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_ZSTD,
			OpName: "ZSTD",
		},
	})
}

// ZstdOperation implements Zstandard compression.
type ZstdOperation struct {
	operations.BaseOperation
}

// Apply compresses data using Zstandard
func (o *ZstdOperation) Apply(input []byte) ([]byte, error) {
	zw, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd writer: %w", err)
	}
	defer zw.Close()

	return zw.EncodeAll(input, nil), nil
}

// ApplyStream compresses a stream using Zstandard
func (o *ZstdOperation) ApplyStream(input io.Reader, output io.Writer) error {
	zw, err := zstd.NewWriter(output)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}

	if _, err := io.Copy(zw, input); err != nil {
		zw.Close()
		return fmt.Errorf("compressing stream: %w", err)
	}

	return zw.Close()
}

// Reverse decompresses Zstandard data
func (o *ZstdOperation) Reverse(input []byte) ([]byte, error) {
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	data, err := zr.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("reading zstd data: %w", err)
	}

	return data, nil
}

// ReverseStream decompresses a Zstandard stream
func (o *ZstdOperation) ReverseStream(input io.Reader, output io.Writer) error {
	zr, err := zstd.NewReader(input)
	if err != nil {
		return fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	if _, err := io.Copy(output, zr.IOReadCloser()); err != nil {
		return fmt.Errorf("decompressing stream: %w", err)
	}

	return nil
}
