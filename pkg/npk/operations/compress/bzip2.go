package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/nasforge/npk/pkg/npk/operations"
)

func init() {
	operations.Register(&Bzip2Operation{
		BaseOperation: operations.BaseOperation{
			OpID:   operations.OP_BZIP2,
			OpName: "BZIP2",
		},
	})
}

// Bzip2Operation implements BZIP2 compression. The standard library only
// ships a bzip2 reader, so the writer side comes from dsnet/compress.
type Bzip2Operation struct {
	operations.BaseOperation
}

// Apply compresses data using BZIP2
func (o *Bzip2Operation) Apply(input []byte) ([]byte, error) {
	var buf bytes.Buffer

	bw, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: 9})
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 writer: %w", err)
	}

	if _, err := bw.Write(input); err != nil {
		bw.Close()
		return nil, fmt.Errorf("writing bzip2 data: %w", err)
	}

	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("closing bzip2 writer: %w", err)
	}

	return buf.Bytes(), nil
}

// ApplyStream compresses a stream using BZIP2
func (o *Bzip2Operation) ApplyStream(input io.Reader, output io.Writer) error {
	bw, err := bzip2.NewWriter(output, &bzip2.WriterConfig{Level: 9})
	if err != nil {
		return fmt.Errorf("creating bzip2 writer: %w", err)
	}

	if _, err := io.Copy(bw, input); err != nil {
		bw.Close()
		return fmt.Errorf("compressing stream: %w", err)
	}

	return bw.Close()
}

// Reverse decompresses BZIP2 data
func (o *Bzip2Operation) Reverse(input []byte) ([]byte, error) {
	br, err := bzip2.NewReader(bytes.NewReader(input), nil)
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 reader: %w", err)
	}
	defer br.Close()

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("reading bzip2 data: %w", err)
	}

	return data, nil
}

// ReverseStream decompresses a BZIP2 stream
func (o *Bzip2Operation) ReverseStream(input io.Reader, output io.Writer) error {
	br, err := bzip2.NewReader(input, nil)
	if err != nil {
		return fmt.Errorf("creating bzip2 reader: %w", err)
	}
	defer br.Close()

	if _, err := io.Copy(output, br); err != nil {
		return fmt.Errorf("decompressing stream: %w", err)
	}

	return nil
}
