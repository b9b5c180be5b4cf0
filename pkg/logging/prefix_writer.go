package logging

import (
	"bytes"
	"io"
)

// PrefixWriter prepends a fixed prefix to every line written through it.
// Partial lines are held back until their newline arrives, so a line is
// never emitted with the prefix but without its tail.
type PrefixWriter struct {
	prefix  []byte
	out     io.Writer
	pending bytes.Buffer
}

// NewPrefixWriter wraps out so that each complete line carries the prefix.
func NewPrefixWriter(prefix string, out io.Writer) *PrefixWriter {
	return &PrefixWriter{prefix: []byte(prefix), out: out}
}

// Write buffers p and flushes every complete line with the prefix attached.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.pending.Write(p)

	for {
		nl := bytes.IndexByte(pw.pending.Bytes(), '\n')
		if nl < 0 {
			break
		}
		line := pw.pending.Next(nl + 1)
		if _, err := pw.out.Write(pw.prefix); err != nil {
			return 0, err
		}
		if _, err := pw.out.Write(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
