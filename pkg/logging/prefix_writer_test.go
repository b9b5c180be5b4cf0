package logging

import (
	"bytes"
	"testing"
)

func TestPrefixWriter(t *testing.T) {
	var out bytes.Buffer
	pw := NewPrefixWriter(">> ", &out)

	pw.Write([]byte("first line\nsecond "))
	pw.Write([]byte("line\n"))

	want := ">> first line\n>> second line\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestPrefixWriterHoldsPartialLines(t *testing.T) {
	var out bytes.Buffer
	pw := NewPrefixWriter("* ", &out)

	pw.Write([]byte("no newline yet"))
	if out.Len() != 0 {
		t.Errorf("partial line flushed early: %q", out.String())
	}

	pw.Write([]byte("\n"))
	if out.String() != "* no newline yet\n" {
		t.Errorf("output = %q", out.String())
	}
}
