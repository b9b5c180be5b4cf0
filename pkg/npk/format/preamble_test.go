package format

import (
	"fmt"
	"strings"
	"testing"
)

func TestPreambleSelfReportedLength(t *testing.T) {
	desc := &Descriptor{Name: "sample", DisplayName: "Sample App", Version: "1.0"}

	rendered, err := renderPreamble(desc, 123456)
	if err != nil {
		t.Fatalf("renderPreamble() error: %v", err)
	}

	if !strings.HasPrefix(string(rendered), preambleShebang) {
		t.Error("preamble does not start with the shebang")
	}

	parsed, err := parsePreambleLength(rendered)
	if err != nil {
		t.Fatalf("parsePreambleLength() error: %v", err)
	}
	if parsed != int64(len(rendered)) {
		t.Errorf("self-reported length %d, actual %d", parsed, len(rendered))
	}

	script := string(rendered)
	if strings.Contains(script, lenPlaceholder) {
		t.Error("length placeholder survived substitution")
	}
	if !strings.Contains(script, "NPK_DATA_LEN=123456\n") {
		t.Error("data length not embedded in preamble")
	}
	if !strings.Contains(script, fmt.Sprintf("NPK_CONTROL_LEN=%d\n", ControlBlockSize)) {
		t.Error("control length not embedded in preamble")
	}
}

func TestPreambleEscapesDisplayName(t *testing.T) {
	desc := &Descriptor{Name: "media-server", DisplayName: "Media \"Pro\" $Server `v2`\\"}

	rendered, err := renderPreamble(desc, 1)
	if err != nil {
		t.Fatalf("renderPreamble() error: %v", err)
	}

	// Every sh-special character must arrive escaped inside the double
	// quotes, so the extractor echoes the name verbatim.
	want := "NPK_DISPLAY_NAME=\"Media \\\"Pro\\\" \\$Server \\`v2\\`\\\\\"\n"
	if !strings.Contains(string(rendered), want) {
		t.Errorf("display name assignment not escaped:\n%s", rendered)
	}
}

func TestPreambleLengthFieldIsFixedWidth(t *testing.T) {
	short := &Descriptor{Name: "a"}
	long := &Descriptor{Name: "a-much-longer-package-name", DisplayName: "A Much Longer Display Name"}

	a, err := renderPreamble(short, 1)
	if err != nil {
		t.Fatalf("renderPreamble() error: %v", err)
	}
	b, err := renderPreamble(long, 999999999)
	if err != nil {
		t.Fatalf("renderPreamble() error: %v", err)
	}

	// The length field must sit at the same offset regardless of content.
	fieldA := string(a[PreambleLenOffset : PreambleLenOffset+LengthFieldWidth])
	fieldB := string(b[PreambleLenOffset : PreambleLenOffset+LengthFieldWidth])
	if len(fieldA) != LengthFieldWidth || len(fieldB) != LengthFieldWidth {
		t.Fatal("length field width drifted")
	}
	if fieldA == fieldB {
		t.Errorf("distinct preambles report the same length %q", fieldA)
	}
}

func TestParsePreambleLength(t *testing.T) {
	pad := strings.Repeat("x", PreambleLenOffset)

	testCases := []struct {
		name    string
		header  string
		want    int64
		wantErr bool
	}{
		{
			name:   "leading zeros parse as decimal",
			header: pad + "0000000817",
			want:   817,
		},
		{
			name:   "no leading zeros",
			header: pad + "1234567890",
			want:   1234567890,
		},
		{
			name:    "all zeros",
			header:  pad + "0000000000",
			wantErr: true,
		},
		{
			name:    "garbage field",
			header:  pad + "00000abcde",
			wantErr: true,
		},
		{
			name:    "too short",
			header:  "#!/bin/sh",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePreambleLength([]byte(tc.header))
			if tc.wantErr {
				if err == nil {
					t.Errorf("parsePreambleLength() = %d, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePreambleLength() error: %v", err)
			}
			if got != tc.want {
				t.Errorf("parsePreambleLength() = %d, want %d", got, tc.want)
			}
		})
	}
}
